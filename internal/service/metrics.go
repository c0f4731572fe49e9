package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storiesStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "narravox_stories_started_total",
		Help: "Total number of successfully started stories.",
	})

	storyTurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "narravox_story_turns_total",
		Help: "Total number of completed story turns (opener and continuations).",
	})

	rateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narravox_rate_limit_rejections_total",
			Help: "Total number of locally rejected calls by action kind.",
		},
		[]string{"action"},
	)

	enrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narravox_enrichment_total",
			Help: "Total number of affinity enrichments by source (api or enrichment_fallback).",
		},
		[]string{"source"},
	)

	upstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narravox_upstream_errors_total",
			Help: "Total number of upstream API failures by collaborator.",
		},
		[]string{"api"},
	)
)
