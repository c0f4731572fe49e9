package affinity

import "strings"

// insightsPayload is the raw response body. The provider has shipped two
// response generations; which one applies is decided explicitly in
// generation(), never by probing arbitrary keys downstream.
type insightsPayload struct {
	Results *struct {
		Tags []tagResult `json:"tags"`
	} `json:"results"`
	Affinities []legacyAffinity `json:"affinities"`
}

// tagResult is one tag of the current Insights generation.
type tagResult struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// legacyAffinity is one entry of the legacy response generation.
type legacyAffinity struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

type payloadGeneration int

const (
	generationCurrent payloadGeneration = iota
	generationLegacy
)

func (p *insightsPayload) generation() payloadGeneration {
	if p.Results != nil {
		return generationCurrent
	}
	return generationLegacy
}

// genericTagDenylist filters provider tags too generic or irrelevant to be
// useful as cultural context.
var genericTagDenylist = map[string]struct{}{
	"coin toss":       {},
	"hair pulling":    {},
	"experiment":      {},
	"timeline":        {},
	"truth or dare":   {},
	"twerking":        {},
	"announcement":    {},
	"thrown out":      {},
	"self absorption": {},
	"coral reef":      {},
	"unwed pregnancy": {},
}

const maxTagsConsidered = 15

// tagTypeDomains maps provider tag-type substrings onto the internal
// domain taxonomy, in match priority order.
var tagTypeDomains = []struct {
	substrings []string
	domain     string
}{
	{[]string{"movie", "tv_show"}, "film"},
	{[]string{"music"}, "music"},
	{[]string{"book"}, "books"},
	{[]string{"place"}, "travel"},
	{[]string{"brand"}, "brands"},
}

// fallbackThemes is the canned per-domain substitute used when mapping
// yields nothing. Enrichment is never visibly absent to the user; the
// Source tag lets callers (and tests) tell real content from fallback.
func fallbackThemes() []DomainItems {
	return []DomainItems{
		{Domain: "film", Items: []string{"Cinematic storytelling", "Visual narrative", "Dramatic tension"}},
		{Domain: "music", Items: []string{"Rhythmic elements", "Melodic themes", "Cultural soundscape"}},
		{Domain: "books", Items: []string{"Literary depth", "Character development", "Narrative structure"}},
		{Domain: "travel", Items: []string{"Cultural exploration", "Geographic diversity", "Urban landscapes"}},
		{Domain: "brands", Items: []string{"Lifestyle integration", "Cultural identity", "Modern aesthetics"}},
	}
}

// normalizeAffinities maps a raw payload onto the internal domain
// taxonomy, preserving discovery order and deduplicating items.
func normalizeAffinities(payload *insightsPayload) *Result {
	var domains []DomainItems
	switch payload.generation() {
	case generationCurrent:
		domains = normalizeTags(payload.Results.Tags)
	case generationLegacy:
		domains = normalizeLegacy(payload.Affinities)
	}

	if len(domains) == 0 {
		return &Result{Domains: fallbackThemes(), Source: SourceEnrichmentFallback}
	}

	for i := range domains {
		if len(domains[i].Items) > contextItemsPerDomain {
			domains[i].Items = domains[i].Items[:contextItemsPerDomain]
		}
	}
	return &Result{Domains: domains, Source: SourceAPI}
}

func normalizeTags(tags []tagResult) []DomainItems {
	if len(tags) > maxTagsConsidered {
		tags = tags[:maxTagsConsidered]
	}

	collector := newDomainCollector()
	for _, tag := range tags {
		if tag.Name == "" {
			continue
		}
		if _, denied := genericTagDenylist[strings.ToLower(tag.Name)]; denied {
			continue
		}
		for _, tagType := range tag.Types {
			if domain, ok := domainForTagType(tagType); ok {
				collector.add(domain, tag.Name)
			}
		}
	}
	return collector.domains
}

func normalizeLegacy(affinities []legacyAffinity) []DomainItems {
	collector := newDomainCollector()
	for _, a := range affinities {
		if a.Name == "" {
			continue
		}
		domain := a.Domain
		if domain == "" {
			domain = "unknown"
		}
		collector.add(domain, a.Name)
	}
	return collector.domains
}

func domainForTagType(tagType string) (string, bool) {
	for _, mapping := range tagTypeDomains {
		for _, sub := range mapping.substrings {
			if strings.Contains(tagType, sub) {
				return mapping.domain, true
			}
		}
	}
	return "", false
}

// recommendationTagTypes maps a target domain to the provider tag types
// accepted for recommendations.
var recommendationTagTypes = map[string][]string{
	"music":      {"urn:entity:music"},
	"film":       {"urn:entity:movie", "urn:entity:tv_show"},
	"television": {"urn:entity:tv_show"},
	"books":      {"urn:entity:book"},
	"travel":     {"urn:entity:place"},
	"brands":     {"urn:entity:brand"},
}

const maxRecommendationTags = 10

// normalizeRecommendations filters tags to the target domain and returns
// up to limit unique names.
func normalizeRecommendations(payload *insightsPayload, targetDomain string, limit int) []string {
	if payload.generation() != generationCurrent {
		// The legacy generation never carried per-domain recommendations.
		return nil
	}

	targetTypes := recommendationTagTypes[targetDomain]
	tags := payload.Results.Tags
	if len(tags) > maxRecommendationTags {
		tags = tags[:maxRecommendationTags]
	}

	var names []string
	seen := make(map[string]struct{})
	for _, tag := range tags {
		if tag.Name == "" {
			continue
		}
		if _, dup := seen[tag.Name]; dup {
			continue
		}
		if tagMatchesTypes(tag, targetTypes) {
			names = append(names, tag.Name)
			seen[tag.Name] = struct{}{}
			if len(names) >= limit {
				break
			}
		}
	}
	return names
}

func tagMatchesTypes(tag tagResult, targetTypes []string) bool {
	for _, tagType := range tag.Types {
		for _, target := range targetTypes {
			if strings.Contains(tagType, target) {
				return true
			}
		}
	}
	return false
}

// domainCollector accumulates unique items per domain while preserving
// domain discovery order.
type domainCollector struct {
	domains []DomainItems
	index   map[string]int
	seen    map[string]map[string]struct{}
}

func newDomainCollector() *domainCollector {
	return &domainCollector{
		index: make(map[string]int),
		seen:  make(map[string]map[string]struct{}),
	}
}

func (c *domainCollector) add(domain, item string) {
	i, ok := c.index[domain]
	if !ok {
		i = len(c.domains)
		c.index[domain] = i
		c.domains = append(c.domains, DomainItems{Domain: domain})
		c.seen[domain] = make(map[string]struct{})
	}
	if _, dup := c.seen[domain][item]; dup {
		return
	}
	c.seen[domain][item] = struct{}{}
	c.domains[i].Items = append(c.domains[i].Items, item)
}
