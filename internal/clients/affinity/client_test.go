package affinity_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"narravox-server/internal/clients/affinity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *affinity.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := affinity.NewClient(affinity.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := affinity.NewClient(affinity.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestFetchAffinitiesCurrentGeneration(t *testing.T) {
	var gotQuery string
	var gotAPIKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/insights", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": {"tags": [
			{"name": "Jazz", "types": ["urn:tag:genre:music"]},
			{"name": "Noir", "types": ["urn:tag:genre:movie"]},
			{"name": "Bebop", "types": ["urn:tag:genre:music"]},
			{"name": "Jazz", "types": ["urn:tag:genre:music"]}
		]}}`)
	})

	result, err := client.FetchAffinities(context.Background(), []string{"jazz", "detective"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotAPIKey)
	assert.Contains(t, gotQuery, "signal.interests.tags=jazz%2Cdetective")
	assert.Equal(t, affinity.SourceAPI, result.Source)

	require.Len(t, result.Domains, 2)
	assert.Equal(t, "music", result.Domains[0].Domain)
	assert.Equal(t, []string{"Jazz", "Bebop"}, result.Domains[0].Items, "duplicates collapse, order kept")
	assert.Equal(t, "film", result.Domains[1].Domain)
	assert.Equal(t, []string{"Noir"}, result.Domains[1].Items)
}

func TestFetchAffinitiesLegacyGeneration(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"affinities": [
			{"domain": "music", "name": "Cool Jazz"},
			{"domain": "", "name": "Mystery Thing"}
		]}`)
	})

	result, err := client.FetchAffinities(context.Background(), []string{"jazz"}, nil)
	require.NoError(t, err)

	assert.Equal(t, affinity.SourceAPI, result.Source)
	require.Len(t, result.Domains, 2)
	assert.Equal(t, "music", result.Domains[0].Domain)
	assert.Equal(t, "unknown", result.Domains[1].Domain)
}

func TestFetchAffinitiesGenericTagsFallBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Only denylisted or unmappable tags: normalization yields nothing.
		fmt.Fprint(w, `{"results": {"tags": [
			{"name": "Coin Toss", "types": ["urn:tag:genre:movie"]},
			{"name": "Experiment", "types": ["urn:tag:genre:music"]},
			{"name": "Something", "types": ["urn:tag:genre:podcast"]}
		]}}`)
	})

	result, err := client.FetchAffinities(context.Background(), []string{"jazz"}, nil)
	require.NoError(t, err)

	assert.Equal(t, affinity.SourceEnrichmentFallback, result.Source)
	require.Len(t, result.Domains, 5)
	assert.Equal(t, "film", result.Domains[0].Domain)
	assert.Equal(t, []string{"Cinematic storytelling", "Visual narrative", "Dramatic tension"}, result.Domains[0].Items)
}

func TestFetchAffinitiesTruncatesSignalEntities(t *testing.T) {
	var gotTags string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTags = r.URL.Query().Get("signal.interests.tags")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": {"tags": []}}`)
	})

	entities := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	_, err := client.FetchAffinities(context.Background(), entities, nil)
	require.NoError(t, err)
	assert.Equal(t, "a1,a2,a3,a4,a5", gotTags)
}

func TestFetchAffinitiesNoEntities(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.FetchAffinities(context.Background(), nil, nil)
	assert.ErrorIs(t, err, affinity.ErrNoEntities)
	assert.False(t, called, "no network call without entities")
}

func TestDoInsightsRetriesWithBearerOn401(t *testing.T) {
	var auths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "" {
			auths = append(auths, "x-api-key")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		auths = append(auths, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": {"tags": [{"name": "Jazz", "types": ["urn:tag:genre:music"]}]}}`)
	})

	result, err := client.FetchAffinities(context.Background(), []string{"jazz"}, nil)
	require.NoError(t, err)
	assert.Equal(t, affinity.SourceAPI, result.Source)
	assert.Equal(t, []string{"x-api-key", "Bearer test-key"}, auths)
}

func TestDoInsightsSurfacesUpstreamError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "insights exploded")
	})

	_, err := client.FetchAffinities(context.Background(), []string{"jazz"}, nil)
	require.Error(t, err)

	var upstreamErr *affinity.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.Status)
	assert.Equal(t, "insights exploded", upstreamErr.Body)
	assert.Equal(t, 1, calls, "only 401 triggers the alternate-auth retry")
}

func TestBuildCulturalContext(t *testing.T) {
	t.Run("formats domains in discovery order", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"results": {"tags": [
				{"name": "Jazz", "types": ["urn:tag:genre:music"]},
				{"name": "Noir", "types": ["urn:tag:genre:movie"]}
			]}}`)
		})

		got := client.BuildCulturalContext(context.Background(), `a "jazz" detective story`)
		assert.Equal(t, "music: Jazz; film: Noir", got)
	})

	t.Run("empty text makes no network call", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		assert.Equal(t, "", client.BuildCulturalContext(context.Background(), ""))
		assert.False(t, called)
	})

	t.Run("upstream failure degrades to empty", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		assert.Equal(t, "", client.BuildCulturalContext(context.Background(), "a jazz story"))
	})
}

func TestFormatContext(t *testing.T) {
	result := &affinity.Result{
		Domains: []affinity.DomainItems{
			{Domain: "music", Items: []string{"Jazz", "Bebop", "Swing", "Fusion"}},
			{Domain: "film", Items: nil},
			{Domain: "travel", Items: []string{"Tokyo"}},
		},
		Source: affinity.SourceAPI,
	}

	got := affinity.FormatContext(result)
	assert.Equal(t, "music: Jazz, Bebop, Swing; travel: Tokyo", got, "three items per domain, empty domains skipped")
}

func TestFetchRecommendations(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results": {"tags": [
			{"name": "Kind of Blue", "types": ["urn:entity:music"]},
			{"name": "Chinatown", "types": ["urn:entity:movie"]},
			{"name": "A Love Supreme", "types": ["urn:entity:music"]},
			{"name": "Giant Steps", "types": ["urn:entity:music"]}
		]}}`)
	})

	recs, err := client.FetchRecommendations(context.Background(), []string{"Miles Davis"}, "music", 2)
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotQuery, "signal.interests.entities=Miles+Davis"))
	assert.Equal(t, []string{"Kind of Blue", "A Love Supreme"}, recs, "filtered to target domain and capped at limit")
}
