package affinity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://hackathon.api.qloo.com"
	defaultTimeout = 30 * time.Second

	insightsPath = "/v2/insights"

	maxSignalEntities = 5
	maxSeedEntities   = 3
	contextItemsPerDomain = 3
)

// ErrNoEntities is returned when a fetch is attempted with an empty
// entity list; no network call is made.
var ErrNoEntities = errors.New("no entities provided")

// UpstreamError carries a non-200 status after the alternate-auth retry.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("affinity API error: %d - %s", e.Status, e.Body)
}

// Source tags whether affinity content came from the provider or from the
// canned enrichment fallback.
type Source string

const (
	SourceAPI                Source = "api"
	SourceEnrichmentFallback Source = "enrichment_fallback"
)

// DomainItems is one domain of the internal taxonomy with its items, in
// provider discovery order.
type DomainItems struct {
	Domain string   `json:"domain"`
	Items  []string `json:"items"`
}

// Result is a normalized affinity response.
type Result struct {
	Domains []DomainItems `json:"domains"`
	Source  Source        `json:"source"`
}

// Config holds the affinity client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client wraps the Qloo Insights API. Requests authenticate with an
// X-API-Key header and retry exactly once with a bearer header on 401;
// there is no backoff loop.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates an affinity client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("affinity API key is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger.Named("AffinityClient"),
	}, nil
}

// domainEntityTypes maps the internal domain taxonomy to provider entity
// type URNs.
var domainEntityTypes = map[string]string{
	"music":      "urn:entity:music",
	"film":       "urn:entity:movie",
	"television": "urn:entity:tv_show",
	"books":      "urn:entity:book",
	"travel":     "urn:entity:place",
	"brands":     "urn:entity:brand",
}

// FetchAffinities queries cross-domain affinities for the given entities.
// Entities beyond the signal cap are truncated silently. Domains, when
// provided, narrow the provider's parent entity types.
func (c *Client) FetchAffinities(ctx context.Context, entities []string, domains []string) (*Result, error) {
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}
	if len(entities) > maxSignalEntities {
		entities = entities[:maxSignalEntities]
	}

	params := url.Values{}
	params.Set("filter.type", "urn:tag")
	var entityTypes []string
	for _, domain := range domains {
		if urn, ok := domainEntityTypes[domain]; ok {
			entityTypes = append(entityTypes, urn)
		}
	}
	if len(entityTypes) > 0 {
		params.Set("filter.parents.types", strings.Join(entityTypes, ","))
	}
	params.Set("signal.interests.tags", strings.Join(entities, ","))

	payload, err := c.doInsights(ctx, params)
	if err != nil {
		return nil, err
	}

	result := normalizeAffinities(payload)
	if result.Source == SourceEnrichmentFallback {
		c.logger.Debug("Affinity mapping yielded no domains, using enrichment fallback")
	}
	return result, nil
}

// FetchRecommendations queries items affine to the seed entities within a
// single target domain, truncated to limit.
func (c *Client) FetchRecommendations(ctx context.Context, seedEntities []string, targetDomain string, limit int) ([]string, error) {
	if len(seedEntities) == 0 {
		return nil, ErrNoEntities
	}
	if len(seedEntities) > maxSeedEntities {
		seedEntities = seedEntities[:maxSeedEntities]
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("filter.type", "urn:tag")
	if urn, ok := domainEntityTypes[targetDomain]; ok {
		params.Set("filter.parents.types", urn)
	}
	params.Set("signal.interests.entities", strings.Join(seedEntities, ","))

	payload, err := c.doInsights(ctx, params)
	if err != nil {
		return nil, err
	}

	return normalizeRecommendations(payload, targetDomain, limit), nil
}

// BuildCulturalContext composes entity extraction and affinity lookup
// into the "domain: a, b, c; domain2: ..." context string. An empty
// result means no enrichment, not an error; affinity failures degrade to
// an empty string here.
func (c *Client) BuildCulturalContext(ctx context.Context, text string) string {
	entities := ExtractEntities(text)
	if len(entities) == 0 {
		return ""
	}

	result, err := c.FetchAffinities(ctx, entities, nil)
	if err != nil {
		c.logger.Warn("Cultural context unavailable", zap.Error(err))
		return ""
	}

	return FormatContext(result)
}

// FormatContext renders a normalized result as the semicolon-joined
// cultural-context string, keeping domain discovery order.
func FormatContext(result *Result) string {
	var clauses []string
	for _, d := range result.Domains {
		if len(d.Items) == 0 {
			continue
		}
		items := d.Items
		if len(items) > contextItemsPerDomain {
			items = items[:contextItemsPerDomain]
		}
		clauses = append(clauses, fmt.Sprintf("%s: %s", d.Domain, strings.Join(items, ", ")))
	}
	return strings.Join(clauses, "; ")
}

// doInsights performs one GET against the insights endpoint. On 401 it
// retries once with the alternate bearer-header scheme before surfacing
// the failure.
func (c *Client) doInsights(ctx context.Context, params url.Values) (*insightsPayload, error) {
	endpoint := c.baseURL + insightsPath + "?" + params.Encode()

	resp, err := c.get(ctx, endpoint, false)
	if err != nil {
		return nil, fmt.Errorf("affinity request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.logger.Debug("Affinity API rejected X-API-Key auth, retrying with bearer header")
		resp, err = c.get(ctx, endpoint, true)
		if err != nil {
			return nil, fmt.Errorf("affinity request failed: %w", err)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read affinity response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload insightsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode affinity response: %w", err)
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, endpoint string, bearerAuth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerAuth {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.httpClient.Do(req)
}
