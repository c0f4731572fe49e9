package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// Narrative API (Perplexity, OpenAI-compatible chat completions)
	PerplexityAPIKey  string `envconfig:"PERPLEXITY_API_KEY" required:"true"`
	PerplexityBaseURL string `envconfig:"PERPLEXITY_BASE_URL" default:"https://api.perplexity.ai"`
	NarrativeModel    string `envconfig:"NARRATIVE_MODEL" default:"sonar-pro"`

	// Affinity API (Qloo Insights)
	QlooAPIKey  string `envconfig:"QLOO_API_KEY" required:"true"`
	QlooBaseURL string `envconfig:"QLOO_BASE_URL" default:"https://hackathon.api.qloo.com"`

	// Upstream calls share a fixed timeout, no retries beyond the
	// affinity client's single alternate-auth attempt.
	UpstreamTimeoutSeconds int `envconfig:"UPSTREAM_TIMEOUT_SECONDS" default:"30"`

	// Optional Redis backend for the rate-limit ledger. The in-memory
	// ledger is used when the address is empty.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Base URL used when building shareable story links.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig loads configuration from environment variables.
// Startup fails fast when a required API credential is absent.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	log.Printf("Configuration loaded: env=%s, port=%s, model=%s", cfg.Env, cfg.ServerPort, cfg.NarrativeModel)
	if cfg.RedisAddr != "" {
		log.Printf("Rate-limit ledger backend: redis (%s)", cfg.RedisAddr)
	} else {
		log.Println("Rate-limit ledger backend: in-memory")
	}
	return &cfg, nil
}
