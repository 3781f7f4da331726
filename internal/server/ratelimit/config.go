package ratelimit

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool             `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int              `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"600"`
	DefaultWindow   time.Duration    `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration    `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	IdleTimeout     time.Duration    `env:"RATE_LIMIT_IDLE_TIMEOUT" envDefault:"1h"`
	Whitelist       []string         `env:"RATE_LIMIT_WHITELIST" envSeparator:","`
	Blacklist       []string         `env:"RATE_LIMIT_BLACKLIST" envSeparator:","`
	EndpointConfigs []EndpointConfig `env:"-"`
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if !cfg.Enabled {
		return &Config{Enabled: false}, nil
	}
	cfg.Whitelist = cleanIPList(cfg.Whitelist)
	cfg.Blacklist = cleanIPList(cfg.Blacklist)
	cfg.EndpointConfigs = DefaultEndpointConfigs()
	return &cfg, nil
}

// DefaultConfig returns the configuration LoadConfig produces with no
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Session creation allocates an engine and a store row.
		{Path: "/sessions", Method: http.MethodPost, Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/sessions/", Method: http.MethodDelete, Limit: 30, Window: time.Minute, Burst: 5},

		// Event ingestion, dismissals and resets.
		{Path: "/sessions/", Method: http.MethodPost, Limit: 1200, Window: time.Minute, Burst: 120},

		// Reads use the default limit; /health is unlimited (see MatchEndpoint).
	}
}

// cleanIPList trims entries and drops blanks.
func cleanIPList(list []string) []string {
	var out []string
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			out = append(out, ip)
		}
	}
	return out
}
