// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Duration is a time.Duration that reads and writes as "5s" style text in
// JSON config files and environment variables.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the configuration that can be loaded from a JSON file and
// overridden from PORTFOLIO_* environment variables.
// All fields are optional; missing values use defaults or CLI flags.
type Config struct {
	// Data
	Projects     string `json:"projects,omitempty" env:"PORTFOLIO_PROJECTS"`           // Path to the project dataset
	TagHierarchy string `json:"tag_hierarchy,omitempty" env:"PORTFOLIO_TAG_HIERARCHY"` // Path to the tag hierarchy (JSON or YAML)
	AssetRoot    string `json:"asset_root,omitempty" env:"PORTFOLIO_ASSET_ROOT"`       // Directory image paths resolve against

	// Server
	Port        int      `json:"port,omitempty" env:"PORTFOLIO_PORT" validate:"omitempty,min=1,max=65535"`
	Watch       bool     `json:"watch,omitempty" env:"PORTFOLIO_WATCH"` // Reload the dataset when files change
	SessionTTL  Duration `json:"session_ttl,omitempty" env:"PORTFOLIO_SESSION_TTL"`
	MaxSessions int      `json:"max_sessions,omitempty" env:"PORTFOLIO_MAX_SESSIONS" validate:"gte=0"`

	// Badge persistence
	DBPath       string   `json:"db_path,omitempty" env:"PORTFOLIO_DB_PATH"`                                   // SQLite file
	DatabaseURL  string   `json:"database_url,omitempty" env:"PORTFOLIO_DATABASE_URL" validate:"omitempty,url"` // PostgreSQL connection URL
	DismissDelay Duration `json:"dismiss_delay,omitempty" env:"PORTFOLIO_DISMISS_DELAY"`

	// Logging
	LogLevel string `json:"log_level,omitempty" env:"PORTFOLIO_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Verbose  bool   `json:"verbose,omitempty" env:"PORTFOLIO_VERBOSE"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:         8080,
		SessionTTL:   Duration(24 * time.Hour),
		MaxSessions:  10000,
		DismissDelay: Duration(5 * time.Second),
		LogLevel:     "info",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables. Variables that are
// unset or empty leave the field untouched. A nil environ reads the process
// environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	opts := env.Options{Environment: environ}
	if environ == nil {
		opts.Environment = env.ToMap(os.Environ())
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values.
// Required paths are checked by the commands that need them.
func (c *Config) Validate() error {
	if c.DBPath != "" && c.DatabaseURL != "" {
		return fmt.Errorf("config error: 'db_path' and 'database_url' are mutually exclusive")
	}
	if c.DismissDelay < 0 {
		return fmt.Errorf("config error: 'dismiss_delay' must be non-negative")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("config error: 'session_ttl' must be non-negative")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Projects != "" {
		if _, err := os.Stat(c.Projects); os.IsNotExist(err) {
			return fmt.Errorf("config error: projects file not found: %s", c.Projects)
		}
	}
	if c.TagHierarchy != "" {
		if _, err := os.Stat(c.TagHierarchy); os.IsNotExist(err) {
			return fmt.Errorf("config error: tag hierarchy file not found: %s", c.TagHierarchy)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Projects == "" {
		result.Projects = defaults.Projects
	}
	if result.TagHierarchy == "" {
		result.TagHierarchy = defaults.TagHierarchy
	}
	if result.AssetRoot == "" {
		result.AssetRoot = defaults.AssetRoot
	}
	if result.DBPath == "" && result.DatabaseURL == "" {
		result.DBPath = defaults.DBPath
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxSessions == 0 {
		result.MaxSessions = defaults.MaxSessions
	}
	if result.SessionTTL == 0 {
		result.SessionTTL = defaults.SessionTTL
	}
	if result.DismissDelay == 0 {
		result.DismissDelay = defaults.DismissDelay
	}

	// Bools cannot distinguish unset from false; flags win.

	return result
}
