// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Playback PlaybackConfig          `yaml:"playback"`
	Fetch    FetchConfig             `yaml:"fetch"`
	Sink     SinkConfig              `yaml:"sink"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents control API server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// PlaybackConfig represents playback loop configuration.
type PlaybackConfig struct {
	CooldownMs int  `yaml:"cooldown_ms" default:"1500" validate:"gte=0,lte=60000"`
	Loop       bool `yaml:"loop"`
}

// Cooldown returns the inter-item cooldown as a duration.
func (c PlaybackConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// FetchConfig represents pre-fetch configuration for remote references.
type FetchConfig struct {
	CacheDir   string `yaml:"cache_dir"`
	TimeoutSec int    `yaml:"timeout_sec" default:"120" validate:"gte=0"`
	MaxBytes   int64  `yaml:"max_bytes" validate:"gte=0"`
	RatePerMin int    `yaml:"rate_per_min" validate:"gte=0"`
}

// Timeout returns the per-download timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SinkConfig represents output sink configuration.
type SinkConfig struct {
	Type     string         `yaml:"type" default:"exec" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents an admission filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents operator-facing rejection messages.
type MessagesConfig struct {
	QueueLimit         string `yaml:"queue_limit" default:"the queue is full, try again later"`
	DuplicateReference string `yaml:"duplicate_reference" default:"that reference is already queued"`
	UnsupportedScheme  string `yaml:"unsupported_scheme" default:"that kind of reference is not allowed"`
	DefaultError       string `yaml:"default_error" default:"the request was rejected"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
// Sink targets frequently embed stream keys, so they are supplied via the
// environment rather than committed to the config file.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SINK_TARGET"); v != "" {
		if c.Sink.Settings == nil {
			c.Sink.Settings = make(map[string]any)
		}
		c.Sink.Settings["target"] = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.Fetch.CacheDir = v
	}
}

// GetMessage returns the operator-facing message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "queue_limit":
		return c.Messages.QueueLimit
	case "duplicate_reference":
		return c.Messages.DuplicateReference
	case "unsupported_scheme":
		return c.Messages.UnsupportedScheme
	default:
		return c.Messages.DefaultError
	}
}

// IsFilterEnabled checks if the named filter is enabled.
func (c *Config) IsFilterEnabled(name string) bool {
	f, ok := c.Filters[name]
	return ok && f.Enabled
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
