// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers .env, an optional YAML file and environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// ModelPath points at the YAML model bundle loaded at startup.
	ModelPath string `koanf:"model_path"`

	// RateLimitRPS and RateLimitBurst bound scoring requests per second.
	// A zero RPS disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// BatchMaxSize caps the number of inputs in POST /predict/batch.
	BatchMaxSize int `koanf:"batch_max_size"`

	// BatchConcurrency bounds parallel scoring inside one batch.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// OTLPEndpoint enables tracing export when non-empty (host:port).
	OTLPEndpoint string `koanf:"otlp_endpoint"`

	// ServiceName is reported on traces.
	ServiceName string `koanf:"service_name"`

	// MetricsRefreshInterval is how often runtime gauges are sampled, e.g. "10s".
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8000",
		ModelPath:        "models/fraud_model.yaml",
		RateLimitRPS:     200,
		RateLimitBurst:   50,
		BatchMaxSize:     500,
		BatchConcurrency: runtime.NumCPU(),
		ServiceName:      "fraudrisk",

		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate checks invariants that Load cannot express through types.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst <= 0:
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting is enabled", ErrInvalidConfig)
	case c.BatchMaxSize <= 0:
		return fmt.Errorf("%w: batch_max_size must be positive", ErrInvalidConfig)
	case c.BatchConcurrency <= 0:
		return fmt.Errorf("%w: batch_concurrency must be positive", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
