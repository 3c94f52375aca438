// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and CHECKPOINT_ env vars.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// ModelPath locates the model artifact loaded once at startup.
	ModelPath string `koanf:"model_path"`

	// MaxEvents caps the in-memory event history. Zero keeps everything.
	MaxEvents int `koanf:"max_events"`

	// GeoJSONMaxLimit caps GET /api/checkpoints/geojson?limit.
	GeoJSONMaxLimit int `koanf:"geojson_max_limit"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshInterval paces the system and service gauge updaters.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsPrefix is prepended to every metric name.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels attached to every metric. File only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsLatencyBuckets overrides the prediction latency histogram
	// buckets, in milliseconds. File only.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`
}

// Defaults.
const (
	DefaultLogLevel        = "info"
	DefaultAddr            = ":5000"
	DefaultModelPath       = "models/suspicious_driving_model.yaml"
	DefaultMaxEvents       = 0
	DefaultGeoJSONMaxLimit = 5000

	DefaultMetricsEnabled         = true
	DefaultMetricsRefreshInterval = 10 * time.Second
)

// New creates a Config populated with defaults. The context is reserved for
// loaders that need it.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        DefaultLogLevel,
		Addr:            DefaultAddr,
		ModelPath:       DefaultModelPath,
		MaxEvents:       DefaultMaxEvents,
		GeoJSONMaxLimit: DefaultGeoJSONMaxLimit,

		MetricsEnabled:         DefaultMetricsEnabled,
		MetricsRefreshInterval: DefaultMetricsRefreshInterval,
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ModelPath == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.MaxEvents < 0:
		return fmt.Errorf("%w: max_events must not be negative", ErrInvalidConfig)
	case c.GeoJSONMaxLimit <= 0:
		return fmt.Errorf("%w: geojson_max_limit must be positive", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsLatencyBuckets); i++ {
		if c.MetricsLatencyBuckets[i] <= c.MetricsLatencyBuckets[i-1] {
			return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}
