// Package simulate drives synthetic checkpoint traffic against a running
// service and checks that every accepted reading was recorded.
package simulate

import (
	"errors"
	"time"
)

// Defaults.
const (
	DefaultBaseURL     = "http://localhost:5000"
	DefaultReadings    = 200
	DefaultWorkers     = 8
	DefaultCheckpoints = 5
	DefaultTimeout     = 10 * time.Second
	DefaultCenterLat   = 43.45
	DefaultCenterLon   = -80.49
	DefaultSpread      = 0.05
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service is not healthy")
	ErrVerification = errors.New("recorded event count does not match")
	ErrInvalid      = errors.New("invalid simulation config")
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Readings    int           // Number of readings to generate
	Workers     int           // Number of concurrent submitters
	Checkpoints int           // Number of distinct checkpoints
	Timeout     time.Duration // HTTP request timeout
	Retries     int           // Retries per request on transport errors
	Seed        uint64        // Generator seed; zero picks one from the clock
	CenterLat   float64       // Latitude of the map center
	CenterLon   float64       // Longitude of the map center
	Spread      float64       // Max offset in degrees from the center
	OutputFile  string        // Optional JSON dump of generated readings
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Readings:    DefaultReadings,
		Workers:     DefaultWorkers,
		Checkpoints: DefaultCheckpoints,
		Timeout:     DefaultTimeout,
		Retries:     1,
		CenterLat:   DefaultCenterLat,
		CenterLon:   DefaultCenterLon,
		Spread:      DefaultSpread,
	}
}

func (c Config) validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalid, errors.New("base URL is required"))
	case c.Readings <= 0:
		return errors.Join(ErrInvalid, errors.New("readings must be positive"))
	case c.Workers <= 0:
		return errors.Join(ErrInvalid, errors.New("workers must be positive"))
	case c.Checkpoints <= 0:
		return errors.Join(ErrInvalid, errors.New("checkpoints must be positive"))
	}
	return nil
}

// Reading is one generated checkpoint observation, shaped as the predict route expects.
type Reading struct {
	Latitude     float64            `json:"latitude"`
	Longitude    float64            `json:"longitude"`
	Timestamp    string             `json:"timestamp,omitempty"`
	CheckpointID string             `json:"checkpoint_id"`
	VehicleID    string             `json:"vehicle_id"`
	Features     map[string]float64 `json:"features"`
}

// Status mirrors the status route.
type Status struct {
	OK           bool   `json:"ok"`
	ModelReady   bool   `json:"model_ready"`
	ModelPath    string `json:"model_path"`
	EventsCached int    `json:"events_cached"`
}

// Stats holds run statistics.
type Stats struct {
	Generated    int
	Submitted    int
	Successful   int
	Failed       int
	Suspicious   int
	RiskTotal    int
	ModelReady   bool
	EventsBefore int
	EventsAfter  int
	Duration     time.Duration
}

// AverageRisk is the mean risk score over successful submissions.
func (s Stats) AverageRisk() float64 {
	if s.Successful == 0 {
		return 0
	}
	return float64(s.RiskTotal) / float64(s.Successful)
}
