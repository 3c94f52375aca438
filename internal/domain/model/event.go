// Package model contains domain records passed between layers.
package model

import (
	"time"

	"github.com/okian/checkpoint/internal/domain/scoring"
)

// TimestampLayout is the layout of server-generated event timestamps:
// UTC, microsecond precision, trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Event is a scored checkpoint reading kept for map display.
type Event struct {
	ID           int64   `json:"id"`
	Timestamp    string  `json:"timestamp"`
	CheckpointID string  `json:"checkpoint_id,omitempty"`
	VehicleID    string  `json:"vehicle_id,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	IsSuspicious int     `json:"is_suspicious"`
	Probability  float64 `json:"probability"`
	RiskScore    int     `json:"risk_score"`
}

// NewEvent builds an unsaved event from a location and a prediction. An empty
// timestamp is replaced with now.
func NewEvent(ts, checkpointID, vehicleID string, lat, lon float64, r scoring.Result, now time.Time) Event {
	if ts == "" {
		ts = now.UTC().Format(TimestampLayout)
	}
	return Event{
		Timestamp:    ts,
		CheckpointID: checkpointID,
		VehicleID:    vehicleID,
		Latitude:     lat,
		Longitude:    lon,
		IsSuspicious: r.IsSuspicious,
		Probability:  r.Probability,
		RiskScore:    r.RiskScore,
	}
}

// Result returns the prediction triple stored on the event.
func (e Event) Result() scoring.Result {
	return scoring.Result{IsSuspicious: e.IsSuspicious, Probability: e.Probability, RiskScore: e.RiskScore}
}

// Filter narrows an event listing. Zero values disable each criterion.
type Filter struct {
	OnlySuspicious bool
	MinRisk        int
	Limit          int
}

// Matches reports whether e passes the suspicious and risk criteria.
// Limit is applied by the caller.
func (f Filter) Matches(e Event) bool {
	if f.OnlySuspicious && e.IsSuspicious != 1 {
		return false
	}
	if f.MinRisk > 0 && e.RiskScore < f.MinRisk {
		return false
	}
	return true
}
