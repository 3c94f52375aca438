package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/checkpoint/internal/domain/model"
	"github.com/okian/checkpoint/internal/domain/types"
)

const (
	defaultGeoJSONLimit    = 500
	defaultGeoJSONMaxLimit = 5000
)

// GeoJSONDependencies lists stored events.
type GeoJSONDependencies interface {
	Events(ctx context.Context, f model.Filter) ([]model.Event, error)
}

// GeoJSONHandler serves recorded events as map points.
type GeoJSONHandler struct {
	deps     GeoJSONDependencies
	maxLimit int
}

// NewGeoJSONHandler creates a new geojson handler.
func NewGeoJSONHandler(deps GeoJSONDependencies, maxLimit int) *GeoJSONHandler {
	if maxLimit <= 0 {
		maxLimit = defaultGeoJSONMaxLimit
	}
	return &GeoJSONHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGeoJSON handles GET /api/checkpoints/geojson requests.
//
// Query parameters: only_suspicious ("1" by default, any other value
// disables it), min_risk (default 0) and limit (default 500).
func (h *GeoJSONHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	const op = "api.geojson"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	f, err := h.filter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	var events []model.Event
	if f.Limit > 0 {
		events, err = h.deps.Events(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, Wrap(op, err))
			return
		}
	}

	points := make([]types.Feature, 0, len(events))
	for _, e := range events {
		points = append(points, types.NewPoint(e.Latitude, e.Longitude, types.EventProperties{
			ID:           e.ID,
			Timestamp:    e.Timestamp,
			CheckpointID: e.CheckpointID,
			VehicleID:    e.VehicleID,
			RiskScore:    e.RiskScore,
			Probability:  e.Probability,
			IsSuspicious: e.IsSuspicious,
		}))
	}
	writeJSON(w, http.StatusOK, types.NewFeatureCollection(points))
}

func (h *GeoJSONHandler) filter(r *http.Request) (model.Filter, error) {
	q := r.URL.Query()
	f := model.Filter{OnlySuspicious: true}
	if q.Has("only_suspicious") {
		f.OnlySuspicious = q.Get("only_suspicious") == "1"
	}

	minRisk, err := parseIntParam(r, "min_risk", 0)
	if err != nil {
		return model.Filter{}, err
	}
	limit, err := parseIntParam(r, "limit", defaultGeoJSONLimit)
	if err != nil {
		return model.Filter{}, err
	}
	switch {
	case limit < 0:
		return model.Filter{}, errors.New("limit must not be negative")
	case limit > h.maxLimit:
		return model.Filter{}, fmt.Errorf("limit must not exceed %d", h.maxLimit)
	}

	f.MinRisk = minRisk
	f.Limit = limit
	return f, nil
}
