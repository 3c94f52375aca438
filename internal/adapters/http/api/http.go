// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/checkpoint/pkg/logger"
	"github.com/okian/checkpoint/pkg/metrics"
)

// maxBodyBytes bounds request bodies on the predict routes.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatusDependencies
	PredictDependencies
	GeoJSONDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statusHandler  *StatusHandler
	predictHandler *PredictHandler
	geojsonHandler *GeoJSONHandler
	statsHandler   *StatsHandler
	log            logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	geojsonMaxLimit int
	log             logger.Logger
}

// WithGeoJSONMaxLimit caps the geojson limit parameter.
func WithGeoJSONMaxLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.geojsonMaxLimit = n
		}
	}
}

// WithLogger sets the logger used by the handlers and middleware.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	cfg := serverConfig{geojsonMaxLimit: defaultGeoJSONMaxLimit, log: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statusHandler:  NewStatusHandler(deps),
		predictHandler: NewPredictHandler(deps, cfg.log),
		geojsonHandler: NewGeoJSONHandler(deps, cfg.geojsonMaxLimit),
		statsHandler:   NewStatsHandler(deps),
		log:            cfg.log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	wrap := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return RequestIDMiddleware(MetricsMiddleware(h, endpoint), s.log)
	}

	mux.HandleFunc("/api/health", wrap(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/api/checkpoints/status", wrap(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/api/checkpoints/predict", wrap(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/api/checkpoints/predict-batch", wrap(s.predictHandler.HandlePredictBatch, "predict_batch"))
	mux.HandleFunc("/api/checkpoints/geojson", wrap(s.geojsonHandler.HandleGeoJSON, "geojson"))
	mux.HandleFunc("/stats", wrap(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// encodeFailure is sent when a response value cannot be encoded.
const encodeFailure = `{"ok":false,"error":"response encoding failed"}` + "\n"

// writeJSON encodes v before committing the status, so an unencodable value
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		metrics.RecordErrorByComponent("api", "encode")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, encodeFailure)
		return
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, nil)
}
