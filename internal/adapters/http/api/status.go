package api

import (
	"context"
	"net/http"
)

// StatusDependencies exposes model readiness and store size.
type StatusDependencies interface {
	Ready() bool
	ModelPath() string
	EventCount(ctx context.Context) int
}

// StatusHandler handles status requests.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

type statusResponse struct {
	OK           bool   `json:"ok"`
	ModelReady   bool   `json:"model_ready"`
	ModelPath    string `json:"model_path"`
	EventsCached int    `json:"events_cached"`
}

// HandleStatus handles GET /api/checkpoints/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		OK:           true,
		ModelReady:   h.deps.Ready(),
		ModelPath:    h.deps.ModelPath(),
		EventsCached: h.deps.EventCount(r.Context()),
	})
}
