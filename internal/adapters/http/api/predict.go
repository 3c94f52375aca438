package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okian/checkpoint/internal/domain/features"
	"github.com/okian/checkpoint/internal/domain/model"
	"github.com/okian/checkpoint/internal/domain/scoring"
	"github.com/okian/checkpoint/pkg/logger"
)

// PredictDependencies scores readings and records events.
type PredictDependencies interface {
	Predict(ctx context.Context, m features.Mapping) (scoring.Result, error)
	Record(ctx context.Context, e model.Event) (model.Event, error)
}

// PredictHandler handles single and batch prediction requests.
type PredictHandler struct {
	deps PredictDependencies
	log  logger.Logger
	now  func() time.Time
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies, log logger.Logger) *PredictHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PredictHandler{deps: deps, log: log, now: time.Now}
}

type predictResponse struct {
	OK    bool        `json:"ok"`
	Event model.Event `json:"event"`
}

type batchResult struct {
	CheckpointID string  `json:"checkpoint_id,omitempty"`
	VehicleID    string  `json:"vehicle_id,omitempty"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	IsSuspicious int     `json:"is_suspicious"`
	Probability  float64 `json:"probability"`
	RiskScore    int     `json:"risk_score"`
}

type batchResponse struct {
	OK      bool          `json:"ok"`
	Results []batchResult `json:"results"`
	Skipped int           `json:"skipped"`
}

// HandlePredict handles POST /api/checkpoints/predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ctx := r.Context()

	var req reading
	if err := decodeBody(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	lat, lon, err := req.location()
	if err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.score(ctx, op, req.Features)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	e := model.NewEvent(string(req.Timestamp), string(req.CheckpointID), string(req.VehicleID), lat, lon, res, h.now())
	saved, err := h.deps.Record(ctx, e)
	if err != nil {
		h.log.Error(ctx, "record event failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{OK: true, Event: saved})
}

// HandlePredictBatch handles POST /api/checkpoints/predict-batch requests.
// Items without coordinates or with unusable features are skipped; results
// are not stored.
func (h *PredictHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ctx := r.Context()

	var req batchRequest
	if err := decodeBody(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, errItemsRequired))
		return
	}

	resp := batchResponse{OK: true, Results: make([]batchResult, 0, len(req.Items))}
	for i, it := range req.Items {
		lat, lon, err := it.location()
		if err != nil {
			resp.Skipped++
			continue
		}
		res, err := h.score(ctx, op, it.Features)
		if err != nil {
			if errors.Is(err, ErrBadRequest) {
				h.log.Debug(ctx, "batch item skipped", logger.Int("index", i), logger.Error(err))
				resp.Skipped++
				continue
			}
			writeError(w, statusFor(err), err)
			return
		}
		resp.Results = append(resp.Results, batchResult{
			CheckpointID: string(it.CheckpointID),
			VehicleID:    string(it.VehicleID),
			Lat:          lat,
			Lon:          lon,
			IsSuspicious: res.IsSuspicious,
			Probability:  res.Probability,
			RiskScore:    res.RiskScore,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// score runs the prediction and classifies failures: unusable features are
// the client's fault, anything else is internal.
func (h *PredictHandler) score(ctx context.Context, op string, m features.Mapping) (scoring.Result, error) {
	res, err := h.deps.Predict(ctx, m)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, features.ErrNotNumeric) {
		return scoring.Result{}, WrapKind(op, ErrBadRequest, err)
	}
	h.log.Error(ctx, "prediction failed", logger.Error(err))
	return scoring.Result{}, Wrap(op, errors.New("prediction failed"))
}
