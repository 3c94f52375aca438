package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/checkpoint/internal/adapters/http/api"
	"github.com/okian/checkpoint/internal/domain/features"
	"github.com/okian/checkpoint/internal/domain/model"
	"github.com/okian/checkpoint/internal/domain/scoring"
	"github.com/okian/checkpoint/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockService implements api.Dependencies in memory.
type mockService struct {
	mu       sync.Mutex
	ready    bool
	predict  func(features.Mapping) (scoring.Result, error)
	events   []model.Event
	seen     []features.Mapping
	recErr   error
	lastFilt model.Filter
}

func (m *mockService) Ready() bool       { return m.ready }
func (m *mockService) ModelPath() string { return "models/test.yaml" }

func (m *mockService) EventCount(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockService) Predict(_ context.Context, f features.Mapping) (scoring.Result, error) {
	m.mu.Lock()
	m.seen = append(m.seen, f)
	m.mu.Unlock()
	if !m.ready {
		return scoring.Result{}, nil
	}
	if m.predict != nil {
		return m.predict(f)
	}
	x, err := features.Assemble(f)
	if err != nil {
		return scoring.Result{}, err
	}
	return scoring.Normalize(x[0] / 200), nil
}

func (m *mockService) Record(_ context.Context, e model.Event) (model.Event, error) {
	if m.recErr != nil {
		return model.Event{}, m.recErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return e, nil
}

func (m *mockService) Events(_ context.Context, f model.Filter) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilt = f
	var out []model.Event
	for i := len(m.events) - 1; i >= 0; i-- {
		if f.Matches(m.events[i]) {
			out = append(out, m.events[i])
		}
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockService) GetStats() map[string]any {
	return map[string]any{"started": true, "events_cached": m.EventCount(context.Background())}
}

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type eventBody struct {
	OK    bool        `json:"ok"`
	Event model.Event `json:"event"`
}

type batchBody struct {
	OK      bool `json:"ok"`
	Results []struct {
		CheckpointID string  `json:"checkpoint_id"`
		VehicleID    string  `json:"vehicle_id"`
		Lat          float64 `json:"lat"`
		Lon          float64 `json:"lon"`
		IsSuspicious int     `json:"is_suspicious"`
		Probability  float64 `json:"probability"`
		RiskScore    int     `json:"risk_score"`
	} `json:"results"`
	Skipped int `json:"skipped"`
}

func newMux(deps api.Dependencies, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.NewDecoder(w.Body).Decode(v), ShouldBeNil)
}

func TestHealthAndStatus(t *testing.T) {
	Convey("Given a registered API", t, func() {
		deps := &mockService{ready: true}
		mux := newMux(deps)

		Convey("When calling health", func() {
			w := do(mux, http.MethodGet, "/api/health", "")

			Convey("Then it returns ok true", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"ok":true}`)
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			})
		})

		Convey("When a request ID is supplied", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is echoed back", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})

		Convey("When calling status", func() {
			deps.events = []model.Event{{ID: 1}, {ID: 2}}
			w := do(mux, http.MethodGet, "/api/checkpoints/status", "")

			Convey("Then it reports readiness, path and cache size", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					OK           bool   `json:"ok"`
					ModelReady   bool   `json:"model_ready"`
					ModelPath    string `json:"model_path"`
					EventsCached int    `json:"events_cached"`
				}
				decode(w, &body)
				So(body.OK, ShouldBeTrue)
				So(body.ModelReady, ShouldBeTrue)
				So(body.ModelPath, ShouldEqual, "models/test.yaml")
				So(body.EventsCached, ShouldEqual, 2)
			})
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/status", "{}")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
		})

		Convey("When calling stats and metrics", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)

			w = do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "checkpoint_")
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given a ready model", t, func() {
		deps := &mockService{ready: true}
		mux := newMux(deps)

		Convey("When posting a reading with every field", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{
				"latitude": 6.9271, "longitude": "79.8612",
				"timestamp": "2024-05-01T10:00:00Z",
				"checkpoint_id": "cp-7", "vehicle_id": 4411,
				"features": {"Speed": 164, "laneChange": 1}
			}`)

			Convey("Then the event is scored, stored and echoed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body eventBody
				decode(w, &body)
				So(body.OK, ShouldBeTrue)
				So(body.Event.ID, ShouldEqual, 1)
				So(body.Event.Timestamp, ShouldEqual, "2024-05-01T10:00:00Z")
				So(body.Event.CheckpointID, ShouldEqual, "cp-7")
				So(body.Event.VehicleID, ShouldEqual, "4411")
				So(body.Event.Latitude, ShouldEqual, 6.9271)
				So(body.Event.Longitude, ShouldEqual, 79.8612)
				So(body.Event.IsSuspicious, ShouldEqual, 1)
				So(body.Event.Probability, ShouldEqual, 0.82)
				So(body.Event.RiskScore, ShouldEqual, 82)
				So(deps.EventCount(context.Background()), ShouldEqual, 1)
			})
		})

		Convey("When the timestamp is omitted", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude": 1, "longitude": 2}`)

			Convey("Then the server stamps it in UTC with a trailing Z", func() {
				var body eventBody
				decode(w, &body)
				So(body.Event.Timestamp, ShouldEndWith, "Z")
				So(len(body.Event.Timestamp), ShouldEqual, len(model.TimestampLayout))
			})
		})

		Convey("When latitude or longitude is missing", func() {
			for _, payload := range []string{`{"longitude": 2}`, `{"latitude": 1}`, `{"latitude": null, "longitude": 2}`, ``} {
				w := do(mux, http.MethodPost, "/api/checkpoints/predict", payload)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				decode(w, &body)
				So(body.OK, ShouldBeFalse)
				So(body.Error, ShouldEqual, "lat and lon are required")
			}
			So(deps.EventCount(context.Background()), ShouldEqual, 0)
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a feature is not numeric", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude": 1, "longitude": 2, "features": {"Speed": "fast"}}`)

			Convey("Then the error names the field and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				decode(w, &body)
				So(body.Error, ShouldContainSubstring, `"Speed"`)
				So(deps.EventCount(context.Background()), ShouldEqual, 0)
			})
		})

		Convey("When a feature or a coordinate is NaN or infinite", func() {
			for _, body := range []string{
				`{"latitude": 1, "longitude": 2, "features": {"Speed": "nan"}}`,
				`{"latitude": 1, "longitude": 2, "features": {"latitude": "inf"}}`,
				`{"latitude": "nan", "longitude": 2}`,
				`{"latitude": 1, "longitude": "-Inf"}`,
			} {
				w := do(mux, http.MethodPost, "/api/checkpoints/predict", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var resp errorBody
				decode(w, &resp)
				So(resp.OK, ShouldBeFalse)
			}

			Convey("Then nothing is stored", func() {
				So(deps.EventCount(context.Background()), ShouldEqual, 0)
			})
		})

		Convey("When the model returns malformed output", func() {
			deps.predict = func(features.Mapping) (scoring.Result, error) {
				return scoring.Result{}, scoring.ErrMalformedOutput
			}
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude": 1, "longitude": 2}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(deps.EventCount(context.Background()), ShouldEqual, 0)
		})

		Convey("When the model fails", func() {
			deps.predict = func(features.Mapping) (scoring.Result, error) { return scoring.Result{}, errors.New("boom") }
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude": 1, "longitude": 2}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "boom")
		})

		Convey("When the store fails", func() {
			deps.recErr = errors.New("closed")
			w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude": 1, "longitude": 2}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given no model is loaded", t, func() {
		deps := &mockService{ready: false}
		mux := newMux(deps)

		w := do(mux, http.MethodPost, "/api/checkpoints/predict", `{"latitude": 1, "longitude": 2, "features": {"Speed": 300}}`)

		Convey("Then the event is still stored with the not-ready triple", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			var body eventBody
			decode(w, &body)
			So(body.Event.IsSuspicious, ShouldEqual, 0)
			So(body.Event.Probability, ShouldEqual, 0)
			So(body.Event.RiskScore, ShouldEqual, 0)
		})
	})
}

func TestPredictBatch(t *testing.T) {
	Convey("Given a ready model", t, func() {
		deps := &mockService{ready: true}
		mux := newMux(deps)

		Convey("When posting a mixed batch", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/predict-batch", `{"items": [
				{"latitude": 1, "longitude": 2, "checkpoint_id": "a", "features": {"Speed": 180}},
				{"longitude": 2, "features": {"Speed": 180}},
				{"latitude": 3, "longitude": 4, "vehicle_id": "v-2", "features": {"Speed": 20}},
				{"latitude": 5, "longitude": 6, "features": {"Speed": "fast"}}
			]}`)

			Convey("Then each item is scored with its own features", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body batchBody
				decode(w, &body)
				So(body.OK, ShouldBeTrue)
				So(len(body.Results), ShouldEqual, 2)
				So(body.Skipped, ShouldEqual, 2)

				So(body.Results[0].CheckpointID, ShouldEqual, "a")
				So(body.Results[0].Lat, ShouldEqual, 1)
				So(body.Results[0].Lon, ShouldEqual, 2)
				So(body.Results[0].IsSuspicious, ShouldEqual, 1)
				So(body.Results[0].RiskScore, ShouldEqual, 90)

				So(body.Results[1].VehicleID, ShouldEqual, "v-2")
				So(body.Results[1].IsSuspicious, ShouldEqual, 0)
				So(body.Results[1].RiskScore, ShouldEqual, 10)
			})

			Convey("Then nothing is stored", func() {
				So(deps.EventCount(context.Background()), ShouldEqual, 0)
			})
		})

		Convey("When items are missing or empty", func() {
			for _, payload := range []string{`{}`, `{"items": []}`, ``} {
				w := do(mux, http.MethodPost, "/api/checkpoints/predict-batch", payload)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				decode(w, &body)
				So(body.Error, ShouldEqual, "items (list) is required")
			}
		})

		Convey("When items is not a list", func() {
			w := do(mux, http.MethodPost, "/api/checkpoints/predict-batch", `{"items": {"latitude": 1}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGeoJSON(t *testing.T) {
	Convey("Given stored events", t, func() {
		deps := &mockService{ready: true}
		for i, risk := range []int{20, 75, 90, 55} {
			r := scoring.Normalize(float64(risk) / 100)
			_, _ = deps.Record(context.Background(), model.Event{
				Timestamp: "t", VehicleID: "v", Latitude: float64(i), Longitude: float64(10 + i),
				IsSuspicious: r.IsSuspicious, Probability: r.Probability, RiskScore: r.RiskScore,
			})
		}
		mux := newMux(deps, api.WithGeoJSONMaxLimit(100))

		Convey("When requesting with defaults", func() {
			w := do(mux, http.MethodGet, "/api/checkpoints/geojson", "")

			Convey("Then suspicious events come newest first as lon/lat points", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var fc types.FeatureCollection
				decode(w, &fc)
				So(fc.Type, ShouldEqual, "FeatureCollection")
				So(len(fc.Features), ShouldEqual, 3)
				first := fc.Features[0]
				So(first.Type, ShouldEqual, "Feature")
				So(first.Geometry.Type, ShouldEqual, "Point")
				So(first.Properties.ID, ShouldEqual, 4)
				So(first.Geometry.Coordinates, ShouldResemble, [2]float64{13, 3})
				So(deps.lastFilt, ShouldResemble, model.Filter{OnlySuspicious: true, Limit: 500})
			})
		})

		Convey("When filtering by risk and limit", func() {
			w := do(mux, http.MethodGet, "/api/checkpoints/geojson?only_suspicious=0&min_risk=60&limit=1", "")
			var fc types.FeatureCollection
			decode(w, &fc)
			So(len(fc.Features), ShouldEqual, 1)
			So(fc.Features[0].Properties.RiskScore, ShouldEqual, 90)
		})

		Convey("When limit is zero", func() {
			w := do(mux, http.MethodGet, "/api/checkpoints/geojson?limit=0", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"features":[]`)
		})

		Convey("When parameters are invalid", func() {
			for _, q := range []string{"min_risk=high", "limit=ten", "limit=-1", "limit=101"} {
				w := do(mux, http.MethodGet, "/api/checkpoints/geojson?"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}
