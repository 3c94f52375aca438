package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/checkpoint/internal/adapters/artifact"
	"github.com/okian/checkpoint/internal/adapters/repository"
	service "github.com/okian/checkpoint/internal/app"
	"github.com/okian/checkpoint/internal/domain/features"
	"github.com/okian/checkpoint/internal/domain/model"
	"github.com/okian/checkpoint/internal/domain/scoring"
	"github.com/okian/checkpoint/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const bundledModel = "../../models/suspicious_driving_model.yaml"

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type countingLoader struct {
	calls  int
	loaded *artifact.Loaded
	err    error
}

func (l *countingLoader) Load(_ context.Context, _ string) (*artifact.Loaded, error) {
	l.calls++
	return l.loaded, l.err
}

func fixed(p float64) scoring.Scorer {
	return scoring.ScorerFunc(func(context.Context, features.Vector) (float64, error) { return p, nil })
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it points at the bundled model and is not ready", func() {
			So(svc, ShouldNotBeNil)
			So(svc.ModelPath(), ShouldEqual, "models/suspicious_driving_model.yaml")
			So(svc.Ready(), ShouldBeFalse)
		})

		Convey("Then predictions before Start report not ready", func() {
			r, err := svc.Predict(context.Background(), features.Mapping{"Speed": 300.0})
			So(err, ShouldBeNil)
			So(r, ShouldResemble, scoring.Result{})
		})

		Convey("Then store access before Start fails", func() {
			_, err := svc.Record(context.Background(), model.Event{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.EventCount(context.Background()), ShouldEqual, 0)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service pointing at the bundled model", t, func() {
		svc := service.New(service.WithModelPath(bundledModel))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then the model is ready", func() {
			So(svc.Ready(), ShouldBeTrue)
			So(svc.ModelName(), ShouldEqual, "suspicious-driving-v1")
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["model_capability"], ShouldEqual, "probability")
		})

		Convey("Then a risky reading is flagged and a calm one is not", func() {
			risky, err := svc.Predict(ctx, features.Mapping{
				"Speed": 120.0, "Acceleration": 4.0, "laneChange": 1, "PastHistory": 2,
				"is_high_speed": 1, "speed_lane_interaction": 120, "is_sudden": 1, "combined_risk": 5,
			})
			So(err, ShouldBeNil)
			So(risky.IsSuspicious, ShouldEqual, 1)
			So(risky.RiskScore, ShouldBeGreaterThan, 90)

			calm, err := svc.Predict(ctx, features.Mapping{"Speed": 60.0, "Acceleration": 1.0})
			So(err, ShouldBeNil)
			So(calm.IsSuspicious, ShouldEqual, 0)
			So(calm.RiskScore, ShouldBeLessThan, 10)
		})

		Convey("Then starting again is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Ready(), ShouldBeTrue)
		})
	})

	Convey("Given a service whose model file is missing", t, func() {
		svc := service.New(service.WithModelPath(filepath.Join(t.TempDir(), "absent.yaml")))
		defer svc.Stop()

		err := svc.Start(context.Background())

		Convey("Then it starts but stays not ready", func() {
			So(err, ShouldBeNil)
			So(svc.Ready(), ShouldBeFalse)
			stats := svc.GetStats()
			So(stats["model_error"], ShouldContainSubstring, "not found")

			r, err := svc.Predict(context.Background(), features.Mapping{"Speed": 300.0})
			So(err, ShouldBeNil)
			So(r, ShouldResemble, scoring.Result{})
		})
	})

	Convey("Given a loader", t, func() {
		l := &countingLoader{err: artifact.ErrDecode}
		svc := service.New(service.WithLoader(l))
		defer svc.Stop()

		Convey("When the service is started twice", func() {
			_ = svc.Start(context.Background())
			_ = svc.Start(context.Background())

			Convey("Then the model is loaded exactly once", func() {
				So(l.calls, ShouldEqual, 1)
				So(svc.Ready(), ShouldBeFalse)
			})
		})
	})

	Convey("Given an injected scorer", t, func() {
		l := &countingLoader{}
		svc := service.New(service.WithScorer(fixed(0.82)), service.WithLoader(l))
		defer svc.Stop()
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then the loader is bypassed", func() {
			So(l.calls, ShouldEqual, 0)
			r, _ := svc.Predict(context.Background(), nil)
			So(r, ShouldResemble, scoring.Result{IsSuspicious: 1, Probability: 0.82, RiskScore: 82})
		})
	})
}

func TestService_Events(t *testing.T) {
	Convey("Given a started service with a capped store", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithScorer(fixed(0.6)), service.WithMaxEvents(2))
		defer svc.Stop()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When three events are recorded", func() {
			for i := 0; i < 3; i++ {
				r, _ := svc.Predict(ctx, nil)
				e := model.NewEvent("", "cp-1", "", 6.9, 79.8, r, time.Now())
				saved, err := svc.Record(ctx, e)
				So(err, ShouldBeNil)
				So(saved.ID, ShouldEqual, i+1)
			}

			Convey("Then only the newest two are kept", func() {
				So(svc.EventCount(ctx), ShouldEqual, 2)
				events, err := svc.Events(ctx, model.Filter{OnlySuspicious: true})
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(events[0].ID, ShouldEqual, 3)
				So(svc.GetStats()["events_cached"], ShouldEqual, 2)
			})
		})
	})

	Convey("Given a caller-owned store", t, func() {
		ctx := context.Background()
		st := repository.NewInMemoryStore(ctx)
		defer st.Close()
		svc := service.New(service.WithScorer(fixed(0.1)), service.WithStore(st))
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Record(ctx, model.Event{})
		So(err, ShouldBeNil)

		Convey("Then Stop leaves the store open", func() {
			svc.Stop()
			_, err := st.Append(ctx, model.Event{})
			So(err, ShouldBeNil)
			So(st.Count(ctx), ShouldEqual, 2)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithScorer(fixed(0.5)))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again is safe", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}
