package service

import (
	"errors"
	"time"

	"github.com/okian/checkpoint/internal/domain/features"
	"github.com/okian/checkpoint/internal/domain/scoring"
	"github.com/okian/checkpoint/pkg/metrics"
)

// metricsObserver publishes prediction outcomes to Prometheus.
type metricsObserver struct{}

func (metricsObserver) ObservePrediction(r scoring.Result, ready bool, elapsed time.Duration, err error) {
	switch {
	case !ready:
		metrics.RecordPrediction(metrics.OutcomeNotReady)
		return
	case err != nil:
		metrics.RecordPrediction(metrics.OutcomeError)
		if errors.Is(err, features.ErrNotNumeric) {
			metrics.RecordFeatureConversionError()
		} else {
			metrics.RecordErrorByComponent("model", "score")
		}
		return
	case r.Suspicious():
		metrics.RecordPrediction(metrics.OutcomeSuspicious)
	default:
		metrics.RecordPrediction(metrics.OutcomeClear)
	}
	metrics.ObserveProbability(r.Probability)
	metrics.RecordPredictionLatency(float64(elapsed.Microseconds()) / 1000)
}
