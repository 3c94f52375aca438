// Package scoring turns raw classifier output into a normalized risk decision.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/checkpoint/internal/domain/features"
)

// Confidence assigned to label-only models, which carry no native probability.
const (
	DiscretePositiveProbability = 0.75
	DiscreteNegativeProbability = 0.25
)

// SuspiciousThreshold is the probability at and above which an event is flagged.
const SuspiciousThreshold = 0.5

const (
	positiveClass = 1
	maxRiskScore  = 100
)

// Sentinel errors.
var (
	ErrUnsupportedModel = errors.New("model exposes neither probability nor label output")
	ErrMalformedOutput  = errors.New("model output is malformed")
)

// ProbabilisticModel returns per-class probabilities; index 1 is the positive class.
type ProbabilisticModel interface {
	PredictProba(ctx context.Context, x features.Vector) ([]float64, error)
}

// DiscreteModel returns a class label, 0 or 1.
type DiscreteModel interface {
	Predict(ctx context.Context, x features.Vector) (int, error)
}

// Scorer is the single capability the normalizer depends on: the probability
// of the positive class for an input vector.
type Scorer interface {
	Score(ctx context.Context, x features.Vector) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, x features.Vector) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, x features.Vector) (float64, error) {
	return f(ctx, x)
}

// Adapt inspects model capabilities once and returns the matching Scorer.
// Probability output is preferred over label output when both exist.
func Adapt(model any) (Scorer, error) {
	switch m := model.(type) {
	case nil:
		return nil, ErrUnsupportedModel
	case Scorer:
		return m, nil
	case ProbabilisticModel:
		return probabilistic{m: m}, nil
	case DiscreteModel:
		return discrete{m: m}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedModel, model)
	}
}

// Capability names the path Adapt picks for model. The cases follow Adapt's order.
func Capability(model any) string {
	switch model.(type) {
	case Scorer:
		return "score"
	case ProbabilisticModel:
		return "probability"
	case DiscreteModel:
		return "label"
	default:
		return "none"
	}
}

type probabilistic struct {
	m ProbabilisticModel
}

func (p probabilistic) Score(ctx context.Context, x features.Vector) (float64, error) {
	proba, err := p.m.PredictProba(ctx, x)
	if err != nil {
		return 0, err
	}
	if len(proba) <= positiveClass {
		return 0, fmt.Errorf("%w: expected 2 class probabilities, got %d", ErrMalformedOutput, len(proba))
	}
	prob := proba[positiveClass]
	if err := CheckProbability(prob); err != nil {
		return 0, err
	}
	return prob, nil
}

// CheckProbability rejects scorer output that is not a finite value in [0, 1].
func CheckProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: probability %v is outside [0, 1]", ErrMalformedOutput, p)
	}
	return nil
}

type discrete struct {
	m DiscreteModel
}

func (d discrete) Score(ctx context.Context, x features.Vector) (float64, error) {
	label, err := d.m.Predict(ctx, x)
	if err != nil {
		return 0, err
	}
	if label == positiveClass {
		return DiscretePositiveProbability, nil
	}
	return DiscreteNegativeProbability, nil
}

// Result is the normalized decision triple.
type Result struct {
	IsSuspicious int     `json:"is_suspicious"`
	Probability  float64 `json:"probability"`
	RiskScore    int     `json:"risk_score"`
}

// Suspicious reports whether the result is flagged.
func (r Result) Suspicious() bool { return r.IsSuspicious == 1 }

// Normalize derives the decision triple from a positive-class probability.
// Halves round to even: 0.125 scores 12, 0.375 scores 38.
func Normalize(p float64) Result {
	r := Result{Probability: p, RiskScore: int(math.RoundToEven(p * maxRiskScore))}
	if p >= SuspiciousThreshold {
		r.IsSuspicious = 1
	}
	return r
}
