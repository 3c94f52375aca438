package scoring

import (
	"context"
	"time"

	"github.com/okian/checkpoint/internal/domain/features"
)

// Observer receives the outcome of every prediction. Implementations must
// be safe for concurrent use.
type Observer interface {
	ObservePrediction(r Result, ready bool, elapsed time.Duration, err error)
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithObserver attaches an observer to the normalizer.
func WithObserver(o Observer) Option {
	return func(n *Normalizer) {
		if o != nil {
			n.observer = o
		}
	}
}

// Normalizer assembles feature vectors, invokes the scorer and maps its
// output to a Result. It holds no mutable state after construction.
type Normalizer struct {
	scorer   Scorer
	ready    bool
	observer Observer
}

// NewNormalizer builds a Normalizer around scorer. A nil scorer yields a
// normalizer that is permanently not ready.
func NewNormalizer(scorer Scorer, opts ...Option) *Normalizer {
	n := &Normalizer{scorer: scorer, ready: scorer != nil}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Ready reports whether a usable model is loaded.
func (n *Normalizer) Ready() bool {
	return n != nil && n.ready
}

// Predict scores m. When no model is loaded it returns the zero Result and
// a nil error for any input. Feature conversion and scorer errors are
// returned unchanged; a score outside [0, 1] fails with ErrMalformedOutput.
func (n *Normalizer) Predict(ctx context.Context, m features.Mapping) (Result, error) {
	start := time.Now()
	if !n.Ready() {
		n.observe(Result{}, false, start, nil)
		return Result{}, nil
	}

	x, err := features.Assemble(m)
	if err != nil {
		n.observe(Result{}, true, start, err)
		return Result{}, err
	}
	p, err := n.scorer.Score(ctx, x)
	if err == nil {
		err = CheckProbability(p)
	}
	if err != nil {
		n.observe(Result{}, true, start, err)
		return Result{}, err
	}
	r := Normalize(p)
	n.observe(r, true, start, nil)
	return r, nil
}

func (n *Normalizer) observe(r Result, ready bool, start time.Time, err error) {
	if n == nil || n.observer == nil {
		return
	}
	n.observer.ObservePrediction(r, ready, time.Since(start), err)
}
