package artifact

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/checkpoint/internal/domain/features"
)

// LogisticRegression is a binary logistic model with one coefficient per column.
type LogisticRegression struct {
	coef      features.Vector
	intercept float64
}

// NewLogisticRegression validates the parameters and builds the model.
func NewLogisticRegression(coefficients []float64, intercept float64) (*LogisticRegression, error) {
	if len(coefficients) != features.Width {
		return nil, fmt.Errorf("%w: logistic_regression needs %d coefficients, got %d", ErrInvalid, features.Width, len(coefficients))
	}
	m := &LogisticRegression{intercept: intercept}
	for i, c := range coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrInvalid, i)
		}
		m.coef[i] = c
	}
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, fmt.Errorf("%w: intercept is not finite", ErrInvalid)
	}
	return m, nil
}

// PredictProba returns [P(clear), P(suspicious)].
func (m *LogisticRegression) PredictProba(_ context.Context, x features.Vector) ([]float64, error) {
	z := m.intercept
	for i := range x {
		z += m.coef[i] * x[i]
	}
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
