// Package artifact loads scoring models from on-disk artifacts.
//
// An artifact is a YAML (or JSON) document naming a model kind and its
// parameters:
//
//	kind: logistic_regression
//	name: suspicious-driving-v1
//	features: [Speed, Acceleration, laneChange, ...]
//	coefficients: [0.031, 0.42, ...]
//	intercept: -6.1
//
// The features list is optional. When present it must equal the service's
// column order exactly.
package artifact

import (
	"bytes"
	"fmt"

	"github.com/okian/checkpoint/internal/domain/features"
	"gopkg.in/yaml.v3"
)

// Model kinds.
const (
	KindLogisticRegression = "logistic_regression"
	KindDecisionTree       = "decision_tree"
)

// Document is the decoded artifact.
type Document struct {
	Kind         string    `yaml:"kind"`
	Name         string    `yaml:"name"`
	Features     []string  `yaml:"features"`
	Coefficients []float64 `yaml:"coefficients"`
	Intercept    float64   `yaml:"intercept"`
	Nodes        []Node    `yaml:"nodes"`
}

// Node is one decision tree node. Split nodes send x[Feature] <= Threshold
// left and everything else right.
type Node struct {
	Leaf      bool    `yaml:"leaf"`
	Label     int     `yaml:"label"`
	Feature   int     `yaml:"feature"`
	Threshold float64 `yaml:"threshold"`
	Left      int     `yaml:"left"`
	Right     int     `yaml:"right"`
}

// Decode parses raw artifact bytes. Unknown keys are rejected.
func Decode(raw []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &doc, nil
}

// checkFeatureOrder verifies an optional feature list against the canonical order.
func (d *Document) checkFeatureOrder() error {
	if len(d.Features) == 0 {
		return nil
	}
	cols := features.Columns()
	if len(d.Features) != len(cols) {
		return fmt.Errorf("%w: artifact lists %d features, service expects %d", ErrFeatureOrder, len(d.Features), len(cols))
	}
	for i, name := range cols {
		if d.Features[i] != name {
			return fmt.Errorf("%w: position %d is %q, expected %q", ErrFeatureOrder, i, d.Features[i], name)
		}
	}
	return nil
}

// Build turns the document into a model value: a *LogisticRegression
// (probability output) or a *DecisionTree (label output).
func (d *Document) Build() (any, error) {
	if err := d.checkFeatureOrder(); err != nil {
		return nil, err
	}
	switch d.Kind {
	case KindLogisticRegression:
		return NewLogisticRegression(d.Coefficients, d.Intercept)
	case KindDecisionTree:
		return NewDecisionTree(d.Nodes)
	case "":
		return nil, fmt.Errorf("%w: kind is required", ErrInvalid)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}
}
