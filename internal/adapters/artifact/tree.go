package artifact

import (
	"context"
	"fmt"

	"github.com/okian/checkpoint/internal/domain/features"
)

// DecisionTree is a label-only classifier. It has no probability output.
type DecisionTree struct {
	nodes []Node
}

// NewDecisionTree validates the node table and builds the tree. Node 0 is
// the root; every split must point forward to keep the walk acyclic.
func NewDecisionTree(nodes []Node) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: decision_tree has no nodes", ErrInvalid)
	}
	for i, n := range nodes {
		if n.Leaf {
			if n.Label != 0 && n.Label != 1 {
				return nil, fmt.Errorf("%w: node %d has label %d, want 0 or 1", ErrInvalid, i, n.Label)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features.Width {
			return nil, fmt.Errorf("%w: node %d splits on feature %d", ErrInvalid, i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(nodes) {
				return nil, fmt.Errorf("%w: node %d has child %d out of range", ErrInvalid, i, child)
			}
		}
	}
	return &DecisionTree{nodes: nodes}, nil
}

// Predict walks the tree and returns the leaf label.
func (t *DecisionTree) Predict(_ context.Context, x features.Vector) (int, error) {
	i := 0
	for {
		n := t.nodes[i]
		if n.Leaf {
			return n.Label, nil
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
