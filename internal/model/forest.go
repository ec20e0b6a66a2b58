package model

import (
	"context"
	"fmt"
	"math"
)

// node is one entry of a flattened decision tree. A node with a value is a
// leaf; otherwise x[feature] <= threshold descends left.
type node struct {
	Feature   string    `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Value     []float64 `json:"value,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// forest averages class probabilities across its trees.
type forest struct {
	enc   *encoder
	trees []tree
}

func newForest(enc *encoder, trees []tree) (*forest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("random forest has no trees")
	}
	for t := range trees {
		if err := checkTree(enc, trees[t].Nodes); err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
	}
	return &forest{enc: enc, trees: trees}, nil
}

// checkTree validates structure and normalizes leaf values in place. Children
// must come after their parent, so every walk terminates.
func checkTree(enc *encoder, nodes []node) error {
	if len(nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i := range nodes {
		n := &nodes[i]
		if n.Value != nil {
			if len(n.Value) != 2 {
				return fmt.Errorf("node %d: leaf value must have 2 classes, has %d", i, len(n.Value))
			}
			sum := n.Value[0] + n.Value[1]
			if n.Value[0] < 0 || n.Value[1] < 0 || sum <= 0 || math.IsInf(sum, 0) {
				return fmt.Errorf("node %d: invalid leaf value %v", i, n.Value)
			}
			n.Value = []float64{n.Value[0] / sum, n.Value[1] / sum}
			continue
		}
		if !enc.features[n.Feature] {
			return fmt.Errorf("node %d: unknown feature %q", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("node %d: child index %d out of order", i, child)
			}
		}
	}
	return nil
}

func (m *forest) Predict(ctx context.Context, f *Frame) ([]int, error) {
	probs, err := m.PredictProba(ctx, f)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, p := range probs {
		if p[1] > p[0] {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (m *forest) PredictProba(_ context.Context, f *Frame) ([][]float64, error) {
	rows, err := m.enc.encode(f)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(rows))
	n := float64(len(m.trees))
	for i, feats := range rows {
		var p0, p1 float64
		for _, t := range m.trees {
			leaf := walk(t.Nodes, feats)
			p0 += leaf[0]
			p1 += leaf[1]
		}
		out[i] = []float64{p0 / n, p1 / n}
	}
	return out, nil
}

func walk(nodes []node, feats map[string]float64) []float64 {
	idx := 0
	for {
		n := nodes[idx]
		if n.Value != nil {
			return n.Value
		}
		if feats[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}
