package model

import (
	"context"
	"fmt"
	"math"
)

// logistic is a binary logistic regression over encoded features.
type logistic struct {
	enc       *encoder
	intercept float64
	coef      map[string]float64
}

func newLogistic(enc *encoder, intercept float64, coef map[string]float64) (*logistic, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("logistic regression has no coefficients")
	}
	for name, w := range coef {
		if !enc.features[name] {
			return nil, fmt.Errorf("coefficient for unknown feature %q", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("coefficient for %q is not finite", name)
		}
	}
	return &logistic{enc: enc, intercept: intercept, coef: coef}, nil
}

func (m *logistic) Predict(ctx context.Context, f *Frame) ([]int, error) {
	probs, err := m.PredictProba(ctx, f)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, p := range probs {
		if p[1] > 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (m *logistic) PredictProba(_ context.Context, f *Frame) ([][]float64, error) {
	rows, err := m.enc.encode(f)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(rows))
	for i, feats := range rows {
		z := m.intercept
		for name, w := range m.coef {
			z += w * feats[name]
		}
		p := sigmoid(z)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}
