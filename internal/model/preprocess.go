package model

import (
	"fmt"
	"math"
)

type scaler struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

type onehot struct {
	Categories    []string `json:"categories"`
	HandleUnknown string   `json:"handle_unknown"`
}

type preprocessSpec struct {
	Numeric     map[string]scaler `json:"numeric"`
	Categorical map[string]onehot `json:"categorical"`
	Passthrough []string          `json:"passthrough"`
}

const (
	handleUnknownError  = "error"
	handleUnknownIgnore = "ignore"
)

// featureName is the encoded column name of one category indicator.
func featureName(col, category string) string {
	return col + "=" + category
}

// encoder turns raw frame rows into named model features: standardized
// numerics, one-hot categorical indicators, and passthrough values.
type encoder struct {
	columns     []string
	numeric     map[string]scaler
	categorical map[string]onehot
	passthrough map[string]bool

	// features is the set of every name encode can emit.
	features map[string]bool
}

func newEncoder(columns []string, spec preprocessSpec) (*encoder, error) {
	e := &encoder{
		columns:     columns,
		numeric:     spec.Numeric,
		categorical: spec.Categorical,
		passthrough: make(map[string]bool, len(spec.Passthrough)),
		features:    make(map[string]bool),
	}
	for _, c := range spec.Passthrough {
		e.passthrough[c] = true
	}

	for _, col := range columns {
		steps := 0
		if s, ok := e.numeric[col]; ok {
			steps++
			if math.IsNaN(s.Mean) || math.IsNaN(s.Scale) {
				return nil, fmt.Errorf("column %s has a NaN scaler", col)
			}
			e.features[col] = true
		}
		if oh, ok := e.categorical[col]; ok {
			steps++
			if len(oh.Categories) == 0 {
				return nil, fmt.Errorf("column %s has no categories", col)
			}
			switch oh.HandleUnknown {
			case "", handleUnknownError, handleUnknownIgnore:
			default:
				return nil, fmt.Errorf("column %s: unknown handle_unknown %q", col, oh.HandleUnknown)
			}
			for _, cat := range oh.Categories {
				e.features[featureName(col, cat)] = true
			}
		}
		if e.passthrough[col] {
			steps++
			e.features[col] = true
		}
		if steps != 1 {
			return nil, fmt.Errorf("column %s must have exactly one preprocessing step, has %d", col, steps)
		}
	}

	declared := make(map[string]bool, len(columns))
	for _, col := range columns {
		declared[col] = true
	}
	for col := range e.numeric {
		if !declared[col] {
			return nil, fmt.Errorf("scaler for undeclared column %s", col)
		}
	}
	for col := range e.categorical {
		if !declared[col] {
			return nil, fmt.Errorf("encoder for undeclared column %s", col)
		}
	}
	for col := range e.passthrough {
		if !declared[col] {
			return nil, fmt.Errorf("passthrough of undeclared column %s", col)
		}
	}
	return e, nil
}

// encode maps each frame row to its feature vector. Every declared column
// must be present in the frame.
func (e *encoder) encode(f *Frame) ([]map[string]float64, error) {
	idx := make(map[string]int, len(e.columns))
	for _, col := range e.columns {
		i, ok := f.Index(col)
		if !ok {
			return nil, fmt.Errorf("shape mismatch: column %s missing from input", col)
		}
		idx[col] = i
	}

	out := make([]map[string]float64, 0, f.Len())
	for r, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return nil, fmt.Errorf("shape mismatch: row %d has %d values for %d columns", r, len(row), len(f.Columns))
		}
		feats := make(map[string]float64, len(e.features))
		for _, col := range e.columns {
			if err := e.encodeValue(feats, col, row[idx[col]]); err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
		}
		out = append(out, feats)
	}
	return out, nil
}

func (e *encoder) encodeValue(feats map[string]float64, col string, v any) error {
	if oh, ok := e.categorical[col]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("column %s expects a category, got %T", col, v)
		}
		known := false
		for _, cat := range oh.Categories {
			hit := 0.0
			if cat == s {
				hit, known = 1, true
			}
			feats[featureName(col, cat)] = hit
		}
		if !known && oh.HandleUnknown != handleUnknownIgnore {
			return fmt.Errorf("found unknown category %q in column %s", s, col)
		}
		return nil
	}

	x, ok := v.(float64)
	if !ok {
		return fmt.Errorf("column %s expects a number, got %T", col, v)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("column %s contains a non-finite value", col)
	}
	if s, ok := e.numeric[col]; ok {
		scale := s.Scale
		if scale == 0 {
			scale = 1
		}
		x = (x - s.Mean) / scale
	}
	feats[col] = x
	return nil
}
