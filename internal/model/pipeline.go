// Package model loads the rain classification pipeline and invokes it.
//
// A Pipeline is opaque to the rest of the application: it receives a frame of
// raw, named columns and performs any scaling or categorical encoding itself.
// Two implementations exist: the in-process pipelines decoded from a JSON
// artifact by Load, and the HTTP client in internal/external for artifacts
// that only a Python runtime can evaluate.
package model

import (
	"context"

	"raincast/internal/schema"
	"raincast/internal/types"
)

// Pipeline is a trained classifier over named columns.
type Pipeline interface {
	// Predict returns one class label per frame row.
	Predict(ctx context.Context, f *Frame) ([]int, error)

	// PredictProba returns, per row, the class probabilities ordered by
	// label: [P(0), P(1)].
	PredictProba(ctx context.Context, f *Frame) ([][]float64, error)
}

// Frame is a table of raw column values. Numeric and binary columns hold
// float64, categorical columns hold string.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// FrameFromRecord wraps a single record as a one-row frame whose columns are
// exactly the field names, in schema order. Values are not transformed.
func FrameFromRecord(rec types.FeatureRecord) *Frame {
	cols := schema.Columns()
	row := schema.Row(rec)
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = row[c]
	}
	return &Frame{Columns: cols, Rows: [][]any{values}}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Index returns the position of the named column.
func (f *Frame) Index(col string) (int, bool) {
	for i, c := range f.Columns {
		if c == col {
			return i, true
		}
	}
	return -1, false
}
