package model

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/schema"
	"raincast/internal/types"
)

// fakePipeline returns canned outputs and counts calls.
type fakePipeline struct {
	labels     []int
	probs      [][]float64
	predictErr error
	probaErr   error
	panicWith  any
	calls      int
	lastFrame  *Frame
}

func (f *fakePipeline) Predict(_ context.Context, fr *Frame) ([]int, error) {
	f.calls++
	f.lastFrame = fr
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.labels, f.predictErr
}

func (f *fakePipeline) PredictProba(_ context.Context, fr *Frame) ([][]float64, error) {
	f.calls++
	return f.probs, f.probaErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireInferenceError(t *testing.T, err error, op string, code types.ErrorCode) *InferenceError {
	t.Helper()
	require.Error(t, err)
	var ie *InferenceError
	require.True(t, errors.As(err, &ie), "expected *InferenceError, got %T: %v", err, err)
	assert.Equal(t, op, ie.Op)
	assert.Equal(t, code, ie.Code)
	return ie
}

func TestInvoker_Success(t *testing.T) {
	fp := &fakePipeline{labels: []int{1}, probs: [][]float64{{0.25, 0.75}}}
	inv := NewInvoker(fp, discardLogger())

	pred, err := inv.Predict(context.Background(), schema.Defaults())
	require.NoError(t, err)
	assert.Equal(t, types.LabelRain, pred.Label)
	assert.Equal(t, 0.75, pred.RainProbability())
	assert.Equal(t, 0.25, pred.DryProbability())

	require.NotNil(t, fp.lastFrame)
	assert.Equal(t, schema.Columns(), fp.lastFrame.Columns, "frame columns must be exactly the field names")
	assert.Equal(t, 1, fp.lastFrame.Len())
}

func TestInvoker_PipelineErrors(t *testing.T) {
	t.Run("predict error", func(t *testing.T) {
		fp := &fakePipeline{predictErr: errors.New("Found unknown categories ['Atlantis']")}
		_, err := NewInvoker(fp, discardLogger()).Predict(context.Background(), schema.Defaults())
		ie := requireInferenceError(t, err, "predict", types.ErrCodeInferenceFailed)
		assert.Contains(t, ie.Error(), "unknown categories")
		assert.Equal(t, 1, fp.calls, "predict_proba must not run after predict fails")
	})

	t.Run("predict_proba error", func(t *testing.T) {
		fp := &fakePipeline{labels: []int{0}, probaErr: errors.New("boom")}
		_, err := NewInvoker(fp, discardLogger()).Predict(context.Background(), schema.Defaults())
		requireInferenceError(t, err, "predict_proba", types.ErrCodeInferenceFailed)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		fp := &fakePipeline{panicWith: "index out of range"}
		_, err := NewInvoker(fp, discardLogger()).Predict(context.Background(), schema.Defaults())
		ie := requireInferenceError(t, err, "predict", types.ErrCodeInferenceFailed)
		assert.Contains(t, ie.Error(), "panicked")
	})

	t.Run("upstream code is preserved", func(t *testing.T) {
		upstream := types.NewAppError(types.ErrCodeUpstreamInference, "sidecar down", nil)
		fp := &fakePipeline{predictErr: upstream}
		_, err := NewInvoker(fp, discardLogger()).Predict(context.Background(), schema.Defaults())
		ie := requireInferenceError(t, err, "predict", types.ErrCodeUpstreamInference)
		assert.Equal(t, 502, ie.AppError().Code.HTTPStatus())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fp := &fakePipeline{labels: []int{0}, probs: [][]float64{{1, 0}}}
		_, err := NewInvoker(fp, discardLogger()).Predict(ctx, schema.Defaults())
		requireInferenceError(t, err, "predict", types.ErrCodeInferenceFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, fp.calls)
	})
}

func TestInvoker_MalformedOutput(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
		probs  [][]float64
	}{
		{"no labels", nil, [][]float64{{0.5, 0.5}}},
		{"two rows", []int{0, 1}, [][]float64{{0.5, 0.5}}},
		{"non-binary label", []int{2}, [][]float64{{0.5, 0.5}}},
		{"three classes", []int{0}, [][]float64{{0.2, 0.3, 0.5}}},
		{"negative probability", []int{0}, [][]float64{{1.1, -0.1}}},
		{"does not sum to one", []int{0}, [][]float64{{0.6, 0.6}}},
		{"no probability rows", []int{0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := &fakePipeline{labels: tt.labels, probs: tt.probs}
			_, err := NewInvoker(fp, discardLogger()).Predict(context.Background(), schema.Defaults())
			ie := requireInferenceError(t, err, "output", types.ErrCodeInternalModelOutput)
			assert.Equal(t, 500, ie.AppError().HTTPStatus())
		})
	}
}

func TestInvoker_ToleratesRounding(t *testing.T) {
	fp := &fakePipeline{labels: []int{0}, probs: [][]float64{{0.6000000001, 0.4}}}
	pred, err := NewInvoker(fp, discardLogger()).Predict(context.Background(), schema.Defaults())
	require.NoError(t, err)
	assert.Equal(t, types.LabelNoRain, pred.Label)
}

func TestHandle(t *testing.T) {
	t.Run("failed handle refuses without invoking", func(t *testing.T) {
		loadErr := &LoadError{Path: "models/rain_model.json", Reason: ReasonMissing, Err: errors.New("artifact file not found")}
		h := Failed(loadErr, "models/rain_model.json")

		_, err := h.Predict(context.Background(), schema.Defaults())
		require.Error(t, err)
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeModelUnavailable, appErr.Code)
		assert.ErrorIs(t, err, loadErr)

		assert.Equal(t, loadErr, h.Err())
		assert.Error(t, h.Check(context.Background()))
		assert.Equal(t, "model", h.Name())
	})

	t.Run("nil error still fails", func(t *testing.T) {
		h := Failed(nil, "x")
		assert.ErrorIs(t, h.Err(), ErrNotLoaded)
	})

	t.Run("ready handle delegates", func(t *testing.T) {
		fp := &fakePipeline{labels: []int{0}, probs: [][]float64{{0.8, 0.2}}}
		h := Ready(NewInvoker(fp, discardLogger()), "test")
		pred, err := h.Predict(context.Background(), schema.Defaults())
		require.NoError(t, err)
		assert.Equal(t, 0.2, pred.RainProbability())
		assert.NoError(t, h.Check(context.Background()))
		assert.Equal(t, "test", h.Source())
	})
}
