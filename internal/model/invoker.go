package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"raincast/internal/types"
)

// probabilityTolerance bounds how far P(0)+P(1) may drift from 1.
const probabilityTolerance = 1e-6

// InferenceError reports a failed prediction. The process and session
// continue; the caller shows the error and may retry with other inputs.
type InferenceError struct {
	// Op is the pipeline operation that failed: "predict", "predict_proba",
	// or "output" when the pipeline returned malformed results.
	Op   string
	Code types.ErrorCode
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// AppError converts the failure for the HTTP error envelope.
func (e *InferenceError) AppError() *types.AppError {
	return types.NewAppErrorWithDetails(e.Code, e.Error(), e, map[string]any{"operation": e.Op})
}

// Invoker runs a single record through a Pipeline and checks its output.
type Invoker struct {
	pipeline Pipeline
	logger   *slog.Logger
}

// NewInvoker wraps a loaded pipeline.
func NewInvoker(p Pipeline, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{pipeline: p, logger: logger}
}

// Predict invokes the pipeline's predict and predict-probability operations
// on a one-row frame built from rec. Any failure, including a panic inside
// the pipeline, is returned as *InferenceError.
func (inv *Invoker) Predict(ctx context.Context, rec types.FeatureRecord) (pred types.Prediction, err error) {
	start := time.Now()
	frame := FrameFromRecord(rec)

	defer func() {
		attrs := []any{
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", types.GetRequestID(ctx),
		}
		if err != nil {
			inv.logger.WarnContext(ctx, "inference failed", append(attrs, "error", err)...)
			return
		}
		inv.logger.DebugContext(ctx, "inference complete",
			append(attrs, "label", int(pred.Label), "p_rain", pred.RainProbability())...)
	}()

	labels, err := inv.call(ctx, "predict", func() (any, error) { return inv.pipeline.Predict(ctx, frame) })
	if err != nil {
		return types.Prediction{}, err
	}
	probs, err := inv.call(ctx, "predict_proba", func() (any, error) { return inv.pipeline.PredictProba(ctx, frame) })
	if err != nil {
		return types.Prediction{}, err
	}

	pred, verr := checkOutput(labels.([]int), probs.([][]float64))
	if verr != nil {
		return types.Prediction{}, &InferenceError{Op: "output", Code: types.ErrCodeInternalModelOutput, Err: verr}
	}
	return pred, nil
}

// call runs one pipeline operation, converting errors and panics.
func (inv *Invoker) call(ctx context.Context, op string, fn func() (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &InferenceError{Op: op, Code: types.ErrCodeInferenceFailed, Err: fmt.Errorf("pipeline panicked: %v", r)}
		}
	}()

	if cerr := ctx.Err(); cerr != nil {
		return nil, &InferenceError{Op: op, Code: types.ErrCodeInferenceFailed, Err: cerr}
	}

	out, err = fn()
	if err != nil {
		return nil, &InferenceError{Op: op, Code: codeFor(err), Err: err}
	}
	return out, nil
}

// codeFor keeps upstream classifications from a remote pipeline.
func codeFor(err error) types.ErrorCode {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return types.ErrCodeInferenceFailed
}

func checkOutput(labels []int, probs [][]float64) (types.Prediction, error) {
	if len(labels) != 1 {
		return types.Prediction{}, fmt.Errorf("predict returned %d labels for 1 row", len(labels))
	}
	if len(probs) != 1 {
		return types.Prediction{}, fmt.Errorf("predict_proba returned %d rows for 1 row", len(probs))
	}
	label := labels[0]
	if label != 0 && label != 1 {
		return types.Prediction{}, fmt.Errorf("label %d is not binary", label)
	}
	p := probs[0]
	if len(p) != 2 {
		return types.Prediction{}, fmt.Errorf("expected 2 class probabilities, got %d", len(p))
	}
	for _, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return types.Prediction{}, fmt.Errorf("probability %v outside [0,1]", v)
		}
	}
	if math.Abs(p[0]+p[1]-1) > probabilityTolerance {
		return types.Prediction{}, fmt.Errorf("probabilities %v do not sum to 1", p)
	}
	return types.Prediction{Label: types.Label(label), Probabilities: [2]float64{p[0], p[1]}}, nil
}
