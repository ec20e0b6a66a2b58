package model

import (
	"context"
	"errors"

	"raincast/internal/types"
)

// ErrNotLoaded is returned by a Handle whose artifact failed to load.
var ErrNotLoaded = errors.New("model is not loaded")

// Handle is the outcome of the one-time startup load: either a ready Invoker
// or the load error. It is immutable and shared by every request.
type Handle struct {
	invoker *Invoker
	source  string
	err     error
}

// Ready wraps a successfully loaded pipeline. source names where it came from
// (file path or backend URL).
func Ready(inv *Invoker, source string) *Handle {
	return &Handle{invoker: inv, source: source}
}

// Failed records a load failure. Every later prediction is refused.
func Failed(err error, source string) *Handle {
	if err == nil {
		err = ErrNotLoaded
	}
	return &Handle{source: source, err: err}
}

// Err returns the load error, or nil when the model is ready.
func (h *Handle) Err() error {
	return h.err
}

// Source names the artifact or backend.
func (h *Handle) Source() string {
	return h.source
}

// Predict refuses with a model_unavailable error when the load failed;
// otherwise it delegates to the Invoker.
func (h *Handle) Predict(ctx context.Context, rec types.FeatureRecord) (types.Prediction, error) {
	if h.err != nil {
		return types.Prediction{}, types.NewAppError(types.ErrCodeModelUnavailable, "prediction model is not available", h.err)
	}
	return h.invoker.Predict(ctx, rec)
}

// Name implements core.HealthProbe.
func (h *Handle) Name() string {
	return "model"
}

// Check implements core.HealthProbe.
func (h *Handle) Check(context.Context) error {
	return h.err
}
