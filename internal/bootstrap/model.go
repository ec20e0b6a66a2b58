// Package bootstrap performs the one-time startup work shared by the API
// server and the CLI: loading the model from the configured backend.
package bootstrap

import (
	"context"
	"log/slog"

	"raincast/internal/config"
	"raincast/internal/core"
	"raincast/internal/external"
	"raincast/internal/model"
)

// LoadModel loads the pipeline selected by MODEL_BACKEND. A failure never
// escapes as an error: it is recorded in the returned Handle, which refuses
// every prediction. probes lists what /health should check.
func LoadModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (h *model.Handle, probes []core.HealthProbe) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Model.Backend {
	case config.BackendRemote:
		client := external.NewInferenceClient(external.InferenceClientConfig{
			BaseURL:   cfg.Inference.URL,
			APIKey:    cfg.Inference.APIKey.Unmask(),
			Timeout:   cfg.Inference.Timeout,
			UserAgent: cfg.Build.UserAgent(),
			Logger:    logger,
		})
		if _, err := client.Connect(ctx); err != nil {
			h = model.Failed(err, client.Source())
		} else {
			h = model.Ready(model.NewInvoker(client, logger), client.Source())
		}
		probes = []core.HealthProbe{h, client}

	default:
		h = loadLocal(cfg.Model, logger)
		probes = []core.HealthProbe{h}
	}

	if err := h.Err(); err != nil {
		logger.ErrorContext(ctx, "model load failed",
			"backend", cfg.Model.Backend,
			"source", h.Source(),
			"error", err,
		)
	} else {
		logger.InfoContext(ctx, "model loaded",
			"backend", cfg.Model.Backend,
			"source", h.Source(),
		)
	}
	return h, probes
}

func loadLocal(cfg config.ModelConfig, logger *slog.Logger) *model.Handle {
	path, err := model.ResolvePath(cfg.Path, cfg.BaseDir)
	if err != nil {
		return model.Failed(&model.LoadError{Path: cfg.Path, Reason: model.ReasonUnreadable, Err: err}, cfg.Path)
	}
	p, err := model.Load(path)
	if err != nil {
		return model.Failed(err, path)
	}
	return model.Ready(model.NewInvoker(p, logger), path)
}
