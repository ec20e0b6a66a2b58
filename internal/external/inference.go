package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"raincast/internal/model"
	"raincast/internal/types"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 1 << 20

// InferenceClientConfig holds the configuration for an InferenceClient.
type InferenceClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// UserAgent identifies the server build to the sidecar.
	UserAgent string
	Logger    *slog.Logger
}

// frameRequest is the body of /predict and /predict_proba.
type frameRequest struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type predictResponse struct {
	Predictions []int `json:"predictions"`
}

type probaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// Metadata describes the pipeline served by the inference backend.
type Metadata struct {
	Columns []string `json:"columns"`
	Model   string   `json:"model,omitempty"`
	Version string   `json:"version,omitempty"`
}

// InferenceClient evaluates the pipeline on a remote inference sidecar,
// for artifacts the service cannot evaluate in-process. It implements
// model.Pipeline, so the Invoker treats it like a local pipeline, and
// core.HealthProbe for /health.
type InferenceClient struct {
	base    *BaseClient
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewInferenceClient creates an InferenceClient with the default retry
// policy and a breaker named "inference".
func NewInferenceClient(cfg InferenceClientConfig) *InferenceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Raincast"
	}

	base := NewBaseClient(
		&http.Client{Timeout: timeout},
		"inference",
		DefaultRetryPolicy(),
		userAgent,
		WithLogger(logger),
	)
	return NewInferenceClientWithBase(base, cfg)
}

// NewInferenceClientWithBase creates an InferenceClient around a
// pre-configured BaseClient. Tests use it to control retries.
func NewInferenceClientWithBase(base *BaseClient, cfg InferenceClientConfig) *InferenceClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InferenceClient{
		base:    base,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Connect fetches the backend metadata and checks that it serves a pipeline
// over exactly the form fields. It is the remote counterpart of model.Load
// and fails with a *model.LoadError.
func (c *InferenceClient) Connect(ctx context.Context) (*Metadata, error) {
	fail := func(reason model.LoadReason, err error) (*Metadata, error) {
		return nil, &model.LoadError{Path: c.baseURL, Reason: reason, Err: err}
	}

	var meta Metadata
	if err := c.do(ctx, http.MethodGet, "/metadata", nil, &meta); err != nil {
		return fail(model.ReasonUnreadable, err)
	}
	if err := model.CheckColumns(meta.Columns); err != nil {
		return fail(model.ReasonIncompatible, err)
	}

	c.logger.InfoContext(ctx, "inference backend connected",
		"url", c.baseURL,
		"model", meta.Model,
		"version", meta.Version,
	)
	return &meta, nil
}

// Predict implements model.Pipeline.
func (c *InferenceClient) Predict(ctx context.Context, f *model.Frame) ([]int, error) {
	var resp predictResponse
	if err := c.do(ctx, http.MethodPost, "/predict", frameRequest{Columns: f.Columns, Data: f.Rows}, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// PredictProba implements model.Pipeline.
func (c *InferenceClient) PredictProba(ctx context.Context, f *model.Frame) ([][]float64, error) {
	var resp probaResponse
	if err := c.do(ctx, http.MethodPost, "/predict_proba", frameRequest{Columns: f.Columns, Data: f.Rows}, &resp); err != nil {
		return nil, err
	}
	return resp.Probabilities, nil
}

// Name implements core.HealthProbe.
func (c *InferenceClient) Name() string {
	return "inference"
}

// Source reports the backend URL on /health.
func (c *InferenceClient) Source() string {
	return c.baseURL
}

// Check implements core.HealthProbe by re-reading the metadata.
func (c *InferenceClient) Check(ctx context.Context) error {
	var meta Metadata
	return c.do(ctx, http.MethodGet, "/metadata", nil, &meta)
}

func (c *InferenceClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return types.NewAppError(
				types.ErrCodeInternalUnexpected,
				"failed to serialize inference request",
				err,
			)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create inference request",
			err,
		)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return c.wrapError(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(ctx, resp, path)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamInference,
			fmt.Sprintf("inference backend %s returned malformed JSON", path),
			err,
		)
	}
	return nil
}

// handleErrorResponse maps a 4xx from the backend. 422 means the model
// rejected the input; anything else is a contract problem between the
// service and the sidecar.
func (c *InferenceClient) handleErrorResponse(ctx context.Context, resp *http.Response, path string) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := strings.TrimSpace(string(bodyBytes))

	c.logger.ErrorContext(ctx, "inference backend error",
		"path", path,
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	cause := fmt.Errorf("inference %s returned %d: %s", path, resp.StatusCode, bodyStr)
	switch resp.StatusCode {
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return types.NewAppError(
			types.ErrCodeInferenceFailed,
			fmt.Sprintf("model rejected the input (%d)", resp.StatusCode),
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewAppError(
			types.ErrCodeUpstreamInference,
			fmt.Sprintf("inference backend authentication failed (%d)", resp.StatusCode),
			cause,
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamInference,
			fmt.Sprintf("inference backend client error (%d): %s", resp.StatusCode, path),
			cause,
		)
	}
}

// wrapError prefixes BaseClient errors with the endpoint, keeping the code.
func (c *InferenceClient) wrapError(path string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("inference %s: %s", path, appErr.Message),
			appErr.Err,
		)
	}
	return types.NewAppError(
		types.ErrCodeUpstreamInference,
		fmt.Sprintf("inference %s failed", path),
		err,
	)
}

var _ model.Pipeline = (*InferenceClient)(nil)
