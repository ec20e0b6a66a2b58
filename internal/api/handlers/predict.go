// Package handlers contains the HTTP handler implementations for Raincast.
//
// Two surfaces share the same schema, model handle and presentation:
//   - The JSON API mounted under /v1 (schema and predict).
//   - The HTML form served at the root.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"raincast/internal/core"
	"raincast/internal/i18n"
	"raincast/internal/present"
	"raincast/internal/schema"
	"raincast/internal/types"
)

// Predictor is the model contract the handlers depend on. *model.Handle
// satisfies it.
type Predictor interface {
	Predict(ctx context.Context, rec types.FeatureRecord) (types.Prediction, error)
	// Err returns the startup load error, or nil when predictions are served.
	Err() error
}

// PredictionHandler serves the JSON schema and prediction endpoints.
type PredictionHandler struct {
	model     Predictor
	validator *core.Validator
	languages *i18n.Bundle
	logger    *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler with the provided dependencies.
func NewPredictionHandler(
	p Predictor,
	val *core.Validator,
	languages *i18n.Bundle,
	logger *slog.Logger,
) *PredictionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionHandler{
		model:     p,
		validator: val,
		languages: languages,
		logger:    logger,
	}
}

// RegisterRoutes mounts the endpoints onto the /v1 router.
func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/schema", h.HandleSchema)
	r.Post("/predict", h.HandlePredict)
}

// choiceOption is one selectable value with its display text.
type choiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// fieldSchema is a schema.Field with its localized label.
type fieldSchema struct {
	schema.Field
	Label   string         `json:"label"`
	Options []choiceOption `json:"options,omitempty"`
}

// SchemaResponse is the body of GET /v1/schema.
type SchemaResponse struct {
	Language  string              `json:"language"`
	Languages []string            `json:"languages"`
	Model     modelStatus         `json:"model"`
	Fields    []fieldSchema       `json:"fields"`
	Defaults  types.FeatureRecord `json:"defaults"`
}

type modelStatus struct {
	Loaded bool   `json:"loaded"`
	Status string `json:"status"`
}

// PredictResponse is the body of POST /v1/predict.
type PredictResponse struct {
	Language string              `json:"language"`
	Record   types.FeatureRecord `json:"record"`
	Summary  []schema.SummaryRow `json:"summary"`
	Result   present.View        `json:"result"`
}

// HandleSchema handles GET /v1/schema.
func (h *PredictionHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	loc := h.languages.FromContext(r.Context())

	fields := schema.Fields()
	out := make([]fieldSchema, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldSchema{
			Field:   f,
			Label:   loc.FieldLabel(f.Name),
			Options: options(f, loc),
		})
	}

	langs := make([]string, 0, len(h.languages.Languages()))
	for _, tag := range h.languages.Languages() {
		langs = append(langs, tag.String())
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: SchemaResponse{
		Language:  loc.Lang(),
		Languages: langs,
		Model:     statusOf(h.model, loc),
		Fields:    out,
		Defaults:  schema.Defaults(),
	}})
}

// HandlePredict handles POST /v1/predict.
//  1. Decode the body over the defaults; absent columns keep their default.
//  2. Validate ranges and choices.
//  3. Invoke the model and present the result in the request language.
func (h *PredictionHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	rec := schema.Defaults()
	if err := core.DecodeJSON(w, r, &rec); err != nil {
		core.Error(w, r, err)
		return
	}

	result := h.validator.ValidateStructWithWarnings(rec)
	if !result.IsValid() {
		core.Error(w, r, h.validator.ValidateStruct(rec))
		return
	}

	pred, err := h.model.Predict(r.Context(), rec)
	if err != nil {
		h.logger.WarnContext(r.Context(), "prediction failed",
			"request_id", types.GetRequestID(r.Context()),
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	loc := h.languages.FromContext(r.Context())
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: PredictResponse{
			Language: loc.Lang(),
			Record:   rec,
			Summary:  schema.Summary(rec, loc),
			Result:   present.Present(pred, loc),
		},
		Warnings: result.Warnings,
	})
}

// options lists the localized choices of a select or yes/no field.
func options(f schema.Field, loc *i18n.Localizer) []choiceOption {
	if len(f.Choices) == 0 {
		return nil
	}
	opts := make([]choiceOption, 0, len(f.Choices))
	for _, c := range f.Choices {
		label := c
		if f.Kind == schema.KindBinary {
			label = loc.YesNo(c == schema.BinaryYes)
		}
		opts = append(opts, choiceOption{Value: c, Label: label})
	}
	return opts
}

func statusOf(p Predictor, loc *i18n.Localizer) modelStatus {
	if p.Err() != nil {
		return modelStatus{Loaded: false, Status: loc.T("app.model_error")}
	}
	return modelStatus{Loaded: true, Status: loc.T("app.model_loaded")}
}
