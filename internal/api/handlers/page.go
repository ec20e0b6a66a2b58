package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"raincast/internal/i18n"
	"raincast/internal/present"
	"raincast/internal/schema"
	"raincast/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// actionPredict is the submit button value that invokes the model. Any other
// action only refreshes the input summary.
const actionPredict = "predict"

// pageData is the struct passed into the page template.
type pageData struct {
	L         *i18n.Localizer
	Languages []string

	// ModelError is set when the startup load failed; the form is not
	// rendered and no prediction is offered.
	ModelError string

	Sections     []sectionView
	Summary      []schema.SummaryRow
	InputErrors  []schema.FieldError
	Result       *present.View
	PredictError string
}

type sectionView struct {
	Title  string
	Fields []fieldView
}

type fieldView struct {
	schema.Field
	Label   string
	Value   string
	Options []optionView
	Error   string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

// PageHandler serves the interactive HTML form.
type PageHandler struct {
	model     Predictor
	languages *i18n.Bundle
	page      *template.Template
	logger    *slog.Logger
}

// NewPageHandler parses the embedded page template.
func NewPageHandler(p Predictor, languages *i18n.Bundle, logger *slog.Logger) (*PageHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	page, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("handlers: parse page template: %w", err)
	}
	return &PageHandler{
		model:     p,
		languages: languages,
		page:      page,
		logger:    logger,
	}, nil
}

// RegisterRoutes mounts the form on the root router.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Post("/", h.HandleSubmit)
}

// HandleIndex handles GET /. Field values in the query string are collected
// over the defaults so a form state can be linked.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, r.URL.Query(), false)
}

// HandleSubmit handles POST /.
func (h *PageHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.handle(w, r, r.PostForm, r.PostForm.Get("action") == actionPredict)
}

func (h *PageHandler) handle(w http.ResponseWriter, r *http.Request, values url.Values, predict bool) {
	ctx := r.Context()
	loc := h.languages.FromContext(ctx)
	data := pageData{L: loc, Languages: h.languageCodes()}

	if err := h.model.Err(); err != nil {
		data.ModelError = err.Error()
		h.render(w, r, http.StatusServiceUnavailable, data)
		return
	}

	rec, inputErrs := schema.Collect(schema.FormValues(values))
	data.Sections = buildSections(rec, inputErrs, loc)
	data.Summary = schema.Summary(rec, loc)
	data.InputErrors = inputErrs

	if predict {
		pred, err := h.model.Predict(ctx, rec)
		if err != nil {
			h.logger.WarnContext(ctx, "prediction failed",
				"request_id", types.GetRequestID(ctx),
				"error", err,
			)
			data.PredictError = err.Error()
		} else {
			view := present.Present(pred, loc)
			data.Result = &view
		}
	}

	h.render(w, r, http.StatusOK, data)
}

// render executes into a buffer first so a template failure never leaves a
// half-written page behind.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) languageCodes() []string {
	tags := h.languages.Languages()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

func buildSections(rec types.FeatureRecord, errs schema.FieldErrors, loc *i18n.Localizer) []sectionView {
	sections := []schema.Section{schema.SectionNumerical, schema.SectionCategorical}
	out := make([]sectionView, 0, len(sections))
	for _, s := range sections {
		sv := sectionView{Title: loc.T("section." + string(s))}
		for _, f := range schema.FieldsIn(s) {
			sv.Fields = append(sv.Fields, buildField(f, rec, errs, loc))
		}
		out = append(out, sv)
	}
	return out
}

func buildField(f schema.Field, rec types.FeatureRecord, errs schema.FieldErrors, loc *i18n.Localizer) fieldView {
	fv := fieldView{Field: f, Label: loc.FieldLabel(f.Name)}
	if fe, ok := errs.For(f.Name); ok {
		fv.Error = fe.Message
	}

	v, _ := schema.Value(rec, f.Name)
	switch x := v.(type) {
	case float64:
		fv.Value = schema.FormatValue(x)
	case int:
		fv.Value = fmt.Sprint(x)
	case string:
		fv.Value = x
	}

	for _, opt := range options(f, loc) {
		fv.Options = append(fv.Options, optionView{
			Value:    opt.Value,
			Label:    opt.Label,
			Selected: opt.Value == fv.Value,
		})
	}
	return fv
}
