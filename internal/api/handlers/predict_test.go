package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/core"
	"raincast/internal/i18n"
	"raincast/internal/model"
	"raincast/internal/schema"
	"raincast/internal/types"
)

// --- Fake Predictor ---

type fakePredictor struct {
	pred    types.Prediction
	err     error
	loadErr error

	calls int
	got   types.FeatureRecord
}

func (f *fakePredictor) Predict(_ context.Context, rec types.FeatureRecord) (types.Prediction, error) {
	f.calls++
	f.got = rec
	return f.pred, f.err
}

func (f *fakePredictor) Err() error {
	return f.loadErr
}

func rainPrediction() types.Prediction {
	return types.Prediction{Label: types.LabelRain, Probabilities: [2]float64{0.2, 0.8}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.NewBundle("en")
	require.NoError(t, err)
	return b
}

func newPredictionRouter(t *testing.T, p Predictor) chi.Router {
	t.Helper()
	h := NewPredictionHandler(p, core.NewValidator(discardLogger()), testBundle(t), discardLogger())
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

// do serves req with the display language already negotiated, the way the
// language middleware leaves it.
func do(r http.Handler, req *http.Request, lang string) *httptest.ResponseRecorder {
	if lang != "" {
		req = req.WithContext(types.WithLanguage(req.Context(), lang))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type predictEnvelope struct {
	Data     PredictResponse `json:"data"`
	Warnings []string        `json:"warnings"`
}

type errorEnvelope struct {
	Error core.ErrorDetail `json:"error"`
}

func TestHandleSchema(t *testing.T) {
	r := newPredictionRouter(t, &fakePredictor{})

	rr := do(r, httptest.NewRequest(http.MethodGet, "/v1/schema", nil), "uk")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			Language  string   `json:"language"`
			Languages []string `json:"languages"`
			Model     struct {
				Loaded bool `json:"loaded"`
			} `json:"model"`
			Fields []struct {
				Name    string `json:"name"`
				Label   string `json:"label"`
				Control string `json:"control"`
				Options []struct {
					Value string `json:"value"`
					Label string `json:"label"`
				} `json:"options"`
			} `json:"fields"`
			Defaults map[string]any `json:"defaults"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, "uk", body.Data.Language)
	assert.ElementsMatch(t, []string{"en", "uk"}, body.Data.Languages)
	assert.True(t, body.Data.Model.Loaded)
	require.Len(t, body.Data.Fields, len(schema.Fields()))

	loc := testBundle(t).Localizer(i18n.Ukrainian)
	for _, f := range body.Data.Fields {
		assert.Equal(t, loc.FieldLabel(f.Name), f.Label, "label of %s", f.Name)
		if f.Name == "RainToday" {
			require.Len(t, f.Options, 2)
			assert.Equal(t, loc.YesNo(false), f.Options[0].Label)
			assert.Equal(t, loc.YesNo(true), f.Options[1].Label)
		}
		if f.Name == "WindGustDir" {
			assert.Len(t, f.Options, 16)
			assert.Equal(t, "N", f.Options[0].Label)
		}
	}

	assert.Equal(t, 12.0, body.Data.Defaults["MinTemp"])
	assert.Equal(t, "Adelaide", body.Data.Defaults["Location"])
}

func TestHandleSchema_ModelNotLoaded(t *testing.T) {
	r := newPredictionRouter(t, &fakePredictor{loadErr: errors.New("missing")})

	rr := do(r, httptest.NewRequest(http.MethodGet, "/v1/schema", nil), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"loaded":false`)
}

func TestHandlePredict_PartialRecord(t *testing.T) {
	p := &fakePredictor{pred: rainPrediction()}
	r := newPredictionRouter(t, p)

	body := `{"MinTemp": 3.5, "Location": "Hobart", "RainToday": 1, "Rainfall": 4}`
	rr := do(r, httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(body)), "en")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Equal(t, 1, p.calls)
	want := schema.Defaults()
	want.MinTemp = 3.5
	want.Location = "Hobart"
	want.RainToday = 1
	want.Rainfall = 4
	assert.Equal(t, want, p.got)

	var env predictEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "en", env.Data.Language)
	assert.Equal(t, want, env.Data.Record)
	assert.Equal(t, "YES", env.Data.Result.Headline)
	assert.Equal(t, 80, env.Data.Result.BarPercent)
	assert.Empty(t, env.Warnings)

	require.Len(t, env.Data.Summary, len(schema.Fields()))
	last := env.Data.Summary[len(env.Data.Summary)-1]
	assert.Equal(t, "RainToday", last.Field)
	assert.Equal(t, "Yes", last.Value)
}

func TestHandlePredict_EmptyBodyUsesDefaults(t *testing.T) {
	p := &fakePredictor{pred: types.Prediction{Label: types.LabelNoRain, Probabilities: [2]float64{0.9, 0.1}}}
	r := newPredictionRouter(t, p)

	rr := do(r, httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(`{}`)), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, schema.Defaults(), p.got)
}

func TestHandlePredict_Warnings(t *testing.T) {
	r := newPredictionRouter(t, &fakePredictor{pred: rainPrediction()})

	body := `{"MinTemp": 30, "MaxTemp": 20}`
	rr := do(r, httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(body)), "")
	require.Equal(t, http.StatusOK, rr.Code)

	var env predictEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Contains(t, env.Warnings, "MinTemp is above MaxTemp")
}

func TestHandlePredict_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode types.ErrorCode
	}{
		{"out of range", `{"Humidity9am": 101}`, types.ErrCodeValidationOutOfRange},
		{"unknown station", `{"Location": "Atlantis"}`, types.ErrCodeValidationInvalidChoice},
		{"bad compass point", `{"WindDir3pm": "north"}`, types.ErrCodeValidationInvalidChoice},
		{"rain today not binary", `{"RainToday": 2}`, types.ErrCodeValidationInvalidChoice},
		{"unknown field", `{"Snowfall": 3}`, types.ErrCodeValidationInvalidJSON},
		{"wrong type", `{"Cloud9am": "four"}`, types.ErrCodeValidationInvalidJSON},
		{"malformed", `{"MinTemp": `, types.ErrCodeValidationInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePredictor{pred: rainPrediction()}
			r := newPredictionRouter(t, p)

			rr := do(r, httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(tt.body)), "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var env errorEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			assert.Equal(t, string(tt.wantCode), env.Error.Code)
			assert.Zero(t, p.calls, "model must not be invoked")
		})
	}
}

func TestHandlePredict_ModelUnavailable(t *testing.T) {
	h := model.Failed(&model.LoadError{Path: "models/rain_model.json", Reason: model.ReasonMissing}, "models/rain_model.json")
	r := newPredictionRouter(t, h)

	rr := do(r, httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(`{}`)), "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, string(types.ErrCodeModelUnavailable), env.Error.Code)
	assert.Equal(t, "missing", env.Error.Details["reason"])
	assert.NotContains(t, rr.Body.String(), "rain_model.json", "artifact path must stay server-side")
}

func TestHandlePredict_InferenceFailure(t *testing.T) {
	infErr := &model.InferenceError{
		Op:   "predict_proba",
		Code: types.ErrCodeInferenceFailed,
		Err:  errors.New("unknown category"),
	}
	r := newPredictionRouter(t, &fakePredictor{err: infErr})

	rr := do(r, httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(`{}`)), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, string(types.ErrCodeInferenceFailed), env.Error.Code)
	assert.Equal(t, "predict_proba", env.Error.Details["operation"])
}
