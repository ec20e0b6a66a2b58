package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/model"
	"raincast/internal/types"
)

func newPageRouter(t *testing.T, p Predictor) chi.Router {
	t.Helper()
	h, err := NewPageHandler(p, testBundle(t), discardLogger())
	require.NoError(t, err)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleIndex_RendersDefaults(t *testing.T) {
	p := &fakePredictor{pred: rainPrediction()}
	r := newPageRouter(t, p)

	rr := do(r, httptest.NewRequest(http.MethodGet, "/", nil), "en")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Contains(t, body, "Australia Rain Forecast")
	assert.Contains(t, body, "Model loaded successfully!")
	assert.Contains(t, body, "Numerical Metrics")
	assert.Contains(t, body, "Categorical Context")
	assert.Contains(t, body, `type="range" id="MinTemp" name="MinTemp" min="-10" max="40" step="0.01" value="12.0"`)
	assert.Contains(t, body, `<output id="MinTemp-value" for="MinTemp">12.0</output>`)
	assert.Contains(t, body, `type="number" id="Pressure9am"`)
	assert.Contains(t, body, `<option value="Adelaide" selected>Adelaide</option>`)
	assert.Contains(t, body, `<option value="0" selected>No</option>`)
	assert.Contains(t, body, "WeatherAUS")
	assert.NotContains(t, body, `id="result"`)
	assert.Zero(t, p.calls, "rendering the form must not invoke the model")
}

func TestHandleIndex_CollectsQuery(t *testing.T) {
	r := newPageRouter(t, &fakePredictor{})

	rr := do(r, httptest.NewRequest(http.MethodGet, "/?Location=Perth&Cloud3pm=7", nil), "en")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `<option value="Perth" selected>Perth</option>`)
	assert.Contains(t, body, `<td>Perth</td>`)
	assert.Contains(t, body, `<td>7</td>`)
	assert.Contains(t, body, `<output id="Cloud3pm-value" for="Cloud3pm">7</output>`)
}

func TestHandleIndex_Ukrainian(t *testing.T) {
	r := newPageRouter(t, &fakePredictor{})

	rr := do(r, httptest.NewRequest(http.MethodGet, "/", nil), "uk")
	require.Equal(t, http.StatusOK, rr.Code)

	loc := testBundle(t).FromContext(types.WithLanguage(t.Context(), "uk"))
	assert.Contains(t, rr.Body.String(), `<html lang="uk">`)
	assert.Contains(t, rr.Body.String(), loc.T("app.title"))
}

func TestHandleSubmit_RefreshOnly(t *testing.T) {
	p := &fakePredictor{pred: rainPrediction()}
	r := newPageRouter(t, p)

	rr := do(r, postForm(url.Values{"action": {"refresh"}, "RainToday": {"1"}}), "en")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Zero(t, p.calls)
	assert.Contains(t, rr.Body.String(), `<td>Yes</td>`)
	assert.NotContains(t, rr.Body.String(), `id="result"`)
}

func TestHandleSubmit_Predict(t *testing.T) {
	p := &fakePredictor{pred: rainPrediction()}
	r := newPageRouter(t, p)

	rr := do(r, postForm(url.Values{"action": {"predict"}, "Humidity3pm": {"85"}}), "en")
	require.Equal(t, http.StatusOK, rr.Code)

	require.Equal(t, 1, p.calls)
	assert.Equal(t, 85, p.got.Humidity3pm)

	body := rr.Body.String()
	assert.Contains(t, body, `id="result"`)
	assert.Contains(t, body, "YES")
	assert.Contains(t, body, "Rain is expected tomorrow.")
	assert.Contains(t, body, "80.0%")
	assert.Contains(t, body, "20.0%")
	assert.Contains(t, body, `style="width: 80%"`)
	assert.Contains(t, body, "High probability of rain.")
}

func TestHandleSubmit_InvalidInputKeepsDefault(t *testing.T) {
	p := &fakePredictor{pred: rainPrediction()}
	r := newPageRouter(t, p)

	rr := do(r, postForm(url.Values{"action": {"predict"}, "Sunshine": {"99"}, "Location": {"Atlantis"}}), "en")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `id="input-errors"`)
	assert.Contains(t, body, "Some inputs were rejected")
	assert.Contains(t, body, `class="field-error"`)

	require.Equal(t, 1, p.calls)
	assert.Equal(t, 7.0, p.got.Sunshine)
	assert.Equal(t, "Adelaide", p.got.Location)
}

func TestHandleSubmit_InferenceErrorKeepsSummary(t *testing.T) {
	infErr := &model.InferenceError{Op: "predict", Code: types.ErrCodeInferenceFailed, Err: errors.New("shape mismatch")}
	r := newPageRouter(t, &fakePredictor{err: infErr})

	rr := do(r, postForm(url.Values{"action": {"predict"}, "Location": {"Darwin"}}), "en")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `id="predict-error"`)
	assert.Contains(t, body, "shape mismatch")
	assert.Contains(t, body, `id="summary"`)
	assert.Contains(t, body, `<td>Darwin</td>`)
	assert.NotContains(t, body, `id="result"`)
}

func TestPage_ModelUnavailable(t *testing.T) {
	h := model.Failed(&model.LoadError{Path: "models/rain_model.json", Reason: model.ReasonMissing, Err: errors.New("no such file")}, "models/rain_model.json")
	r := newPageRouter(t, h)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/", nil),
		postForm(url.Values{"action": {"predict"}}),
	} {
		rr := do(r, req, "en")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

		body := rr.Body.String()
		assert.Contains(t, body, `id="model-error"`)
		assert.Contains(t, body, "Error loading model")
		assert.Contains(t, body, "no such file")
		assert.NotContains(t, body, "<form")
	}
}

func TestHandleSubmit_MalformedForm(t *testing.T) {
	r := newPageRouter(t, &fakePredictor{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := do(r, req, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
