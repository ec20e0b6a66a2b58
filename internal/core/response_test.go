package core

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raincast/internal/types"
)

func newRequestWithID(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(types.WithRequestID(req.Context(), "req-abc"))
}

func TestJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, newRequestWithID(http.MethodGet, "/", ""), http.StatusOK, APIResponse{
		Data:     map[string]string{"tier": "high"},
		Warnings: []string{"MinTemp is above MaxTemp"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"tier":"high"},"warnings":["MinTemp is above MaxTemp"]}`, rec.Body.String())
}

func TestJSON_MarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, newRequestWithID(http.MethodGet, "/", ""), http.StatusOK, map[string]float64{"p": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), errObj["code"])
	assert.Equal(t, "req-abc", errObj["request_id"])
}

func TestError_StatusByCode(t *testing.T) {
	tests := []struct {
		code   types.ErrorCode
		status int
	}{
		{types.ErrCodeValidationOutOfRange, http.StatusBadRequest},
		{types.ErrCodeValidationInvalidChoice, http.StatusBadRequest},
		{types.ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{types.ErrCodeModelUnavailable, http.StatusServiceUnavailable},
		{types.ErrCodeInferenceFailed, http.StatusUnprocessableEntity},
		{types.ErrCodeUpstreamInference, http.StatusBadGateway},
		{types.ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{types.ErrCodeInternalModelOutput, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, newRequestWithID(http.MethodPost, "/v1/predict", ""),
				types.NewAppError(tt.code, "something happened", errors.New("internal detail")))

			assert.Equal(t, tt.status, rec.Code)
			errObj := decodeBody(t, rec)["error"].(map[string]any)
			assert.Equal(t, string(tt.code), errObj["code"])
			assert.Equal(t, "something happened", errObj["message"])
			assert.Equal(t, "req-abc", errObj["request_id"])
			assert.NotContains(t, rec.Body.String(), "internal detail")
		})
	}
}

func TestError_WithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := types.NewAppErrorWithDetails(types.ErrCodeValidationOutOfRange, "Humidity3pm must be between 0 and 100", nil,
		map[string]any{"field": "Humidity3pm"})
	Error(rec, newRequestWithID(http.MethodPost, "/", ""), err)

	details := decodeBody(t, rec)["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "Humidity3pm", details["field"])
}

func TestError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	inner := types.NewAppError(types.ErrCodeModelUnavailable, "prediction model is not loaded", nil)
	Error(rec, newRequestWithID(http.MethodPost, "/", ""), fmt.Errorf("handler: %w", inner))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestError_GenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, newRequestWithID(http.MethodPost, "/", ""), errors.New("connection refused to 10.0.0.7"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
	errObj := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), errObj["code"])
}

type partialRecord struct {
	MinTemp  *float64 `json:"MinTemp"`
	Location *string  `json:"Location"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var dst partialRecord
		err := DecodeJSON(httptest.NewRecorder(), newRequestWithID(http.MethodPost, "/", `{"MinTemp":13.4,"Location":"Darwin"}`), &dst)
		require.NoError(t, err)
		require.NotNil(t, dst.MinTemp)
		assert.Equal(t, 13.4, *dst.MinTemp)
		assert.Equal(t, "Darwin", *dst.Location)
	})

	failures := []struct {
		name    string
		body    string
		message string
	}{
		{"unknown field", `{"MinTemp":1,"Snowfall":3}`, "unknown field"},
		{"syntax error", `{"MinTemp":`, "JSON"},
		{"empty body", ``, "must not be empty"},
		{"type mismatch", `{"MinTemp":"warm"}`, "invalid value"},
		{"multiple values", `{"MinTemp":1}{"MinTemp":2}`, "single JSON object"},
		{"too large", `{"Location":"` + strings.Repeat("a", maxRequestBodySize) + `"}`, "1MB"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			var dst partialRecord
			err := DecodeJSON(httptest.NewRecorder(), newRequestWithID(http.MethodPost, "/", tt.body), &dst)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeValidationInvalidJSON, appErr.Code)
			assert.Contains(t, appErr.Message, tt.message)
		})
	}

	t.Run("unknown field is named in details", func(t *testing.T) {
		var dst partialRecord
		err := DecodeJSON(httptest.NewRecorder(), newRequestWithID(http.MethodPost, "/", `{"Snowfall":3}`), &dst)

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Snowfall", appErr.Details["field"])
		assert.Equal(t, "unknown field in request body: Snowfall", appErr.Message)
	})
}
