package core

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"raincast/internal/types"
)

// maxRequestBodySize bounds a JSON request body. A full Feature Record is a
// few hundred bytes.
const maxRequestBodySize = 1 << 20

// APIResponse is the envelope of every successful JSON response. Warnings
// carry non-blocking findings, such as readings that are valid but
// physically inconsistent.
type APIResponse struct {
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// APIErrorResponse is the envelope of every JSON error response.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-facing description of a failure.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON marshals data and writes it with status. A value that cannot be
// marshalled (a NaN probability, for example) becomes a 500 envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to marshal response",
			"request_id", types.GetRequestID(r.Context()),
			"error", err,
		)
		body, _ = json.Marshal(APIErrorResponse{Error: ErrorDetail{
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "failed to marshal response",
			RequestID: types.GetRequestID(r.Context()),
		}})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as an APIErrorResponse. The AppError form of err (see
// types.AsAppError) supplies the code, status, message and details; anything
// else is an unexpected 500 whose text is never shown to the client. Server-side
// failures are logged with the wrapped cause.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := describeError(err)
	detail.RequestID = types.GetRequestID(r.Context())

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", detail.RequestID,
			"code", detail.Code,
			"status", status,
			"error", err,
		)
	}
	JSON(w, r, status, APIErrorResponse{Error: detail})
}

func describeError(err error) (int, ErrorDetail) {
	if appErr, ok := types.AsAppError(err); ok {
		return appErr.HTTPStatus(), ErrorDetail{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}
	return http.StatusInternalServerError, ErrorDetail{
		Code:    string(types.ErrCodeInternalUnexpected),
		Message: "an unexpected error occurred",
	}
}

// DecodeJSON decodes exactly one JSON value from the request body into dst.
// Unknown fields, bodies over 1MB, empty bodies and trailing values are
// rejected with a validation_invalid_json *types.AppError. Fields absent from
// the body leave dst untouched, so callers pre-fill dst with defaults.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return invalidJSON("request body must contain a single JSON object", nil, nil)
	}
	return nil
}

func invalidJSON(msg string, err error, details map[string]any) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidJSON, msg, err, details)
}

// decodeError classifies a json.Decoder failure.
func decodeError(err error) *types.AppError {
	var (
		maxBytesErr *http.MaxBytesError
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return invalidJSON("request body must not exceed 1MB", err, nil)

	case errors.As(err, &syntaxErr):
		return invalidJSON("malformed JSON in request body", err, map[string]any{"offset": syntaxErr.Offset})

	case errors.As(err, &typeErr):
		return invalidJSON("invalid value for field "+typeErr.Field, err, map[string]any{
			"field":    typeErr.Field,
			"expected": typeErr.Type.String(),
		})

	case strings.HasPrefix(err.Error(), "json: unknown field "):
		// encoding/json has no typed error for DisallowUnknownFields.
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return invalidJSON("unknown field in request body: "+field, err, map[string]any{"field": field})

	case errors.Is(err, io.EOF):
		return invalidJSON("request body must not be empty", err, nil)

	default:
		return invalidJSON("invalid JSON in request body", err, nil)
	}
}
