package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// The prefix of a code selects its HTTP status; see HTTPStatus.
const (
	// Validation (400)
	ErrCodeValidationOutOfRange    ErrorCode = "validation_value_out_of_range"
	ErrCodeValidationInvalidChoice ErrorCode = "validation_invalid_choice"
	ErrCodeValidationInvalidNumber ErrorCode = "validation_invalid_number"
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidJSON   ErrorCode = "validation_invalid_json"

	// Model (503 / 422)
	ErrCodeModelUnavailable ErrorCode = "model_unavailable"
	ErrCodeInferenceFailed  ErrorCode = "inference_failed"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeInternalModelOutput ErrorCode = "internal_model_output_invalid"
	ErrCodeUpstreamInference   ErrorCode = "upstream_inference_unavailable"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps a code to the status the API answers with. Unknown codes
// are 500.
func (c ErrorCode) HTTPStatus() int {
	switch s := string(c); {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case c == ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	case c == ErrCodeInferenceFailed:
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a failure with a stable client-facing code. Message is safe to
// show; Err is the cause and is only logged.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e with details merged over its own.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// appErrorer is implemented by error types that convert to an *AppError,
// such as a list of rejected form fields or a failed model call.
type appErrorer interface {
	AppError() *AppError
}

// AsAppError finds the client-facing form of err. A converter in the chain
// wins over a plain *AppError, so a failed model call keeps its operation
// detail even when its cause is an upstream AppError.
func AsAppError(err error) (*AppError, bool) {
	var conv appErrorer
	if errors.As(err, &conv) {
		if ae := conv.AppError(); ae != nil {
			return ae, true
		}
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code AsAppError finds, "" for nil and
// ErrCodeInternalUnexpected for anything else.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if ae, ok := AsAppError(err); ok {
		return ae.Code
	}
	return ErrCodeInternalUnexpected
}
