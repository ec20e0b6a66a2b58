package schema

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"raincast/internal/types"
)

// ValueSource yields raw submitted values by column name.
type ValueSource interface {
	Lookup(name string) (string, bool)
}

// FormValues adapts url.Values (query string or POST form) to a ValueSource.
type FormValues url.Values

// Lookup returns the first value submitted for name.
func (v FormValues) Lookup(name string) (string, bool) {
	vals, ok := v[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// MapSource is a ValueSource over a plain map.
type MapSource map[string]string

// Lookup returns the value stored under name.
func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// FieldError describes why one submitted value was rejected.
type FieldError struct {
	Field   string          `json:"field"`
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
	Value   string          `json:"value,omitempty"`
}

// FieldErrors is the set of rejected fields from one collection pass.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Field + ": " + e.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// For returns the error for the named field, if any.
func (fe FieldErrors) For(name string) (FieldError, bool) {
	for _, e := range fe {
		if e.Field == name {
			return e, true
		}
	}
	return FieldError{}, false
}

// AppError converts the field errors into a validation AppError whose code is
// that of the first failure.
func (fe FieldErrors) AppError() *types.AppError {
	if len(fe) == 0 {
		return nil
	}
	return types.NewAppErrorWithDetails(fe[0].Code, fe.Error(), nil, map[string]any{
		"validation_errors": []FieldError(fe),
	})
}

// Collect assembles a Feature Record from src. Every column absent from src,
// or submitted empty, takes the field default, so the record is always fully
// populated. Values that cannot be parsed, fall outside a field's range, or
// are not one of a field's choices are reported in the returned FieldErrors;
// the corresponding columns keep their defaults.
func Collect(src ValueSource) (types.FeatureRecord, FieldErrors) {
	rec := Defaults()
	var errs FieldErrors

	for _, f := range fields {
		raw, ok := src.Lookup(f.Name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}

		v, ferr := parse(f, raw)
		if ferr != nil {
			errs = append(errs, *ferr)
			continue
		}
		mustSet(&rec, f.Name, v)
	}

	return rec, errs
}

func parse(f Field, raw string) (any, *FieldError) {
	switch f.Kind {
	case KindChoice:
		if !slices.Contains(f.Choices, raw) {
			return nil, &FieldError{
				Field:   f.Name,
				Code:    types.ErrCodeValidationInvalidChoice,
				Message: fmt.Sprintf("%q is not a valid %s", raw, f.Name),
				Value:   raw,
			}
		}
		return raw, nil

	case KindBinary:
		v, ok := parseBinary(raw)
		if !ok {
			return nil, &FieldError{
				Field:   f.Name,
				Code:    types.ErrCodeValidationInvalidChoice,
				Message: "must be 0/1 or yes/no",
				Value:   raw,
			}
		}
		return v, nil
	}

	// Accept a decimal comma, as typed with Ukrainian keyboard layouts.
	n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, &FieldError{
			Field:   f.Name,
			Code:    types.ErrCodeValidationInvalidNumber,
			Message: "must be a number",
			Value:   raw,
		}
	}
	if f.Kind == KindInt && n != math.Trunc(n) {
		return nil, &FieldError{
			Field:   f.Name,
			Code:    types.ErrCodeValidationInvalidNumber,
			Message: "must be a whole number",
			Value:   raw,
		}
	}
	if n < f.Min || n > f.Max {
		return nil, &FieldError{
			Field:   f.Name,
			Code:    types.ErrCodeValidationOutOfRange,
			Message: fmt.Sprintf("must be between %s and %s", FormatBound(f.Min), FormatBound(f.Max)),
			Value:   raw,
		}
	}
	return n, nil
}

func parseBinary(raw string) (int, bool) {
	switch strings.ToLower(raw) {
	case BinaryNo, "no", "false":
		return 0, true
	case BinaryYes, "yes", "true":
		return 1, true
	}
	return 0, false
}

// FormatBound renders a range bound without trailing zeros.
func FormatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
