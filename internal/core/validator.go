package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"raincast/internal/schema"
	"raincast/internal/types"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// IsValid reports whether no blocking errors were found.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator and registers the station and
// compass tags used on types.FeatureRecord.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name, which is also the model column name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tag names or nil funcs.
	_ = v.RegisterValidation("station", validateStation)
	_ = v.RegisterValidation("compass", validateCompass)

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

func validateStation(fl validator.FieldLevel) bool {
	return schema.IsLocation(fl.Field().String())
}

func validateCompass(fl validator.FieldLevel) bool {
	return schema.IsWindDirection(fl.Field().String())
}

// ValidateStruct validates s and returns a *types.AppError whose code is that
// of the first failure, with every failure listed under
// details.validation_errors.
func (v *Validator) ValidateStruct(s any) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	msg := first.Message
	if len(result.Errors) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(result.Errors)-1)
	}
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		msg,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates s and collects every failure. Readings
// that are valid but physically inconsistent are returned as warnings.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			v.logger.Error("validator misuse", "error", err)
			result.Errors = append(result.Errors, ValidationError{
				Code:    string(types.ErrCodeInternalUnexpected),
				Message: err.Error(),
			})
			return result
		}
		for _, fe := range verrs {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fe.Field(),
				Code:    tagToErrorCode(fe.Tag()),
				Message: messageFor(fe),
			})
		}
	}

	if rec, ok := asRecord(s); ok {
		result.Warnings = recordWarnings(rec)
	}
	return result
}

func asRecord(s any) (types.FeatureRecord, bool) {
	switch r := s.(type) {
	case types.FeatureRecord:
		return r, true
	case *types.FeatureRecord:
		if r != nil {
			return *r, true
		}
	}
	return types.FeatureRecord{}, false
}

// recordWarnings flags combinations the form allows but that cannot occur.
func recordWarnings(rec types.FeatureRecord) []string {
	var w []string
	if rec.MinTemp > rec.MaxTemp {
		w = append(w, "MinTemp is above MaxTemp")
	}
	if rec.RainToday == 1 && rec.Rainfall == 0 {
		w = append(w, "RainToday is Yes but Rainfall is 0 mm")
	}
	if rec.Rainfall > 1 && rec.RainToday == 0 {
		w = append(w, "Rainfall exceeds 1 mm but RainToday is No")
	}
	return w
}

// tagToErrorCode maps a validator tag to an application error code.
func tagToErrorCode(tag string) string {
	switch tag {
	case "required":
		return string(types.ErrCodeValidationMissingField)
	case "station", "compass", "oneof":
		return string(types.ErrCodeValidationInvalidChoice)
	case "gte", "lte", "gt", "lt", "min", "max":
		return string(types.ErrCodeValidationOutOfRange)
	case "numeric", "number":
		return string(types.ErrCodeValidationInvalidNumber)
	default:
		return string(types.ErrCodeValidationOutOfRange)
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "station":
		return fmt.Sprintf("%s is not a known weather station", fe.Field())
	case "compass":
		return fmt.Sprintf("%s must be a 16-point compass direction", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
