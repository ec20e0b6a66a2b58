// Package config defines the configuration of the rain prediction service.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Secret files (*_FILE) (Lowest)
//
// Any invalid value causes startup to fail.
package config

import (
	"time"

	"raincast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Model backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config is the top-level configuration struct.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"raincast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Model     ModelConfig
	Inference InferenceConfig
	I18n      I18nConfig
	Security  SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
}

// ModelConfig selects and locates the prediction pipeline.
type ModelConfig struct {
	Backend string `envconfig:"MODEL_BACKEND" default:"local" validate:"oneof=local remote"`

	// Path is resolved against BaseDir when relative. An empty BaseDir means
	// the directory of the executable.
	Path    string `envconfig:"MODEL_PATH" default:"models/rain_model.json" validate:"required"`
	BaseDir string `envconfig:"MODEL_BASE_DIR"`

	// FailFast exits the process on a load failure instead of serving the
	// error page.
	FailFast bool `envconfig:"MODEL_FAIL_FAST" default:"false"`
}

// InferenceConfig configures the remote inference backend.
type InferenceConfig struct {
	URL     string        `envconfig:"INFERENCE_URL" validate:"omitempty,url"`
	APIKey  SecretString  `envconfig:"INFERENCE_API_KEY"`
	Timeout time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"5s" validate:"gt=0"`
}

// I18nConfig holds localization settings.
type I18nConfig struct {
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"en" validate:"oneof=en uk"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSecretResolution indicates a failure reading a *_FILE secret.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
