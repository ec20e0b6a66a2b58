// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. For each secret variable of Config (its SecretString fields), resolve
//     NAME_FILE through the SecretProvider and inject the value as NAME.
//  4. Use envconfig to process struct tags and populate the Config struct.
//  5. Populate BuildInfo from linker-injected variables.
//  6. Validate the struct using go-playground/validator, then the cross-field
//     rules the tags cannot express.
package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// secretFileSuffix marks an environment variable whose value is the path of
// a file holding the secret. INFERENCE_API_KEY_FILE=/run/secrets/key sets
// INFERENCE_API_KEY.
const secretFileSuffix = "_FILE"

// secretResolveTimeout bounds the SecretProvider batch call.
const secretResolveTimeout = 10 * time.Second

// envLookup is a function type for looking up environment variables.
// It matches the signature of os.LookupEnv and allows injection for testing.
type envLookup func(key string) (string, bool)

// envSet is a function type for setting environment variables.
// It matches the signature of os.Setenv and allows injection for testing.
type envSet func(key, value string) error

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without mutating global state.
type loaderDeps struct {
	lookupEnv envLookup
	setEnv    envSet
}

// defaultDeps returns the standard OS-backed dependencies.
func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
	}
}

// LoadConfig loads and validates the configuration. A nil provider reads
// *_FILE secrets from the filesystem.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv.Load silently succeeds without a .env file and never
	// overrides variables that are already set.
	_ = godotenv.Load()

	if provider == nil {
		provider = NewFileSecretProvider()
	}
	if err := resolveSecretFiles(provider, deps, secretEnvVars()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := checkBackend(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkBackend enforces settings that depend on MODEL_BACKEND.
func checkBackend(cfg *Config) error {
	if cfg.Model.Backend != BackendRemote {
		return nil
	}
	if cfg.Inference.URL == "" {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "INFERENCE_URL is required when MODEL_BACKEND=remote",
		}
	}
	if cfg.Environment == "prod" && cfg.Inference.APIKey.IsZero() {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "INFERENCE_API_KEY is required for the remote backend in prod",
		}
	}
	return nil
}

// secretEnvVars lists the envconfig names of every SecretString field in
// Config. Only these may be supplied as NAME_FILE; other variables ending in
// _FILE (SSL_CERT_FILE and the like) belong to someone else.
func secretEnvVars() []string {
	var names []string
	secretType := reflect.TypeOf(SecretString(""))

	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			switch {
			case f.Type == secretType:
				if name := f.Tag.Get("envconfig"); name != "" {
					names = append(names, name)
				}
			case f.Type.Kind() == reflect.Struct:
				walk(f.Type)
			}
		}
	}
	walk(reflect.TypeOf(Config{}))
	return names
}

// resolveSecretFiles reads NAME_FILE for each of names through the
// SecretProvider and injects the value as NAME. A target that is already set
// wins over its file.
func resolveSecretFiles(provider SecretProvider, deps loaderDeps, names []string) error {
	type binding struct {
		targetEnvVar string
		path         string
	}

	var bindings []binding
	for _, target := range names {
		path, ok := deps.lookupEnv(target + secretFileSuffix)
		if !ok || path == "" {
			continue
		}
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		bindings = append(bindings, binding{targetEnvVar: target, path: path})
	}

	if len(bindings) == 0 {
		return nil
	}

	paths := make([]string, 0, len(bindings))
	for _, b := range bindings {
		paths = append(paths, b.path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretResolveTimeout)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("failed to resolve %d secret files", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, b := range bindings {
		value, ok := resolved[b.path]
		if !ok {
			missing = append(missing, b.targetEnvVar)
			continue
		}
		if err := deps.setEnv(b.targetEnvVar, value); err != nil {
			return &ConfigError{
				Type:    ErrSecretResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", b.targetEnvVar),
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("secret files not found for: %s", strings.Join(missing, ", ")),
		}
	}

	return nil
}
