package config

import "context"

// SecretProvider resolves secret pointers (file paths, for the default
// provider) to their plaintext values. It is injected so tests can resolve
// secrets without touching the filesystem.
type SecretProvider interface {
	// GetParametersBatch resolves every key it can. Keys that cannot be
	// found are omitted from the result rather than reported as errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
