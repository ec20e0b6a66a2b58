package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileSecretProvider implements SecretProvider by reading each key as a file
// path, the layout used by Docker and Kubernetes mounted secrets. Trailing
// whitespace (usually a newline) is trimmed.
type FileSecretProvider struct{}

// NewFileSecretProvider creates a new FileSecretProvider.
func NewFileSecretProvider() *FileSecretProvider {
	return &FileSecretProvider{}
}

// GetParametersBatch reads every path in keys. Missing files are omitted;
// any other read failure aborts the batch.
func (p *FileSecretProvider) GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, path := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read secret file %s: %w", path, err)
		}
		result[path] = strings.TrimRight(string(raw), " \t\r\n")
	}
	return result, nil
}
