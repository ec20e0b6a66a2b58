package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBuildInfo_UnlinkedDefaults(t *testing.T) {
	assert.Equal(t, BuildInfo{Version: "dev", Commit: "none", BuildTime: "unknown"}, NewBuildInfo())
}

func TestBuildInfo_UserAgent(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"development build", NewBuildInfo(), "Raincast/dev"},
		{"release", BuildInfo{Version: "1.2.3", Commit: "abc123"}, "Raincast/1.2.3 (abc123)"},
		{"missing version", BuildInfo{Commit: "abc123"}, "Raincast/dev (abc123)"},
		{"empty", BuildInfo{}, "Raincast/dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.UserAgent())
		})
	}
}

func TestBuildInfo_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("starting", "build", BuildInfo{Version: "1.2.3", Commit: "abc123", BuildTime: "2026-10-01T00:00:00Z"})

	assert.Contains(t, buf.String(), `"build":{"version":"1.2.3","commit":"abc123","built":"2026-10-01T00:00:00Z"}`)
}
