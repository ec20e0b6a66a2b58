package config

import "log/slog"

// Set with -ldflags at release time, for example:
//
//	go build -ldflags "-X raincast/internal/config.version=1.2.3 \
//	    -X raincast/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X raincast/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo reads the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// UserAgent is sent to the inference sidecar, e.g. "Raincast/1.2.3 (abc123)".
// Development builds report "Raincast/dev".
func (b BuildInfo) UserAgent() string {
	ua := "Raincast/" + orDefault(b.Version, "dev")
	if b.Commit != "" && b.Commit != "none" {
		ua += " (" + b.Commit + ")"
	}
	return ua
}

// LogValue groups the build metadata in the startup log line.
func (b BuildInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.String("built", b.BuildTime),
	)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
