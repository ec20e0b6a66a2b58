package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"

	"raincast/internal/schema"
	"raincast/internal/types"
)

// DefaultPath is the artifact location relative to the application directory.
const DefaultPath = "models/rain_model.json"

const (
	artifactFormat  = "raincast-pipeline"
	artifactVersion = 1

	// maxDecodedSize caps decompressed .zst artifacts.
	maxDecodedSize = 64 << 20
)

// Pipeline kinds understood by Load.
const (
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
)

// LoadReason classifies a load failure.
type LoadReason string

const (
	ReasonMissing      LoadReason = "missing"
	ReasonUnreadable   LoadReason = "unreadable"
	ReasonCorrupt      LoadReason = "corrupt"
	ReasonIncompatible LoadReason = "incompatible"
)

// LoadError reports why the artifact could not be turned into a Pipeline.
type LoadError struct {
	Path   string
	Reason LoadReason
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("model load %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// AppError reports the failure as model_unavailable. The artifact path stays
// in the logs.
func (e *LoadError) AppError() *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeModelUnavailable, "prediction model is not available", e,
		map[string]any{"reason": string(e.Reason)})
}

// ResolvePath anchors a relative artifact path at baseDir. An empty baseDir
// means the directory of the running executable.
func ResolvePath(path, baseDir string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	if baseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable path: %w", err)
		}
		baseDir = filepath.Dir(exe)
	}
	return filepath.Join(baseDir, path), nil
}

// artifact is the on-disk envelope.
type artifact struct {
	Format     string         `json:"format"`
	Version    int            `json:"version"`
	Kind       string         `json:"kind"`
	Columns    []string       `json:"columns"`
	Preprocess preprocessSpec `json:"preprocess"`

	// logistic_regression
	Intercept float64            `json:"intercept"`
	Coef      map[string]float64 `json:"coef,omitempty"`

	// random_forest
	Trees []tree `json:"trees,omitempty"`
}

// Load reads the artifact at path and builds the Pipeline it describes.
// Failures are always *LoadError.
func Load(path string) (Pipeline, error) {
	fail := func(reason LoadReason, err error) (Pipeline, error) {
		return nil, &LoadError{Path: path, Reason: reason, Err: err}
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(ReasonMissing, errors.New("artifact file not found"))
		}
		return fail(ReasonUnreadable, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".pkl") {
		return fail(ReasonIncompatible, errors.New("pickled pipelines cannot be evaluated in-process; use the remote model backend"))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fail(ReasonUnreadable, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".zst") {
		raw, err = decompress(raw)
		if err != nil {
			return fail(ReasonCorrupt, err)
		}
	}

	var a artifact
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&a); err != nil {
		return fail(ReasonCorrupt, fmt.Errorf("decode artifact: %w", err))
	}

	p, err := build(&a)
	if err != nil {
		return fail(ReasonIncompatible, err)
	}
	return p, nil
}

func decompress(raw []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer d.Close()

	out, err := d.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// build validates the envelope and dispatches on kind.
func build(a *artifact) (Pipeline, error) {
	if a.Format != artifactFormat {
		return nil, fmt.Errorf("unexpected artifact format %q", a.Format)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if err := CheckColumns(a.Columns); err != nil {
		return nil, err
	}

	enc, err := newEncoder(a.Columns, a.Preprocess)
	if err != nil {
		return nil, err
	}

	switch a.Kind {
	case KindLogisticRegression:
		return newLogistic(enc, a.Intercept, a.Coef)
	case KindRandomForest:
		return newForest(enc, a.Trees)
	default:
		return nil, fmt.Errorf("unsupported pipeline kind %q", a.Kind)
	}
}

// CheckColumns requires a pipeline to be trained on exactly the form fields,
// in any order.
func CheckColumns(cols []string) error {
	want := schema.Columns()
	got := slices.Clone(cols)
	slices.Sort(want)
	slices.Sort(got)
	if len(slices.Compact(slices.Clone(got))) != len(got) {
		return errors.New("pipeline declares duplicate columns")
	}
	if !slices.Equal(want, got) {
		return fmt.Errorf("pipeline columns %v do not match the %d input fields", cols, len(want))
	}
	return nil
}
