package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/abhisek/mathadapt/internal/schema"
)

// ArtifactVersion is the current artifact format version.
const ArtifactVersion = 1

// ErrNoArtifact is returned by Load when no artifact exists at the path.
// A missing model is a valid state; callers fall back to rule-based decisions.
var ErrNoArtifact = errors.New("no trained model artifact")

// artifact is the serialized form of a Model.
type artifact struct {
	Version      int       `json:"version"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	FeatureOrder []string  `json:"feature_order"`
	TrainedAt    time.Time `json:"trained_at"`
	SampleCount  int       `json:"sample_count"`
	Sessions     int       `json:"sessions"`
	Converged    bool      `json:"converged"`
	Warnings     []string  `json:"warnings,omitempty"`
}

var artifactSchema = schema.Definition{
	Name: "model-artifact",
	Doc: map[string]any{
		"type":     "object",
		"required": []string{"version", "weights", "bias", "feature_order"},
		"properties": map[string]any{
			"version": map[string]any{"type": "integer", "minimum": 1},
			"weights": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "number"},
				"minItems": Dimensions,
				"maxItems": Dimensions,
			},
			"bias": map[string]any{"type": "number"},
			"feature_order": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string", "enum": FeatureOrder[:]},
				"minItems":    Dimensions,
				"maxItems":    Dimensions,
				"uniqueItems": true,
			},
			"trained_at":   map[string]any{"type": "string"},
			"sample_count": map[string]any{"type": "integer", "minimum": 0},
			"sessions":     map[string]any{"type": "integer", "minimum": 0},
			"converged":    map[string]any{"type": "boolean"},
			"warnings": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
}

// Marshal encodes m as an artifact document.
func Marshal(m *Model) ([]byte, error) {
	a := artifact{
		Version:      ArtifactVersion,
		Weights:      m.Weights(),
		Bias:         m.bias,
		FeatureOrder: FeatureOrder[:],
		TrainedAt:    m.meta.TrainedAt,
		SampleCount:  m.meta.SampleCount,
		Sessions:     m.meta.Sessions,
		Converged:    m.meta.Converged,
		Warnings:     m.meta.Warnings,
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal model artifact: %w", err)
	}
	return b, nil
}

// Unmarshal decodes and validates an artifact document. Weights stored in a
// different feature order are permuted into FeatureOrder.
func Unmarshal(raw []byte) (*Model, error) {
	if err := schema.Validate(artifactSchema, raw); err != nil {
		return nil, err
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if a.Version > ArtifactVersion {
		return nil, fmt.Errorf("model artifact version %d is newer than supported version %d", a.Version, ArtifactVersion)
	}

	pos := make(map[string]int, Dimensions)
	for i, name := range a.FeatureOrder {
		pos[name] = i
	}
	weights := make([]float64, Dimensions)
	for i, name := range FeatureOrder {
		j, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("model artifact missing feature %q", name)
		}
		weights[i] = a.Weights[j]
	}

	return New(weights, a.Bias, Metadata{
		TrainedAt:   a.TrainedAt,
		SampleCount: a.SampleCount,
		Sessions:    a.Sessions,
		Converged:   a.Converged,
		Warnings:    a.Warnings,
	}), nil
}

// Save writes the artifact atomically to path, creating parent directories.
func Save(path string, m *Model) error {
	b, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish model artifact: %w", err)
	}
	return nil
}

// Load reads an artifact from path. It returns ErrNoArtifact if the file does
// not exist.
func Load(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	m, err := Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// DefaultPath resolves the artifact path under $XDG_DATA_HOME (or
// ~/.local/share) as mathadapt/difficulty_model.json.
func DefaultPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "mathadapt", "difficulty_model.json"), nil
}
