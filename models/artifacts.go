// Package models - Model artifacts, labels and variant presets.
package models

import (
	"fmt"
	"os"
)

// modelError is a simple error type for the models package.
type modelError string

func (e modelError) Error() string { return string(e) }

// ErrArtifactLoad is returned when a model or label file is missing, unreadable,
// empty, or cannot be parsed.
const ErrArtifactLoad = modelError("artifact load failed")

// Artifacts holds the model bytes and labels of one variant. Loaded once and
// read-only afterwards.
type Artifacts struct {
	// ModelPath is the file the model was read from.
	ModelPath string
	// Model is the serialized graph handed to a backend.
	Model []byte
	// Labels names the output classes.
	Labels LabelSet
}

// Load reads a model file and its label file.
//
// Arguments:
//   - modelPath: Path to the serialized model.
//   - labelPath: Path to the label file.
//
// Returns:
//   - *Artifacts: The loaded artifacts.
//   - error: ErrArtifactLoad wrapping the cause.
func Load(modelPath, labelPath string) (*Artifacts, error) {
	model, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read model: %w", ErrArtifactLoad, err)
	}
	if len(model) == 0 {
		return nil, fmt.Errorf("%w: model %s is empty", ErrArtifactLoad, modelPath)
	}

	f, err := os.Open(labelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open labels: %w", ErrArtifactLoad, err)
	}
	defer f.Close()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactLoad, labelPath, err)
	}

	return &Artifacts{
		ModelPath: modelPath,
		Model:     model,
		Labels:    labels,
	}, nil
}
