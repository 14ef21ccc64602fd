// Package postprocess - Converts raw class scores into labeled probabilities.
package postprocess

import (
	"errors"
	"fmt"

	"github.com/nvr-ai/go-classify/models"
	"gorgonia.org/tensor"
)

// ErrShapeMismatch is returned when the number of scores differs from the number of labels.
var ErrShapeMismatch = errors.New("output shape does not match labels")

// DefaultThreshold is the confidence a probability must exceed to be reported.
const DefaultThreshold float32 = 0.8

// Probability is the normalized score of one label.
type Probability struct {
	// The class label.
	Label string
	// The normalized score, in [0, 1] for well-formed models.
	Score float32
}

// Process normalizes raw scores and pairs them with labels.
//
// Scores are returned in label order. A label that occurs more than once keeps
// the position of its first occurrence and the score of its last.
//
// Arguments:
//   - raw: The engine output; uint8 or float32 elements.
//   - norm: Normalization applied to each score.
//   - labels: Class names in output order.
//
// Returns:
//   - []Probability: One entry per distinct label.
//   - error: ErrShapeMismatch if the score count differs from labels.Len().
func Process(raw *tensor.Dense, norm models.Normalization, labels models.LabelSet) ([]Probability, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no output", ErrShapeMismatch)
	}

	var scores []float32
	switch data := raw.Data().(type) {
	case []float32:
		scores = make([]float32, len(data))
		for i, v := range data {
			scores[i] = norm.Apply(v)
		}
	case []uint8:
		scores = make([]float32, len(data))
		for i, v := range data {
			scores[i] = norm.Apply(float32(v))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported score type %v", ErrShapeMismatch, raw.Dtype())
	}

	if len(scores) != labels.Len() {
		return nil, fmt.Errorf("%w: %d scores for %d labels", ErrShapeMismatch, len(scores), labels.Len())
	}

	probs := make([]Probability, 0, len(scores))
	seen := make(map[string]int, len(scores))
	for i, score := range scores {
		label, _ := labels.Name(i)
		if at, ok := seen[label]; ok {
			probs[at].Score = score
			continue
		}
		seen[label] = len(probs)
		probs = append(probs, Probability{Label: label, Score: score})
	}
	return probs, nil
}

// Filter keeps the probabilities strictly above threshold, preserving order.
// The result is never nil.
func Filter(probs []Probability, threshold float32) []Probability {
	out := make([]Probability, 0, len(probs))
	for _, p := range probs {
		if p.Score > threshold {
			out = append(out, p)
		}
	}
	return out
}

// AsMap returns the label to probability mapping.
func AsMap(probs []Probability) map[string]float32 {
	m := make(map[string]float32, len(probs))
	for _, p := range probs {
		m[p.Label] = p.Score
	}
	return m
}
