package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// VariantKind identifies a model build.
type VariantKind string

const (
	// VariantFloat is the float32 MobileNet build.
	VariantFloat VariantKind = "float"
	// VariantQuantized is the uint8 quantized MobileNet build.
	VariantQuantized VariantKind = "quantized"
)

// ParseVariantKind converts a name into a VariantKind.
func ParseVariantKind(s string) (VariantKind, error) {
	switch VariantKind(strings.ToLower(strings.TrimSpace(s))) {
	case VariantFloat:
		return VariantFloat, nil
	case VariantQuantized, "quant":
		return VariantQuantized, nil
	default:
		return "", fmt.Errorf("unknown model variant %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *VariantKind) UnmarshalText(text []byte) error {
	parsed, err := ParseVariantKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Normalization applies (v - Mean) / Std to each value.
type Normalization struct {
	Mean float32 `json:"mean" yaml:"mean"`
	Std  float32 `json:"std"  yaml:"std"`
}

// Apply normalizes one value.
func (n Normalization) Apply(v float32) float32 {
	return (v - n.Mean) / n.Std
}

// Validate rejects a zero standard deviation.
func (n Normalization) Validate() error {
	if n.Std == 0 {
		return fmt.Errorf("normalization std must not be zero")
	}
	return nil
}

// Variant fixes the artifacts and the normalization of one model build.
type Variant struct {
	Kind      VariantKind
	ModelPath string
	LabelPath string
	// Input maps 0-255 pixel samples into the model's input range.
	Input Normalization
	// Output maps raw scores into probabilities in [0, 1].
	Output Normalization
}

// Default artifact names.
const (
	FloatModelName     = "model20kv2float"
	QuantizedModelName = "model20kv2quant"
	LabelFileName      = "labels.txt"
)

// Preset returns the variant for kind with artifacts resolved under dir.
//
// Arguments:
//   - kind: The model build.
//   - dir: Directory holding the artifacts.
//   - ext: Model file extension of the backend, including the dot.
//
// Returns:
//   - Variant: The preset.
//   - error: An error if kind is unknown.
func Preset(kind VariantKind, dir, ext string) (Variant, error) {
	switch kind {
	case VariantFloat:
		return Variant{
			Kind:      VariantFloat,
			ModelPath: filepath.Join(dir, FloatModelName+ext),
			LabelPath: filepath.Join(dir, LabelFileName),
			Input:     Normalization{Mean: 127.5, Std: 127.5},
			Output:    Normalization{Mean: 0, Std: 1},
		}, nil
	case VariantQuantized:
		return Variant{
			Kind:      VariantQuantized,
			ModelPath: filepath.Join(dir, QuantizedModelName+ext),
			LabelPath: filepath.Join(dir, LabelFileName),
			Input:     Normalization{Mean: 0, Std: 1},
			Output:    Normalization{Mean: 0, Std: 255},
		}, nil
	default:
		return Variant{}, fmt.Errorf("unknown model variant %q", kind)
	}
}

// Validate checks that the variant names its artifacts and has usable normalizations.
func (v Variant) Validate() error {
	if v.ModelPath == "" {
		return fmt.Errorf("variant %q has no model path", v.Kind)
	}
	if v.LabelPath == "" {
		return fmt.Errorf("variant %q has no label path", v.Kind)
	}
	if err := v.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := v.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}
