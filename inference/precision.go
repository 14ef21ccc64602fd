// Package inference - Element precision of model tensors.
package inference

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Precision represents the element precision of a model tensor.
type Precision string

// Precision constants are the element precisions a classification graph may use.
const (
	PrecisionUINT8 Precision = "UINT8"
	PrecisionFP32  Precision = "FP32"
)

// Dtype returns the tensor element type for the precision.
//
// Returns:
//   - tensor.Dtype: The element type.
//   - error: An error if the precision has no buffer representation.
func (p Precision) Dtype() (tensor.Dtype, error) {
	switch p {
	case PrecisionUINT8:
		return tensor.Uint8, nil
	case PrecisionFP32:
		return tensor.Float32, nil
	default:
		return tensor.Dtype{}, fmt.Errorf("%w: precision %q", ErrUnsupportedModel, p)
	}
}

// PrecisionOf returns the precision matching a tensor element type.
func PrecisionOf(dt tensor.Dtype) (Precision, error) {
	switch dt {
	case tensor.Uint8:
		return PrecisionUINT8, nil
	case tensor.Float32:
		return PrecisionFP32, nil
	default:
		return "", fmt.Errorf("%w: element type %v", ErrUnsupportedModel, dt)
	}
}
