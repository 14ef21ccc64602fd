package inference

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Layout is the memory order of an image tensor.
type Layout int

const (
	// LayoutNHWC stores pixels interleaved: 1×H×W×3.
	LayoutNHWC Layout = iota
	// LayoutNCHW stores one plane per channel: 1×3×H×W.
	LayoutNCHW
	// LayoutFlat is used for non-image tensors such as class scores.
	LayoutFlat
)

func (l Layout) String() string {
	switch l {
	case LayoutNHWC:
		return "NHWC"
	case LayoutNCHW:
		return "NCHW"
	default:
		return "flat"
	}
}

// ImageChannels is the channel count of every supported image input.
const ImageChannels = 3

// TensorSpec describes one tensor of a loaded graph.
type TensorSpec struct {
	Name   string
	Shape  tensor.Shape
	Dtype  tensor.Dtype
	Layout Layout
}

// Height returns the image height of an image input spec.
func (s TensorSpec) Height() int {
	if s.Layout == LayoutNCHW {
		return s.Shape[2]
	}
	return s.Shape[1]
}

// Width returns the image width of an image input spec.
func (s TensorSpec) Width() int {
	if s.Layout == LayoutNCHW {
		return s.Shape[3]
	}
	return s.Shape[2]
}

// Classes returns the class dimension of an output spec.
func (s TensorSpec) Classes() int {
	return s.Shape[len(s.Shape)-1]
}

func (s TensorSpec) String() string {
	return fmt.Sprintf("%s%v %v %s", s.Name, s.Shape, s.Dtype, s.Layout)
}

// ImageInputSpec builds and checks the spec of an image input from raw
// dimensions. A dynamic batch (-1) resolves to 1; any other dynamic or
// non-positive dimension is rejected.
//
// Arguments:
//   - name: The graph input name.
//   - dims: The declared dimensions.
//   - dt: The element type.
//
// Returns:
//   - TensorSpec: The input spec with a concrete shape and detected layout.
//   - error: ErrUnsupportedModel if the input is not a 3-channel batch-1 image.
func ImageInputSpec(name string, dims []int64, dt tensor.Dtype) (TensorSpec, error) {
	if len(dims) != 4 {
		return TensorSpec{}, fmt.Errorf("%w: input %q has %d dimensions, want 4", ErrUnsupportedModel, name, len(dims))
	}
	shape, err := concreteShape(name, dims)
	if err != nil {
		return TensorSpec{}, err
	}
	if _, err := PrecisionOf(dt); err != nil {
		return TensorSpec{}, err
	}

	var layout Layout
	switch {
	case shape[3] == ImageChannels:
		layout = LayoutNHWC
	case shape[1] == ImageChannels:
		layout = LayoutNCHW
	default:
		return TensorSpec{}, fmt.Errorf("%w: input %q shape %v has no 3-channel axis", ErrUnsupportedModel, name, shape)
	}

	return TensorSpec{Name: name, Shape: shape, Dtype: dt, Layout: layout}, nil
}

// ScoreOutputSpec builds and checks the spec of a 1×C class-score output.
func ScoreOutputSpec(name string, dims []int64, dt tensor.Dtype) (TensorSpec, error) {
	if len(dims) != 2 {
		return TensorSpec{}, fmt.Errorf("%w: output %q has %d dimensions, want 2", ErrUnsupportedModel, name, len(dims))
	}
	shape, err := concreteShape(name, dims)
	if err != nil {
		return TensorSpec{}, err
	}
	if _, err := PrecisionOf(dt); err != nil {
		return TensorSpec{}, err
	}
	return TensorSpec{Name: name, Shape: shape, Dtype: dt, Layout: LayoutFlat}, nil
}

func concreteShape(name string, dims []int64) (tensor.Shape, error) {
	shape := make(tensor.Shape, len(dims))
	for i, d := range dims {
		if i == 0 && d < 0 {
			d = 1
		}
		if i == 0 && d != 1 {
			return nil, fmt.Errorf("%w: %q batch is %d, want 1", ErrUnsupportedModel, name, d)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: %q dimension %d is dynamic", ErrUnsupportedModel, name, i)
		}
		shape[i] = int(d)
	}
	return shape, nil
}

// NewBuffer allocates a zeroed buffer matching spec.
func NewBuffer(spec TensorSpec) *tensor.Dense {
	return tensor.New(tensor.WithShape(spec.Shape.Clone()...), tensor.Of(spec.Dtype))
}

// ValidateInput checks that buf matches spec exactly.
//
// Returns:
//   - error: ErrInference describing the first mismatch.
func ValidateInput(spec TensorSpec, buf *tensor.Dense) error {
	if buf == nil {
		return fmt.Errorf("%w: nil input buffer", ErrInference)
	}
	if buf.Dtype() != spec.Dtype {
		return fmt.Errorf("%w: input type %v, engine expects %v", ErrInference, buf.Dtype(), spec.Dtype)
	}
	if !buf.Shape().Eq(spec.Shape) {
		return fmt.Errorf("%w: input shape %v, engine expects %v", ErrInference, buf.Shape(), spec.Shape)
	}
	return nil
}
