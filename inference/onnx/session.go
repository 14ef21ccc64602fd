package onnx

import (
	"fmt"

	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// session is an ONNX Runtime session with its bound input and output tensors.
type session struct {
	session  *ort.AdvancedSession
	delegate *providers.Delegate
	log      logrus.FieldLogger

	input  inference.TensorSpec
	output inference.TensorSpec

	inU8   *ort.Tensor[uint8]
	inF32  *ort.Tensor[float32]
	outU8  *ort.Tensor[uint8]
	outF32 *ort.Tensor[float32]

	// result aliases the native output buffer.
	result *tensor.Dense
	closed bool
}

func (s *session) Input() inference.TensorSpec  { return s.input }
func (s *session) Output() inference.TensorSpec { return s.output }

// allocate creates the native tensors for both specs. The shapes are copied.
func (s *session) allocate() error {
	var err error
	inShape := nativeShape(s.input.Shape)
	switch s.input.Dtype {
	case tensor.Uint8:
		s.inU8, err = ort.NewEmptyTensor[uint8](inShape)
	default:
		s.inF32, err = ort.NewEmptyTensor[float32](inShape)
	}
	if err != nil {
		return fmt.Errorf("error creating input tensor: %w", err)
	}

	outShape := nativeShape(s.output.Shape)
	switch s.output.Dtype {
	case tensor.Uint8:
		s.outU8, err = ort.NewEmptyTensor[uint8](outShape)
		if err == nil {
			s.result = tensor.New(tensor.WithShape(s.output.Shape.Clone()...), tensor.WithBacking(s.outU8.GetData()))
		}
	default:
		s.outF32, err = ort.NewEmptyTensor[float32](outShape)
		if err == nil {
			s.result = tensor.New(tensor.WithShape(s.output.Shape.Clone()...), tensor.WithBacking(s.outF32.GetData()))
		}
	}
	if err != nil {
		return fmt.Errorf("error creating output tensor: %w", err)
	}
	return nil
}

func (s *session) inputValue() ort.Value {
	if s.inU8 != nil {
		return s.inU8
	}
	return s.inF32
}

func (s *session) outputValue() ort.Value {
	if s.outU8 != nil {
		return s.outU8
	}
	return s.outF32
}

// Run copies the input into the bound tensor and executes the graph.
func (s *session) Run(input *tensor.Dense) (*tensor.Dense, error) {
	if s.closed {
		return nil, inference.ErrEngineClosed
	}
	if err := inference.ValidateInput(s.input, input); err != nil {
		return nil, err
	}

	switch data := input.Data().(type) {
	case []uint8:
		copy(s.inU8.GetData(), data)
	case []float32:
		copy(s.inF32.GetData(), data)
	default:
		return nil, fmt.Errorf("%w: unexpected input backing %T", inference.ErrInference, data)
	}

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %w", inference.ErrInference, err)
	}
	return s.result, nil
}

// Close releases the resources associated with the session. The delegate is
// released after the session that uses it.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			first = fmt.Errorf("error destroying ORT session: %w", err)
		}
		s.session = nil
	}
	s.destroyTensors()
	if err := s.delegate.Release(); err != nil && first == nil {
		first = fmt.Errorf("error releasing %s delegate: %w", s.delegate.Acceleration(), err)
	}
	s.result = nil

	s.log.Debug("closed onnx session")
	return first
}

func (s *session) destroyTensors() {
	if s.inU8 != nil {
		s.inU8.Destroy()
		s.inU8 = nil
	}
	if s.inF32 != nil {
		s.inF32.Destroy()
		s.inF32 = nil
	}
	if s.outU8 != nil {
		s.outU8.Destroy()
		s.outU8 = nil
	}
	if s.outF32 != nil {
		s.outF32.Destroy()
		s.outF32 = nil
	}
}

func nativeShape(shape tensor.Shape) ort.Shape {
	dims := make([]int64, len(shape))
	for i, d := range shape {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...)
}
