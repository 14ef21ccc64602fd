//go:build tflite

// Package tflite runs classification graphs with TensorFlow Lite.
//
// The package needs the TensorFlow Lite C library and is only built with the
// tflite build tag. Importing it registers the "tflite" backend.
package tflite

import (
	"fmt"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/nvr-ai/go-classify/models"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

func init() {
	inference.Register(NewBackend(nil))
}

// Backend opens TensorFlow Lite flatbuffers as inference engines.
type Backend struct {
	log logrus.FieldLogger
}

// NewBackend creates a TensorFlow Lite backend. A nil logger uses the logrus standard logger.
func NewBackend(log logrus.FieldLogger) *Backend {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Backend{log: log.WithField("backend", string(inference.EngineTFLite))}
}

// Name implements inference.Backend.
func (b *Backend) Name() string { return string(inference.EngineTFLite) }

// Extension implements inference.Backend.
func (b *Backend) Extension() string { return ".tflite" }

// Open creates an engine for the model.
//
// The neural accelerator maps to the first Edge TPU found on the host. No GPU
// delegate is available with this backend.
//
// Arguments:
//   - model: The serialized flatbuffer.
//   - opts: Acceleration and thread settings.
//
// Returns:
//   - inference.Engine: The engine.
//   - error: models.ErrArtifactLoad, inference.ErrUnsupportedModel or
//     inference.ErrBackendUnavailable.
func (b *Backend) Open(model []byte, opts providers.Options) (inference.Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	e := &engine{log: b.log}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	if e.model = tflite.NewModel(model); e.model == nil {
		return nil, fmt.Errorf("%w: parse tflite flatbuffer", models.ErrArtifactLoad)
	}

	e.options = tflite.NewInterpreterOptions()
	e.options.SetNumThread(opts.Threads)
	e.options.SetErrorReporter(func(msg string, _ interface{}) {
		b.log.Warn(msg)
	}, nil)

	delegate, err := b.attach(e.options, opts)
	if err != nil {
		return nil, err
	}
	e.delegate = delegate

	if e.interpreter = tflite.NewInterpreter(e.model, e.options); e.interpreter == nil {
		if opts.Acceleration != providers.CPU {
			return nil, fmt.Errorf("%w: %s delegate rejected the model", inference.ErrBackendUnavailable, opts.Acceleration)
		}
		return nil, fmt.Errorf("%w: create interpreter", models.ErrArtifactLoad)
	}
	if status := e.interpreter.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("%w: allocate tensors: %v", inference.ErrUnsupportedModel, status)
	}

	if err := e.describe(); err != nil {
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"input":        e.in.String(),
		"output":       e.out.String(),
		"acceleration": opts.Acceleration.String(),
		"threads":      opts.Threads,
	}).Debug("opened tflite interpreter")

	ok = true
	return e, nil
}

func (b *Backend) attach(so *tflite.InterpreterOptions, opts providers.Options) (*providers.Delegate, error) {
	switch opts.Acceleration {
	case providers.CPU:
		return providers.NewDelegate(providers.CPU, nil), nil
	case providers.NeuralAccelerator:
		devices, err := edgetpu.DeviceList()
		if err != nil {
			return nil, fmt.Errorf("%w: list edge tpu devices: %w", inference.ErrBackendUnavailable, err)
		}
		if opts.DeviceID < 0 || opts.DeviceID >= len(devices) {
			return nil, fmt.Errorf("%w: edge tpu %d not found (%d present)", inference.ErrBackendUnavailable, opts.DeviceID, len(devices))
		}
		d := edgetpu.New(devices[opts.DeviceID])
		if d == nil {
			return nil, fmt.Errorf("%w: create edge tpu delegate", inference.ErrBackendUnavailable)
		}
		so.AddDelegate(d)
		return providers.NewDelegate(providers.NeuralAccelerator, func() error {
			d.Delete()
			return nil
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s is not supported by the tflite backend", inference.ErrBackendUnavailable, opts.Acceleration)
	}
}

type engine struct {
	log         logrus.FieldLogger
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	delegate    *providers.Delegate

	in, out inference.TensorSpec
	result  *tensor.Dense
	closed  bool
}

// describe checks the graph signature and allocates the result buffer.
func (e *engine) describe() error {
	if n := e.interpreter.GetInputTensorCount(); n != 1 {
		return fmt.Errorf("%w: %d inputs, want 1", inference.ErrUnsupportedModel, n)
	}
	if n := e.interpreter.GetOutputTensorCount(); n != 1 {
		return fmt.Errorf("%w: %d outputs, want 1", inference.ErrUnsupportedModel, n)
	}

	input := e.interpreter.GetInputTensor(0)
	dt, err := dtypeOf(input.Type())
	if err != nil {
		return err
	}
	if e.in, err = inference.ImageInputSpec(input.Name(), dims(input), dt); err != nil {
		return err
	}

	output := e.interpreter.GetOutputTensor(0)
	if dt, err = dtypeOf(output.Type()); err != nil {
		return err
	}
	if e.out, err = inference.ScoreOutputSpec(output.Name(), dims(output), dt); err != nil {
		return err
	}

	e.result = inference.NewBuffer(e.out)
	return nil
}

func (e *engine) Input() inference.TensorSpec  { return e.in }
func (e *engine) Output() inference.TensorSpec { return e.out }

func (e *engine) Run(input *tensor.Dense) (*tensor.Dense, error) {
	if e.closed {
		return nil, inference.ErrEngineClosed
	}
	if err := inference.ValidateInput(e.in, input); err != nil {
		return nil, err
	}

	if status := e.interpreter.GetInputTensor(0).CopyFromBuffer(input.Data()); status != tflite.OK {
		return nil, fmt.Errorf("%w: copy input: %v", inference.ErrInference, status)
	}
	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("%w: invoke: %v", inference.ErrInference, status)
	}

	output := e.interpreter.GetOutputTensor(0)
	switch data := e.result.Data().(type) {
	case []uint8:
		copy(data, output.UInt8s())
	case []float32:
		copy(data, output.Float32s())
	}
	return e.result, nil
}

func (e *engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if e.interpreter != nil {
		e.interpreter.Delete()
	}
	if e.options != nil {
		e.options.Delete()
	}
	if e.model != nil {
		e.model.Delete()
	}
	err := e.delegate.Release()
	e.result = nil
	return err
}

func dims(t *tflite.Tensor) []int64 {
	out := make([]int64, t.NumDims())
	for i := range out {
		out[i] = int64(t.Dim(i))
	}
	return out
}

var precisions = map[tflite.TensorType]inference.Precision{
	tflite.UInt8:   inference.PrecisionUINT8,
	tflite.Float32: inference.PrecisionFP32,
}

func dtypeOf(t tflite.TensorType) (tensor.Dtype, error) {
	p, ok := precisions[t]
	if !ok {
		return tensor.Dtype{}, fmt.Errorf("%w: element type %v", inference.ErrUnsupportedModel, t)
	}
	return p.Dtype()
}
