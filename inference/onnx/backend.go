// Package onnx runs classification graphs with ONNX Runtime.
//
// Importing the package registers the "onnx" backend with the inference registry.
package onnx

import (
	"fmt"
	"os"
	"sync"

	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/nvr-ai/go-classify/models"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

func init() {
	inference.Register(NewBackend(nil))
}

// Backend opens ONNX models as inference engines.
type Backend struct {
	log logrus.FieldLogger
}

// NewBackend creates an ONNX Runtime backend. A nil logger uses the logrus standard logger.
func NewBackend(log logrus.FieldLogger) *Backend {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Backend{log: log.WithField("backend", string(inference.EngineONNX))}
}

// Name implements inference.Backend.
func (b *Backend) Name() string { return string(inference.EngineONNX) }

// Extension implements inference.Backend.
func (b *Backend) Extension() string { return ".onnx" }

// Open creates an engine for the model.
//
// Order of operations:
//  1. Environment setup: loads the native runtime once per process.
//  2. Introspection: reads input/output names, shapes and element types from the graph.
//  3. Tensor allocation: fixed-shape buffers bound to the session for its lifetime.
//  4. Session options: thread count and the execution provider for the acceleration.
//  5. Session creation: binds the buffers and the provider to the model.
//
// Every native resource created before a failure is released before returning.
//
// Arguments:
//   - model: The serialized ONNX graph.
//   - opts: Acceleration, thread and runtime library settings.
//
// Returns:
//   - inference.Engine: The engine.
//   - error: models.ErrArtifactLoad for unparseable graphs, inference.ErrUnsupportedModel
//     for graphs outside the classification contract, inference.ErrBackendUnavailable when
//     the runtime or accelerator is missing.
func (b *Backend) Open(model []byte, opts providers.Options) (inference.Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := initEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, fmt.Errorf("%w: parse onnx graph: %w", models.ErrArtifactLoad, err)
	}
	inSpec, outSpec, err := signature(inputs, outputs)
	if err != nil {
		return nil, err
	}

	s := &session{input: inSpec, output: outSpec, log: b.log}
	if err := s.allocate(); err != nil {
		s.destroyTensors()
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.destroyTensors()
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		s.destroyTensors()
		return nil, fmt.Errorf("error setting graph optimization level: %w", err)
	}

	s.delegate, err = providers.ConfigureORT(options, opts, b.log)
	if err != nil {
		s.destroyTensors()
		return nil, err
	}

	s.session, err = ort.NewAdvancedSessionWithONNXData(
		model,
		[]string{inSpec.Name},
		[]string{outSpec.Name},
		[]ort.Value{s.inputValue()},
		[]ort.Value{s.outputValue()},
		options,
	)
	if err != nil {
		s.destroyTensors()
		s.delegate.Release()
		if opts.Acceleration != providers.CPU {
			return nil, fmt.Errorf("%w: create session on %s: %w", inference.ErrBackendUnavailable, opts.Acceleration, err)
		}
		return nil, fmt.Errorf("%w: create session: %w", models.ErrArtifactLoad, err)
	}

	b.log.WithFields(logrus.Fields{
		"input":        inSpec.String(),
		"output":       outSpec.String(),
		"acceleration": opts.Acceleration.String(),
	}).Debug("created onnx session")

	return s, nil
}

var envMu sync.Mutex

// initEnvironment points ONNX Runtime at its shared library and initializes it.
// Required once per process.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		var err error
		if libPath, err = providers.GetSharedLibPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(libPath); err != nil {
		return fmt.Errorf("%w: ONNX Runtime library not found at %s: %w", inference.ErrBackendUnavailable, libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("%w: error initializing ORT environment: %w", inference.ErrBackendUnavailable, err)
	}
	return nil
}

// signature checks that the graph has one image input and one score output.
func signature(inputs, outputs []ort.InputOutputInfo) (inference.TensorSpec, inference.TensorSpec, error) {
	var none inference.TensorSpec
	if len(inputs) != 1 {
		return none, none, fmt.Errorf("%w: graph has %d inputs, want 1", inference.ErrUnsupportedModel, len(inputs))
	}
	if len(outputs) != 1 {
		return none, none, fmt.Errorf("%w: graph has %d outputs, want 1", inference.ErrUnsupportedModel, len(outputs))
	}

	in, out := inputs[0], outputs[0]
	if in.OrtValueType != ort.ONNXTypeTensor || out.OrtValueType != ort.ONNXTypeTensor {
		return none, none, fmt.Errorf("%w: graph input and output must be tensors", inference.ErrUnsupportedModel)
	}

	inType, err := dtypeOf(in.DataType)
	if err != nil {
		return none, none, err
	}
	outType, err := dtypeOf(out.DataType)
	if err != nil {
		return none, none, err
	}

	inSpec, err := inference.ImageInputSpec(in.Name, in.Dimensions, inType)
	if err != nil {
		return none, none, err
	}
	outSpec, err := inference.ScoreOutputSpec(out.Name, out.Dimensions, outType)
	if err != nil {
		return none, none, err
	}
	return inSpec, outSpec, nil
}

// precisions maps the runtime element types a classifier may use.
var precisions = map[ort.TensorElementDataType]inference.Precision{
	ort.TensorElementDataTypeUint8: inference.PrecisionUINT8,
	ort.TensorElementDataTypeFloat: inference.PrecisionFP32,
}

func dtypeOf(dt ort.TensorElementDataType) (tensor.Dtype, error) {
	p, ok := precisions[dt]
	if !ok {
		return tensor.Dtype{}, fmt.Errorf("%w: element type %v", inference.ErrUnsupportedModel, dt)
	}
	return p.Dtype()
}
