package providers

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// ConfigureORT applies the thread count and attaches the execution provider
// for the requested acceleration to ONNX Runtime session options.
//
// CPU attaches nothing. NeuralAccelerator maps to CoreML on the Apple Neural
// Engine on darwin and to OpenVINO on an NPU elsewhere. GPU maps to CoreML
// CPU+GPU on darwin and to CUDA elsewhere. There is no fallback: a provider
// that cannot be appended fails with ErrBackendUnavailable.
//
// Arguments:
//   - so: The session options to configure.
//   - opts: Acceleration, thread and device settings.
//   - log: Logger for provider decisions.
//
// Returns:
//   - *Delegate: The delegate to release once the session is destroyed.
//   - error: An error if the options cannot be applied.
func ConfigureORT(so *ort.SessionOptions, opts Options, log logrus.FieldLogger) (*Delegate, error) {
	if err := so.SetIntraOpNumThreads(opts.Threads); err != nil {
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := so.SetInterOpNumThreads(opts.Threads); err != nil {
		return nil, fmt.Errorf("error setting inter-op threads: %w", err)
	}

	fields := logrus.Fields{
		"acceleration": opts.Acceleration.String(),
		"threads":      opts.Threads,
		"os":           runtime.GOOS,
	}

	switch opts.Acceleration {
	case CPU:
		log.WithFields(fields).Debug("using CPU execution provider")
		return NewDelegate(CPU, nil), nil

	case NeuralAccelerator:
		if runtime.GOOS == "darwin" {
			return attachCoreML(so, opts.Acceleration, log.WithFields(fields))
		}
		vino := NewOpenVINONPUOptions(opts.Threads)
		if err := so.AppendExecutionProviderOpenVINO(vino.ToMap()); err != nil {
			return nil, fmt.Errorf("%w: OpenVINO NPU: %w", ErrBackendUnavailable, err)
		}
		log.WithFields(fields).WithField("provider", "openvino").Debug("attached execution provider")
		return NewDelegate(NeuralAccelerator, nil), nil

	case GPU:
		if runtime.GOOS == "darwin" {
			return attachCoreML(so, opts.Acceleration, log.WithFields(fields))
		}
		cuda, err := NewCUDAOptions(opts.DeviceID).ToNativeProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("%w: CUDA options: %w", ErrBackendUnavailable, err)
		}
		if err := so.AppendExecutionProviderCUDA(cuda); err != nil {
			cuda.Destroy()
			return nil, fmt.Errorf("%w: CUDA: %w", ErrBackendUnavailable, err)
		}
		log.WithFields(fields).WithField("provider", "cuda").Debug("attached execution provider")
		return NewDelegate(GPU, func() error { cuda.Destroy(); return nil }), nil

	default:
		return nil, fmt.Errorf("%w: unknown acceleration %d", ErrBackendUnavailable, int(opts.Acceleration))
	}
}

func attachCoreML(so *ort.SessionOptions, choice Acceleration, log logrus.FieldLogger) (*Delegate, error) {
	flags, ok := CoreMLFlagsFor(choice)
	if !ok {
		return nil, fmt.Errorf("%w: CoreML cannot serve %s", ErrBackendUnavailable, choice)
	}
	if err := so.AppendExecutionProviderCoreML(uint32(flags)); err != nil {
		return nil, fmt.Errorf("%w: CoreML: %w", ErrBackendUnavailable, err)
	}
	log.WithField("provider", "coreml").WithField("flags", fmt.Sprintf("%#x", uint32(flags))).
		Debug("attached execution provider")
	return NewDelegate(choice, nil), nil
}
