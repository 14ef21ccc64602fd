package classifier

import (
	"fmt"

	"github.com/nvr-ai/go-classify/images"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/models/postprocess"
	"github.com/sirupsen/logrus"
)

type settings struct {
	backend     inference.Backend
	backendName inference.EngineType
	threshold   float32
	filter      images.ResampleFilter
	log         logrus.FieldLogger
	sharedLib   string
	deviceID    int
}

func defaultSettings() settings {
	return settings{
		backendName: inference.EngineONNX,
		threshold:   postprocess.DefaultThreshold,
		filter:      images.NearestNeighborFilter,
		log:         logrus.StandardLogger(),
	}
}

func (s settings) resolveBackend() (inference.Backend, error) {
	if s.backend != nil {
		return s.backend, nil
	}
	backend, err := inference.Lookup(s.backendName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", inference.ErrBackendUnavailable, err)
	}
	return backend, nil
}

// Option customizes a Classifier.
type Option func(*settings)

// WithBackend runs the model on b instead of a registered backend.
func WithBackend(b inference.Backend) Option {
	return func(s *settings) { s.backend = b }
}

// WithBackendName selects a registered backend. Defaults to "onnx".
func WithBackendName(name inference.EngineType) Option {
	return func(s *settings) { s.backendName = name }
}

// WithThreshold sets the confidence a label must exceed to be reported. Defaults to 0.8.
func WithThreshold(threshold float32) Option {
	return func(s *settings) { s.threshold = threshold }
}

// WithResizeFilter sets the resampling filter. Defaults to nearest neighbor.
func WithResizeFilter(f images.ResampleFilter) Option {
	return func(s *settings) { s.filter = f }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSharedLibraryPath points the runtime at its native library.
func WithSharedLibraryPath(path string) Option {
	return func(s *settings) { s.sharedLib = path }
}

// WithDeviceID selects the accelerator device when more than one is present.
func WithDeviceID(id int) Option {
	return func(s *settings) { s.deviceID = id }
}
