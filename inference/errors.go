package inference

import "github.com/nvr-ai/go-classify/inference/providers"

// inferenceError is a simple error type for the inference package.
type inferenceError string

func (e inferenceError) Error() string { return string(e) }

// Errors for engine construction and execution.
const (
	// ErrInference is returned when an engine fails to execute or is handed a
	// buffer that does not match its input contract.
	ErrInference = inferenceError("inference failed")
	// ErrEngineClosed is returned by Run after Close.
	ErrEngineClosed = inferenceError("engine is closed")
	// ErrUnsupportedModel is returned when a graph does not expose exactly one
	// image input and one class-score output.
	ErrUnsupportedModel = inferenceError("unsupported model signature")
	// ErrUnknownBackend is returned by Lookup for names that were never registered.
	ErrUnknownBackend = inferenceError("unknown inference backend")
)

// ErrBackendUnavailable is returned when the requested acceleration cannot be
// attached. It is the same value as providers.ErrBackendUnavailable.
const ErrBackendUnavailable = providers.ErrBackendUnavailable
