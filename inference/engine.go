// Package inference - Inference engine contract shared by all runtime backends.
package inference

import (
	"github.com/nvr-ai/go-classify/inference/providers"
	"gorgonia.org/tensor"
)

// Engine executes a loaded classification graph on one input buffer at a time.
//
// An Engine is not safe for concurrent use.
type Engine interface {
	// Input describes the single image input of the graph.
	Input() TensorSpec
	// Output describes the single class-score output of the graph.
	Output() TensorSpec
	// Run executes the graph synchronously. The input must match Input exactly.
	// The returned buffer is owned by the engine and overwritten by the next Run.
	Run(input *tensor.Dense) (*tensor.Dense, error)
	// Close releases the runtime and its delegate. Calls after the first are no-ops.
	Close() error
}

// Backend builds engines from serialized model bytes.
type Backend interface {
	// Name is the registry key of the backend.
	Name() string
	// Extension is the file extension of models the backend reads, including the dot.
	Extension() string
	// Open parses the model, attaches the requested delegate and allocates buffers.
	// On error nothing is left allocated.
	Open(model []byte, opts providers.Options) (Engine, error)
}
