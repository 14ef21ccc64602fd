// Package inference - Registry of runtime backends.
package inference

import (
	"fmt"
	"sort"
	"sync"
)

// EngineType is the registry name of a backend.
type EngineType string

const (
	// EngineONNX is the ONNX engine that uses the onnxruntime library.
	EngineONNX EngineType = "onnx"
	// EngineTFLite is the TensorFlow Lite engine, available when built with the tflite tag.
	EngineTFLite EngineType = "tflite"
)

var (
	backendsMu sync.RWMutex
	backends   = make(map[EngineType]Backend)
)

// Register makes a backend available by name. It panics if the name is
// registered twice, mirroring database/sql.
//
// Arguments:
//   - backend: The backend to register.
func Register(backend Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if backend == nil {
		panic("inference: Register backend is nil")
	}
	name := EngineType(backend.Name())
	if _, dup := backends[name]; dup {
		panic("inference: Register called twice for backend " + string(name))
	}
	backends[name] = backend
}

// Lookup returns the backend registered under name.
//
// Arguments:
//   - name: The registry name.
//
// Returns:
//   - Backend: The backend.
//   - error: ErrUnknownBackend if nothing is registered under name.
func Lookup(name EngineType) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, name, engines())
	}
	return b, nil
}

// Engines returns the sorted names of all registered backends.
func Engines() []EngineType {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	return engines()
}

func engines() []EngineType {
	names := make([]EngineType, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
