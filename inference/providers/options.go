package providers

import "fmt"

// DefaultThreads keeps CPU execution single-threaded and deterministic.
const DefaultThreads = 1

// Options configures how a backend builds its engine.
type Options struct {
	// Acceleration selects the delegate attached to the engine.
	Acceleration Acceleration `json:"acceleration" yaml:"acceleration"`
	// Threads is the CPU thread count used by the runtime.
	Threads int `json:"threads" yaml:"threads"`
	// SharedLibraryPath points the runtime at its native library. Empty uses GetSharedLibPath.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
	// DeviceID selects the accelerator device when more than one is present.
	DeviceID int `json:"device_id" yaml:"device_id"`
}

// DefaultOptions returns CPU execution on a single thread.
func DefaultOptions() Options {
	return Options{
		Acceleration: CPU,
		Threads:      DefaultThreads,
	}
}

// Validate checks the options and fills in defaults for zero values.
//
// Returns:
//   - error: An error if a field is out of range.
func (o *Options) Validate() error {
	if o.Threads == 0 {
		o.Threads = DefaultThreads
	}
	if o.Threads < 0 {
		return fmt.Errorf("threads must be positive, got %d", o.Threads)
	}
	if o.DeviceID < 0 {
		return fmt.Errorf("device_id must not be negative, got %d", o.DeviceID)
	}
	if _, ok := accelerationNames[o.Acceleration]; !ok {
		return fmt.Errorf("unknown acceleration %d", int(o.Acceleration))
	}
	return nil
}
