// Package providers - Hardware acceleration choices and execution provider delegates.
package providers

import (
	"fmt"
	"strings"
)

// Acceleration is the hardware an engine should delegate execution to.
type Acceleration int

const (
	// CPU runs the model on the host processor without a delegate.
	CPU Acceleration = iota
	// NeuralAccelerator delegates execution to a dedicated neural processing unit.
	NeuralAccelerator
	// GPU delegates execution to a graphics processor.
	GPU
)

var accelerationNames = map[Acceleration]string{
	CPU:               "cpu",
	NeuralAccelerator: "npu",
	GPU:               "gpu",
}

// String returns the canonical name of the acceleration choice.
func (a Acceleration) String() string {
	if name, ok := accelerationNames[a]; ok {
		return name
	}
	return fmt.Sprintf("acceleration(%d)", int(a))
}

// ParseAcceleration converts a name into an Acceleration.
//
// Arguments:
//   - s: One of "cpu", "npu" (alias "nnapi", "neural") or "gpu", case-insensitive.
//
// Returns:
//   - Acceleration: The parsed choice.
//   - error: An error if the name is unknown.
func ParseAcceleration(s string) (Acceleration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpu":
		return CPU, nil
	case "npu", "nnapi", "neural":
		return NeuralAccelerator, nil
	case "gpu":
		return GPU, nil
	default:
		return CPU, fmt.Errorf("unknown acceleration %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Acceleration) MarshalText() ([]byte, error) {
	if _, ok := accelerationNames[a]; !ok {
		return nil, fmt.Errorf("unknown acceleration %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Acceleration) UnmarshalText(text []byte) error {
	parsed, err := ParseAcceleration(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
