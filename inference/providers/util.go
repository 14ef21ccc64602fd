// Package providers - Utility functions.
package providers

import (
	"fmt"
	"runtime"
)

// GetSharedLibPath returns the default path to the ONNX Runtime shared library
// for the current platform.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error if no library is bundled for this platform.
func GetSharedLibPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", fmt.Errorf(
		"%w: no onnxruntime library for %s/%s",
		ErrBackendUnavailable, runtime.GOOS, runtime.GOARCH,
	)
}
