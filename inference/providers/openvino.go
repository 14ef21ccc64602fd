// Package providers - OpenVINO execution provider.
package providers

import "strconv"

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type at runtime (CPU, GPU, NPU).
	DeviceType string `json:"deviceType"   yaml:"deviceType"`
	// Supported precisions for HW {CPU:FP32, GPU:[FP32, FP16, ACCURACY], NPU:FP16}.
	Precision string `json:"precision"    yaml:"precision"`
	// Overrides the accelerator default number of threads.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads"`
}

// NewOpenVINONPUOptions returns options that target an Intel NPU.
func NewOpenVINONPUOptions(threads int) OpenVINOOptions {
	return OpenVINOOptions{
		DeviceType:   "NPU",
		Precision:    "FP16",
		NumOfThreads: threads,
	}
}

// ToMap renders the options as the key/value pairs understood by the runtime.
func (o OpenVINOOptions) ToMap() map[string]string {
	m := map[string]string{
		"device_type": o.DeviceType,
	}
	if o.Precision != "" {
		m["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	return m
}
