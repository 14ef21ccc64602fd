// Package providers - CUDA execution provider.
package providers

import (
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"deviceID"            yaml:"deviceID"`
	// The size limit of the device memory arena in bytes. Zero leaves the runtime default.
	GPUMemLimit int64 `json:"gpuMemLimit"         yaml:"gpuMemLimit"`
	// The strategy for extending the device memory arena.
	// 0: kNextPowerOfTwo
	// 1: kSameAsRequested
	ArenaExtendStrategy int `json:"arenaExtendStrategy" yaml:"arenaExtendStrategy"`
	// The type of search done for cuDNN convolution algorithms.
	// 0: EXHAUSTIVE, 1: HEURISTIC, 2: DEFAULT
	CudnnConvAlgoSearch int `json:"cudnnConvAlgoSearch" yaml:"cudnnConvAlgoSearch"`
	// If set, the provider prefers NHWC operators over NCHW.
	PreferNHWC bool `json:"preferNHWC"          yaml:"preferNHWC"`
}

// NewCUDAOptions returns the CUDA options used for the GPU acceleration choice.
func NewCUDAOptions(deviceID int) CUDAOptions {
	return CUDAOptions{
		DeviceID:            deviceID,
		CudnnConvAlgoSearch: 1,
		PreferNHWC:          true,
	}
}

// ToMap renders the options as the key/value pairs understood by the runtime.
func (o CUDAOptions) ToMap() map[string]string {
	m := map[string]string{
		"device_id":              strconv.Itoa(o.DeviceID),
		"arena_extend_strategy":  arenaStrategies[o.ArenaExtendStrategy],
		"cudnn_conv_algo_search": convAlgoSearches[o.CudnnConvAlgoSearch],
		"prefer_nhwc":            boolFlag(o.PreferNHWC),
	}
	if o.GPUMemLimit > 0 {
		m["gpu_mem_limit"] = strconv.FormatInt(o.GPUMemLimit, 10)
	}
	return m
}

// ToNativeProviderOptions converts the CUDA options to native provider options.
// The caller owns the returned value and must Destroy it.
func (o CUDAOptions) ToNativeProviderOptions() (*ort.CUDAProviderOptions, error) {
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, err
	}
	if err := opts.Update(o.ToMap()); err != nil {
		opts.Destroy()
		return nil, err
	}
	return opts, nil
}

var arenaStrategies = map[int]string{
	0: "kNextPowerOfTwo",
	1: "kSameAsRequested",
}

var convAlgoSearches = map[int]string{
	0: "EXHAUSTIVE",
	1: "HEURISTIC",
	2: "DEFAULT",
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
