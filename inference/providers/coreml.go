// Package providers - CoreML execution provider.
package providers

// CoreMLFlags mirror the COREML_FLAG_* bit set accepted by the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLFlags uint32

const (
	// CoreMLUseCPUOnly limits CoreML to the CPU.
	CoreMLUseCPUOnly CoreMLFlags = 0x001
	// CoreMLEnableOnSubgraph lets CoreML take nodes inside control flow bodies.
	CoreMLEnableOnSubgraph CoreMLFlags = 0x002
	// CoreMLOnlyEnableDeviceWithANE only enables CoreML on devices with an Apple Neural Engine.
	CoreMLOnlyEnableDeviceWithANE CoreMLFlags = 0x004
	// CoreMLOnlyAllowStaticInputShapes rejects nodes with dynamic input shapes.
	CoreMLOnlyAllowStaticInputShapes CoreMLFlags = 0x008
	// CoreMLCreateMLProgram compiles to the MLProgram format.
	CoreMLCreateMLProgram CoreMLFlags = 0x010
	// CoreMLUseCPUAndGPU schedules CoreML on the CPU and GPU only.
	CoreMLUseCPUAndGPU CoreMLFlags = 0x020
)

// CoreMLFlagsFor returns the CoreML flags that pin execution to the requested hardware.
//
// Arguments:
//   - choice: NeuralAccelerator or GPU.
//
// Returns:
//   - CoreMLFlags: The flag set.
//   - bool: False when CoreML has no mode for the choice.
func CoreMLFlagsFor(choice Acceleration) (CoreMLFlags, bool) {
	switch choice {
	case NeuralAccelerator:
		return CoreMLOnlyEnableDeviceWithANE | CoreMLOnlyAllowStaticInputShapes, true
	case GPU:
		return CoreMLUseCPUAndGPU | CoreMLOnlyAllowStaticInputShapes, true
	default:
		return 0, false
	}
}
