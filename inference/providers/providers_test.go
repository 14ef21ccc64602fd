package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestParseAcceleration validates names, aliases and rejection of unknown values.
func TestParseAcceleration(t *testing.T) {
	tests := []struct {
		in      string
		want    Acceleration
		wantErr bool
	}{
		{in: "cpu", want: CPU},
		{in: "", want: CPU},
		{in: "NPU", want: NeuralAccelerator},
		{in: "nnapi", want: NeuralAccelerator},
		{in: " gpu ", want: GPU},
		{in: "tpu", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAcceleration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestAccelerationYAML validates that acceleration choices decode from config scalars.
func TestAccelerationYAML(t *testing.T) {
	var doc struct {
		Acceleration Acceleration `yaml:"acceleration"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("acceleration: gpu\n"), &doc))
	assert.Equal(t, GPU, doc.Acceleration)

	out, err := yaml.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, "acceleration: gpu\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("acceleration: quantum\n"), &doc))
}

// TestDelegateReleaseOnce validates that release runs exactly once and the live count returns to its baseline.
func TestDelegateReleaseOnce(t *testing.T) {
	before := Live()
	calls := 0
	d := NewDelegate(GPU, func() error {
		calls++
		return errors.New("boom")
	})
	assert.Equal(t, before+1, Live())
	assert.Equal(t, GPU, d.Acceleration())

	assert.EqualError(t, d.Release(), "boom")
	assert.EqualError(t, d.Release(), "boom")
	assert.Equal(t, 1, calls)
	assert.Equal(t, before, Live())

	var nilDelegate *Delegate
	assert.NoError(t, nilDelegate.Release())
}

// TestOptionsValidate validates default filling and range checks.
func TestOptionsValidate(t *testing.T) {
	opts := Options{}
	require.NoError(t, opts.Validate())
	assert.Equal(t, DefaultThreads, opts.Threads)
	assert.Equal(t, DefaultOptions(), opts)

	bad := Options{Threads: -2}
	assert.Error(t, bad.Validate())

	unknown := Options{Acceleration: Acceleration(9)}
	assert.Error(t, unknown.Validate())
}

// TestProviderOptionMaps validates the key/value pairs handed to the runtime.
func TestProviderOptionMaps(t *testing.T) {
	cuda := NewCUDAOptions(1).ToMap()
	assert.Equal(t, "1", cuda["device_id"])
	assert.Equal(t, "HEURISTIC", cuda["cudnn_conv_algo_search"])
	assert.Equal(t, "1", cuda["prefer_nhwc"])
	assert.NotContains(t, cuda, "gpu_mem_limit")

	vino := NewOpenVINONPUOptions(1).ToMap()
	assert.Equal(t, map[string]string{
		"device_type":    "NPU",
		"precision":      "FP16",
		"num_of_threads": "1",
	}, vino)

	flags, ok := CoreMLFlagsFor(NeuralAccelerator)
	require.True(t, ok)
	assert.NotZero(t, flags&CoreMLOnlyEnableDeviceWithANE)

	_, ok = CoreMLFlagsFor(CPU)
	assert.False(t, ok)
}

// TestErrBackendUnavailableWrapping validates that wrapped provider errors still match the sentinel.
func TestErrBackendUnavailableWrapping(t *testing.T) {
	_, err := ParseAcceleration("x")
	assert.False(t, errors.Is(err, ErrBackendUnavailable))

	path, err := GetSharedLibPath()
	if err != nil {
		assert.ErrorIs(t, err, ErrBackendUnavailable)
		return
	}
	assert.NotEmpty(t, path)
}
