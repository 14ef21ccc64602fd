package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// TestImageInputSpec validates layout detection and rejection of unsupported inputs.
func TestImageInputSpec(t *testing.T) {
	tests := []struct {
		name    string
		dims    []int64
		dtype   tensor.Dtype
		want    tensor.Shape
		layout  Layout
		wantErr bool
	}{
		{name: "nhwc uint8", dims: []int64{1, 224, 224, 3}, dtype: tensor.Uint8, want: tensor.Shape{1, 224, 224, 3}, layout: LayoutNHWC},
		{name: "nchw float", dims: []int64{1, 3, 160, 192}, dtype: tensor.Float32, want: tensor.Shape{1, 3, 160, 192}, layout: LayoutNCHW},
		{name: "dynamic batch", dims: []int64{-1, 224, 224, 3}, dtype: tensor.Float32, want: tensor.Shape{1, 224, 224, 3}, layout: LayoutNHWC},
		{name: "batch of two", dims: []int64{2, 224, 224, 3}, dtype: tensor.Float32, wantErr: true},
		{name: "dynamic height", dims: []int64{1, -1, 224, 3}, dtype: tensor.Float32, wantErr: true},
		{name: "grayscale", dims: []int64{1, 224, 224, 1}, dtype: tensor.Float32, wantErr: true},
		{name: "three dims", dims: []int64{224, 224, 3}, dtype: tensor.Float32, wantErr: true},
		{name: "int64 elements", dims: []int64{1, 224, 224, 3}, dtype: tensor.Int64, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ImageInputSpec("input", tt.dims, tt.dtype)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Shape)
			assert.Equal(t, tt.layout, spec.Layout)
			assert.Equal(t, tt.want[0], 1)
		})
	}
}

// TestImageInputSpecDimensions validates height and width accessors for both layouts.
func TestImageInputSpecDimensions(t *testing.T) {
	nhwc, err := ImageInputSpec("in", []int64{1, 120, 160, 3}, tensor.Uint8)
	require.NoError(t, err)
	assert.Equal(t, 120, nhwc.Height())
	assert.Equal(t, 160, nhwc.Width())

	nchw, err := ImageInputSpec("in", []int64{1, 3, 120, 160}, tensor.Uint8)
	require.NoError(t, err)
	assert.Equal(t, 120, nchw.Height())
	assert.Equal(t, 160, nchw.Width())
}

// TestScoreOutputSpec validates the 1×C output contract.
func TestScoreOutputSpec(t *testing.T) {
	spec, err := ScoreOutputSpec("scores", []int64{1, 1001}, tensor.Uint8)
	require.NoError(t, err)
	assert.Equal(t, 1001, spec.Classes())
	assert.Equal(t, LayoutFlat, spec.Layout)

	_, err = ScoreOutputSpec("scores", []int64{1, 10, 10}, tensor.Float32)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

// TestValidateInput validates that only an exact shape and dtype match is accepted.
func TestValidateInput(t *testing.T) {
	spec, err := ImageInputSpec("in", []int64{1, 4, 4, 3}, tensor.Float32)
	require.NoError(t, err)

	buf := NewBuffer(spec)
	assert.Equal(t, 48, buf.Shape().TotalSize())
	assert.NoError(t, ValidateInput(spec, buf))

	wrongType := tensor.New(tensor.WithShape(1, 4, 4, 3), tensor.Of(tensor.Uint8))
	assert.ErrorIs(t, ValidateInput(spec, wrongType), ErrInference)

	wrongShape := tensor.New(tensor.WithShape(1, 3, 4, 4), tensor.Of(tensor.Float32))
	assert.ErrorIs(t, ValidateInput(spec, wrongShape), ErrInference)

	assert.ErrorIs(t, ValidateInput(spec, nil), ErrInference)
}

// TestPrecision validates the mapping between precisions and element types.
func TestPrecision(t *testing.T) {
	dt, err := PrecisionUINT8.Dtype()
	require.NoError(t, err)
	assert.Equal(t, tensor.Uint8, dt)

	p, err := PrecisionOf(tensor.Float32)
	require.NoError(t, err)
	assert.Equal(t, PrecisionFP32, p)

	_, err = Precision("FP16").Dtype()
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
