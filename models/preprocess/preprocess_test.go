package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-classify/images"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

var (
	identity = models.Normalization{Mean: 0, Std: 1}
	signed   = models.Normalization{Mean: 127.5, Std: 127.5}
)

func uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func spec(t *testing.T, dims []int64, dt tensor.Dtype) inference.TensorSpec {
	t.Helper()
	s, err := inference.ImageInputSpec("input", dims, dt)
	require.NoError(t, err)
	return s
}

// TestProcessQuantizedUniform validates that a uniform image yields identical uint8 triples at every pixel.
func TestProcessQuantizedUniform(t *testing.T) {
	s := spec(t, []int64{1, 224, 224, 3}, tensor.Uint8)
	p, err := NewPreprocessor(s, identity, images.NearestNeighborFilter)
	require.NoError(t, err)

	dst := inference.NewBuffer(s)
	require.NoError(t, p.Process(uniform(640, 480, color.RGBA{R: 200, G: 100, B: 50, A: 255}), dst))

	data := dst.Data().([]uint8)
	require.Len(t, data, 224*224*3)
	for i := 0; i < len(data); i += 3 {
		require.Equal(t, []uint8{200, 100, 50}, data[i:i+3], "pixel %d", i/3)
	}
}

// TestProcessFloatNormalization validates (v-mean)/std on a float NHWC input.
func TestProcessFloatNormalization(t *testing.T) {
	s := spec(t, []int64{1, 8, 8, 3}, tensor.Float32)
	p, err := NewPreprocessor(s, signed, images.NearestNeighborFilter)
	require.NoError(t, err)

	dst := inference.NewBuffer(s)
	require.NoError(t, p.Process(uniform(16, 16, color.RGBA{R: 255, G: 0, B: 127, A: 255}), dst))

	data := dst.Data().([]float32)
	assert.Equal(t, float32(1), data[0])
	assert.Equal(t, float32(-1), data[1])
	assert.InDelta(t, -0.0039, data[2], 1e-3)
}

// TestProcessPlanarLayout validates channel planes for NCHW inputs.
func TestProcessPlanarLayout(t *testing.T) {
	s := spec(t, []int64{1, 3, 4, 4}, tensor.Float32)
	p, err := NewPreprocessor(s, identity, images.NearestNeighborFilter)
	require.NoError(t, err)

	dst := inference.NewBuffer(s)
	require.NoError(t, p.Process(uniform(4, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255}), dst))

	data := dst.Data().([]float32)
	for i := 0; i < 16; i++ {
		assert.Equal(t, float32(10), data[i])
		assert.Equal(t, float32(20), data[16+i])
		assert.Equal(t, float32(30), data[32+i])
	}
}

// TestProcessCentersCrop validates that side bands outside the centered square never reach the tensor.
func TestProcessCentersCrop(t *testing.T) {
	img := uniform(300, 200, color.RGBA{G: 255, A: 255})
	for y := 0; y < 200; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
			img.Set(299-x, y, color.RGBA{B: 255, A: 255})
		}
	}

	s := spec(t, []int64{1, 100, 100, 3}, tensor.Uint8)
	p, err := NewPreprocessor(s, identity, images.NearestNeighborFilter)
	require.NoError(t, err)

	dst := inference.NewBuffer(s)
	require.NoError(t, p.Process(img, dst))
	data := dst.Data().([]uint8)
	for i := 0; i < len(data); i += 3 {
		require.Equal(t, []uint8{0, 255, 0}, data[i:i+3], "pixel %d", i/3)
	}
}

// TestProcessOverwrites validates that no value from a previous call survives.
func TestProcessOverwrites(t *testing.T) {
	s := spec(t, []int64{1, 16, 16, 3}, tensor.Uint8)
	p, err := NewPreprocessor(s, identity, images.BilinearFilter)
	require.NoError(t, err)

	reused := inference.NewBuffer(s)
	require.NoError(t, p.Process(uniform(32, 32, color.White), reused))
	require.NoError(t, p.Process(uniform(48, 24, color.RGBA{R: 3, G: 4, B: 5, A: 255}), reused))

	fresh := inference.NewBuffer(s)
	q, err := NewPreprocessor(s, identity, images.BilinearFilter)
	require.NoError(t, err)
	require.NoError(t, q.Process(uniform(48, 24, color.RGBA{R: 3, G: 4, B: 5, A: 255}), fresh))

	assert.Equal(t, fresh.Data(), reused.Data())
}

// TestProcessQuantizeClamps validates rounding and clamping when normalization leaves the uint8 range.
func TestProcessQuantizeClamps(t *testing.T) {
	assert.Equal(t, uint8(0), quantize(-3.2))
	assert.Equal(t, uint8(255), quantize(300))
	assert.Equal(t, uint8(128), quantize(127.5))
	assert.Equal(t, uint8(127), quantize(127.4))
}

// TestProcessRejects validates errors for invalid images and mismatched buffers.
func TestProcessRejects(t *testing.T) {
	s := spec(t, []int64{1, 8, 8, 3}, tensor.Float32)
	p, err := NewPreprocessor(s, signed, images.NearestNeighborFilter)
	require.NoError(t, err)

	dst := inference.NewBuffer(s)
	assert.ErrorIs(t, p.Process(nil, dst), ErrInvalidImage)
	assert.ErrorIs(t, p.Process(image.NewRGBA(image.Rectangle{}), dst), ErrInvalidImage)

	wrong := tensor.New(tensor.WithShape(1, 8, 8, 3), tensor.Of(tensor.Uint8))
	assert.ErrorIs(t, p.Process(uniform(8, 8, color.Black), wrong), inference.ErrInference)

	_, err = NewPreprocessor(s, models.Normalization{}, images.NearestNeighborFilter)
	assert.Error(t, err)

	scores, err := inference.ScoreOutputSpec("scores", []int64{1, 10}, tensor.Float32)
	require.NoError(t, err)
	_, err = NewPreprocessor(scores, signed, images.NearestNeighborFilter)
	assert.Error(t, err)
}
