package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

// bandedImage builds a landscape image whose centered square is green and whose side bands are red and blue.
func bandedImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	band := (w - h) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < band:
				img.Set(x, y, red)
			case x >= w-band:
				img.Set(x, y, blue)
			default:
				img.Set(x, y, green)
			}
		}
	}
	return img
}

// TestCenterSquare validates the crop rectangle for landscape, portrait, odd and offset bounds.
func TestCenterSquare(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{name: "landscape", bounds: image.Rect(0, 0, 300, 200), want: image.Rect(50, 0, 250, 200)},
		{name: "portrait", bounds: image.Rect(0, 0, 200, 300), want: image.Rect(0, 50, 200, 250)},
		{name: "square", bounds: image.Rect(0, 0, 224, 224), want: image.Rect(0, 0, 224, 224)},
		{name: "odd excess", bounds: image.Rect(0, 0, 5, 2), want: image.Rect(1, 0, 3, 2)},
		{name: "offset", bounds: image.Rect(10, 20, 40, 30), want: image.Rect(20, 20, 30, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CenterSquare(tt.bounds)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Dx(), got.Dy())
		})
	}
}

// TestResizeIntoCenterCrop validates that only the marked center region survives crop and resize.
func TestResizeIntoCenterCrop(t *testing.T) {
	src := bandedImage(300, 200)
	for _, filter := range []ResampleFilter{NearestNeighborFilter, BilinearFilter} {
		t.Run(filter.String(), func(t *testing.T) {
			dst := image.NewNRGBA(image.Rect(0, 0, 100, 100))
			require.NoError(t, ResizeInto(dst, src, CenterSquare(src.Bounds()), filter))
			for y := 0; y < 100; y++ {
				for x := 0; x < 100; x++ {
					require.Equal(t, green, dst.NRGBAAt(x, y), "pixel (%d,%d)", x, y)
				}
			}
		})
	}
}

// TestResizeIntoNearestExact validates that nearest-neighbor output pixels are exact source pixels.
func TestResizeIntoNearestExact(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}

	for _, size := range []image.Point{{37, 53}, {224, 224}, {200, 200}, {1, 1}} {
		dst := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
		require.NoError(t, ResizeInto(dst, src, src.Bounds(), NearestNeighborFilter))
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				c := dst.NRGBAAt(x, y)
				assert.Equal(t, src.NRGBAAt(int(c.R), int(c.G)), c)
			}
		}
	}

	same := image.NewNRGBA(src.Bounds())
	require.NoError(t, ResizeInto(same, src, src.Bounds(), NearestNeighborFilter))
	assert.Equal(t, src.Pix, same.Pix)
}

// TestResizeIntoGenericSource validates the non-NRGBA path produces the same result as the fast path.
func TestResizeIntoGenericSource(t *testing.T) {
	rgba := bandedImage(90, 60)
	nrgba := image.NewNRGBA(rgba.Bounds())
	for y := 0; y < 60; y++ {
		for x := 0; x < 90; x++ {
			nrgba.Set(x, y, rgba.At(x, y))
		}
	}

	a := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	b := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	require.NoError(t, ResizeInto(a, rgba, rgba.Bounds(), NearestNeighborFilter))
	require.NoError(t, ResizeInto(b, nrgba, nrgba.Bounds(), NearestNeighborFilter))
	assert.Equal(t, a.Pix, b.Pix)
}

// TestResizeIntoLanczosUniform validates that resampling a flat image keeps it flat.
func TestResizeIntoLanczosUniform(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:i+4], []uint8{120, 80, 40, 255})
	}
	dst := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	require.NoError(t, ResizeInto(dst, src, CenterSquare(src.Bounds()), LanczosFilter))
	c := dst.NRGBAAt(8, 8)
	assert.InDelta(t, 120, int(c.R), 1)
	assert.InDelta(t, 80, int(c.G), 1)
	assert.InDelta(t, 40, int(c.B), 1)
}

// TestResizeIntoRejectsEmpty validates errors for empty regions and unknown filters.
func TestResizeIntoRejectsEmpty(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	dst := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Error(t, ResizeInto(dst, src, image.Rect(20, 20, 30, 30), NearestNeighborFilter))
	assert.Error(t, ResizeInto(image.NewNRGBA(image.Rectangle{}), src, src.Bounds(), NearestNeighborFilter))
	assert.Error(t, ResizeInto(dst, src, src.Bounds(), ResampleFilter(42)))
}

// TestParseResampleFilter validates filter names.
func TestParseResampleFilter(t *testing.T) {
	f, err := ParseResampleFilter("Bilinear")
	require.NoError(t, err)
	assert.Equal(t, BilinearFilter, f)

	f, err = ParseResampleFilter("")
	require.NoError(t, err)
	assert.Equal(t, NearestNeighborFilter, f)

	_, err = ParseResampleFilter("cubic")
	assert.Error(t, err)
}

// TestDecode validates decoding of registered formats and rejection of garbage.
func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, bandedImage(30, 20)))

	img, meta, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, meta.Format)
	assert.Equal(t, 30, meta.Width)
	assert.Equal(t, 20, meta.Height)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	_, _, err = Decode([]byte("not an image"))
	assert.Error(t, err)
}
