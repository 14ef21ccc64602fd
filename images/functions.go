// Package images - provides deterministic image cropping and resampling used to
// prepare classifier inputs.
package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter copies the source pixel nearest to each output pixel center.
	// Every output pixel is an exact source pixel.
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter interpolates between the four nearest source pixels.
	BilinearFilter
	// LanczosFilter uses Lanczos resampling with a=3 (slowest, best quality).
	LanczosFilter
)

var filterNames = map[ResampleFilter]string{
	NearestNeighborFilter: "nearest",
	BilinearFilter:        "bilinear",
	LanczosFilter:         "lanczos",
}

func (f ResampleFilter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", int(f))
}

// ParseResampleFilter converts a name into a ResampleFilter.
func ParseResampleFilter(s string) (ResampleFilter, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return NearestNeighborFilter, nil
	}
	for f, n := range filterNames {
		if n == name {
			return f, nil
		}
	}
	return NearestNeighborFilter, fmt.Errorf("unknown resample filter %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ResampleFilter) UnmarshalText(text []byte) error {
	parsed, err := ParseResampleFilter(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// CenterSquare returns the largest square centered in bounds. When the excess
// is odd the extra pixel is left on the right or bottom.
//
// Arguments:
//   - bounds: The image bounds.
//
// Returns:
//   - image.Rectangle: A square of side min(width, height).
//
// @example
// CenterSquare(image.Rect(0, 0, 300, 200)) // (50,0)-(250,200)
func CenterSquare(bounds image.Rectangle) image.Rectangle {
	side := min(bounds.Dx(), bounds.Dy())
	x0 := bounds.Min.X + (bounds.Dx()-side)/2
	y0 := bounds.Min.Y + (bounds.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// ResizeInto resamples the srcRect region of src to fill dst.
//
// Arguments:
//   - dst: Destination image; its bounds set the output size.
//   - src: The source image.
//   - srcRect: The region of src to sample, clipped to src bounds.
//   - filter: The resampling filter.
//
// Returns:
//   - error: An error if the region is empty or the filter is unknown.
//
// @example
// dst := image.NewNRGBA(image.Rect(0, 0, 224, 224))
// err := ResizeInto(dst, src, CenterSquare(src.Bounds()), NearestNeighborFilter)
func ResizeInto(dst *image.NRGBA, src image.Image, srcRect image.Rectangle, filter ResampleFilter) error {
	srcRect = srcRect.Intersect(src.Bounds())
	if srcRect.Empty() {
		return fmt.Errorf("source region %v is empty", srcRect)
	}
	if dst.Bounds().Empty() {
		return fmt.Errorf("destination %v is empty", dst.Bounds())
	}

	switch filter {
	case NearestNeighborFilter:
		resizeNearestNeighbor(dst, src, srcRect)
	case BilinearFilter:
		xdraw.BiLinear.Scale(dst, dst.Bounds(), src, srcRect, xdraw.Src, nil)
	case LanczosFilter:
		b := dst.Bounds()
		out := resize.Resize(uint(b.Dx()), uint(b.Dy()), crop(src, srcRect), resize.Lanczos3)
		draw.Draw(dst, b, out, out.Bounds().Min, draw.Src)
	default:
		return fmt.Errorf("unknown resample filter %d", int(filter))
	}
	return nil
}

// resizeNearestNeighbor maps each output pixel center back into srcRect and
// copies that source pixel unchanged.
func resizeNearestNeighbor(dst *image.NRGBA, src image.Image, srcRect image.Rectangle) {
	b := dst.Bounds()
	dw, dh := b.Dx(), b.Dy()
	sw, sh := srcRect.Dx(), srcRect.Dy()

	cols := make([]int, dw)
	for x := range cols {
		cols[x] = srcRect.Min.X + (2*x+1)*sw/(2*dw)
	}

	nrgba, fast := src.(*image.NRGBA)
	for y := 0; y < dh; y++ {
		sy := srcRect.Min.Y + (2*y+1)*sh/(2*dh)
		start := dst.PixOffset(b.Min.X, b.Min.Y+y)
		row := dst.Pix[start : start+dw*4]
		for x, sx := range cols {
			if fast {
				i := nrgba.PixOffset(sx, sy)
				copy(row[x*4:x*4+4], nrgba.Pix[i:i+4])
				continue
			}
			c := color.NRGBAModel.Convert(src.At(sx, sy)).(color.NRGBA)
			row[x*4+0] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = c.A
		}
	}
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop returns a view of r when src supports it and a copy otherwise.
func crop(src image.Image, r image.Rectangle) image.Image {
	if s, ok := src.(subImager); ok {
		return s.SubImage(r)
	}
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Src)
	return out
}
