// Package preprocess turns decoded images into classifier input tensors:
// center crop to a square, resample to the model resolution, normalize.
package preprocess

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-classify/images"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/models"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrInvalidImage is returned for nil or zero-area images.
var ErrInvalidImage = errors.New("invalid image")

// Preprocessor writes images into input buffers matching one tensor spec.
// It reuses a scratch image across calls and is not safe for concurrent use.
type Preprocessor struct {
	spec    inference.TensorSpec
	norm    models.Normalization
	filter  images.ResampleFilter
	scratch *image.NRGBA
}

// NewPreprocessor creates a preprocessor for an image input.
//
// Arguments:
//   - spec: The engine input spec; sets resolution, layout and element type.
//   - norm: Normalization applied to each 0-255 channel sample.
//   - filter: The resampling filter.
//
// Returns:
//   - *Preprocessor: The preprocessor.
//   - error: An error if the spec is not an image input or norm is unusable.
//
// @example
// p, err := NewPreprocessor(engine.Input(), variant.Input, images.NearestNeighborFilter)
func NewPreprocessor(spec inference.TensorSpec, norm models.Normalization, filter images.ResampleFilter) (*Preprocessor, error) {
	if spec.Layout != inference.LayoutNHWC && spec.Layout != inference.LayoutNCHW {
		return nil, errors.Errorf("input spec %s is not an image tensor", spec)
	}
	if len(spec.Shape) != 4 {
		return nil, errors.Errorf("input spec %s is not 4-D", spec)
	}
	if spec.Dtype != tensor.Uint8 && spec.Dtype != tensor.Float32 {
		return nil, errors.Errorf("input spec %s has unsupported element type", spec)
	}
	if err := norm.Validate(); err != nil {
		return nil, errors.Wrap(err, "input normalization")
	}
	return &Preprocessor{
		spec:    spec,
		norm:    norm,
		filter:  filter,
		scratch: image.NewNRGBA(image.Rect(0, 0, spec.Width(), spec.Height())),
	}, nil
}

// Spec returns the input spec the preprocessor writes.
func (p *Preprocessor) Spec() inference.TensorSpec { return p.spec }

// Process crops the centered square of img, resamples it to the model
// resolution and writes every element of dst. Alpha is ignored.
//
// Arguments:
//   - img: The decoded image; any size or aspect ratio.
//   - dst: Buffer matching Spec exactly.
//
// Returns:
//   - error: ErrInvalidImage for empty images, or an error if dst does not match.
func (p *Preprocessor) Process(img image.Image, dst *tensor.Dense) error {
	if img == nil || img.Bounds().Empty() {
		return ErrInvalidImage
	}
	if err := inference.ValidateInput(p.spec, dst); err != nil {
		return err
	}

	if err := images.ResizeInto(p.scratch, img, images.CenterSquare(img.Bounds()), p.filter); err != nil {
		return errors.Wrap(err, "resize")
	}

	switch data := dst.Data().(type) {
	case []float32:
		p.fill(func(i int, v float32) { data[i] = p.norm.Apply(v) })
	case []uint8:
		p.fill(func(i int, v float32) { data[i] = quantize(p.norm.Apply(v)) })
	default:
		return errors.Errorf("unsupported input backing %T", data)
	}
	return nil
}

// fill walks the scratch image and hands each RGB sample to set with its
// index in the destination layout.
func (p *Preprocessor) fill(set func(i int, v float32)) {
	w, h := p.spec.Width(), p.spec.Height()
	plane := w * h
	pix := p.scratch.Pix
	stride := p.scratch.Stride

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := y*stride + x*4
			r, g, b := float32(pix[s]), float32(pix[s+1]), float32(pix[s+2])
			if p.spec.Layout == inference.LayoutNCHW {
				i := y*w + x
				set(i, r)
				set(plane+i, g)
				set(2*plane+i, b)
				continue
			}
			i := (y*w + x) * inference.ImageChannels
			set(i, r)
			set(i+1, g)
			set(i+2, b)
		}
	}
}

// quantize rounds v to the nearest integer and clamps it into the uint8 range.
func quantize(v float32) uint8 {
	return uint8(math32.Max(0, math32.Min(255, math32.Round(v))))
}
