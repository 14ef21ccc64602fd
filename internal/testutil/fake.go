// Package testutil provides an in-memory inference backend and fixtures for
// tests that must run without a native runtime.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/nvr-ai/go-classify/models"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// FakeExtension is the model file extension of FakeBackend.
const FakeExtension = ".fake"

// ScoreFunc computes raw class scores from an input buffer.
type ScoreFunc func(input *tensor.Dense) []float32

// FakeBackend builds FakeEngines with fixed tensor specs. It honors the
// acceleration contract: an unavailable choice fails Open after the delegate
// was acquired, so callers can check that nothing leaks.
//
// @example
// backend := testutil.NewFakeBackend(testutil.QuantizedSpecs(224, 3))
// backend.Scores = testutil.ConstantScores(10, 250, 30)
type FakeBackend struct {
	In  inference.TensorSpec
	Out inference.TensorSpec
	// Scores produces raw output values. Nil yields zeros.
	Scores ScoreFunc
	// Unavailable lists accelerations Open rejects.
	Unavailable map[providers.Acceleration]bool

	mu      sync.Mutex
	opened  []*FakeEngine
	lastOpt providers.Options
}

// NewFakeBackend creates a backend whose engines expose in and out.
func NewFakeBackend(in, out inference.TensorSpec) *FakeBackend {
	return &FakeBackend{In: in, Out: out, Unavailable: map[providers.Acceleration]bool{}}
}

// Name implements inference.Backend.
func (b *FakeBackend) Name() string { return "fake" }

// Extension implements inference.Backend.
func (b *FakeBackend) Extension() string { return FakeExtension }

// Open implements inference.Backend.
func (b *FakeBackend) Open(model []byte, opts providers.Options) (inference.Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(model) == 0 {
		return nil, models.ErrArtifactLoad
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastOpt = opts

	delegate := providers.NewDelegate(opts.Acceleration, nil)
	if b.Unavailable[opts.Acceleration] {
		delegate.Release()
		return nil, providers.ErrBackendUnavailable
	}

	e := &FakeEngine{
		in:       b.In,
		out:      b.Out,
		scores:   b.Scores,
		delegate: delegate,
		result:   inference.NewBuffer(b.Out),
	}
	b.opened = append(b.opened, e)
	return e, nil
}

// Engines returns every engine opened so far.
func (b *FakeBackend) Engines() []*FakeEngine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakeEngine(nil), b.opened...)
}

// LastOptions returns the validated options of the most recent Open.
func (b *FakeBackend) LastOptions() providers.Options {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastOpt
}

// FakeEngine is an inference.Engine that evaluates a ScoreFunc.
type FakeEngine struct {
	in, out  inference.TensorSpec
	scores   ScoreFunc
	delegate *providers.Delegate
	result   *tensor.Dense

	// Runs counts successful Run calls.
	Runs int
	// LastInput is a copy of the most recent input buffer.
	LastInput *tensor.Dense
	closed    bool
}

// Input implements inference.Engine.
func (e *FakeEngine) Input() inference.TensorSpec { return e.in }

// Output implements inference.Engine.
func (e *FakeEngine) Output() inference.TensorSpec { return e.out }

// Run implements inference.Engine.
func (e *FakeEngine) Run(input *tensor.Dense) (*tensor.Dense, error) {
	if e.closed {
		return nil, inference.ErrEngineClosed
	}
	if err := inference.ValidateInput(e.in, input); err != nil {
		return nil, err
	}
	e.LastInput = input.Clone().(*tensor.Dense)

	var raw []float32
	if e.scores != nil {
		raw = e.scores(input)
	}
	switch data := e.result.Data().(type) {
	case []float32:
		for i := range data {
			data[i] = at(raw, i)
		}
	case []uint8:
		for i := range data {
			data[i] = uint8(math32.Max(0, math32.Min(255, math32.Round(at(raw, i)))))
		}
	}
	e.Runs++
	return e.result, nil
}

// Close implements inference.Engine.
func (e *FakeEngine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.delegate.Release()
}

// Closed reports whether Close was called.
func (e *FakeEngine) Closed() bool { return e.closed }

func at(v []float32, i int) float32 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// ConstantScores returns the same raw scores for every input.
func ConstantScores(scores ...float32) ScoreFunc {
	return func(*tensor.Dense) []float32 { return scores }
}

// QuantizedSpecs returns the specs of a uint8 NHWC model with a size×size input.
func QuantizedSpecs(size, classes int) (inference.TensorSpec, inference.TensorSpec) {
	return inference.TensorSpec{
			Name:   "input",
			Shape:  tensor.Shape{1, size, size, inference.ImageChannels},
			Dtype:  tensor.Uint8,
			Layout: inference.LayoutNHWC,
		}, inference.TensorSpec{
			Name:   "scores",
			Shape:  tensor.Shape{1, classes},
			Dtype:  tensor.Uint8,
			Layout: inference.LayoutFlat,
		}
}

// FloatSpecs returns the specs of a float32 NCHW model with a size×size input.
func FloatSpecs(size, classes int) (inference.TensorSpec, inference.TensorSpec) {
	return inference.TensorSpec{
			Name:   "input",
			Shape:  tensor.Shape{1, inference.ImageChannels, size, size},
			Dtype:  tensor.Float32,
			Layout: inference.LayoutNCHW,
		}, inference.TensorSpec{
			Name:   "scores",
			Shape:  tensor.Shape{1, classes},
			Dtype:  tensor.Float32,
			Layout: inference.LayoutFlat,
		}
}

// WriteArtifacts writes a placeholder model and a label file for kind into a
// temporary directory and returns the preset variant pointing at them.
func WriteArtifacts(t testing.TB, kind models.VariantKind, labels ...string) models.Variant {
	t.Helper()

	dir := t.TempDir()
	variant, err := models.Preset(kind, dir, FakeExtension)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(variant.ModelPath, []byte("fake-model"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, models.LabelFileName), []byte(strings.Join(labels, "\n")+"\n"), 0o600))
	return variant
}

// Uniform returns a w×h image filled with c.
func Uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}
