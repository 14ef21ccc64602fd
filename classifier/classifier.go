// Package classifier classifies single images with a pre-trained network and
// reports the labels whose confidence exceeds a threshold.
//
// A Classifier owns its engine, acceleration delegate and buffers. It is not
// safe for concurrent use; serialize calls or create one per goroutine.
package classifier

import (
	"fmt"
	"image"
	"time"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-classify/config"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/nvr-ai/go-classify/models"
	"github.com/nvr-ai/go-classify/models/postprocess"
	"github.com/nvr-ai/go-classify/models/preprocess"
	"github.com/nvr-ai/go-classify/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// Classifier runs the crop, inference and labeling pipeline for one model variant.
type Classifier struct {
	variant   models.Variant
	threshold float32
	log       logrus.FieldLogger

	engine   inference.Engine
	inSpec   inference.TensorSpec
	outSpec  inference.TensorSpec
	labels   models.LabelSet
	pre      *preprocess.Preprocessor
	input    *tensor.Dense
	profiler *profiler.Profiler
	closed   bool
}

// New loads the variant's artifacts, opens an engine with the requested
// acceleration and allocates the input buffer.
//
// Arguments:
//   - variant: Artifacts and normalization of the model build.
//   - accel: The hardware to delegate execution to. No fallback is attempted.
//   - threads: CPU threads for the runtime; zero means one.
//   - opts: Optional settings.
//
// Returns:
//   - *Classifier: A ready classifier.
//   - error: An *InitError; nothing acquired before the failure is kept.
func New(variant models.Variant, accel providers.Acceleration, threads int, opts ...Option) (*Classifier, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	c, err := newClassifier(variant, accel, threads, s)
	if err != nil {
		return nil, &InitError{Err: err}
	}
	return c, nil
}

// NewFromConfig builds a classifier from a loaded configuration. Options are
// applied after the configuration and take precedence.
//
// Arguments:
//   - cfg: The configuration; see config.Load.
//   - opts: Optional settings.
//
// Returns:
//   - *Classifier: A ready classifier.
//   - error: An *InitError.
func NewFromConfig(cfg config.Config, opts ...Option) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Err: err}
	}

	s := defaultSettings()
	if cfg.Backend != "" {
		s.backendName = cfg.Backend
	}
	s.threshold = cfg.Threshold
	s.filter = cfg.Resize
	s.sharedLib = cfg.SharedLibraryPath
	s.deviceID = cfg.DeviceID
	for _, opt := range opts {
		opt(&s)
	}

	backend, err := s.resolveBackend()
	if err != nil {
		return nil, &InitError{Err: err}
	}
	s.backend = backend

	variant, err := cfg.ModelVariant(backend.Extension())
	if err != nil {
		return nil, &InitError{Err: err}
	}

	c, err := newClassifier(variant, cfg.Acceleration, cfg.Threads, s)
	if err != nil {
		return nil, &InitError{Err: err}
	}
	return c, nil
}

func newClassifier(variant models.Variant, accel providers.Acceleration, threads int, s settings) (*Classifier, error) {
	if err := variant.Validate(); err != nil {
		return nil, err
	}
	if math32.IsNaN(s.threshold) || math32.IsInf(s.threshold, 0) {
		return nil, fmt.Errorf("threshold must be finite, got %v", s.threshold)
	}

	backend, err := s.resolveBackend()
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"backend":      backend.Name(),
		"variant":      string(variant.Kind),
		"acceleration": accel.String(),
	})

	started := time.Now()
	artifacts, err := models.Load(variant.ModelPath, variant.LabelPath)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"model":  artifacts.ModelPath,
		"labels": artifacts.Labels.Len(),
	}).Info("loaded model artifacts")

	engine, err := backend.Open(artifacts.Model, providers.Options{
		Acceleration:      accel,
		Threads:           threads,
		SharedLibraryPath: s.sharedLib,
		DeviceID:          s.deviceID,
	})
	if err != nil {
		return nil, err
	}

	if classes := engine.Output().Classes(); classes != artifacts.Labels.Len() {
		engine.Close()
		return nil, fmt.Errorf("%w: model has %d classes, label file has %d",
			postprocess.ErrShapeMismatch, classes, artifacts.Labels.Len())
	}

	pre, err := preprocess.NewPreprocessor(engine.Input(), variant.Input, s.filter)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("%w: %w", inference.ErrUnsupportedModel, err)
	}

	log.WithFields(logrus.Fields{
		"input_shape":  fmt.Sprint(engine.Input().Shape),
		"input_type":   engine.Input().Dtype.String(),
		"output_shape": fmt.Sprint(engine.Output().Shape),
		"threshold":    s.threshold,
		"took":         time.Since(started),
	}).Info("created classifier")

	return &Classifier{
		variant:   variant,
		threshold: s.threshold,
		log:       log,
		engine:    engine,
		inSpec:    engine.Input(),
		outSpec:   engine.Output(),
		labels:    artifacts.Labels,
		pre:       pre,
		input:     inference.NewBuffer(engine.Input()),
		profiler:  profiler.New(),
	}, nil
}

// Classify returns the labels whose normalized confidence is strictly above
// the threshold, in label order. The result is empty, not nil, when nothing passes.
//
// Arguments:
//   - img: A decoded image of any size; it is center-cropped to a square.
//
// Returns:
//   - []Recognition: Labels above the threshold.
//   - error: ErrUseAfterClose after Close, preprocess.ErrInvalidImage for empty
//     images, inference.ErrInference or postprocess.ErrShapeMismatch on failure.
func (c *Classifier) Classify(img image.Image) ([]Recognition, error) {
	if c.closed {
		return nil, ErrUseAfterClose
	}

	stop := c.profiler.StartOperation(profiler.StagePreprocess)
	if err := c.pre.Process(img, c.input); err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}
	preTook := stop()

	stop = c.profiler.StartOperation(profiler.StageInference)
	raw, err := c.engine.Run(c.input)
	if err != nil {
		return nil, errors.Wrap(err, "run model")
	}
	runTook := stop()

	stop = c.profiler.StartOperation(profiler.StagePostprocess)
	probs, err := postprocess.Process(raw, c.variant.Output, c.labels)
	if err != nil {
		return nil, errors.Wrap(err, "postprocess")
	}
	passed := postprocess.Filter(probs, c.threshold)
	recognitions := make([]Recognition, len(passed))
	for i, p := range passed {
		recognitions[i] = Recognition{Label: p.Label, Score: p.Score}
	}
	postTook := stop()

	c.log.WithFields(logrus.Fields{
		"preprocess":   preTook,
		"inference":    runTook,
		"postprocess":  postTook,
		"recognitions": len(recognitions),
	}).Debug("classified image")

	return recognitions, nil
}

// Close releases the engine, its delegate and the buffers. Calls after the
// first are no-ops.
func (c *Classifier) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.engine.Close()
	c.engine = nil
	c.pre = nil
	c.input = nil
	c.labels = models.LabelSet{}

	c.log.Info("closed classifier")
	if err != nil {
		return errors.Wrap(err, "close engine")
	}
	return nil
}

// InputShape returns the model input shape.
func (c *Classifier) InputShape() tensor.Shape {
	return c.inSpec.Shape.Clone()
}

// OutputShape returns the model output shape.
func (c *Classifier) OutputShape() tensor.Shape {
	return c.outSpec.Shape.Clone()
}

// InputType returns the element type of the model input.
func (c *Classifier) InputType() tensor.Dtype {
	return c.inSpec.Dtype
}

// Labels returns the class labels in output order.
func (c *Classifier) Labels() []string {
	return c.labels.Names()
}

// Threshold returns the confidence a label must exceed to be reported.
func (c *Classifier) Threshold() float32 {
	return c.threshold
}

// Timings returns the duration of each stage of the most recent Classify call.
func (c *Classifier) Timings() map[profiler.Stage]time.Duration {
	return c.profiler.Last()
}

// Profiler returns the accumulated stage statistics.
func (c *Classifier) Profiler() *profiler.Profiler {
	return c.profiler
}
