// Package config loads classifier settings from YAML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/nvr-ai/go-classify/images"
	"github.com/nvr-ai/go-classify/inference"
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/nvr-ai/go-classify/models"
	"github.com/nvr-ai/go-classify/models/postprocess"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultArtifactDir is where model and label files are looked up when no
// explicit paths are configured.
const DefaultArtifactDir = "./data/models"

// Config holds everything needed to build a classifier.
type Config struct {
	// Backend is the registered runtime name.
	Backend inference.EngineType `json:"backend" yaml:"backend"`
	// Variant selects the float or quantized model build.
	Variant models.VariantKind `json:"variant" yaml:"variant"`
	// Acceleration selects cpu, npu or gpu.
	Acceleration providers.Acceleration `json:"acceleration" yaml:"acceleration"`
	// Threads is the CPU thread count of the runtime.
	Threads int `json:"threads" yaml:"threads"`
	// Threshold is the confidence a label must exceed to be reported.
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// ArtifactDir holds the default model and label files.
	ArtifactDir string `json:"artifact_dir" yaml:"artifact_dir"`
	// ModelPath overrides the model file resolved from ArtifactDir.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LabelPath overrides the label file resolved from ArtifactDir.
	LabelPath string `json:"label_path" yaml:"label_path"`
	// Resize is the resampling filter: nearest, bilinear or lanczos.
	Resize images.ResampleFilter `json:"resize" yaml:"resize"`
	// SharedLibraryPath points the runtime at its native library.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
	// DeviceID selects the accelerator device.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// LogLevel is a logrus level name.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Default returns the quantized model on one CPU thread with the ONNX backend.
func Default() Config {
	return Config{
		Backend:      inference.EngineONNX,
		Variant:      models.VariantQuantized,
		Acceleration: providers.CPU,
		Threads:      providers.DefaultThreads,
		Threshold:    postprocess.DefaultThreshold,
		ArtifactDir:  DefaultArtifactDir,
		Resize:       images.NearestNeighborFilter,
		LogLevel:     logrus.InfoLevel.String(),
	}
}

// Load reads a YAML file on top of Default.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if the file cannot be read, parsed or validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", c.Threads)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %v", c.Threshold)
	}
	if _, err := models.ParseVariantKind(string(c.Variant)); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrap(err, "log_level")
		}
	}
	return nil
}

// ModelVariant resolves the model build against the artifact directory and the
// extension of the backend. Explicit model and label paths win.
func (c Config) ModelVariant(ext string) (models.Variant, error) {
	dir := c.ArtifactDir
	if dir == "" {
		dir = DefaultArtifactDir
	}
	v, err := models.Preset(c.Variant, dir, ext)
	if err != nil {
		return models.Variant{}, err
	}
	if c.ModelPath != "" {
		v.ModelPath = c.ModelPath
	}
	if c.LabelPath != "" {
		v.LabelPath = c.LabelPath
	}
	return v, nil
}
