// Package benchmark - Measures classifier throughput over source resolutions.
package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nvr-ai/go-classify/classifier"
	"github.com/nvr-ai/go-classify/images"
	"github.com/nvr-ai/go-classify/profiler"
	"github.com/nvr-ai/go-classify/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Resolution represents source image dimensions for benchmarking.
type Resolution struct {
	Width  int    `json:"width"  yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Name   string `json:"name"   yaml:"name"`
}

// NewResolution returns a resolution named WxH.
func NewResolution(width, height int) Resolution {
	return Resolution{Width: width, Height: height, Name: fmt.Sprintf("%dx%d", width, height)}
}

// CommonResolutions are typical camera and still-image sizes.
var CommonResolutions = []Resolution{
	NewResolution(224, 224),
	NewResolution(640, 480),
	NewResolution(1280, 720),
	NewResolution(1920, 1080),
	NewResolution(3840, 2160),
}

// Scenario defines one benchmark configuration.
type Scenario struct {
	Name       string     `json:"name"        yaml:"name"`
	Resolution Resolution `json:"resolution"  yaml:"resolution"`
	Iterations int        `json:"iterations"  yaml:"iterations"`
	WarmupRuns int        `json:"warmup_runs" yaml:"warmup_runs"`
}

// DefaultScenarios returns one scenario per common resolution.
func DefaultScenarios(iterations, warmups int) []Scenario {
	scenarios := make([]Scenario, len(CommonResolutions))
	for i, r := range CommonResolutions {
		scenarios[i] = Scenario{Name: "classify-" + r.Name, Resolution: r, Iterations: iterations, WarmupRuns: warmups}
	}
	return scenarios
}

// Classifier is the part of classifier.Classifier a benchmark drives.
type Classifier interface {
	Classify(img image.Image) ([]classifier.Recognition, error)
	Timings() map[profiler.Stage]time.Duration
}

// Suite manages and executes benchmark scenarios against one classifier.
type Suite struct {
	classifier Classifier
	outputDir  string
	log        logrus.FieldLogger

	mu        sync.RWMutex
	scenarios []Scenario
	corpus    []image.Image
	results   []PerformanceMetrics
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - c: The classifier under test.
//   - outputDir: Where SaveResults writes; empty disables saving.
//   - log: The logger. Nil uses the logrus standard logger.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(c Classifier, outputDir string, log logrus.FieldLogger) *Suite {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Suite{classifier: c, outputDir: outputDir, log: log}
}

// AddScenario adds a scenario to the suite.
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// AddImages adds decoded images to the corpus.
func (s *Suite) AddImages(imgs ...image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = append(s.corpus, imgs...)
}

// LoadCorpus decodes an image file, or every image in a directory, into the corpus.
// Files that fail to decode are skipped.
func (s *Suite) LoadCorpus(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat corpus")
	}

	var files []util.ImageFile
	if info.IsDir() {
		if files, err = util.LoadDirectoryImageFiles(path); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read corpus image")
		}
		files = []util.ImageFile{{Path: path, Data: data}}
	}

	loaded := 0
	for _, f := range files {
		img, _, err := images.Decode(f.Data)
		if err != nil {
			s.log.WithError(err).WithField("path", f.Path).Warn("skipping corpus image")
			continue
		}
		s.AddImages(img)
		loaded++
	}
	if loaded == 0 {
		return errors.Errorf("no decodable images in %s", path)
	}
	return nil
}

// RunScenario executes one scenario. Corpus images are resampled to the
// scenario resolution before timing starts.
//
// Arguments:
//   - ctx: Cancels the run between iterations.
//   - scenario: The scenario.
//
// Returns:
//   - *PerformanceMetrics: The measured metrics.
//   - error: An error if the corpus is empty or ctx is cancelled.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	inputs, err := s.prepare(scenario.Resolution)
	if err != nil {
		return nil, err
	}
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s has no iterations", scenario.Name)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		_, _ = s.classifier.Classify(inputs[i%len(inputs)])
	}

	stages := profiler.New()
	startMem := readMemStats()
	started := time.Now()
	recognitions, failures := 0, 0

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := s.classifier.Classify(inputs[i%len(inputs)])
		if err != nil {
			failures++
			continue
		}
		recognitions += len(got)
		for stage, d := range s.classifier.Timings() {
			stages.Record(stage, d)
		}
	}

	total := time.Since(started)
	endMem := readMemStats()

	metrics := &PerformanceMetrics{
		Scenario:         scenario,
		Timestamp:        started,
		TotalDuration:    total,
		FramesPerSecond:  float64(scenario.Iterations-failures) / total.Seconds(),
		MemoryStats:      memoryDelta(startMem, endMem),
		CPUStats:         CPUMetrics{NumCPU: runtime.NumCPU(), GOMAXPROCS: runtime.GOMAXPROCS(0)},
		RecognitionCount: recognitions,
		ErrorRate:        float64(failures) / float64(scenario.Iterations),
	}
	if t, ok := stages.Get(profiler.StagePreprocess); ok {
		metrics.PreprocessDuration = t.Mean()
	}
	if t, ok := stages.Get(profiler.StageInference); ok {
		metrics.InferenceDuration = t.Mean()
	}
	if t, ok := stages.Get(profiler.StagePostprocess); ok {
		metrics.PostProcessDuration = t.Mean()
	}
	return metrics, nil
}

func (s *Suite) prepare(r Resolution) ([]image.Image, error) {
	s.mu.RLock()
	corpus := append([]image.Image(nil), s.corpus...)
	s.mu.RUnlock()

	if len(corpus) == 0 {
		return nil, errors.New("benchmark corpus is empty")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return corpus, nil
	}

	out := make([]image.Image, len(corpus))
	for i, img := range corpus {
		dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
		if err := images.ResizeInto(dst, img, img.Bounds(), images.BilinearFilter); err != nil {
			return nil, errors.Wrapf(err, "resample corpus image %d", i)
		}
		out[i] = dst
	}
	return out, nil
}

// RunAllScenarios executes every scenario and saves the results. A failed
// scenario is logged and skipped.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	s.mu.RLock()
	scenarios := append([]Scenario(nil), s.scenarios...)
	s.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.log.WithError(err).WithField("scenario", scenario.Name).Error("scenario failed")
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.log.WithFields(logrus.Fields{
			"scenario":   scenario.Name,
			"fps":        fmt.Sprintf("%.2f", metrics.FramesPerSecond),
			"preprocess": metrics.PreprocessDuration,
			"inference":  metrics.InferenceDuration,
			"errors":     metrics.ErrorRate,
		}).Info("scenario completed")
	}

	if s.outputDir == "" {
		return nil
	}
	_, err := s.SaveResults()
	return err
}

// SaveResults writes the results as JSON and a CSV summary.
//
// Returns:
//   - []string: The written file paths.
//   - error: An error if the files cannot be written.
func (s *Suite) SaveResults() ([]string, error) {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}

	stamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", stamp))
	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", stamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "write results")
	}
	if err := writeSummaryCSV(summaryFile, results); err != nil {
		return nil, errors.Wrap(err, "write summary")
	}

	s.log.WithFields(logrus.Fields{"results": resultsFile, "summary": summaryFile}).Info("saved benchmark results")
	return []string{resultsFile, summaryFile}, nil
}

func writeSummaryCSV(path string, results []PerformanceMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"scenario", "resolution", "fps", "total_ms", "preprocess_ms", "inference_ms", "postprocess_ms", "alloc_mb", "recognitions", "error_rate"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{
			r.Scenario.Name,
			r.Scenario.Resolution.Name,
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			millis(r.TotalDuration),
			millis(r.PreprocessDuration),
			millis(r.InferenceDuration),
			millis(r.PostProcessDuration),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.RecognitionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Nanoseconds())/1e6, 'f', 3, 64)
}

// Results returns a copy of the collected results.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}
