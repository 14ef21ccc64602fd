// Command classify labels images with a pre-trained classifier.
//
//	classify -image cat.jpg
//	classify -config classify.yaml -dir ./frames
//	classify -accel npu -camera 0 -frames 100
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nvr-ai/go-classify/benchmark"
	"github.com/nvr-ai/go-classify/classifier"
	"github.com/nvr-ai/go-classify/config"
	"github.com/nvr-ai/go-classify/images"
	"github.com/nvr-ai/go-classify/inference"
	_ "github.com/nvr-ai/go-classify/inference/onnx" // register backend
	"github.com/nvr-ai/go-classify/inference/providers"
	"github.com/nvr-ai/go-classify/models"
	"github.com/nvr-ai/go-classify/models/postprocess"
	"github.com/nvr-ai/go-classify/profiler"
	"github.com/nvr-ai/go-classify/util"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	// noCamera disables camera capture.
	noCamera = -1
	// defaultThreshold follows the library default.
	defaultThreshold = float64(postprocess.DefaultThreshold)
)

func main() {
	var (
		configPath string
		backend    string
		variant    string
		accel      string
		threads    int
		threshold  float64
		artifacts  string
		modelPath  string
		labelPath  string
		resize     string
		libPath    string
		imagePath  string
		dirPath    string
		camera     int
		frames     int
		bench      int
		benchOut   string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&backend, "backend", string(inference.EngineONNX), "Inference backend")
	flag.StringVar(&variant, "variant", string(models.VariantQuantized), "Model variant: float or quantized")
	flag.StringVar(&accel, "accel", providers.CPU.String(), "Acceleration: cpu, npu or gpu")
	flag.IntVar(&threads, "threads", providers.DefaultThreads, "CPU threads of the runtime")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "Report labels with a confidence above this value")
	flag.StringVar(&artifacts, "artifacts", config.DefaultArtifactDir, "Directory with the model and label files")
	flag.StringVar(&modelPath, "model", "", "Model file; overrides -artifacts")
	flag.StringVar(&labelPath, "labels", "", "Label file; overrides -artifacts")
	flag.StringVar(&resize, "resize", images.NearestNeighborFilter.String(), "Resampling filter: nearest, bilinear or lanczos")
	flag.StringVar(&libPath, "lib", "", "Path to the runtime shared library")
	flag.StringVar(&imagePath, "image", "", "Image file to classify")
	flag.StringVar(&dirPath, "dir", "", "Directory of images to classify")
	flag.IntVar(&camera, "camera", noCamera, "Video capture device to classify frames from")
	flag.IntVar(&frames, "frames", 0, "Stop after this many camera frames; 0 runs until interrupted")
	flag.IntVar(&bench, "bench", 0, "Benchmark this many iterations per resolution over -image or -dir")
	flag.StringVar(&benchOut, "bench-out", "benchmark_results", "Directory for benchmark results")
	flag.BoolVar(&verbose, "v", false, "Log stage timings")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.WithError(err).Fatal("failed to load configuration")
		}
	}
	if err := applyFlags(&cfg, map[string]string{
		"backend":   backend,
		"variant":   variant,
		"accel":     accel,
		"threads":   fmt.Sprint(threads),
		"threshold": fmt.Sprint(threshold),
		"artifacts": artifacts,
		"model":     modelPath,
		"labels":    labelPath,
		"resize":    resize,
		"lib":       libPath,
	}); err != nil {
		log.WithError(err).Fatal("invalid flags")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if imagePath == "" && dirPath == "" && camera == noCamera {
		fmt.Fprintln(os.Stderr, "one of -image, -dir or -camera is required")
		flag.Usage()
		os.Exit(2)
	}

	c, err := classifier.NewFromConfig(cfg, classifier.WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("failed to create classifier")
	}
	defer c.Close()

	switch {
	case bench > 0:
		err = runBenchmark(c, log, firstNonEmpty(imagePath, dirPath), bench, benchOut)
	case imagePath != "":
		err = classifyFile(c, imagePath)
	case dirPath != "":
		err = classifyDir(c, log, dirPath)
	default:
		err = classifyCamera(c, log, camera, frames)
	}
	if err != nil {
		c.Close()
		log.WithError(err).Fatal("classification failed")
	}

	if verbose {
		for _, stage := range profiler.Stages {
			if t, ok := c.Profiler().Get(stage); ok {
				log.WithFields(logrus.Fields{
					"stage": string(stage),
					"count": t.Count,
					"mean":  t.Mean(),
					"min":   t.Min,
					"max":   t.Max,
				}).Debug("stage timings")
			}
		}
	}
}

// applyFlags overlays the flags that were set explicitly on cfg.
func applyFlags(cfg *config.Config, values map[string]string) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		v := values[f.Name]
		switch f.Name {
		case "backend":
			cfg.Backend = inference.EngineType(v)
		case "variant":
			err = cfg.Variant.UnmarshalText([]byte(v))
		case "accel":
			err = cfg.Acceleration.UnmarshalText([]byte(v))
		case "threads":
			_, err = fmt.Sscan(v, &cfg.Threads)
		case "threshold":
			_, err = fmt.Sscan(v, &cfg.Threshold)
		case "artifacts":
			cfg.ArtifactDir = v
		case "model":
			cfg.ModelPath = v
		case "labels":
			cfg.LabelPath = v
		case "resize":
			err = cfg.Resize.UnmarshalText([]byte(v))
		case "lib":
			cfg.SharedLibraryPath = v
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func classifyFile(c *classifier.Classifier, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	img, _, err := images.Decode(data)
	if err != nil {
		return err
	}
	return report(c, path, img)
}

func classifyDir(c *classifier.Classifier, log logrus.FieldLogger, dir string) error {
	files, err := util.ListDirectoryImages(dir)
	if err != nil {
		return err
	}
	log.WithField("images", len(files)).Info("classifying directory")

	for _, path := range files {
		if err := classifyFile(c, path); err != nil {
			log.WithError(err).WithField("path", path).Warn("skipping image")
		}
	}
	return nil
}

func classifyCamera(c *classifier.Classifier, log logrus.FieldLogger, deviceID, limit int) error {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", deviceID, err)
	}
	defer webcam.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	log.WithField("device", deviceID).Info("reading camera")
	started := time.Now()
	for n := 0; limit == 0 || n < limit; n++ {
		select {
		case <-interrupt:
			return nil
		default:
		}

		if ok := webcam.Read(&mat); !ok {
			return fmt.Errorf("cannot read camera %d", deviceID)
		}
		if mat.Empty() {
			continue
		}
		img, err := mat.ToImage()
		if err != nil {
			return err
		}
		if err := report(c, fmt.Sprintf("frame %d", n), img); err != nil {
			return err
		}
		if n > 0 && n%30 == 0 {
			log.WithField("fps", float64(n)/time.Since(started).Seconds()).Debug("camera throughput")
		}
	}
	return nil
}

func runBenchmark(c *classifier.Classifier, log logrus.FieldLogger, corpus string, iterations int, out string) error {
	if corpus == "" {
		return fmt.Errorf("-bench needs -image or -dir")
	}
	suite := benchmark.NewSuite(c, out, log)
	if err := suite.LoadCorpus(corpus); err != nil {
		return err
	}
	for _, scenario := range benchmark.DefaultScenarios(iterations, iterations/10) {
		suite.AddScenario(scenario)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return suite.RunAllScenarios(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func report(c *classifier.Classifier, source string, img image.Image) error {
	recognitions, err := c.Classify(img)
	if err != nil {
		return err
	}
	if len(recognitions) == 0 {
		fmt.Printf("%s: no label above %.2f\n", source, c.Threshold())
		return nil
	}
	parts := make([]string, len(recognitions))
	for i, r := range recognitions {
		parts[i] = r.String()
	}
	fmt.Printf("%s: %s\n", source, strings.Join(parts, ", "))
	return nil
}
