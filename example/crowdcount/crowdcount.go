/*
Crowd counting demo.  Estimates the number of people in an image, video file
or camera stream with a density estimation model and renders the frame next
to a heatmap of the density map.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/swdee/go-crowdcount"
	"github.com/swdee/go-crowdcount/pipeline"
	"github.com/swdee/go-crowdcount/postprocess"
	"github.com/swdee/go-crowdcount/preprocess"
	"github.com/swdee/go-crowdcount/render"
	"github.com/swdee/go-crowdcount/sink"
	"github.com/swdee/go-crowdcount/source"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	// Flags.
	flagInput     = "input"
	flagVideo     = "video"
	flagSavePath  = "savepath"
	flagBenchmark = "benchmark"
	flagConfig    = "config"
	flagEngine    = "engine"
	flagAddr      = "addr"
	flagHeadless  = "headless"
	flagDebug     = "debug"

	windowTitle = "frame"
)

func main() {

	app := &cli.App{
		Name:  "crowdcount",
		Usage: "estimate the number of people in an image or video",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagInput,
				Aliases: []string{"i"},
				Value:   "test.jpeg",
				Usage:   "input image `PATH`",
			},
			&cli.StringFlag{
				Name:    flagVideo,
				Aliases: []string{"v"},
				Usage:   "video file `PATH`, or 0 for the webcam, switches to streaming mode",
			},
			&cli.StringFlag{
				Name:    flagSavePath,
				Aliases: []string{"s"},
				Value:   "result.png",
				Usage:   "output `PATH`, in streaming mode a video is only saved when changed from the default",
			},
			&cli.BoolFlag{
				Name:    flagBenchmark,
				Aliases: []string{"b"},
				Usage:   "time repeated inference on the input image",
			},
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from YAML `FILE`",
			},
			&cli.StringFlag{
				Name:    flagEngine,
				Aliases: []string{"e"},
				Value:   "onnx",
				Usage:   fmt.Sprintf("inference engine %v", engineNames()),
			},
			&cli.StringFlag{
				Name:    flagAddr,
				Aliases: []string{"a"},
				Usage:   "serve the MJPEG stream and metrics on `HOST:PORT` in streaming mode",
			},
			&cli.BoolFlag{
				Name:  flagHeadless,
				Usage: "do not open a display window in streaming mode",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns a console logger, verbose when debug is set
func newLogger(debug bool) (*zap.Logger, error) {

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}

func run(c *cli.Context) error {

	log, err := newLogger(c.Bool(flagDebug))

	if err != nil {
		return cli.Exit(fmt.Sprintf("Error creating logger: %v", err), 1)
	}

	defer log.Sync()

	cfg, err := crowdcount.LoadConfig(c.Path(flagConfig))

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, c.String(flagEngine), cfg, log)

	if err != nil {
		return cli.Exit(fmt.Sprintf("Error initializing %s engine: %v",
			c.String(flagEngine), err), 1)
	}

	defer engine.Close()

	heatmap, closeLabel, err := newHeatmap(cfg.Render)

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	defer closeLabel()

	reg := prometheus.NewRegistry()

	p := pipeline.New(engine, pipeline.Options{
		InputSize: image.Pt(cfg.Input.Width, cfg.Input.Height),
		Tensor: preprocess.TensorOptions{
			Order:     cfg.Input.ChannelOrder,
			Normalize: cfg.Input.Normalize,
		},
		Heatmap:       heatmap,
		Metrics:       pipeline.NewMetrics(reg),
		BenchmarkRuns: cfg.Benchmark.Runs,
		Log:           log,
	})

	savePath := cfg.Input.DefaultSavePath

	if c.IsSet(flagSavePath) {
		savePath = c.String(flagSavePath)
	}

	if c.IsSet(flagVideo) {
		if c.Bool(flagBenchmark) {
			log.Warn("benchmark is only supported in image mode, ignoring")
		}

		err = runVideo(ctx, c, p, cfg, savePath, reg, log)

	} else {
		input := cfg.Input.DefaultImage

		if c.IsSet(flagInput) {
			input = c.String(flagInput)
		}

		err = runImage(p, input, savePath, c.Bool(flagBenchmark), log)
	}

	if err != nil {
		return err
	}

	fmt.Println("Script finished successfully.")

	return nil
}

// newHeatmap creates the heatmap renderer, the returned func releases the
// label font
func newHeatmap(rc crowdcount.RenderConfig) (*postprocess.Heatmap, func(), error) {

	cmap, err := postprocess.ColormapByName(rc.Colormap)

	if err != nil {
		return nil, nil, err
	}

	params := postprocess.HeatmapDefaultParams()
	params.Colormap = cmap
	params.Anchor = image.Pt(rc.AnchorX, rc.AnchorY)

	closeLabel := func() {}

	if rc.FontFile != "" {
		ttf, err := render.LoadTTFFont(rc.FontFile, rc.FontSize, render.White)

		if err != nil {
			return nil, nil, err
		}

		params.Label = ttf
		closeLabel = func() { ttf.Close() }

	} else {
		font := render.DefaultFont()
		font.Scale = rc.FontScale
		font.Thickness = rc.Thickness
		params.Label = font
	}

	return postprocess.NewHeatmap(params), closeLabel, nil
}

// runImage estimates the count of a single image and saves the composite
func runImage(p *pipeline.Pipeline, input, savePath string, benchmark bool,
	log *zap.Logger) error {

	res, err := p.ProcessImage(input, savePath, benchmark)

	if err != nil {
		return cli.Exit(fmt.Sprintf("Error processing image %s: %v", input, err), 1)
	}

	if res.Benchmark != nil {
		for _, l := range res.Benchmark.Latencies {
			fmt.Printf("\tprocessing time %d ms\n", l.Milliseconds())
		}

		log.Info("benchmark",
			zap.Int("runs", len(res.Benchmark.Latencies)),
			zap.Duration("mean", res.Benchmark.Mean()),
			zap.Duration("stddev", res.Benchmark.StdDev()),
			zap.Duration("min", res.Benchmark.Min()),
			zap.Duration("max", res.Benchmark.Max()),
		)
	}

	log.Info("estimated count", zap.Int("count", res.Count))

	return nil
}

// runVideo streams the video file or camera through the pipeline
func runVideo(ctx context.Context, c *cli.Context, p *pipeline.Pipeline,
	cfg crowdcount.Config, savePath string, reg *prometheus.Registry,
	log *zap.Logger) error {

	var sinks []sink.Sink

	if addr := c.String(flagAddr); addr != "" {
		stream := sink.NewMJPEG(log)
		srv := sink.NewServer(addr, stream, reg, log)

		if err := srv.Start(); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		defer srv.Close()

		sinks = append(sinks, stream)
	}

	capture, err := source.Open(c.String(flagVideo))

	if errors.Is(err, source.ErrDeviceUnavailable) {
		return cli.Exit("[ERROR] webcamera not found", 1)
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("Error opening video: %v", err), 1)
	}

	if savePath != cfg.Input.DefaultSavePath {
		fs := capture.FrameSize()
		fit := preprocess.FitFrameSize(fs.X, fs.Y, cfg.Input.Width, cfg.Input.Height)

		sinks = append(sinks, sink.NewVideoWriter(savePath, cfg.Video.FourCC,
			cfg.Video.FPS, image.Pt(fit.X*2, fit.Y)))
	}

	var display pipeline.Display

	if !c.Bool(flagHeadless) {
		display = sink.NewWindow(windowTitle)
	}

	stats, err := p.Stream(ctx, capture, display, sinks...)

	if err != nil {
		return cli.Exit(fmt.Sprintf("Error streaming video: %v", err), 1)
	}

	log.Info("streaming stopped",
		zap.Int("frames", stats.Frames),
		zap.Stringer("reason", stats.Reason),
	)

	return nil
}
