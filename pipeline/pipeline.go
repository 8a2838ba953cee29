// Package pipeline joins the frame source, inference engine, heatmap
// renderer and sinks into the single image and streaming workflows.
package pipeline

import (
	"fmt"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/swdee/go-crowdcount"
	"github.com/swdee/go-crowdcount/postprocess"
	"github.com/swdee/go-crowdcount/preprocess"
	"github.com/swdee/go-crowdcount/sink"
	"github.com/swdee/go-crowdcount/source"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Options configure a Pipeline, zero values are replaced with defaults
type Options struct {
	// InputSize is the model input width and height
	InputSize image.Point
	// Tensor controls channel order and normalization of the input tensor
	Tensor preprocess.TensorOptions
	// Heatmap renders the composite output
	Heatmap *postprocess.Heatmap
	// Metrics are updated per processed frame
	Metrics *Metrics
	// BenchmarkRuns is the number of timed inferences in benchmark mode
	BenchmarkRuns int
	Log           *zap.Logger
	Clock         clock.Clock
}

// Pipeline runs density estimation on frames and renders the composite
type Pipeline struct {
	engine  crowdcount.Engine
	size    image.Point
	topts   preprocess.TensorOptions
	heatmap *postprocess.Heatmap
	metrics *Metrics
	runs    int
	log     *zap.Logger
	clk     clock.Clock
}

// Result of estimating a single frame
type Result struct {
	// Count is the estimated number of people
	Count int
	// Density is the raw density map returned by the engine
	Density *crowdcount.DensityMap
	// Latency of the inference call, for benchmarks the first run
	Latency time.Duration
	// Benchmark holds all timed runs when benchmarking was requested
	Benchmark *crowdcount.BenchmarkResult
}

// New returns a pipeline running inference on engine
func New(engine crowdcount.Engine, opts Options) *Pipeline {

	p := &Pipeline{
		engine:  engine,
		size:    opts.InputSize,
		topts:   opts.Tensor,
		heatmap: opts.Heatmap,
		metrics: opts.Metrics,
		runs:    opts.BenchmarkRuns,
		log:     opts.Log,
		clk:     opts.Clock,
	}

	if p.size.X == 0 || p.size.Y == 0 {
		def := crowdcount.DefaultConfig().Input
		p.size = image.Pt(def.Width, def.Height)
	}

	if p.topts.Order == "" {
		p.topts.Order = crowdcount.BGR
	}

	if p.topts.Normalize == "" {
		p.topts.Normalize = crowdcount.NormalizeNone
	}

	if p.heatmap == nil {
		p.heatmap = postprocess.NewHeatmap(postprocess.HeatmapDefaultParams())
	}

	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}

	if p.runs < 1 {
		p.runs = crowdcount.DefaultBenchmarkRuns
	}

	if p.log == nil {
		p.log = zap.NewNop()
	}

	if p.clk == nil {
		p.clk = clock.New()
	}

	return p
}

// InputSize returns the model input size frames are prepared for
func (p *Pipeline) InputSize() image.Point {
	return p.size
}

// Estimate runs inference on the input image and renders the display image
// next to the density heatmap into dst
func (p *Pipeline) Estimate(display, input gocv.Mat, dst *gocv.Mat) (Result, error) {
	return p.estimate(display, input, dst, false)
}

func (p *Pipeline) estimate(display, input gocv.Mat, dst *gocv.Mat,
	benchmark bool) (Result, error) {

	tensor, err := preprocess.ToTensor(input, p.topts)

	if err != nil {
		return Result{}, err
	}

	var res Result
	var out crowdcount.Tensor

	if benchmark {
		bench, err := crowdcount.Benchmark(p.engine, tensor, p.runs, p.clk)

		if err != nil {
			return Result{}, err
		}

		res.Benchmark = &bench
		res.Latency = bench.Latencies[0]
		out = bench.Output

	} else {
		start := p.clk.Now()
		out, err = p.engine.Infer(tensor)
		res.Latency = p.clk.Since(start)

		if err != nil {
			return Result{}, fmt.Errorf("inference failed: %w", err)
		}
	}

	res.Density, err = crowdcount.NewDensityMap(out)

	if err != nil {
		return Result{}, err
	}

	res.Count, err = p.heatmap.Render(res.Density, display, dst)

	if err != nil {
		return Result{}, err
	}

	p.metrics.observe(res.Latency, res.Count)

	p.log.Debug("frame estimated",
		zap.Int("count", res.Count),
		zap.Duration("latency", res.Latency),
	)

	return res, nil
}

// ProcessImage estimates the crowd count of the image file at path and saves
// the composite to savePath.  With benchmark set inference is repeated and
// timed, only the first output is rendered.
func (p *Pipeline) ProcessImage(path, savePath string, benchmark bool) (Result, error) {

	img, err := source.LoadImage(path, p.size.X, p.size.Y)

	if err != nil {
		return Result{}, err
	}

	defer img.Close()

	composite := gocv.NewMat()
	defer composite.Close()

	res, err := p.estimate(img.Display, img.Input, &composite, benchmark)

	if err != nil {
		return res, err
	}

	if err := sink.WriteImage(savePath, composite); err != nil {
		return res, err
	}

	p.log.Info("saved result",
		zap.String("path", savePath),
		zap.Int("count", res.Count),
	)

	return res, nil
}
