package crowdcount

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"gonum.org/v1/gonum/stat"
)

// DefaultBenchmarkRuns is the number of times the same input is submitted
// when benchmarking
const DefaultBenchmarkRuns = 5

// BenchmarkResult holds the per call latencies of a benchmark run and the
// output of the first call
type BenchmarkResult struct {
	// Latencies in the order the calls were made
	Latencies []time.Duration
	// Output of the first call, later outputs are discarded
	Output Tensor
}

// Benchmark submits the same input to the engine runs times in immediate
// succession and measures the wall clock latency of each call.  Nothing is
// cached between calls.  A nil clk uses the system clock.
func Benchmark(e Engine, input Tensor, runs int, clk clock.Clock) (BenchmarkResult, error) {

	if runs < 1 {
		return BenchmarkResult{}, errors.New("benchmark needs at least one run")
	}

	if clk == nil {
		clk = clock.New()
	}

	res := BenchmarkResult{
		Latencies: make([]time.Duration, 0, runs),
	}

	for i := 0; i < runs; i++ {
		start := clk.Now()
		out, err := e.Infer(input)
		elapsed := clk.Since(start)

		if err != nil {
			return res, fmt.Errorf("benchmark run %d failed: %w", i+1, err)
		}

		if i == 0 {
			res.Output = out
		}

		res.Latencies = append(res.Latencies, elapsed)
	}

	return res, nil
}

// millis returns the latencies as float64 milliseconds
func (r BenchmarkResult) millis() []float64 {

	ms := make([]float64, len(r.Latencies))

	for i, l := range r.Latencies {
		ms[i] = float64(l) / float64(time.Millisecond)
	}

	return ms
}

// Mean returns the average latency
func (r BenchmarkResult) Mean() time.Duration {

	if len(r.Latencies) == 0 {
		return 0
	}

	return time.Duration(stat.Mean(r.millis(), nil) * float64(time.Millisecond))
}

// StdDev returns the sample standard deviation of the latencies, zero for
// less than two runs
func (r BenchmarkResult) StdDev() time.Duration {

	if len(r.Latencies) < 2 {
		return 0
	}

	return time.Duration(stat.StdDev(r.millis(), nil) * float64(time.Millisecond))
}

// Min returns the fastest latency
func (r BenchmarkResult) Min() time.Duration {

	var m time.Duration

	for i, l := range r.Latencies {
		if i == 0 || l < m {
			m = l
		}
	}

	return m
}

// Max returns the slowest latency
func (r BenchmarkResult) Max() time.Duration {

	var m time.Duration

	for _, l := range r.Latencies {
		if l > m {
			m = l
		}
	}

	return m
}
