package crowdcount

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepEngine returns a constant density map and advances a mock clock by a
// growing step on each call to simulate inference latency
type stepEngine struct {
	clk   *clock.Mock
	step  time.Duration
	calls int
	fail  int
}

func (e *stepEngine) Infer(input Tensor) (Tensor, error) {

	e.calls++

	if e.fail > 0 && e.calls == e.fail {
		return Tensor{}, errors.New("npu on fire")
	}

	e.clk.Add(time.Duration(e.calls) * e.step)

	data := make([]float32, 16)

	for i := range data {
		data[i] = float32(e.calls)
	}

	return Tensor{Shape: Shape{1, 1, 4, 4}, Data: data}, nil
}

func (e *stepEngine) InputShape() Shape {
	return Shape{1, 3, 16, 16}
}

func (e *stepEngine) Close() error {
	return nil
}

func TestBenchmarkFiveRuns(t *testing.T) {

	clk := clock.NewMock()
	eng := &stepEngine{clk: clk, step: 10 * time.Millisecond}

	res, err := Benchmark(eng, Tensor{}, DefaultBenchmarkRuns, clk)
	require.NoError(t, err)

	assert.Equal(t, 5, eng.calls)
	require.Len(t, res.Latencies, 5)

	for i, l := range res.Latencies {
		assert.Equal(t, time.Duration(i+1)*10*time.Millisecond, l)
	}

	assert.Equal(t, 30*time.Millisecond, res.Mean())
	assert.Equal(t, 10*time.Millisecond, res.Min())
	assert.Equal(t, 50*time.Millisecond, res.Max())
	assert.InDelta(t, float64(15811*time.Microsecond), float64(res.StdDev()), float64(time.Microsecond))

	// the first output is kept, later ones are discarded
	dm, err := NewDensityMap(res.Output)
	require.NoError(t, err)
	assert.Equal(t, 16, dm.Count())
}

func TestBenchmarkErrors(t *testing.T) {

	clk := clock.NewMock()

	_, err := Benchmark(&stepEngine{clk: clk}, Tensor{}, 0, clk)
	assert.Error(t, err)

	eng := &stepEngine{clk: clk, step: time.Millisecond, fail: 3}
	res, err := Benchmark(eng, Tensor{}, 5, clk)

	assert.Error(t, err)
	assert.Len(t, res.Latencies, 2)
}

func TestBenchmarkResultEmpty(t *testing.T) {

	var res BenchmarkResult

	assert.Equal(t, time.Duration(0), res.Mean())
	assert.Equal(t, time.Duration(0), res.StdDev())
	assert.Equal(t, time.Duration(0), res.Min())
	assert.Equal(t, time.Duration(0), res.Max())
}
