package crowdcount

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDensityMapShapes(t *testing.T) {

	tests := []struct {
		name    string
		shape   Shape
		data    int
		wantW   int
		wantH   int
		wantErr bool
	}{
		{"nchw", Shape{1, 1, 120, 160}, 120 * 160, 160, 120, false},
		{"chw", Shape{1, 3, 4}, 12, 4, 3, false},
		{"hw", Shape{2, 5}, 10, 5, 2, false},
		{"multi channel", Shape{1, 3, 4, 4}, 48, 0, 0, true},
		{"batch of two", Shape{2, 1, 4, 4}, 32, 0, 0, true},
		{"short data", Shape{1, 1, 4, 4}, 15, 0, 0, true},
		{"vector", Shape{16}, 16, 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dm, err := NewDensityMap(Tensor{Shape: tc.shape, Data: make([]float32, tc.data)})

			if tc.wantErr {
				assert.ErrorIs(t, err, ErrShape)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantW, dm.Width)
			assert.Equal(t, tc.wantH, dm.Height)
		})
	}
}

func TestDensityMapCountRoundsSum(t *testing.T) {

	tests := []struct {
		values []float32
		count  int
	}{
		{[]float32{0.4, 0.4, 0.4, 0.4}, 2},
		{[]float32{0.1, 0.1, 0.1, 0.1}, 0},
		{[]float32{1.5, 1.0, 0, 0}, 3},
		{[]float32{10.2, 3.1, 0.05, 0.6}, 14},
	}

	for _, tc := range tests {
		dm, err := NewDensityMap(Tensor{Shape: Shape{1, 1, 2, 2}, Data: tc.values})
		require.NoError(t, err)

		assert.Equal(t, tc.count, dm.Count(), "values %v", tc.values)
	}
}

func TestDensityMapConstantGrid(t *testing.T) {

	for _, k := range []int{1, 7, 60} {
		data := make([]float32, k*k)

		for i := range data {
			data[i] = 1.0
		}

		dm, err := NewDensityMap(Tensor{Shape: Shape{1, 1, int64(k), int64(k)}, Data: data})
		require.NoError(t, err)

		assert.Equal(t, k*k, dm.Count())
		assert.Equal(t, 1.0, dm.Max())
	}
}

func TestDensityMapScaled(t *testing.T) {

	data := []float32{0, 0.25, 0.5, 2, 1, 0.125}
	dm, err := NewDensityMap(Tensor{Shape: Shape{2, 3}, Data: data})
	require.NoError(t, err)

	scaled := dm.Scaled()
	require.Len(t, scaled, len(data))

	for i, v := range scaled {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(DisplayMax))
		assert.InDelta(t, float64(data[i])/2*DisplayMax, float64(v), 1e-4)
	}

	// densest cell maps exactly to the display maximum
	assert.Equal(t, float32(DisplayMax), scaled[3])
}

func TestDensityMapScaledZeroMap(t *testing.T) {

	dm, err := NewDensityMap(Tensor{Shape: Shape{1, 1, 8, 8}, Data: make([]float32, 64)})
	require.NoError(t, err)

	assert.Equal(t, 0, dm.Count())
	assert.Equal(t, 0.0, dm.Max())

	for _, v := range dm.Scaled() {
		assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		assert.Equal(t, float32(0), v)
	}
}

func TestDensityMapNonFiniteAndNegative(t *testing.T) {

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	dm, err := NewDensityMap(Tensor{
		Shape: Shape{1, 1, 2, 3},
		Data:  []float32{nan, 1, -0.5, inf, 2, 0.5},
	})
	require.NoError(t, err)

	// non-finite values are skipped, negatives still count
	assert.InDelta(t, 3.0, dm.Sum(), 1e-9)
	assert.Equal(t, 3, dm.Count())
	assert.Equal(t, 2.0, dm.Max())

	scaled := dm.Scaled()
	assert.Equal(t, []float32{0, 127.5, 0, 0, 255, 63.75}, scaled)
}

func TestDensityMapAt(t *testing.T) {

	dm, err := NewDensityMap(Tensor{Shape: Shape{2, 3}, Data: []float32{0, 1, 2, 3, 4, 5}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, dm.At(1, 0))
	assert.Equal(t, 5.0, dm.At(2, 1))
}
