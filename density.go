package crowdcount

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DisplayMax is the value the densest cell is scaled to when the density map
// is normalized for display
const DisplayMax = 255

// DensityMap is the single channel output of the crowd counting network, each
// cell holds the estimated crowd density for that region of the input image
type DensityMap struct {
	// Width of the map in cells
	Width int
	// Height of the map in cells
	Height int
	// values are stored row-major, values[y*Width+x]
	values []float64
}

// NewDensityMap creates a DensityMap from the model output tensor.  The tensor
// must have a single channel and be shaped [1,1,H,W], [1,H,W] or [H,W].
func NewDensityMap(t Tensor) (*DensityMap, error) {

	var h, w int64

	switch len(t.Shape) {
	case 4:
		if t.Shape[0] != 1 || t.Shape[1] != 1 {
			return nil, fmt.Errorf("%w: density output %s must have batch and channel of 1",
				ErrShape, t.Shape)
		}
		h, w = t.Shape[2], t.Shape[3]
	case 3:
		if t.Shape[0] != 1 {
			return nil, fmt.Errorf("%w: density output %s must have batch of 1",
				ErrShape, t.Shape)
		}
		h, w = t.Shape[1], t.Shape[2]
	case 2:
		h, w = t.Shape[0], t.Shape[1]
	default:
		return nil, fmt.Errorf("%w: density output %s", ErrShape, t.Shape)
	}

	if h <= 0 || w <= 0 || int(h*w) != len(t.Data) {
		return nil, fmt.Errorf("%w: density output %s holds %d values",
			ErrShape, t.Shape, len(t.Data))
	}

	values := make([]float64, len(t.Data))

	for i, v := range t.Data {
		values[i] = float64(v)
	}

	return &DensityMap{
		Width:  int(w),
		Height: int(h),
		values: values,
	}, nil
}

// At returns the density value of cell (x,y)
func (d *DensityMap) At(x, y int) float64 {
	return d.values[y*d.Width+x]
}

// Sum returns the total density over the map.  Non-finite cells are ignored.
func (d *DensityMap) Sum() float64 {

	finite := d.finite()

	if len(finite) == 0 {
		return 0
	}

	return floats.Sum(finite)
}

// Count returns the estimated number of people, the density sum rounded to
// the nearest integer
func (d *DensityMap) Count() int {
	return int(math.Round(d.Sum()))
}

// Max returns the largest finite density value, or 0 for a map without any
// finite values
func (d *DensityMap) Max() float64 {

	finite := d.finite()

	if len(finite) == 0 {
		return 0
	}

	return floats.Max(finite)
}

// Scaled normalizes the map for display so the densest cell becomes
// DisplayMax.  A map whose maximum is not positive would divide by zero, so it
// is returned as all zeros.  Non-finite and negative cells are pinned to zero.
//
// Output layout is row-major: out[y*Width+x]
func (d *DensityMap) Scaled() []float32 {

	out := make([]float32, len(d.values))
	maxV := d.Max()

	if maxV <= 0 {
		return out
	}

	for i, v := range d.values {

		if !isFinite(v) || v <= 0 {
			continue
		}

		n := DisplayMax * v / maxV

		if n > DisplayMax {
			n = DisplayMax
		}

		out[i] = float32(n)
	}

	return out
}

// finite returns the finite values of the map, avoiding a copy in the usual
// case where every value is finite
func (d *DensityMap) finite() []float64 {

	for i, v := range d.values {

		if isFinite(v) {
			continue
		}

		// at least one bad value, filter the rest
		out := make([]float64, i, len(d.values))
		copy(out, d.values[:i])

		for _, rest := range d.values[i+1:] {
			if isFinite(rest) {
				out = append(out, rest)
			}
		}

		return out
	}

	return d.values
}

// isFinite returns true if v is neither NaN nor +/-Inf
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
