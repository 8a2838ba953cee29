package rknn

import (
	"github.com/swdee/go-crowdcount"
	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16LookupTable[i] = float16.Frombits(uint16(i)).Float32()
	}
}

// float16ToFloat32 converts a buffer of IEEE 754 half precision values into a
// new float32 slice
func float16ToFloat32(buf []uint16) []float32 {

	out := make([]float32, len(buf))

	for i, v := range buf {
		out[i] = f16LookupTable[v]
	}

	return out
}

// dequantizeInt8 converts affine asymmetric quantized values into a new
// float32 slice
func dequantizeInt8(buf []int8, zp int32, scale float32) []float32 {

	out := make([]float32, len(buf))

	for i, q := range buf {
		out[i] = (float32(q) - float32(zp)) * scale
	}

	return out
}

// nhwcToNCHW transposes channel last data to channel first
func nhwcToNCHW(data []float32, n, h, w, c int) []float32 {

	if c == 1 {
		return data
	}

	out := make([]float32, len(data))

	for b := 0; b < n; b++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for ch := 0; ch < c; ch++ {
					src := ((b*h+y)*w+x)*c + ch
					dst := ((b*c+ch)*h+y)*w + x
					out[dst] = data[src]
				}
			}
		}
	}

	return out
}

// nchwShape converts tensor attribute dimensions to an NCHW shape
func nchwShape(dims []uint32, nhwc bool) crowdcount.Shape {

	shape := make(crowdcount.Shape, len(dims))

	for i, d := range dims {
		shape[i] = int64(d)
	}

	if nhwc && len(shape) == 4 {
		shape[1], shape[2], shape[3] = shape[3], shape[1], shape[2]
	}

	return shape
}
