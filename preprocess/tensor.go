package preprocess

import (
	"fmt"

	"github.com/swdee/go-crowdcount"
	"gocv.io/x/gocv"
)

// ImageNet channel statistics in R, G, B order
var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// TensorOptions define how an image Mat is packed into an input tensor
type TensorOptions struct {
	// Order of the color channels in the tensor
	Order crowdcount.ChannelOrder
	// Normalize is the scaling applied to pixel values
	Normalize crowdcount.Normalization
}

// ToTensor packs an 8-bit, 3 channel BGR image into a [1,3,H,W] float32 NCHW
// tensor with the channel order and normalization given in opts
func ToTensor(img gocv.Mat, opts TensorOptions) (crowdcount.Tensor, error) {

	if img.Empty() {
		return crowdcount.Tensor{}, fmt.Errorf("%w: empty image", crowdcount.ErrShape)
	}

	if img.Type() != gocv.MatTypeCV8UC3 {
		return crowdcount.Tensor{}, fmt.Errorf("%w: image must be 8-bit 3 channel, got type %v",
			crowdcount.ErrShape, img.Type())
	}

	// make mat continuous
	if !img.IsContinuous() {
		img = img.Clone()
		defer img.Close()
	}

	pix, err := img.DataPtrUint8()

	if err != nil {
		return crowdcount.Tensor{}, fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	h, w := img.Rows(), img.Cols()
	plane := h * w
	data := make([]float32, 3*plane)

	// srcIdx maps the tensor channel to the BGR pixel offset, rgbIdx maps the
	// tensor channel to its R, G, B statistics index
	srcIdx := [3]int{0, 1, 2}
	rgbIdx := [3]int{2, 1, 0}

	if opts.Order == crowdcount.RGB {
		srcIdx = [3]int{2, 1, 0}
		rgbIdx = [3]int{0, 1, 2}
	}

	for c := 0; c < 3; c++ {

		scale, shift := normParams(opts.Normalize, rgbIdx[c])
		out := data[c*plane : (c+1)*plane]

		for i := 0; i < plane; i++ {
			out[i] = float32(pix[i*3+srcIdx[c]])*scale + shift
		}
	}

	return crowdcount.NewTensor(crowdcount.Shape{1, 3, int64(h), int64(w)}, data)
}

// normParams returns the multiplier and offset that applies the normalization
// to a pixel value of the given R, G, B channel index
func normParams(n crowdcount.Normalization, rgb int) (scale, shift float32) {

	switch n {
	case crowdcount.Normalize255:
		return 1.0 / 255, 0

	case crowdcount.NormalizeImageNet:
		// (v/255 - mean) / std
		return 1.0 / (255 * imageNetStd[rgb]), -imageNetMean[rgb] / imageNetStd[rgb]

	default:
		return 1, 0
	}
}
