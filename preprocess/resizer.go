package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Resizer defines the struct used for scaling video frames to both the display
// size and the input tensor size of the model
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions, the aspect preserving size that fits within dest
	resizeW int
	resizeH int
}

// NewResizer returns a resizer for source frames of the given size and the
// destination (model input) bound
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats.  The larger
// dimension relative to the destination is shrunk (or grown) to the bound and
// the other dimension is calculated to keep the aspect ratio.
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2 // padding height / 2
	r.xPad = (r.destWidth - r.resizeW) / 2  // padding width / 2
}

// Matches returns true if the resizer was created for source frames of the
// given size
func (r *Resizer) Matches(srcWidth, srcHeight int) bool {
	return r.srcWidth == srcWidth && r.srcHeight == srcHeight
}

// FitSize returns the aspect preserving size of the source that fits within
// the destination bound.  This is the size of display frames.
func (r *Resizer) FitSize() image.Point {
	return image.Pt(r.resizeW, r.resizeH)
}

// FitResize scales the source image to FitSize for display
func (r *Resizer) FitResize(src gocv.Mat, dest *gocv.Mat) {
	gocv.Resize(src, dest, r.FitSize(), 0, 0, gocv.InterpolationArea)
}

// LetterBoxResize resizes the input image to the dimensions needed for the input
// tensor size whilst maintaining image aspect.  Color is that used for letter
// box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// FitFrameSize returns the display frame size for a source of srcWidth x
// srcHeight bounded by destWidth x destHeight without allocating a Resizer.
// The streaming video writer is sized from this before the first frame
// arrives.
func FitFrameSize(srcWidth, srcHeight, destWidth, destHeight int) image.Point {
	r := Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
	}
	r.preCalc()

	return r.FitSize()
}
