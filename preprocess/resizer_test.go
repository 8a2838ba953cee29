package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 480, 0, 60, 0.50},
		{800, 1000, 640, 480, 128, 0, 0.48},
		{640, 480, 640, 480, 0, 0, 1.0},
		{320, 240, 640, 480, 0, 0, 2.0},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)

		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)

		resizer.LetterBoxResize(img, &resizedImg, black)

		assert.Equal(t, tc.expectedXPad, resizer.XPad(), "src %dx%d xpad", tc.srcWidth, tc.srcHeight)
		assert.Equal(t, tc.expectedYPad, resizer.YPad(), "src %dx%d ypad", tc.srcWidth, tc.srcHeight)
		assert.InDelta(t, tc.expectedScale, resizer.ScaleFactor(), 1e-6)

		// letterboxed output always matches the model input size
		assert.Equal(t, tc.resizeWidth, resizedImg.Cols())
		assert.Equal(t, tc.resizeHeight, resizedImg.Rows())

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestFitSize(t *testing.T) {

	tests := []struct {
		srcWidth  int
		srcHeight int
		want      image.Point
	}{
		// wide source is bound by width
		{1280, 720, image.Pt(640, 360)},
		// tall source is bound by height
		{720, 1280, image.Pt(270, 480)},
		{640, 480, image.Pt(640, 480)},
		// smaller sources are scaled up to the bound
		{320, 240, image.Pt(640, 480)},
		{1920, 1080, image.Pt(640, 360)},
	}

	for _, tc := range tests {
		r := NewResizer(tc.srcWidth, tc.srcHeight, 640, 480)

		assert.Equal(t, tc.want, r.FitSize(), "src %dx%d", tc.srcWidth, tc.srcHeight)
		assert.Equal(t, tc.want, FitFrameSize(tc.srcWidth, tc.srcHeight, 640, 480))
		assert.True(t, r.Matches(tc.srcWidth, tc.srcHeight))

		src := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		dst := gocv.NewMat()

		r.FitResize(src, &dst)
		require.Equal(t, tc.want.X, dst.Cols())
		require.Equal(t, tc.want.Y, dst.Rows())

		src.Close()
		dst.Close()
		r.Close()
	}
}
