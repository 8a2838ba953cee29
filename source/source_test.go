package source

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// writeImage saves a blank image of the given size and returns its path
func writeImage(t *testing.T, w, h int) string {
	img := gocv.Zeros(h, w, gocv.MatTypeCV8UC3)
	defer img.Close()

	path := filepath.Join(t.TempDir(), "crowd.png")
	require.True(t, gocv.IMWrite(path, img))

	return path
}

// writeVideo saves an MJPG video of n blank frames and returns its path
func writeVideo(t *testing.T, w, h, n int) string {
	path := filepath.Join(t.TempDir(), "crowd.avi")

	vw, err := gocv.VideoWriterFile(path, "MJPG", 10, w, h, true)
	require.NoError(t, err)

	frame := gocv.Zeros(h, w, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < n; i++ {
		require.NoError(t, vw.Write(frame))
	}

	require.NoError(t, vw.Close())

	return path
}

func TestLoadImage(t *testing.T) {

	path := writeImage(t, 1024, 768)

	img, err := LoadImage(path, 640, 480)
	require.NoError(t, err)
	defer img.Close()

	for _, m := range []gocv.Mat{img.Display, img.Input} {
		assert.Equal(t, 640, m.Cols())
		assert.Equal(t, 480, m.Rows())
		assert.Equal(t, gocv.MatTypeCV8UC3, m.Type())
	}
}

func TestLoadImageErrors(t *testing.T) {

	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.jpeg"), 640, 480)
	assert.ErrorIs(t, err, ErrInputNotFound)

	_, err = LoadImage(t.TempDir(), 640, 480)
	assert.ErrorIs(t, err, ErrInputNotFound)

	junk := filepath.Join(t.TempDir(), "junk.jpeg")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))

	_, err = LoadImage(junk, 640, 480)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestOpenVideoFile(t *testing.T) {

	path := writeVideo(t, 320, 240, 3)

	c, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, image.Pt(320, 240), c.FrameSize())

	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0

	for c.Read(&frame) {
		frames++
	}

	assert.Equal(t, 3, frames)

	require.NoError(t, c.Close())
	assert.True(t, c.Closed())

	// closing twice and reading after close are safe
	assert.NoError(t, c.Close())
	assert.False(t, c.Read(&frame))
}

func TestOpenMissingVideo(t *testing.T) {

	_, err := Open(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.NotErrorIs(t, err, ErrDeviceUnavailable)
}
