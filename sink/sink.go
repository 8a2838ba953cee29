// Package sink delivers composite frames to their destinations, an image file,
// a display window, a video file or an MJPEG HTTP stream.
package sink

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrFrameSize is returned when a frame does not match the size a sink
	// was configured with
	ErrFrameSize = errors.New("frame size does not match sink")
	// ErrClosed is returned when writing to a closed sink
	ErrClosed = errors.New("sink is closed")
)

// Sink receives composite output frames
type Sink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// WriteImage saves the frame as an image file, the format is chosen by the
// file extension
func WriteImage(path string, frame gocv.Mat) error {

	if frame.Empty() {
		return errors.New("can not save an empty frame")
	}

	if ok := gocv.IMWrite(path, frame); !ok {
		return fmt.Errorf("failed to save image to %s", path)
	}

	return nil
}
