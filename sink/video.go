package sink

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// VideoWriter appends frames to a video file.  The file is opened lazily when
// the first frame is written so no empty file is left behind when streaming
// fails before producing output.
type VideoWriter struct {
	path   string
	fourcc string
	fps    float64
	size   image.Point
	vw     *gocv.VideoWriter
	closed bool
	mu     sync.Mutex
}

// NewVideoWriter returns a writer for frames of exactly size (width x height)
func NewVideoWriter(path, fourcc string, fps float64, size image.Point) *VideoWriter {
	return &VideoWriter{
		path:   path,
		fourcc: fourcc,
		fps:    fps,
		size:   size,
	}
}

// Size returns the frame size the writer accepts
func (v *VideoWriter) Size() image.Point {
	return v.size
}

// Write appends the frame to the video, opening the file on the first call
func (v *VideoWriter) Write(frame gocv.Mat) error {

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}

	if frame.Cols() != v.size.X || frame.Rows() != v.size.Y {
		return fmt.Errorf("%w: got %dx%d, video is %dx%d", ErrFrameSize,
			frame.Cols(), frame.Rows(), v.size.X, v.size.Y)
	}

	if v.vw == nil {
		vw, err := gocv.VideoWriterFile(v.path, v.fourcc, v.fps, v.size.X, v.size.Y,
			frame.Channels() == 3)

		if err != nil {
			return fmt.Errorf("error opening video writer %s: %w", v.path, err)
		}

		if !vw.IsOpened() {
			vw.Close()
			return fmt.Errorf("video writer %s could not be opened with codec %s",
				v.path, v.fourcc)
		}

		v.vw = vw
	}

	return v.vw.Write(frame)
}

// Opened returns true once the first frame has opened the video file
func (v *VideoWriter) Opened() bool {

	v.mu.Lock()
	defer v.mu.Unlock()

	return v.vw != nil
}

// Closed returns true once the writer has been released
func (v *VideoWriter) Closed() bool {

	v.mu.Lock()
	defer v.mu.Unlock()

	return v.closed
}

// Close finalizes the video file, subsequent calls do nothing
func (v *VideoWriter) Close() error {

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}

	v.closed = true

	if v.vw == nil {
		return nil
	}

	return v.vw.Close()
}
