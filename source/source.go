// Package source supplies frames to the crowd counting pipeline, either a
// single decoded still image or a video file / camera capture.
package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrInputNotFound is returned when the image or video path does not exist
	ErrInputNotFound = errors.New("input file not found")
	// ErrDecode is returned when an image file can not be decoded
	ErrDecode = errors.New("input could not be decoded")
	// ErrDeviceUnavailable is returned when a camera device can not be opened
	ErrDeviceUnavailable = errors.New("camera device unavailable")
)

// CameraArg is the video argument that selects the default camera device
const CameraArg = "0"

// Source is an ordered supply of raw frames
type Source interface {
	// Read pulls the next frame into dst, returning false at end of stream
	Read(dst *gocv.Mat) bool
	// Close releases the underlying handle
	Close() error
}

// Image holds the two representations of a single still image
type Image struct {
	// Display is the BGR image shown to the user
	Display gocv.Mat
	// Input is the BGR image sized for the model input tensor
	Input gocv.Mat
}

// Close frees both Mats
func (i *Image) Close() error {
	i.Display.Close()
	return i.Input.Close()
}

// LoadImage decodes the image file and resizes it to the model input size of
// width x height for both display and inference
func LoadImage(path string, width, height int) (*Image, error) {

	if err := checkFile(path); err != nil {
		return nil, err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)

	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%w: %s", ErrDecode, path)
	}

	defer img.Close()

	res := &Image{
		Display: gocv.NewMat(),
		Input:   gocv.NewMat(),
	}

	gocv.Resize(img, &res.Display, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	res.Display.CopyTo(&res.Input)

	return res, nil
}

// Capture wraps a gocv VideoCapture of a video file or camera device
type Capture struct {
	vc     *gocv.VideoCapture
	closed bool
	mu     sync.Mutex
}

// Open opens a capture handle.  The argument "0" selects the default camera
// device, anything else must be a path to an existing video file.
func Open(arg string) (*Capture, error) {

	if arg == CameraArg {
		vc, err := gocv.OpenVideoCapture(0)

		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}

		if !vc.IsOpened() {
			vc.Close()
			return nil, ErrDeviceUnavailable
		}

		return &Capture{vc: vc}, nil
	}

	if err := checkFile(arg); err != nil {
		return nil, err
	}

	vc, err := gocv.VideoCaptureFile(arg)

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, arg, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrDecode, arg)
	}

	return &Capture{vc: vc}, nil
}

// Read pulls the next frame from the capture, returns false at end of stream
// or if the capture has been closed
func (c *Capture) Read(dst *gocv.Mat) bool {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	return c.vc.Read(dst) && !dst.Empty()
}

// FrameSize returns the native frame width and height reported by the capture
func (c *Capture) FrameSize() image.Point {
	return image.Pt(
		int(c.vc.Get(gocv.VideoCaptureFrameWidth)),
		int(c.vc.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// Close releases the capture handle, subsequent calls do nothing
func (c *Capture) Close() error {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	return c.vc.Close()
}

// Closed returns true once the capture handle has been released
func (c *Capture) Closed() bool {

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// checkFile returns ErrInputNotFound if path does not exist or is a directory
func checkFile(path string) error {

	info, err := os.Stat(path)

	if err != nil {
		return fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}

	return nil
}
