package sink

import (
	"sync"

	"gocv.io/x/gocv"
)

// keys that cancel streaming when pressed in the display window
const (
	keyQuit   = 'q'
	keyEscape = 27
)

// Window displays frames in a desktop window and reports when the operator
// presses a cancel key
type Window struct {
	win    *gocv.Window
	closed bool
	mu     sync.Mutex
}

// NewWindow opens a display window with the given title
func NewWindow(title string) *Window {
	return &Window{
		win: gocv.NewWindow(title),
	}
}

// Write shows the frame in the window
func (w *Window) Write(frame gocv.Mat) error {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	w.win.IMShow(frame)

	return nil
}

// Cancelled polls the window key buffer once, returning true if the operator
// pressed q or Esc.  This also services the window's event loop so must be
// called once per frame.
func (w *Window) Cancelled() bool {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return true
	}

	key := w.win.WaitKey(1) & 0xFF

	return key == keyQuit || key == keyEscape
}

// Close destroys the window, subsequent calls do nothing
func (w *Window) Close() error {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	return w.win.Close()
}
