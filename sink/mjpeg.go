package sink

import (
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// MJPEG publishes frames as JPEG images to any number of HTTP clients using
// a multipart/x-mixed-replace stream.  Slow clients skip frames rather than
// stall the pipeline.
type MJPEG struct {
	clients map[chan []byte]struct{}
	closed  bool
	done    chan struct{}
	log     *zap.Logger
	mu      sync.Mutex
}

// NewMJPEG returns a stream with no connected clients
func NewMJPEG(log *zap.Logger) *MJPEG {

	if log == nil {
		log = zap.NewNop()
	}

	return &MJPEG{
		clients: make(map[chan []byte]struct{}),
		done:    make(chan struct{}),
		log:     log,
	}
}

// Clients returns the number of currently connected clients
func (m *MJPEG) Clients() int {

	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.clients)
}

// Write encodes the frame as JPEG and offers it to every connected client
func (m *MJPEG) Write(frame gocv.Mat) error {

	m.mu.Lock()
	closed, n := m.closed, len(m.clients)
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}

	if n == 0 {
		return nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)

	if err != nil {
		return fmt.Errorf("error encoding frame to jpeg: %w", err)
	}

	jpg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	m.Publish(jpg)

	return nil
}

// Publish offers an already encoded JPEG image to every connected client
func (m *MJPEG) Publish(jpg []byte) {

	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.clients {
		// drop the frame for clients still sending the previous one
		select {
		case ch <- jpg:
		default:
		}
	}
}

// ServeHTTP streams frames to the client until it disconnects or the
// stream is closed
func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	ch := make(chan []byte, 1)

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}

	m.clients[ch] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.clients, ch)
		m.mu.Unlock()
	}()

	m.log.Info("client connected", zap.String("remote", r.RemoteAddr))

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			m.log.Info("client disconnected", zap.String("remote", r.RemoteAddr))
			return

		case <-m.done:
			return

		case jpg := <-ch:
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n"))
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpg))
			w.Write(jpg)

			if _, err := w.Write([]byte("\r\n")); err != nil {
				m.log.Debug("client write failed", zap.Error(err))
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Close ends all client streams, subsequent calls do nothing
func (m *MJPEG) Close() error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)

	return nil
}
