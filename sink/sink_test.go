package sink

import (
	"bufio"
	"context"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestWriteImage(t *testing.T) {

	img := gocv.Zeros(48, 96, gocv.MatTypeCV8UC3)
	defer img.Close()

	path := filepath.Join(t.TempDir(), "result.png")
	require.NoError(t, WriteImage(path, img))

	got := gocv.IMRead(path, gocv.IMReadColor)
	defer got.Close()

	assert.Equal(t, 96, got.Cols())
	assert.Equal(t, 48, got.Rows())
}

func TestWriteImageEmpty(t *testing.T) {

	img := gocv.NewMat()
	defer img.Close()

	err := WriteImage(filepath.Join(t.TempDir(), "result.png"), img)
	assert.Error(t, err)
}

func TestVideoWriterLazyOpen(t *testing.T) {

	path := filepath.Join(t.TempDir(), "out.avi")
	vw := NewVideoWriter(path, "MJPG", 20, image.Pt(64, 32))

	assert.False(t, vw.Opened())

	// nothing written so no file is created
	require.NoError(t, vw.Close())
	assert.True(t, vw.Closed())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestVideoWriterWrite(t *testing.T) {

	path := filepath.Join(t.TempDir(), "out.avi")
	vw := NewVideoWriter(path, "MJPG", 20, image.Pt(64, 32))

	frame := gocv.Zeros(32, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, vw.Write(frame))
	}

	assert.True(t, vw.Opened())
	require.NoError(t, vw.Close())
	require.NoError(t, vw.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.ErrorIs(t, vw.Write(frame), ErrClosed)
}

func TestVideoWriterFrameSize(t *testing.T) {

	vw := NewVideoWriter(filepath.Join(t.TempDir(), "out.avi"), "MJPG", 20,
		image.Pt(64, 32))
	defer vw.Close()

	frame := gocv.Zeros(40, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	assert.ErrorIs(t, vw.Write(frame), ErrFrameSize)
	assert.False(t, vw.Opened())
}

func TestMJPEGWithoutClients(t *testing.T) {

	stream := NewMJPEG(nil)

	frame := gocv.Zeros(16, 16, gocv.MatTypeCV8UC3)
	defer frame.Close()

	require.NoError(t, stream.Write(frame))
	assert.Equal(t, 0, stream.Clients())

	require.NoError(t, stream.Close())
	assert.ErrorIs(t, stream.Write(frame), ErrClosed)
}

func TestMJPEGStream(t *testing.T) {

	stream := NewMJPEG(nil)
	ts := httptest.NewServer(NewRouter(stream, nil))
	defer ts.Close()
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "multipart/x-mixed-replace")

	require.Eventually(t, func() bool { return stream.Clients() == 1 },
		2*time.Second, 10*time.Millisecond)

	frame := gocv.Zeros(16, 16, gocv.MatTypeCV8UC3)
	defer frame.Close()

	require.NoError(t, stream.Write(frame))

	rd := bufio.NewReader(resp.Body)

	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)

	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)

	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "Content-Length: "))

	_, err = rd.ReadString('\n')
	require.NoError(t, err)

	// JPEG start of image marker
	soi := make([]byte, 2)
	_, err = io.ReadFull(rd, soi)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, soi)
}

func TestMJPEGClosedRejectsClients(t *testing.T) {

	stream := NewMJPEG(nil)
	require.NoError(t, stream.Close())

	rec := httptest.NewRecorder()
	stream.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterMetrics(t *testing.T) {

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_frames_total",
		Help: "frames",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	rec := httptest.NewRecorder()
	NewRouter(nil, reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_frames_total 3")

	// stream endpoint is absent without a stream
	rec = httptest.NewRecorder()
	NewRouter(nil, reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStartClose(t *testing.T) {

	stream := NewMJPEG(nil)
	srv := NewServer("127.0.0.1:0", stream, prometheus.NewRegistry(), nil)

	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Close())
}
