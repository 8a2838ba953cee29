package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// artifactServer serves fixed file contents and records the requested paths
type artifactServer struct {
	sync.Mutex
	files    map[string]string
	requests []string
}

func (s *artifactServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	s.Lock()
	s.requests = append(s.requests, r.URL.Path)
	s.Unlock()

	body, ok := s.files[r.URL.Path]

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Write([]byte(body))
}

func TestEnsureDownloadsMissingFiles(t *testing.T) {

	srv := &artifactServer{files: map[string]string{
		"/crowd_count/crowdcount.onnx":          "weights",
		"/crowd_count/crowdcount.onnx.prototxt": "topology",
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dir := t.TempDir()

	// weights already present locally
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crowdcount.onnx"), []byte("local"), 0o644))

	p := NewProvisioner(ts.Client(), nil)
	err := p.Ensure(context.Background(), dir, ts.URL+"/crowd_count/",
		"crowdcount.onnx", "crowdcount.onnx.prototxt")
	require.NoError(t, err)

	assert.Equal(t, []string{"/crowd_count/crowdcount.onnx.prototxt"}, srv.requests)

	data, err := os.ReadFile(filepath.Join(dir, "crowdcount.onnx.prototxt"))
	require.NoError(t, err)
	assert.Equal(t, "topology", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "crowdcount.onnx"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))
}

func TestEnsureHTTPErrorLeavesNoFile(t *testing.T) {

	srv := &artifactServer{files: map[string]string{}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dir := t.TempDir()
	p := NewProvisioner(ts.Client(), nil)

	err := p.Ensure(context.Background(), dir, ts.URL, "crowdcount.onnx")
	require.ErrorIs(t, err, ErrProvision)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureUnreachableRemote(t *testing.T) {

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	p := NewProvisioner(nil, nil)
	err := p.Ensure(context.Background(), t.TempDir(), url, "crowdcount.onnx")

	assert.ErrorIs(t, err, ErrProvision)
}

func TestEnsureCancelledContext(t *testing.T) {

	srv := &artifactServer{files: map[string]string{"/crowdcount.onnx": "weights"}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProvisioner(ts.Client(), nil)
	err := p.Ensure(ctx, t.TempDir(), ts.URL, "crowdcount.onnx")

	assert.ErrorIs(t, err, ErrProvision)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureDirectoryInPlaceOfFile(t *testing.T) {

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "crowdcount.onnx"), 0o755))

	p := NewProvisioner(nil, nil)
	err := p.Ensure(context.Background(), dir, "http://127.0.0.1:1", "crowdcount.onnx")

	assert.ErrorIs(t, err, ErrProvision)
}

func TestRemoteURL(t *testing.T) {

	tests := []struct {
		base, file, want string
	}{
		{"https://host/crowd_count/", "a.onnx", "https://host/crowd_count/a.onnx"},
		{"https://host/crowd_count", "a.onnx", "https://host/crowd_count/a.onnx"},
		{"https://host/crowd_count//", "/a.onnx", "https://host/crowd_count/a.onnx"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, remoteURL(tc.base, tc.file))
	}
}
