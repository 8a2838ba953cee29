// Package model makes sure the network artifacts are available locally before
// an inference engine is created.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrProvision is returned when a required model file is missing and could
// not be fetched from the remote location
var ErrProvision = errors.New("model provisioning failed")

// Provisioner downloads missing model files
type Provisioner struct {
	client *http.Client
	log    *zap.Logger
}

// NewProvisioner returns a Provisioner using the given HTTP client.  A nil
// client uses http.DefaultClient and a nil logger discards output.
func NewProvisioner(client *http.Client, log *zap.Logger) *Provisioner {

	if client == nil {
		client = http.DefaultClient
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Provisioner{
		client: client,
		log:    log,
	}
}

// Ensure checks each of the files exists in dir, any that are missing are
// fetched from <remoteBase>/<file> and written to dir.  Files are only renamed
// into place once completely downloaded.
func (p *Provisioner) Ensure(ctx context.Context, dir, remoteBase string, files ...string) error {

	for _, file := range files {

		dest := filepath.Join(dir, file)

		info, err := os.Stat(dest)

		if err == nil {
			if info.IsDir() {
				return fmt.Errorf("%w: %s is a directory", ErrProvision, dest)
			}

			p.log.Debug("model file present", zap.String("file", dest))
			continue
		}

		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", ErrProvision, dest, err)
		}

		if err := p.fetch(ctx, remoteURL(remoteBase, file), dest); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrProvision, file, err)
		}
	}

	return nil
}

// fetch downloads url to dest via a temporary file in the same directory
func (p *Provisioner) fetch(ctx context.Context, url, dest string) error {

	start := time.Now()
	p.log.Info("downloading model file", zap.String("url", url), zap.String("dest", dest))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s returned %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")

	if err != nil {
		return err
	}

	// remove the partial file on any failure, a no-op after the rename
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)

	if err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", dest, err)
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}

	p.log.Info("downloaded model file",
		zap.String("dest", dest),
		zap.Int64("bytes", n),
		zap.Duration("took", time.Since(start)),
	)

	return nil
}

// remoteURL joins the remote base location and filename with a single slash
func remoteURL(base, file string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(file, "/")
}
