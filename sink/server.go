package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long Close waits for in flight requests
const shutdownTimeout = 5 * time.Second

// Server exposes the MJPEG stream on /stream and the pipeline metrics on
// /metrics
type Server struct {
	addr   string
	stream *MJPEG
	srv    *http.Server
	ln   net.Listener
	log  *zap.Logger
	errs chan error
}

// NewServer builds the HTTP router.  Either stream or gatherer may be nil to
// leave that endpoint out.
func NewServer(addr string, stream *MJPEG, gatherer prometheus.Gatherer,
	log *zap.Logger) *Server {

	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		addr:   addr,
		stream: stream,
		srv:    &http.Server{Handler: NewRouter(stream, gatherer)},
		log:    log,
		errs:   make(chan error, 1),
	}
}

// NewRouter returns the chi router serving the stream and metrics endpoints
func NewRouter(stream *MJPEG, gatherer prometheus.Gatherer) http.Handler {

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if stream != nil {
		r.Get("/stream", stream.ServeHTTP)
	}

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// Start binds the listen address and serves in the background.  Bind errors
// are returned immediately.
func (s *Server) Start() error {

	ln, err := net.Listen("tcp", s.addr)

	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.addr, err)
	}

	s.ln = ln

	s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		err := s.srv.Serve(ln)

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", zap.Error(err))
			s.errs <- err
		}

		close(s.errs)
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {

	if s.ln == nil {
		return s.addr
	}

	return s.ln.Addr().String()
}

// Close ends the MJPEG stream so streaming handlers return, then gracefully
// shuts the server down
func (s *Server) Close() error {

	if s.ln == nil {
		return nil
	}

	if s.stream != nil {
		s.stream.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down http server: %w", err)
	}

	return <-s.errs
}
