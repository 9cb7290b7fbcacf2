// Package server exposes the segmentation pipeline over HTTP. Every request after
// the first upload names its session in the X-Session-ID header.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KaramelBytes/segmenta/internal/cluster"
	"github.com/KaramelBytes/segmenta/internal/pipeline"
	"github.com/KaramelBytes/segmenta/internal/session"
)

// SessionHeader carries the session id.
const SessionHeader = "X-Session-ID"

// DefaultMaxUpload is the upload cap when none is configured.
const DefaultMaxUpload = 10 << 20

// Persister stores row/cluster pairs under a key.
type Persister interface {
	Save(ctx context.Context, key string, pairs []cluster.Assignment) (int, error)
}

// Server wires HTTP handlers to a session store and a pipeline.
type Server struct {
	store     session.Store
	pipe      *pipeline.Pipeline
	persister Persister
	maxUpload int64
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPersister enables POST /persist.
func WithPersister(p Persister) Option { return func(s *Server) { s.persister = p } }

// WithMaxUpload sets the upload size cap in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Server.
func New(store session.Store, pipe *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		store:     store,
		pipe:      pipe,
		maxUpload: DefaultMaxUpload,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /select-sheet", s.handleSelectSheet)
	mux.HandleFunc("GET /sheets", s.handleSheets)
	mux.HandleFunc("POST /preprocess", s.handlePreprocess)
	mux.HandleFunc("POST /kmeans", s.handleKMeans)
	mux.HandleFunc("GET /conclusion", s.handleConclusion)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /persist", s.handlePersist)
	mux.HandleFunc("GET /reset", s.handleReset)
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"session", r.Header.Get(SessionHeader),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
