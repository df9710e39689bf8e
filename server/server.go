// Package server exposes a docview.Viewer over HTTP: upload classification,
// stored document descriptors, raw document bytes and the upload accept list.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gobeaver/docview"
)

// DefaultShutdownTimeout bounds graceful shutdown in ListenAndServe
const DefaultShutdownTimeout = 10 * time.Second

// Server serves a viewer over HTTP
type Server struct {
	viewer        *docview.Viewer
	logger        *slog.Logger
	maxUploadSize int64
}

// New creates a server. maxUploadSize caps the multipart body of POST
// /classify; zero means no cap beyond the viewer's own limit.
func New(viewer *docview.Viewer, logger *slog.Logger, maxUploadSize int64) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		viewer:        viewer,
		logger:        logger.With("component", "server"),
		maxUploadSize: maxUploadSize,
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /classify", s.Classify)
	mux.HandleFunc("POST /classify/url", s.ClassifyURL)
	mux.HandleFunc("GET /mime-types", s.MIMETypes)
	mux.HandleFunc("GET /documents", s.ListDocuments)
	mux.HandleFunc("GET /documents/{path...}", s.GetDocument)
	mux.HandleFunc("GET /raw/{path...}", s.Raw)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return logRequests(s.logger, trimSlash(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
