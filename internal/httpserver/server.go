// Package httpserver exposes the caller-facing core API over HTTP. The web
// front end, OAuth dance, and model calls live elsewhere; this layer only
// decodes requests, holds the session's credential bundle, and delegates to
// the outreach service.
package httpserver

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/founderkit/outreach/internal/auth"
	"github.com/founderkit/outreach/internal/outreach"
	"github.com/founderkit/outreach/internal/variants"
)

// shutdownTimeout is the maximum time to wait for in-flight requests during
// graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Config holds the configuration for the API server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config

	// Service is the outreach core.
	Service *outreach.Service

	// Generator produces email-copy variants. When nil, the variants
	// endpoint reports that generation is not configured.
	Generator variants.Generator
}

// Server is the HTTP API server.
type Server struct {
	config Config
	router chi.Router

	// creds is the session-scoped credential bundle supplied by the
	// external login flow. Nil until the flow hands one over.
	mu    sync.RWMutex
	creds *auth.Credentials
}

// New creates a new API server with the given configuration.
func New(cfg Config) *Server {
	s := &Server{config: cfg}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	s.router = r

	s.registerRoutes()
	return s
}

// Router returns the server's router, useful for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the API server and blocks until the context is
// cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:      s.config.ListenAddr,
		Handler:   s.router,
		TLSConfig: s.config.TLSConfig,
	}

	errCh := make(chan error, 1)
	go func() {
		if srv.TLSConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("API server listening",
		"addr", s.config.ListenAddr,
		"tls_enabled", s.config.TLSConfig != nil,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// setCredentials stores the session's credential bundle.
func (s *Server) setCredentials(creds auth.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &creds
}

// clearCredentials drops the session's credential bundle.
func (s *Server) clearCredentials() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
}

// credentials returns the session's credential bundle, or false when the
// external login flow has not supplied one yet.
func (s *Server) credentials() (auth.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return auth.Credentials{}, false
	}
	return *s.creds, true
}
