// Package server exposes an AssetStore over HTTP.
//
// Routes (all JSON):
//
//	GET  /api/v1/entities/{type}/{id}   Get
//	PUT  /api/v1/entities/{type}/{id}   Update
//	POST /api/v1/entities               Create
//	GET  /api/v1/find?ref=...           Find
//	GET  /api/v1/children?site=&path=   Children
//	GET  /healthz
//	GET  /metrics                       Prometheus
//
// Store errors map to status codes: ErrNotFound 404, ErrConflict 409,
// ErrParentNotFound 422, ErrInvalid 400. internal/remote maps them back.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
)

// Error codes carried in error responses next to the HTTP status.
const (
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeParentNotFound = "parent_not_found"
	CodeInvalid        = "invalid"
	CodeUnauthorized   = "unauthorized"
	CodeInternal       = "internal"
)

const maxBodyBytes = 16 << 20

// Server serves one store.
type Server struct {
	store   store.AssetStore
	token   string
	logger  *slog.Logger
	metrics *telemetry.Metrics
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on the store API.
// /healthz and /metrics stay open.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics counts requests and serves /metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds the server and its routes.
func New(st store.AssetStore, opts ...Option) *Server {
	s := &Server{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.bearerAuth)

		r.Post("/entities", s.instrument("create", s.handleCreate))
		r.Get("/entities/{type}/{id}", s.instrument("get", s.handleGet))
		r.Put("/entities/{type}/{id}", s.instrument("update", s.handleUpdate))
		r.Get("/find", s.instrument("find", s.handleFind))
		r.Get("/children", s.instrument("children", s.handleChildren))
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("store api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("store api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
