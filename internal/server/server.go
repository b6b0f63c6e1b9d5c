// Package server exposes the dbpilot operations over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/logger"
	"github.com/koustreak/dbpilot/internal/service"
)

// Config holds HTTP server settings.
type Config struct {
	Addr string

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	Burst     int

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// ProfileResolver turns a saved profile id into a connection config.
type ProfileResolver func(id string) (database.Config, error)

// Server wraps the HTTP server with chi routing and graceful shutdown.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	svc        *service.Service
	profiles   ProfileResolver
	log        *logger.Logger
	cfg        Config
}

// New wires the routes. profiles may be nil, in which case connect
// requests must carry a full config.
func New(cfg Config, svc *service.Service, profiles ProfileResolver, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}

	s := &Server{
		svc:      svc,
		profiles: profiles,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.With().Str("addr", s.httpServer.Addr).Logger().Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
