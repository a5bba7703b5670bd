// Package core provides the HTTP chassis for the fence alerting API. It builds
// a chi router and enforces cross-cutting concerns (panic recovery, request
// correlation, logging, CORS, compression, metrics and API-key checks) before
// requests reach domain handlers.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhinavuser/reflectometry/internal/config"
)

// Server holds the dependencies shared by every route.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	Metrics      MetricsCollector
	HealthProbes []HealthProbe

	// RouteRegistrars mount domain handlers. They are populated by main so
	// that core never imports handler packages.
	RouteRegistrars []func(chi.Router)

	failures *authFailures
	router   *chi.Mux
}

// NewServer validates the critical dependencies and prepares an empty router.
// The caller mounts routes with MountRoutes after adding registrars.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		failures:  newAuthFailures(defaultAuthFailureLimit, defaultAuthFailureWindow),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}
