// Package core provides the HTTP chassis for the subscription demo backend.
// It creates a chi router, enforces cross-cutting concerns -- panic recovery,
// request correlation, logging, CORS -- and mounts domain handlers under the
// configured route prefix before requests reach them.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtrack/internal/config"
)

// RouteRegistrar registers a handler group's routes on the prefixed router.
// The indirection avoids import cycles between core and handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the chassis dependencies, allowing injection during
// testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// RouteRegistrars are mounted under Config.Server.RoutePrefix by
	// MountRoutes. Populated by the application entry point.
	RouteRegistrars []RouteRegistrar

	// HealthProbes are executed by the /health endpoint. Each probe
	// represents a critical dependency (currently just Postgres).
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. It fails fast on missing critical dependencies.
//
// The caller is responsible for mounting routes (via MountRoutes) after
// construction; the separation lets tests customize route registration.
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
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router, for http.Server use.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
