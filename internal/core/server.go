// Package core provides the HTTP chassis for the rain prediction service.
// It builds a chi router, enforces the cross-cutting concerns (panic
// recovery, deadlines, request ids, security headers, logging, CORS and
// language negotiation) and leaves the routes themselves to registrars
// supplied by the entry point.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"raincast/internal/config"
	"raincast/internal/i18n"
)

// RouteRegistrar mounts a group of routes on a router.
type RouteRegistrar func(r chi.Router)

// Server encapsulates all dependencies of the HTTP surface, allowing for
// easy injection during testing.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Languages *i18n.Bundle

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars mount under /v1; RouteRegistrars mount at the root
	// (the HTML pages). Both are filled in by main so that core never
	// imports the handler packages.
	V1RouteRegistrars []RouteRegistrar
	RouteRegistrars   []RouteRegistrar

	router *chi.Mux
}

// NewServer validates the critical dependencies and prepares an empty
// router. The caller mounts routes with MountRoutes after filling in the
// registrars.
func NewServer(cfg *config.Config, languages *i18n.Bundle, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if languages == nil {
		return nil, fmt.Errorf("language bundle must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		Languages: languages,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server-held resources. The model handle is owned by
// main and outlives the server, so there is nothing to close here beyond
// recording the event.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
