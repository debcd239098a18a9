// Package api exposes the feasibility engine and catalog search over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/audience-feasibility/internal/catalog"
	"github.com/ignite/audience-feasibility/internal/config"
	"github.com/ignite/audience-feasibility/internal/feasibility"
	"github.com/ignite/audience-feasibility/internal/pkg/ratelimit"
)

// FeasibilityChecker answers study feasibility requests.
type FeasibilityChecker interface {
	CheckOrNeutral(ctx context.Context, req feasibility.Request) (feasibility.Result, error)
}

// CatalogSearcher runs keyword and asset lookups.
type CatalogSearcher interface {
	SearchKeywords(ctx context.Context, term, countryCode string) ([]catalog.Keyword, error)
	SearchAssets(ctx context.Context, term string, exclude []string) ([]catalog.Asset, error)
	LookupAssets(ctx context.Context, bundles []string) ([]catalog.Asset, error)
}

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateLimiter records calls per caller key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
	Ping(ctx context.Context) error
}

// Dependencies are the services the handlers call. Cluster and Limiter may
// be nil; a nil Limiter disables rate limiting.
type Dependencies struct {
	Feasibility FeasibilityChecker
	Catalog     CatalogSearcher
	Cluster     Pinger
	Limiter     RateLimiter
	Version     string
}

// Server represents the API server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	handlers   *Handlers
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	handlers := NewHandlers(deps)
	health := NewHealthChecker(deps.Cluster, deps.Limiter, deps.Version)

	return &Server{
		config:   cfg,
		router:   SetupRoutes(handlers, health, deps.Limiter, cfg.CORS.AllowedOrigins),
		handlers: handlers,
	}
}

// ListenAndServe starts the HTTP server. Cardinality searches over many
// monthly indices can be slow, so the write timeout is generous.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.router
}
