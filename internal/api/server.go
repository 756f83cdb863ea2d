// Package api provides the HTTP API server and handlers for LibreNotes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/n1k0r/librenotes-server/internal/http/response"
	"github.com/n1k0r/librenotes-server/internal/ratelimit"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// Options configures the server beyond its services.
type Options struct {
	Version            string
	CORSAllowedOrigins []string
	// AuthRateLimiter throttles the credential endpoints per client IP.
	// Nil disables limiting.
	AuthRateLimiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	version         string
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:           st,
		services:        services,
		router:          chi.NewRouter(),
		logger:          logger,
		version:         opts.Version,
		authRateLimiter: opts.AuthRateLimiter,
	}
	if s.version == "" {
		s.version = "dev"
	}

	s.setupMiddleware(opts.CORSAllowedOrigins)

	s.api = humachi.New(s.router, newHumaConfig(s.version))
	RegisterErrorHandler()

	s.registerRoutes()

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})

	return s
}

// newHumaConfig returns the OpenAPI config: bearer security, schema document at
// /openapi.json and docs at /docs.
func newHumaConfig(version string) huma.Config {
	config := huma.DefaultConfig("LibreNotes API", version)
	config.Info.Description = "Multi-device note and tag sync."
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// No $schema links in response bodies; the sync payload is consumed as is.
	config.CreateHooks = nil
	return config
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))
	if s.authRateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.authRateLimiter, "/api/v1/auth/", s.logger))
	}
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerTagRoutes()
	s.registerNoteRoutes()
	s.registerSearchRoutes()
	s.registerSyncRoutes()
}
