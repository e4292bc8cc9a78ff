// Package api provides the HTTP API server and handlers for the Playlore catalog.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playlore/playlore-server/internal/ratelimit"
	"github.com/playlore/playlore-server/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	// Version is reported in the OpenAPI document.
	Version string
	// CORSOrigins lists allowed origins. Empty allows any origin.
	CORSOrigins []string
	// SyncRequestsPerMinute bounds sync triggers per client IP. Zero disables the limit.
	SyncRequestsPerMinute int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       store.Store
	services    *Services
	router      chi.Router
	api         huma.API
	logger      *slog.Logger
	syncLimiter *ratelimit.KeyedRateLimiter
	version     string
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:    st,
		services: services,
		router:   router,
		logger:   logger,
	}
	if opts.SyncRequestsPerMinute > 0 {
		s.syncLimiter = newPerMinuteLimiter(opts.SyncRequestsPerMinute)
	}

	s.setupMiddleware(opts)
	s.router.Handle("/metrics", promhttp.Handler())

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s.version = version
	s.api = humachi.New(router, newHumaConfig("Playlore API", version))
	RegisterErrorHandler()

	s.registerRoutes()
	return s
}

func newHumaConfig(title, version string) huma.Config {
	config := huma.DefaultConfig(title, version)
	config.Transformers = append(config.Transformers, EnvelopeTransformer)
	return config
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.syncLimiter != nil {
		s.syncLimiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerGameRoutes()
	s.registerBrowseRoutes()
	s.registerTagRoutes()
	s.registerCategoryRoutes()
	s.registerPlatformRoutes()
	s.registerPlaylistRoutes()
	s.registerSyncRoutes()
	s.registerSearchRoutes()
	s.registerAdminRoutes()
}
