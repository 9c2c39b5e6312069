// Package api provides the HTTP API server and handlers for the ReadAlong server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readalong/readalong-server/internal/config"
	"github.com/readalong/readalong-server/internal/http/response"
	"github.com/readalong/readalong-server/internal/ratelimit"
	"github.com/readalong/readalong-server/internal/service"
	"github.com/readalong/readalong-server/internal/sse"
	"github.com/readalong/readalong-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	contentService  *service.ContentService
	sseHandler      *sse.Handler
	router          *chi.Mux
	validator       *validation.Validator
	positionLimiter *ratelimit.KeyedRateLimiter
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(contentService *service.ContentService, sseHandler *sse.Handler, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		contentService:  contentService,
		sseHandler:      sseHandler,
		router:          chi.NewRouter(),
		validator:       validation.New(),
		positionLimiter: ratelimit.New(cfg.Sync.PositionRPS, cfg.Sync.PositionBurst),
		logger:          logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/content", func(r chi.Router) {
			r.Get("/", s.handleListContent)
			r.Post("/{id}", s.handleLoadContent)
			r.Delete("/{id}", s.handleUnloadContent)
			r.Get("/{id}/timing", s.handleGetTiming)
			r.Get("/{id}/content", s.handleGetContent)
			r.Get("/{id}/resolve", s.handleResolvePosition)
		})

		// Position updates arrive at playback tick rate, so they get
		// their own per-client limiter.
		r.Route("/playback", func(r chi.Router) {
			r.Use(RateLimitMiddleware(s.positionLimiter, s.logger))
			r.Post("/{id}/position", s.handleUpdatePosition)
		})

		r.Get("/search", s.handleSearch)
		r.Get("/events", s.sseHandler.ServeHTTP)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/backup", s.handleBackup)
			r.Post("/restore", s.handleRestore)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
