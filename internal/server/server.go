// Package server exposes the HTTP + WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/server/handler"
	"github.com/polydraft/polydraft/internal/server/middleware"
	"github.com/polydraft/polydraft/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// HTTP rate limiting even when a limiter is provided.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Pools  *handler.PoolHandler
	Packs  *handler.PackHandler
	Sweep  *handler.SweepHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (auth, logging, rate limiting, CORS) wired up.
// wsHub and limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required; registered inside the chain anyway
	// since auth is key-based and probes can carry the key).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Pool endpoints.
	mux.HandleFunc("POST /api/pools", handlers.Pools.CreatePool)
	mux.HandleFunc("GET /api/pools", handlers.Pools.ListPools)
	mux.HandleFunc("GET /api/pools/{id}", handlers.Pools.GetPool)
	mux.HandleFunc("GET /api/pools/{id}/events", handlers.Pools.ListPoolEvents)
	mux.HandleFunc("POST /api/pools/{id}/draft", handlers.Packs.ComposeDraft)

	// Pack endpoints.
	mux.HandleFunc("POST /api/packs", handlers.Packs.SubmitPack)
	mux.HandleFunc("POST /api/packs/premium", handlers.Packs.BuyPremiumPack)
	mux.HandleFunc("GET /api/packs/{id}", handlers.Packs.GetPackState)
	mux.HandleFunc("POST /api/packs/{id}/reveal/{position}", handlers.Packs.RevealNext)

	// Profile endpoints.
	mux.HandleFunc("GET /api/profiles/{id}/packs", handlers.Packs.ListProfilePacks)

	// Sweep trigger endpoint.
	if handlers.Sweep != nil {
		mux.HandleFunc("POST /api/sweep/trigger", handlers.Sweep.TriggerSweep)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
