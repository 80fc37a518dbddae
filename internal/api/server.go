package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"brawler/internal/config"
	"brawler/internal/game"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      EngineInterface
	hooks       *game.HookQueue
	cfg         config.ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	http        *http.Server
}

// NewServer creates a new API server. hooks is drained by the broadcast loop
// and may be nil.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine EngineInterface, hooks *game.HookQueue, cfg config.ServerConfig) *Server {
	s := &Server{
		engine: engine,
		hooks:  hooks,
		cfg:    cfg,
		wsHub:  NewWebSocketHub(engine, cfg.CORSOrigins),
	}

	s.rateLimiter = NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSec,
		Burst:             cfg.Burst,
		CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
	})

	var origins []string
	if len(cfg.CORSOrigins) > 0 {
		origins = cfg.CORSOrigins
	}
	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
		CORSOrigins: origins,
	})

	// WebSocket route needs the wsHub instance
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins the HTTP server AND starts background workers. It blocks
// until the server stops; a Shutdown is not reported as an error.
func (s *Server) Start() error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.hooks, s.cfg.BroadcastEvery)

	log.Printf("🌐 API server starting on %s", s.cfg.Addr)
	log.Printf("📡 Live feed: ws://localhost%s/ws", s.cfg.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests, closes WebSocket clients and stops the
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return s.http.Shutdown(ctx)
}
