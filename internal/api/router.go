package api

import (
	"net/http"
	"time"

	"brawler/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the combat engine methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() *game.GameSnapshot
	// Stats returns engine counters
	Stats() game.EngineStats
	// State returns one character (false when unknown)
	State(id game.CharacterID) (game.CharacterSnapshot, bool)
	// Spawn adds a character to the arena
	Spawn(opts game.SpawnOptions) (game.CharacterSnapshot, error)
	// Remove drops a character immediately
	Remove(id game.CharacterID) bool
	// Submit queues a command for the next tick
	Submit(cmd game.Command) bool
	// Heal restores health on a living character
	Heal(id game.CharacterID, amount int) (int, bool)
	// Moveset returns the chains new spawns may use
	Moveset() *game.Moveset
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the combat engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost is allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine EngineInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - no goroutines other than the rate
// limiter's cleanup loop are started and no listeners are opened, so it is
// safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine}

	r.Route("/api", func(r chi.Router) {
		// Arena state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/movesets", h.handleGetMovesets)

		// Characters
		r.Post("/characters", h.handleSpawn)
		r.Route("/characters/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetCharacter)
			r.Delete("/", h.handleRemove)
			r.Post("/attack", h.handleAttack)
			r.Post("/move", h.handleMove)
			r.Post("/dash", h.handleDash)
			r.Post("/teleport", h.handleTeleport)
			r.Post("/target", h.handleTarget)
			r.Post("/interrupt", h.handleInterrupt)
			r.Post("/heal", h.handleHeal)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// metricsMiddleware records latency per route pattern. Unmatched paths share
// one label so scanners cannot blow up cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
