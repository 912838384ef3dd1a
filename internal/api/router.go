package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"color-snake/internal/config"
	"color-snake/internal/game"
	"color-snake/internal/input"
)

// EngineInterface defines the game engine methods used by the API.
// Keep this minimal - only include methods the API layer actually calls.
// It embeds input.Controller so a router can build its own input handler.
type EngineInterface interface {
	input.Controller

	// GetState returns a deep copy of the machine state
	GetState() game.GameState
	// Stats returns engine counters
	Stats() game.EngineStats
	// Config returns the game rules
	Config() config.GameConfig
	// GetEventLogStats returns event log counters
	GetEventLogStats() map[string]interface{}
}

// CommandProcessor applies one input command synchronously
type CommandProcessor interface {
	ProcessCommand(cmd input.Command) input.Result
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: fakeEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Input applies HTTP commands. If nil, one is built over Engine with
	// input.DefaultRateLimitConfig.
	Input CommandProcessor

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router
type routerHandlers struct {
	engine  EngineInterface
	input   CommandProcessor
	limiter *IPRateLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects beyond the rate limiter's cleanup goroutine
// (which is skipped when RouterConfig.RateLimiter is supplied): no listeners
// are opened, so it is safe to use with httptest.NewServer.
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
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	proc := cfg.Input
	if proc == nil {
		proc = input.NewHandler(cfg.Engine, input.DefaultRateLimitConfig)
	}
	h := &routerHandlers{
		engine:  cfg.Engine,
		input:   proc,
		limiter: rateLimiter,
	}

	r.Route("/api", func(r chi.Router) {
		// Game state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/config", h.handleGetConfig)

		// Player input
		r.Post("/input/direction", h.handleDirection)
		r.Post("/input/key", h.handleKey)
		r.Post("/pause", h.handleCommand(input.CmdPause))
		r.Post("/start", h.handleCommand(input.CmdStart))
		r.Post("/restart", h.handleCommand(input.CmdRestart))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}

// metricsMiddleware records latency per route pattern, never per raw path
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
