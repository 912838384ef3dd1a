package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"color-snake/internal/game"
	"color-snake/internal/input"
)

// ServerDeps is everything the API server needs from the rest of the process
type ServerDeps struct {
	Engine      *game.Engine
	Input       *input.Handler
	Queue       *input.CommandQueue // WebSocket commands; nil makes sockets read-only
	CORSOrigins []string
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// Background workers do NOT start until Start() is called, so the server
// can be constructed in tests and exercised through Router().
func NewServer(deps ServerDeps) *Server {
	hubCfg := HubConfig{
		AllowedOrigins: deps.CORSOrigins,
		Latest:         deps.Engine.GetSnapshot,
	}
	if deps.Queue != nil {
		hubCfg.Commands = deps.Queue
	}

	s := &Server{
		engine:      deps.Engine,
		wsHub:       NewWebSocketHub(hubCfg),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	routerCfg := RouterConfig{
		Engine:      deps.Engine,
		RateLimiter: s.rateLimiter,
		CORSOrigins: deps.CORSOrigins,
	}
	if deps.Input != nil {
		routerCfg.Input = deps.Input
	}
	s.router = NewRouter(routerCfg)

	// Every published snapshot is pushed to the sockets
	deps.Engine.OnPublish(s.wsHub.Broadcast)

	s.setupWebSocketRoutes()
	return s
}

// setupWebSocketRoutes adds routes that need the hub instance
func (s *Server) setupWebSocketRoutes() {
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
}

// Start starts the hub and serves HTTP until Stop. It returns nil after a
// graceful shutdown.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🐍 WebSocket: ws://localhost%s/ws (add ?codec=msgpack for binary frames)", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop shuts the listener down, closes every socket and stops background workers
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return err
}
