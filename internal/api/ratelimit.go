package api

import (
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sizes the per-client bucket in front of /api.
// One key press is one POST, so the rate is set against human input speed,
// not against the tick rate.
type RateLimitConfig struct {
	RequestsPerSecond float64       // sustained requests per client IP
	Burst             int           // key mashing headroom
	CleanupInterval   time.Duration // idle buckets are dropped after two intervals
}

// DefaultRateLimitConfig covers a player turning on every tick (4/s at the
// default 250ms) plus a client polling /api/state, with room for bursts.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	CleanupInterval:   5 * time.Minute,
}

// LimiterStats is reported under "httpLimiter" by /api/stats
type LimiterStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
	Clients  int    `json:"clients"`
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter guards the HTTP API per client IP. The per-source command
// limit in the input package still applies behind it.
type IPRateLimiter struct {
	buckets  sync.Map // client IP -> *clientBucket
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewIPRateLimiter starts the idle-bucket sweeper; call Stop to end it
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) bucket(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := rl.buckets.Load(ip); ok {
		b := v.(*clientBucket)
		b.lastSeen.Store(now)
		return b.limiter
	}

	b := &clientBucket{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	b.lastSeen.Store(now)

	actual, _ := rl.buckets.LoadOrStore(ip, b)
	return actual.(*clientBucket).limiter
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

// sweep drops buckets idle for two cleanup intervals
func (rl *IPRateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.buckets.Range(func(key, value any) bool {
		if value.(*clientBucket).lastSeen.Load() < cutoff {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// Allow takes one token from ip's bucket
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.bucket(ip).Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Middleware answers 429 once a client's bucket is empty. CORS preflights
// are not charged: a browser may send one before every key-press POST.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *IPRateLimiter) Stats() LimiterStats {
	clients := 0
	rl.buckets.Range(func(_, _ any) bool {
		clients++
		return true
	})
	return LimiterStats{
		Allowed:  rl.allowed.Load(),
		Rejected: rl.rejected.Load(),
		Clients:  clients,
	}
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// Take the first (original client) address
	// CAUTION: This can be spoofed if not behind a trusted proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter caps concurrent snapshot subscribers per IP, so one
// client opening tabs cannot take the hub's whole connection budget
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*atomic.Int32
	maxPerIP    int

	rejectedCount atomic.Uint64
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP}
}

// Allow reserves a connection slot for ip
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	actual, _ := wrl.connections.LoadOrStore(ip, new(atomic.Int32))
	counter := actual.(*atomic.Int32)

	for {
		current := counter.Load()
		if int(current) >= wrl.maxPerIP {
			wrl.rejectedCount.Add(1)
			return false
		}
		if counter.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a slot reserved by Allow
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if v, ok := wrl.connections.Load(ip); ok {
		v.(*atomic.Int32).Add(-1)
	}
}

// GetConnectionCount returns current connection count for an IP
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	if v, ok := wrl.connections.Load(ip); ok {
		return int(v.(*atomic.Int32).Load())
	}
	return 0
}

// Rejected counts upgrades refused for exceeding the per-IP cap
func (wrl *WebSocketRateLimiter) Rejected() uint64 {
	return wrl.rejectedCount.Load()
}

// DefaultAllowedOrigins is used when no origins are configured
var DefaultAllowedOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// IsAllowedOrigin reports whether origin matches one of the allowed
// patterns. Patterns may contain "*" wildcards, as accepted by the CORS
// middleware ("https://*.example.com", "http://localhost:*").
// Localhost is always allowed.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}

	for _, pattern := range allowed {
		if pattern == "*" || strings.EqualFold(pattern, origin) {
			return true
		}
		if strings.Contains(pattern, "*") {
			if ok, _ := path.Match(strings.ToLower(pattern), strings.ToLower(origin)); ok {
				return true
			}
		}
	}
	return false
}
