package input

import (
	"sync"
	"time"
)

// RateLimiter implements per-source command rate limiting
type RateLimiter struct {
	mu           sync.Mutex
	sourceCounts map[string]*sourceLimit
	config       RateLimitConfig
	now          func() time.Time
	stopChan     chan struct{}
	stopOnce     sync.Once
}

type sourceLimit struct {
	count     int
	windowEnd time.Time
	lastCmd   time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	// MaxPerWindow is max commands per window
	MaxPerWindow int
	// WindowDuration is the window size
	WindowDuration time.Duration
}

// DefaultRateLimitConfig allows fast key mashing but not floods
var DefaultRateLimitConfig = RateLimitConfig{
	MaxPerWindow:   30,
	WindowDuration: time.Second,
}

// NewRateLimiter creates a new rate limiter with a background cleanup
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		sourceCounts: make(map[string]*sourceLimit),
		config:       cfg,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow checks if a source can issue another command
func (rl *RateLimiter) Allow(source string) bool {
	if rl.config.MaxPerWindow <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	limit, exists := rl.sourceCounts[source]
	if !exists {
		rl.sourceCounts[source] = &sourceLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			lastCmd:   now,
		}
		return true
	}

	// Check/reset window
	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.lastCmd = now
		return true
	}

	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.lastCmd = now
	return true
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

// cleanup removes idle sources every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-5 * time.Minute)
			for key, limit := range rl.sourceCounts {
				if limit.lastCmd.Before(cutoff) {
					delete(rl.sourceCounts, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
