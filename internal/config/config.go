// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all game and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds the rules of one snake session.
// Every value here is consumed by the game package; nothing is hardcoded there.
type GameConfig struct {
	GridWidth    int
	GridHeight   int
	TickInterval time.Duration // Fixed period of the tick driver
	FoodCount    int           // Normal foods present at all times while playing
	Colors       []string      // Body/food palette, first entry is the fallback color

	ComboWindow time.Duration // Max gap between eliminations that still extends a combo

	UniversalLengthThreshold int
	BombLengthThreshold      int
	UniversalTTL             time.Duration
	BombTTL                  time.Duration

	NormalFoodScore        int
	SpecialItemScore       int
	EliminationUnitScore   int
	BombExplosionUnitScore int

	MaxSpawnAttempts int   // Rejection-sampling budget for food and special items
	Seed             int64 // 0 = seed from the clock
}

// DefaultGame returns the default game rules.
func DefaultGame() GameConfig {
	return GameConfig{
		GridWidth:    20,
		GridHeight:   20,
		TickInterval: 250 * time.Millisecond,
		FoodCount:    5,
		Colors:       []string{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE"},

		ComboWindow: 3000 * time.Millisecond,

		UniversalLengthThreshold: 10,
		BombLengthThreshold:      20,
		UniversalTTL:             8000 * time.Millisecond,
		BombTTL:                  5000 * time.Millisecond,

		NormalFoodScore:        10,
		SpecialItemScore:       50,
		EliminationUnitScore:   3,
		BombExplosionUnitScore: 20,

		MaxSpawnAttempts: 100,
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if w := getEnvInt("SNAKE_GRID_WIDTH", 0); w > 0 {
		cfg.GridWidth = w
	}
	if h := getEnvInt("SNAKE_GRID_HEIGHT", 0); h > 0 {
		cfg.GridHeight = h
	}
	if d := getEnvDuration("SNAKE_TICK_INTERVAL", 0); d > 0 {
		cfg.TickInterval = d
	}
	if n := getEnvInt("SNAKE_FOOD_COUNT", 0); n > 0 {
		cfg.FoodCount = n
	}
	if c := os.Getenv("SNAKE_COLORS"); c != "" {
		cfg.Colors = upperAll(splitList(c))
	}
	if d := getEnvDuration("SNAKE_COMBO_WINDOW", 0); d > 0 {
		cfg.ComboWindow = d
	}
	if s := getEnvInt("SNAKE_SEED", 0); s != 0 {
		cfg.Seed = int64(s)
	}

	return cfg
}

// Cells returns the number of grid cells.
func (c GameConfig) Cells() int {
	return c.GridWidth * c.GridHeight
}

// Validate rejects configurations the engine cannot run with.
func (c GameConfig) Validate() error {
	if c.GridWidth < 2 || c.GridHeight < 1 {
		return fmt.Errorf("invalid grid %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if len(c.Colors) == 0 {
		return errors.New("color palette is empty")
	}
	// Two cells belong to the initial snake.
	if c.FoodCount < 0 || c.FoodCount >= c.Cells()-2 {
		return fmt.Errorf("food count %d does not fit a %dx%d grid", c.FoodCount, c.GridWidth, c.GridHeight)
	}
	if c.MaxSpawnAttempts <= 0 {
		return errors.New("spawn attempts must be positive")
	}
	return nil
}

// =============================================================================
// INPUT CONFIGURATION
// =============================================================================

// InputConfig controls how external input events are queued and throttled.
type InputConfig struct {
	QueueSize      int           // Buffered commands before new ones are dropped
	MaxPerWindow   int           // Commands allowed per source per window
	WindowDuration time.Duration // Rate limit window
}

// DefaultInput returns the default input configuration.
func DefaultInput() InputConfig {
	return InputConfig{
		QueueSize:      64,
		MaxPerWindow:   30, // A fast player tops out well below this
		WindowDuration: time.Second,
	}
}

// InputFromEnv returns input configuration with environment overrides.
func InputFromEnv() InputConfig {
	cfg := DefaultInput()

	cfg.QueueSize = getEnvInt("INPUT_QUEUE_SIZE", cfg.QueueSize)
	cfg.MaxPerWindow = getEnvInt("INPUT_MAX_PER_WINDOW", cfg.MaxPerWindow)
	cfg.WindowDuration = getEnvDuration("INPUT_WINDOW", cfg.WindowDuration)

	return cfg
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig controls the append-only event log.
type EventLogConfig struct {
	Path    string // NDJSON output file, empty = in-memory only
	Enabled bool
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{
		Path:    "events.jsonl",
		Enabled: true,
	}
}

// EventLogFromEnv returns event log configuration with environment overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		cfg.Path = p
	}
	cfg.Enabled = getEnvBool("EVENT_LOG_ENABLED", cfg.Enabled)

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
	LogLevel    string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:     3000,
		LogLevel: "info",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if o := os.Getenv("CORS_ORIGINS"); o != "" {
		cfg.CORSOrigins = splitList(o)
	}
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		cfg.LogLevel = l
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns observability configuration with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if a := os.Getenv("DEBUG_LISTEN_ADDR"); a != "" {
		cfg.ListenAddr = a
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game          GameConfig
	Input         InputConfig
	EventLog      EventLogConfig
	Server        ServerConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:          GameFromEnv(),
		Input:         InputFromEnv(),
		EventLog:      EventLogFromEnv(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func upperAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToUpper(s)
	}
	return in
}
