package api

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"color-snake/internal/config"
	"color-snake/internal/game"
)

// Metrics with bounded cardinality. Label values come from fixed sets
// (item kinds, palette colors, rejection reasons).
var (
	// Game engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snake_tick_duration_seconds",
		Help:    "Time spent in one step plus settle",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	scoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_score",
		Help: "Score of the current session",
	})

	highScoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_high_score",
		Help: "Best score since process start",
	})

	lengthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_length",
		Help: "Snake length including the head",
	})

	comboGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_combo",
		Help: "Current combo counter",
	})

	eliminationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_eliminations_total",
		Help: "Runs removed by elimination",
	}, []string{"color"})

	eliminatedSegmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snake_eliminated_segments_total",
		Help: "Body segments removed by elimination",
	})

	foodEatenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snake_food_eaten_total",
		Help: "Normal food consumed",
	})

	specialItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_special_items_total",
		Help: "Special item lifecycle events",
	}, []string{"kind", "outcome"}) // outcome: spawned, consumed, expired

	effectSegmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_effect_segments_total",
		Help: "Body segments recolored or destroyed by special effects",
	}, []string{"kind"})

	reconstructionLossTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snake_reconstruction_loss_total",
		Help: "Body segments dropped because no free cell was found",
	})

	gamesOverTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snake_games_over_total",
		Help: "Sessions that ended in a collision",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_sessions_total",
		Help: "Sessions begun",
	}, []string{"how"}) // start, restart

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	wsCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_commands_total",
		Help: "Inbound WebSocket commands by outcome",
	}, []string{"outcome"}) // queued, dropped, invalid
)

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg config.ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is localhost
	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Warn("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	handler := debugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Warnf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// debugHandler builds the pprof/metrics/health mux
func debugHandler(cfg config.ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Optional basic auth wrapper
	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records tick timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RecordSnapshot updates the per-session gauges. Registered with
// Engine.OnPublish, so it must stay cheap.
func RecordSnapshot(snap *game.Snapshot) {
	if snap == nil {
		return
	}
	scoreGauge.Set(float64(snap.Score))
	highScoreGauge.Set(float64(snap.HighScore))
	lengthGauge.Set(float64(snap.Length()))
	comboGauge.Set(float64(snap.Combo))
}

// RecordEvent turns a domain event into counter increments. Registered with
// Engine.OnEvent.
func RecordEvent(ev game.Event) {
	switch ev.Type {
	case game.EventTypeStart:
		sessionsTotal.WithLabelValues("start").Inc()
	case game.EventTypeRestart:
		sessionsTotal.WithLabelValues("restart").Inc()
	case game.EventTypeFoodEaten:
		foodEatenTotal.Inc()
	case game.EventTypeSpecialSpawned:
		var p game.SpecialPayload
		if decodePayload(ev, &p) {
			specialItemsTotal.WithLabelValues(p.Kind, "spawned").Inc()
		}
	case game.EventTypeSpecialEaten:
		var p game.SpecialPayload
		if decodePayload(ev, &p) {
			specialItemsTotal.WithLabelValues(p.Kind, "consumed").Inc()
		}
	case game.EventTypeSpecialExpired:
		var p game.SpecialPayload
		if decodePayload(ev, &p) {
			specialItemsTotal.WithLabelValues(p.Kind, "expired").Inc()
		}
	case game.EventTypeElimination:
		var p game.EliminationPayload
		if decodePayload(ev, &p) {
			eliminationsTotal.WithLabelValues(p.Color).Inc()
			eliminatedSegmentsTotal.Add(float64(p.Count))
		}
	case game.EventTypeEffectApplied:
		var p game.EffectPayload
		if decodePayload(ev, &p) {
			effectSegmentsTotal.WithLabelValues(p.Kind).Add(float64(p.Affected))
		}
	case game.EventTypeReconstructionLoss:
		var p game.ReconstructionLossPayload
		if decodePayload(ev, &p) {
			reconstructionLossTotal.Add(float64(p.Dropped))
		}
	case game.EventTypeGameOver:
		gamesOverTotal.Inc()
	}
}

func decodePayload(ev game.Event, v interface{}) bool {
	if len(ev.Payload) == 0 {
		return false
	}
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		log.WithError(err).WithField("type", ev.Type).Debug("Undecodable event payload")
		return false
	}
	return true
}

// RecordEngineStats samples engine counters. Called periodically from main;
// it takes the engine lock, so never from an engine callback.
func RecordEngineStats(stats game.EngineStats) {
	if stats.LastTickDuration > 0 {
		RecordTick(stats.LastTickDuration)
	}
}

// UpdateEventLogStats updates event log metrics
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// RecordWSCommand counts an inbound WebSocket command
func RecordWSCommand(outcome string) {
	wsCommandsTotal.WithLabelValues(outcome).Inc()
}
