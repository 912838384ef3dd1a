package api

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"color-snake/internal/game"
	"color-snake/internal/input"
)

// configResponse is the client-facing view of the game rules
type configResponse struct {
	GridWidth                int      `json:"gridWidth"`
	GridHeight               int      `json:"gridHeight"`
	TickIntervalMs           int64    `json:"tickIntervalMs"`
	FoodCount                int      `json:"foodCount"`
	Colors                   []string `json:"colors"`
	ComboWindowMs            int64    `json:"comboWindowMs"`
	UniversalLengthThreshold int      `json:"universalLengthThreshold"`
	BombLengthThreshold      int      `json:"bombLengthThreshold"`
	UniversalTTLMs           int64    `json:"universalTtlMs"`
	BombTTLMs                int64    `json:"bombTtlMs"`
	NormalFoodScore          int      `json:"normalFoodScore"`
	SpecialItemScore         int      `json:"specialItemScore"`
	EliminationUnitScore     int      `json:"eliminationUnitScore"`
	BombExplosionUnitScore   int      `json:"bombExplosionUnitScore"`
}

// commandResponse wraps an input result with the snapshot it produced
type commandResponse struct {
	input.Result
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	// Lock-free: never contends with the tick driver
	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "No snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"engine":      h.engine.Stats(),
		"eventLog":    h.engine.GetEventLogStats(),
		"httpLimiter": h.limiter.Stats(),
	})
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.Config()
	writeJSON(w, configResponse{
		GridWidth:                cfg.GridWidth,
		GridHeight:               cfg.GridHeight,
		TickIntervalMs:           cfg.TickInterval.Milliseconds(),
		FoodCount:                cfg.FoodCount,
		Colors:                   cfg.Colors,
		ComboWindowMs:            cfg.ComboWindow.Milliseconds(),
		UniversalLengthThreshold: cfg.UniversalLengthThreshold,
		BombLengthThreshold:      cfg.BombLengthThreshold,
		UniversalTTLMs:           cfg.UniversalTTL.Milliseconds(),
		BombTTLMs:                cfg.BombTTL.Milliseconds(),
		NormalFoodScore:          cfg.NormalFoodScore,
		SpecialItemScore:         cfg.SpecialItemScore,
		EliminationUnitScore:     cfg.EliminationUnitScore,
		BombExplosionUnitScore:   cfg.BombExplosionUnitScore,
	})
}

func (h *routerHandlers) handleDirection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	cmd, err := input.DirectionCommand(req.Direction, httpSource(r))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.apply(w, cmd)
}

func (h *routerHandlers) handleKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		writeError(w, "Key is required", http.StatusBadRequest)
		return
	}

	cmd := input.ParseKey(req.Key, httpSource(r))
	if cmd.Kind == input.CmdUnknown {
		writeError(w, "Unbound key: "+req.Key, http.StatusBadRequest)
		return
	}
	h.apply(w, cmd)
}

// handleCommand builds a handler for a body-less command route
func (h *routerHandlers) handleCommand(kind input.CommandKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.apply(w, input.Command{Kind: kind, Source: httpSource(r)})
	}
}

// apply runs cmd and writes the result. Rejected transitions are not
// errors: the body says accepted=false and carries the current status.
func (h *routerHandlers) apply(w http.ResponseWriter, cmd input.Command) {
	cmd.ReceivedAt = time.Now()
	res := h.input.ProcessCommand(cmd)

	if res.Reason == input.ReasonRateLimited {
		w.Header().Set("Retry-After", "1")
		writeError(w, res.Reason, http.StatusTooManyRequests)
		return
	}
	if res.Accepted {
		log.WithFields(log.Fields{
			"command": res.Command,
			"source":  cmd.Source,
			"status":  res.Status,
		}).Debug("🎮 Command applied")
	}
	writeJSON(w, commandResponse{Result: res, Snapshot: h.engine.GetSnapshot()})
}

func httpSource(r *http.Request) string {
	return "http:" + GetClientIP(r)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Debug("Response write failed")
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
