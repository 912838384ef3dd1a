package input

import (
	log "github.com/sirupsen/logrus"

	"color-snake/internal/game"
)

// Controller is the part of the engine that input drives
type Controller interface {
	Start() bool
	TogglePause() bool
	SetDirection(dir game.Direction) bool
	Restart()
	GetSnapshot() *game.Snapshot
}

// Result reports what a command did
type Result struct {
	Command  string      `json:"command"`
	Accepted bool        `json:"accepted"`
	Status   game.Status `json:"status"`
	Reason   string      `json:"reason,omitempty"`
}

// Rejection reasons reported in Result.Reason
const (
	ReasonRateLimited       = "rate limited"
	ReasonDirectionRejected = "direction rejected"
	ReasonNotApplicable     = "not applicable in current status"
	ReasonUnknownCommand    = "unknown command"
)

// Handler applies commands to the game
type Handler struct {
	ctrl        Controller
	rateLimiter *RateLimiter
}

// NewHandler creates a new command handler
func NewHandler(ctrl Controller, cfg RateLimitConfig) *Handler {
	return &Handler{
		ctrl:        ctrl,
		rateLimiter: NewRateLimiter(cfg),
	}
}

// Close releases the rate limiter
func (h *Handler) Close() {
	h.rateLimiter.Stop()
}

// ProcessCommand handles a single command
func (h *Handler) ProcessCommand(cmd Command) Result {
	res := Result{Command: cmd.Kind.String()}

	if cmd.Source != "" && !h.rateLimiter.Allow(cmd.Source) {
		log.WithField("source", cmd.Source).Debug("🚫 Input rate limited")
		res.Reason = ReasonRateLimited
		return h.finish(res)
	}

	switch cmd.Kind {
	case CmdDirection:
		res.Accepted = h.ctrl.SetDirection(cmd.Direction)
		if !res.Accepted {
			res.Reason = ReasonDirectionRejected
		}
	case CmdPause:
		res.Accepted = h.handlePause()
		if !res.Accepted {
			res.Reason = ReasonNotApplicable
		}
	case CmdStart:
		res.Accepted = h.handleStart()
		if !res.Accepted {
			res.Reason = ReasonNotApplicable
		}
	case CmdRestart:
		h.ctrl.Restart()
		res.Accepted = true
	default:
		res.Reason = ReasonUnknownCommand
	}
	return h.finish(res)
}

// handlePause toggles pause; from IDLE it starts the game
func (h *Handler) handlePause() bool {
	if h.status() == game.StatusIdle {
		return h.ctrl.Start()
	}
	return h.ctrl.TogglePause()
}

// handleStart starts an IDLE game or restarts a finished one
func (h *Handler) handleStart() bool {
	switch h.status() {
	case game.StatusIdle:
		return h.ctrl.Start()
	case game.StatusGameOver:
		h.ctrl.Restart()
		return true
	default:
		return false
	}
}

func (h *Handler) status() game.Status {
	if snap := h.ctrl.GetSnapshot(); snap != nil {
		return snap.Status
	}
	return game.StatusIdle
}

func (h *Handler) finish(res Result) Result {
	res.Status = h.status()
	return res
}
