package input

import (
	"sync"
	"testing"
	"time"

	"color-snake/internal/game"
)

// fakeController records calls and follows the engine's status rules
type fakeController struct {
	mu        sync.Mutex
	status    game.Status
	dir       game.Direction
	restarts  int
	callOrder []string
}

func newFakeController(status game.Status) *fakeController {
	return &fakeController{status: status, dir: game.DirRight}
}

func (f *fakeController) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callOrder = append(f.callOrder, "start")
	if f.status != game.StatusIdle {
		return false
	}
	f.status = game.StatusPlaying
	return true
}

func (f *fakeController) TogglePause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callOrder = append(f.callOrder, "pause")
	switch f.status {
	case game.StatusPlaying:
		f.status = game.StatusPaused
	case game.StatusPaused:
		f.status = game.StatusPlaying
	default:
		return false
	}
	return true
}

func (f *fakeController) SetDirection(dir game.Direction) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callOrder = append(f.callOrder, "dir:"+string(dir))
	if f.status != game.StatusPlaying || dir == f.dir.Opposite() {
		return false
	}
	f.dir = dir
	return true
}

func (f *fakeController) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callOrder = append(f.callOrder, "restart")
	f.restarts++
	f.status = game.StatusPlaying
}

func (f *fakeController) GetSnapshot() *game.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &game.Snapshot{Status: f.status, Direction: f.dir}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key  string
		kind CommandKind
		dir  game.Direction
	}{
		{"ArrowUp", CmdDirection, game.DirUp},
		{"w", CmdDirection, game.DirUp},
		{"K", CmdDirection, game.DirUp},
		{"ArrowDown", CmdDirection, game.DirDown},
		{"a", CmdDirection, game.DirLeft},
		{"right", CmdDirection, game.DirRight},
		{" ", CmdPause, ""},
		{"Space", CmdPause, ""},
		{"Enter", CmdStart, ""},
		{"r", CmdRestart, ""},
		{"F5", CmdUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cmd := ParseKey(tt.key, "test")
			if cmd.Kind != tt.kind || cmd.Direction != tt.dir {
				t.Errorf("Expected %s/%s, got %s/%s", tt.kind, tt.dir, cmd.Kind, cmd.Direction)
			}
			if cmd.Source != "test" {
				t.Errorf("Expected source to be kept, got %q", cmd.Source)
			}
		})
	}
}

func TestDirectionCommand(t *testing.T) {
	cmd, err := DirectionCommand("up", "c1")
	if err != nil || cmd.Direction != game.DirUp {
		t.Errorf("Expected UP, got %+v (%v)", cmd, err)
	}
	if _, err := DirectionCommand("diagonal", "c1"); err == nil {
		t.Error("Expected an error for an unknown direction")
	}
}

func TestHandlerPauseStartsFromIdle(t *testing.T) {
	ctrl := newFakeController(game.StatusIdle)
	h := NewHandler(ctrl, RateLimitConfig{})
	defer h.Close()

	res := h.ProcessCommand(Command{Kind: CmdPause})
	if !res.Accepted || res.Status != game.StatusPlaying {
		t.Errorf("Expected pause from IDLE to start the game, got %+v", res)
	}

	res = h.ProcessCommand(Command{Kind: CmdPause})
	if !res.Accepted || res.Status != game.StatusPaused {
		t.Errorf("Expected PAUSED, got %+v", res)
	}
}

func TestHandlerStartRestartsAfterGameOver(t *testing.T) {
	tests := []struct {
		name     string
		status   game.Status
		accepted bool
		restarts int
	}{
		{"idle", game.StatusIdle, true, 0},
		{"game over", game.StatusGameOver, true, 1},
		{"playing", game.StatusPlaying, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newFakeController(tt.status)
			h := NewHandler(ctrl, RateLimitConfig{})
			defer h.Close()

			res := h.ProcessCommand(Command{Kind: CmdStart})
			if res.Accepted != tt.accepted {
				t.Errorf("Expected accepted=%v, got %+v", tt.accepted, res)
			}
			if ctrl.restarts != tt.restarts {
				t.Errorf("Expected %d restarts, got %d", tt.restarts, ctrl.restarts)
			}
		})
	}
}

func TestHandlerRejectsReversal(t *testing.T) {
	ctrl := newFakeController(game.StatusPlaying)
	h := NewHandler(ctrl, RateLimitConfig{})
	defer h.Close()

	res := h.ProcessCommand(Command{Kind: CmdDirection, Direction: game.DirLeft})
	if res.Accepted || res.Reason == "" {
		t.Errorf("Expected reversal rejected with a reason, got %+v", res)
	}
	res = h.ProcessCommand(Command{Kind: CmdUnknown})
	if res.Accepted {
		t.Error("Unknown commands should not be accepted")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxPerWindow: 2, WindowDuration: time.Second})
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("First two commands should pass")
	}
	if rl.Allow("a") {
		t.Error("Third command in the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("Sources are limited independently")
	}

	now = now.Add(1100 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("A new window should reset the count")
	}
}

func TestHandlerRateLimitsPerSource(t *testing.T) {
	ctrl := newFakeController(game.StatusPlaying)
	h := NewHandler(ctrl, RateLimitConfig{MaxPerWindow: 1, WindowDuration: time.Hour})
	defer h.Close()

	h.ProcessCommand(Command{Kind: CmdDirection, Direction: game.DirUp, Source: "x"})
	res := h.ProcessCommand(Command{Kind: CmdDirection, Direction: game.DirLeft, Source: "x"})
	if res.Accepted || res.Reason != ReasonRateLimited {
		t.Errorf("Expected rate limiting, got %+v", res)
	}
}

func TestCommandQueuePreservesOrder(t *testing.T) {
	ctrl := newFakeController(game.StatusPlaying)
	h := NewHandler(ctrl, RateLimitConfig{})
	defer h.Close()

	q := NewCommandQueue(h, 16)
	q.Start()

	for _, d := range []game.Direction{game.DirUp, game.DirLeft, game.DirDown, game.DirRight} {
		if !q.Enqueue(Command{Kind: CmdDirection, Direction: d}) {
			t.Fatalf("Enqueue %s failed", d)
		}
	}
	q.Stop()

	want := []string{"dir:UP", "dir:LEFT", "dir:DOWN", "dir:RIGHT"}
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.callOrder) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ctrl.callOrder)
	}
	for i := range want {
		if ctrl.callOrder[i] != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], ctrl.callOrder[i])
		}
	}

	stats := q.Stats()
	if stats.Processed != 4 || stats.Dropped != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if q.Enqueue(Command{Kind: CmdPause}) {
		t.Error("Enqueue after Stop should fail")
	}
}
