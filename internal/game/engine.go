package game

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"color-snake/internal/config"
)

// Engine owns the state machine and drives it on a fixed interval.
// All inputs and ticks are serialized by one mutex; readers use the
// lock-free snapshot store.
type Engine struct {
	mu      sync.Mutex
	machine *Machine
	clock   Clock
	width   int
	height  int

	tickInterval time.Duration
	driverStop   chan struct{} // nil while no driver runs
	driverWg     sync.WaitGroup
	closed       bool

	// Snapshot system for lock-free render separation
	snapshots *SnapshotStore

	// Event sourcing for replay and debugging
	eventLog *EventLog

	// Callbacks run under the engine lock; they must not block or call back in
	onPublish []func(*Snapshot)
	onEvent   []func(Event)

	// Stats
	tickCount        uint64
	lastTickDuration time.Duration
}

// EngineStats is a point-in-time summary for monitoring
type EngineStats struct {
	Session          string        `json:"session"`
	Status           Status        `json:"status"`
	Ticks            uint64        `json:"ticks"`
	Score            int           `json:"score"`
	HighScore        int           `json:"highScore"`
	Length           int           `json:"length"`
	Combo            int           `json:"combo"`
	DroppedSegments  int           `json:"droppedSegments"`
	PendingEffects   int           `json:"pendingEffects"`
	Snapshots        uint64        `json:"snapshots"`
	Seed             int64         `json:"seed"`
	DriverRunning    bool          `json:"driverRunning"`
	LastTickDuration time.Duration `json:"lastTickDurationNs"`
}

// NewEngine creates an engine with an IDLE session and publishes its
// first snapshot. A nil clock means wall time.
func NewEngine(cfg config.GameConfig, clock Clock) (*Engine, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	m, err := NewMachine(cfg, clock)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		machine:      m,
		clock:        clock,
		width:        cfg.GridWidth,
		height:       cfg.GridHeight,
		tickInterval: cfg.TickInterval,
		snapshots:    NewSnapshotStore(),
		eventLog:     NewEventLog(),
	}
	e.publishLocked()
	return e, nil
}

// OnPublish registers a callback for every published snapshot
func (e *Engine) OnPublish(fn func(*Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPublish = append(e.onPublish, fn)
}

// OnEvent registers a callback for every domain event
func (e *Engine) OnEvent(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEvent = append(e.onEvent, fn)
}

// Start begins an IDLE session and the tick driver
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.machine.Start() {
		return false
	}
	e.afterInputLocked()
	log.WithFields(log.Fields{
		"session": e.machine.state.Session,
		"seed":    e.machine.Seed(),
	}).Infof("🎮 Game started at %v per tick", e.tickInterval)
	return true
}

// TogglePause pauses a running game or resumes a paused one
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.machine.TogglePause() {
		return false
	}
	e.afterInputLocked()
	return true
}

// SetDirection forwards a direction change; reversals are rejected
func (e *Engine) SetDirection(dir Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.machine.SetDirection(dir) {
		return false
	}
	e.afterInputLocked()
	return true
}

// Restart starts a new session keeping only the high score
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	// The old driver's pending tick must not land in the new session
	e.stopDriverLocked()
	e.machine.Restart()
	e.afterInputLocked()
	log.WithFields(log.Fields{
		"session":   e.machine.state.Session,
		"seed":      e.machine.Seed(),
		"highScore": e.machine.state.HighScore,
	}).Info("🔄 Game restarted")
}

// Tick advances the game once, outside of the driver. Used by tests and
// by callers that drive time themselves.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.advanceLocked()
	e.syncDriverLocked()
}

// GetSnapshot returns the latest immutable snapshot for lock-free rendering
func (e *Engine) GetSnapshot() *Snapshot {
	return e.snapshots.Latest()
}

// GetState returns a deep copy of the machine state
func (e *Engine) GetState() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.State()
}

// Config returns the game configuration
func (e *Engine) Config() config.GameConfig {
	return e.machine.Config()
}

// Stats returns engine counters
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.machine.state
	return EngineStats{
		Session:          s.Session.String(),
		Status:           s.Status,
		Ticks:            e.tickCount,
		Score:            s.Score,
		HighScore:        s.HighScore,
		Length:           len(s.Snake),
		Combo:            s.Combo,
		DroppedSegments:  s.DroppedSegments,
		PendingEffects:   e.machine.Pending(),
		Snapshots:        e.snapshots.Sequence(),
		Seed:             e.machine.Seed(),
		DriverRunning:    e.driverStop != nil,
		LastTickDuration: e.lastTickDuration,
	}
}

// Close stops the driver and waits for it to exit. The engine ignores all
// input afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopDriverLocked()
	e.mu.Unlock()

	e.driverWg.Wait()
	log.Println("🛑 Game engine stopped")
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// advanceLocked runs one tick: Step, publish, Settle, publish.
// The first snapshot shows the consumption before its effects resolve.
func (e *Engine) advanceLocked() {
	if e.machine.state.Status != StatusPlaying {
		return
	}

	start := time.Now()
	now := e.clock.Now()

	e.machine.Step(now)
	e.tickCount++
	e.flushEventsLocked()
	e.publishLocked()

	if e.machine.state.Status == StatusPlaying {
		e.machine.Settle(now)
		e.flushEventsLocked()
		e.publishLocked()
	}

	e.lastTickDuration = time.Since(start)
}

// afterInputLocked publishes an input-driven transition and fixes up the driver
func (e *Engine) afterInputLocked() {
	e.flushEventsLocked()
	e.publishLocked()
	e.syncDriverLocked()
}

// syncDriverLocked runs the driver exactly while the game is PLAYING
func (e *Engine) syncDriverLocked() {
	if e.machine.state.Status == StatusPlaying && !e.closed {
		e.startDriverLocked()
	} else {
		e.stopDriverLocked()
	}
}

func (e *Engine) startDriverLocked() {
	if e.driverStop != nil || e.tickInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	e.driverStop = stop
	e.driverWg.Add(1)

	go func() {
		defer e.driverWg.Done()
		ticker := time.NewTicker(e.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.driverTick(stop)
			case <-stop:
				return
			}
		}
	}()
}

func (e *Engine) stopDriverLocked() {
	if e.driverStop == nil {
		return
	}
	close(e.driverStop)
	e.driverStop = nil
}

// driverTick is one driver-initiated tick. A driver that was replaced while
// this tick waited for the lock sees its stop channel closed and does nothing.
func (e *Engine) driverTick(stop chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-stop:
		return
	default:
	}

	e.advanceLocked()
	if e.machine.state.Status != StatusPlaying {
		e.stopDriverLocked()
	}
}

func (e *Engine) flushEventsLocked() {
	for _, ev := range e.machine.DrainEvents() {
		e.eventLog.Emit(ev)
		for _, fn := range e.onEvent {
			fn(ev)
		}
		switch ev.Type {
		case EventTypeGameOver:
			log.WithFields(log.Fields{
				"session": ev.Session,
				"tick":    ev.TickNum,
				"payload": string(ev.Payload),
			}).Info("💀 Game over")
		case EventTypeReconstructionLoss:
			log.WithFields(log.Fields{
				"session": ev.Session,
				"tick":    ev.TickNum,
				"payload": string(ev.Payload),
			}).Warn("⚠️ Body segments dropped during reconstruction")
		case EventTypeElimination, EventTypeEffectApplied:
			log.WithFields(log.Fields{
				"session": ev.Session,
				"tick":    ev.TickNum,
				"payload": string(ev.Payload),
			}).Debugf("✨ %s", ev.Type)
		}
	}
}

func (e *Engine) publishLocked() {
	snap := e.snapshots.Publish(NewSnapshot(e.machine.state, e.width, e.height, e.clock.Now()))
	for _, fn := range e.onPublish {
		fn(snap)
	}
}
