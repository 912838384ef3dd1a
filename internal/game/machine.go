package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"color-snake/internal/config"
)

// queuedEffect is an effect stamped with the generation that scheduled it
type queuedEffect struct {
	effect     Effect
	generation uint64
}

// Machine is the single-threaded game state machine. It owns one GameState
// and a FIFO queue of deferred effects.
//
// Lifecycle: NewMachine (Init) -> Start -> Step/Settle per tick -> Restart.
// Step performs motion and consumption only; everything that depends on a
// consumption having been committed is queued and resolved by Settle.
//
// Machine is not safe for concurrent use; Engine serializes access.
type Machine struct {
	cfg     config.GameConfig
	palette []Color
	clock   Clock

	seed     int64
	rng      *rand.Rand
	foods    *FoodSpawner
	specials *SpecialItemManager

	state  GameState
	queue  []queuedEffect
	events []Event
}

// NewMachine validates cfg and initializes an IDLE session
func NewMachine(cfg config.GameConfig, clock Clock) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	if clock == nil {
		clock = SystemClock{}
	}

	palette := make([]Color, len(cfg.Colors))
	for i, c := range cfg.Colors {
		palette[i] = Color(c)
	}

	m := &Machine{
		cfg:     cfg,
		palette: palette,
		clock:   clock,
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}
	m.reseed(seed)
	m.Init()
	return m, nil
}

// reseed rebuilds the random source and everything that draws from it
func (m *Machine) reseed(seed int64) {
	m.seed = seed
	m.rng = rand.New(rand.NewSource(seed))
	m.foods = NewFoodSpawner(m.cfg.GridWidth, m.cfg.GridHeight, m.cfg.FoodCount, m.cfg.MaxSpawnAttempts, m.palette, m.rng)
	m.specials = NewSpecialItemManager(SpecialItemConfig{
		Width:              m.cfg.GridWidth,
		Height:             m.cfg.GridHeight,
		Attempts:           m.cfg.MaxSpawnAttempts,
		UniversalThreshold: m.cfg.UniversalLengthThreshold,
		BombThreshold:      m.cfg.BombLengthThreshold,
		UniversalTTL:       m.cfg.UniversalTTL,
		BombTTL:            m.cfg.BombTTL,
	}, m.rng)
}

// Init replaces the state with a fresh IDLE session. The high score and the
// generation counter survive.
func (m *Machine) Init() {
	snake := initialSnake(m.cfg.GridWidth, m.cfg.GridHeight, m.palette)
	m.state = GameState{
		Session:    uuid.New(),
		Generation: m.state.Generation + 1,
		Status:     StatusIdle,
		Snake:      snake,
		Direction:  DirRight,
		Foods:      m.foods.SpawnInitial(snake, nil),
		HighScore:  m.state.HighScore,
	}
	m.queue = m.queue[:0]
}

// State returns a deep copy of the current state
func (m *Machine) State() GameState {
	return m.state.Clone()
}

// Seed returns the seed of the current session
func (m *Machine) Seed() int64 {
	return m.seed
}

// Config returns the configuration the machine was built with
func (m *Machine) Config() config.GameConfig {
	return m.cfg
}

// Palette returns the body colors in tie-break order
func (m *Machine) Palette() []Color {
	return append([]Color(nil), m.palette...)
}

// Pending reports how many deferred effects are queued
func (m *Machine) Pending() int {
	return len(m.queue)
}

// DrainEvents returns and clears the events recorded since the last drain
func (m *Machine) DrainEvents() []Event {
	events := m.events
	m.events = nil
	return events
}

func (m *Machine) emit(t EventType, payload interface{}) {
	m.events = append(m.events, NewEvent(t, m.clock.Now(), m.state.Tick, m.state.Session.String(), payload))
}

func (m *Machine) enqueue(e Effect) {
	if e == nil {
		return
	}
	m.queue = append(m.queue, queuedEffect{effect: e, generation: m.state.Generation})
}

// Start moves an IDLE session to PLAYING
func (m *Machine) Start() bool {
	if m.state.Status != StatusIdle {
		return false
	}
	s := m.state.Clone()
	s.Status = StatusPlaying
	m.state = s
	m.emit(EventTypeStart, SessionPayload{Seed: m.seed, HighScore: s.HighScore})
	return true
}

// TogglePause switches between PLAYING and PAUSED. Position and score are
// untouched; other statuses are left alone.
func (m *Machine) TogglePause() bool {
	s := m.state.Clone()
	switch s.Status {
	case StatusPlaying:
		s.Status = StatusPaused
		m.state = s
		m.emit(EventTypePause, nil)
	case StatusPaused:
		s.Status = StatusPlaying
		m.state = s
		m.emit(EventTypeResume, nil)
	default:
		return false
	}
	return true
}

// SetDirection accepts dir only while PLAYING and when it does not reverse
// the current direction
func (m *Machine) SetDirection(dir Direction) bool {
	if m.state.Status != StatusPlaying || !dir.Valid() {
		return false
	}
	if dir == m.state.Direction.Opposite() {
		return false
	}
	if dir == m.state.Direction {
		return true
	}
	s := m.state.Clone()
	from := s.Direction
	s.Direction = dir
	m.state = s
	m.emit(EventTypeDirection, DirectionPayload{From: string(from), To: string(dir)})
	return true
}

// Restart begins a new PLAYING session. Only the high score carries over.
// Effects queued by the old session are discarded and any that slip through
// are skipped by their generation stamp.
func (m *Machine) Restart() {
	highScore := max(m.state.Score, m.state.HighScore)
	m.reseed(m.rng.Int63())
	m.state.HighScore = highScore
	m.Init()

	s := m.state.Clone()
	s.Status = StatusPlaying
	m.state = s
	m.emit(EventTypeRestart, SessionPayload{Seed: m.seed, HighScore: highScore})
}

// Step advances one tick: motion plus at most one consumption. Effects of
// the consumption are queued for Settle.
func (m *Machine) Step(now time.Time) {
	if m.state.Status != StatusPlaying {
		return
	}

	s := m.state.Clone()
	s.Tick++
	next := NextHead(s.Snake, s.Direction)

	if item, ok := ItemAt(s.SpecialItems, next); ok {
		color := MajorityColor(s.Snake.BodyColors(), m.palette)
		s.Snake = Grow(s.Snake, s.Direction, color)
		s.SpecialItems = removeItem(s.SpecialItems, item)
		s = addScore(s, m.cfg.SpecialItemScore)
		m.state = s
		m.emit(EventTypeSpecialEaten, SpecialPayload{Kind: string(item.Kind), X: item.X, Y: item.Y, Color: string(color)})
		m.enqueue(effectFor(item.Kind))
	} else if food, ok := FoodAt(s.Foods, next); ok {
		s.Snake = Grow(s.Snake, s.Direction, food.Color)
		s.Foods = m.foods.Replace(s.Foods, food.Position, s.Snake, s.SpecialItems)
		s = addScore(s, m.cfg.NormalFoodScore)
		m.state = s
		m.emit(EventTypeFoodEaten, FoodPayload{X: food.X, Y: food.Y, Color: string(food.Color), Score: m.cfg.NormalFoodScore})
		m.enqueue(EliminationCheck{})
	} else if Collides(candidateSnake(s.Snake, next), m.cfg.GridWidth, m.cfg.GridHeight) {
		s.Status = StatusGameOver
		s.HighScore = max(s.Score, s.HighScore)
		m.state = s
		m.queue = m.queue[:0]
		m.emit(EventTypeGameOver, GameOverPayload{
			Score:     s.Score,
			HighScore: s.HighScore,
			Length:    len(s.Snake),
			X:         next.X,
			Y:         next.Y,
		})
		return
	} else {
		s.Snake = Move(s.Snake, s.Direction)
		m.state = s
	}

	m.emit(EventTypeTick, TickPayload{Length: len(s.Snake), Score: s.Score, Direction: string(s.Direction)})
}

// Settle resolves the tick boundary in stage order: queued effects (FIFO,
// including follow-ups they schedule), combo decay, special-item expiry,
// then milestone triggers.
func (m *Machine) Settle(now time.Time) {
	if m.state.Status != StatusPlaying {
		return
	}

	ctx := &EffectContext{
		Now:     now,
		Config:  m.cfg,
		Palette: m.palette,
		Emit:    m.emit,
		Enqueue: m.enqueue,
	}
	for len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		if next.generation != m.state.Generation {
			log.WithFields(log.Fields{
				"effect":     next.effect.Name(),
				"generation": next.generation,
			}).Debug("Skipping stale effect")
			continue
		}
		m.state = ApplyEffect(ctx, next.effect, m.state.Clone())
	}

	s := m.state.Clone()
	if s.Combo != 0 && ComboExpired(s.LastElimination, now, m.cfg.ComboWindow) {
		s.Combo = 0
	}

	alive, expired := Expire(s.SpecialItems, now)
	s.SpecialItems = alive
	m.state = s
	for _, it := range expired {
		m.emit(EventTypeSpecialExpired, SpecialPayload{Kind: string(it.Kind), X: it.X, Y: it.Y})
	}

	m.fireMilestones(now)
}

// fireMilestones latches and spawns special items whose length threshold
// has been reached. A latch is set even when no free cell was found.
func (m *Machine) fireMilestones(now time.Time) {
	s := m.state.Clone()
	triggers := m.specials.CheckTriggers(len(s.Snake), s.UniversalTriggered, s.BombTriggered)
	if !triggers.Universal && !triggers.Bomb {
		return
	}

	var kinds []ItemKind
	if triggers.Universal {
		s.UniversalTriggered = true
		kinds = append(kinds, ItemUniversal)
	}
	if triggers.Bomb {
		s.BombTriggered = true
		kinds = append(kinds, ItemBomb)
	}

	for _, kind := range kinds {
		item, ok := m.specials.Spawn(kind, s.Snake, s.Foods, s.SpecialItems, now)
		if !ok {
			log.WithFields(log.Fields{
				"kind":    kind,
				"session": s.Session,
			}).Warn("⚠️ No free cell for special item")
			continue
		}
		s.SpecialItems = append(s.SpecialItems, item)
		m.state = s
		m.emit(EventTypeSpecialSpawned, SpecialPayload{Kind: string(kind), X: item.X, Y: item.Y, ExpiresAt: item.ExpiresAt.UnixNano()})
	}
	m.state = s
}
