package game

import (
	"sync/atomic"
	"time"
)

// SpecialItemSnapshot is a special item with its remaining lifetime
// resolved at snapshot time
type SpecialItemSnapshot struct {
	X           int    `json:"x" msgpack:"x"`
	Y           int    `json:"y" msgpack:"y"`
	Kind        string `json:"type" msgpack:"type"`
	ExpiresAt   int64  `json:"expiresAt" msgpack:"expiresAt"` // Unix millis
	RemainingMs int64  `json:"remainingMs" msgpack:"remainingMs"`
}

// Snapshot is a complete immutable game state for rendering.
// Slices are owned by the snapshot and never shared with the machine.
type Snapshot struct {
	Sequence  uint64    `json:"sequence" msgpack:"sequence"` // Monotonic sequence for ordering
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Session   string    `json:"session" msgpack:"session"`
	Tick      uint64    `json:"tick" msgpack:"tick"`
	Status    Status    `json:"status" msgpack:"status"`

	Width  int `json:"width" msgpack:"width"`
	Height int `json:"height" msgpack:"height"`

	Snake        []Segment             `json:"snake" msgpack:"snake"`
	Direction    Direction             `json:"direction" msgpack:"direction"`
	Foods        []Food                `json:"foods" msgpack:"foods"`
	SpecialItems []SpecialItemSnapshot `json:"specialItems" msgpack:"specialItems"`

	Score           int `json:"score" msgpack:"score"`
	HighScore       int `json:"highScore" msgpack:"highScore"`
	Combo           int `json:"combo" msgpack:"combo"`
	DroppedSegments int `json:"droppedSegments" msgpack:"droppedSegments"`
}

// Length is the snake length including the head
func (s *Snapshot) Length() int {
	return len(s.Snake)
}

// NewSnapshot renders state as of now
func NewSnapshot(state GameState, width, height int, now time.Time) *Snapshot {
	snap := &Snapshot{
		Timestamp:       now,
		Session:         state.Session.String(),
		Tick:            state.Tick,
		Status:          state.Status,
		Width:           width,
		Height:          height,
		Snake:           state.Snake.Clone(),
		Direction:       state.Direction,
		Foods:           append(make([]Food, 0, len(state.Foods)), state.Foods...),
		SpecialItems:    make([]SpecialItemSnapshot, 0, len(state.SpecialItems)),
		Score:           state.Score,
		HighScore:       state.HighScore,
		Combo:           state.Combo,
		DroppedSegments: state.DroppedSegments,
	}
	for _, it := range state.SpecialItems {
		remaining := it.ExpiresAt.Sub(now).Milliseconds()
		if remaining < 0 {
			remaining = 0
		}
		snap.SpecialItems = append(snap.SpecialItems, SpecialItemSnapshot{
			X:           it.X,
			Y:           it.Y,
			Kind:        string(it.Kind),
			ExpiresAt:   it.ExpiresAt.UnixMilli(),
			RemainingMs: remaining,
		})
	}
	return snap
}

// SnapshotStore holds the latest published snapshot.
// One producer (the engine, under its lock), any number of lock-free readers.
type SnapshotStore struct {
	latest   atomic.Pointer[Snapshot]
	sequence atomic.Uint64
}

// NewSnapshotStore creates an empty store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish stamps snap with the next sequence number and makes it current.
// snap must not be modified afterwards.
func (s *SnapshotStore) Publish(snap *Snapshot) *Snapshot {
	snap.Sequence = s.sequence.Add(1)
	s.latest.Store(snap)
	return snap
}

// Latest returns the current snapshot, or nil before the first publish
func (s *SnapshotStore) Latest() *Snapshot {
	return s.latest.Load()
}

// Sequence returns the number of snapshots published so far
func (s *SnapshotStore) Sequence() uint64 {
	return s.sequence.Load()
}
