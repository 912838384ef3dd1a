package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown            EventType = iota
	EventTypeTick                         // Tick boundary
	EventTypeStart                        // Session started, carries the seed
	EventTypePause                        // PLAYING -> PAUSED
	EventTypeResume                       // PAUSED -> PLAYING
	EventTypeRestart                      // New session, carries the seed
	EventTypeDirection                    // Accepted direction change
	EventTypeFoodEaten                    // Normal food consumed
	EventTypeSpecialEaten                 // Special item consumed
	EventTypeSpecialSpawned               // Milestone item placed
	EventTypeSpecialExpired               // Special item timed out
	EventTypeElimination                  // Run removed
	EventTypeEffectApplied                // Universal/Bomb resolved
	EventTypeGameOver                     // Wall or self collision
	EventTypeReconstructionLoss           // Body segments could not be placed
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

var eventTypeNames = map[EventType]string{
	EventTypeTick:               "tick",
	EventTypeStart:              "start",
	EventTypePause:              "pause",
	EventTypeResume:             "resume",
	EventTypeRestart:            "restart",
	EventTypeDirection:          "direction",
	EventTypeFoodEaten:          "food_eaten",
	EventTypeSpecialEaten:       "special_eaten",
	EventTypeSpecialSpawned:     "special_spawned",
	EventTypeSpecialExpired:     "special_expired",
	EventTypeElimination:        "elimination",
	EventTypeEffectApplied:      "effect_applied",
	EventTypeGameOver:           "game_over",
	EventTypeReconstructionLoss: "reconstruction_loss",
}

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano, game clock
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence, set by the log
	TickNum   uint64          `json:"tickNum"`   // Game tick this occurred in
	Session   string          `json:"session"`   // Game session id
	Payload   json.RawMessage `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText writes the event type by name so the NDJSON log stays readable
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a name written by MarshalText
func (t *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseEventType looks an event type up by name
func ParseEventType(name string) (EventType, error) {
	for t, n := range eventTypeNames {
		if n == name {
			return t, nil
		}
	}
	return EventTypeUnknown, fmt.Errorf("unknown event type %q", name)
}

// Typed payloads for different event types

// SessionPayload is carried by start and restart; the seed makes the
// session replayable
type SessionPayload struct {
	Seed      int64 `json:"seed"`
	HighScore int   `json:"highScore"`
}

// TickPayload describes the state after a step
type TickPayload struct {
	Length    int    `json:"length"`
	Score     int    `json:"score"`
	Direction string `json:"direction"`
}

// DirectionPayload records an accepted direction change
type DirectionPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FoodPayload records a consumed normal food
type FoodPayload struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
	Score int    `json:"score"`
}

// SpecialPayload records a spawned, eaten or expired special item
type SpecialPayload struct {
	Kind      string `json:"kind"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
	Color     string `json:"color,omitempty"`
}

// EliminationPayload contains elimination details
type EliminationPayload struct {
	Color       string `json:"color"`
	Count       int    `json:"count"`
	Combo       int    `json:"combo"`
	ScoreGained int    `json:"scoreGained"`
	SnakeLength int    `json:"snakeLength"`
}

// EffectPayload contains the result of a special effect
type EffectPayload struct {
	Kind        string `json:"kind"`
	Color       string `json:"color"`
	Affected    int    `json:"affected"`
	ScoreGained int    `json:"scoreGained,omitempty"`
}

// GameOverPayload records the final score and the cell that ended the game
type GameOverPayload struct {
	Score     int `json:"score"`
	HighScore int `json:"highScore"`
	Length    int `json:"length"`
	X         int `json:"x"`
	Y         int `json:"y"`
}

// ReconstructionLossPayload reports body segments that found no cell
type ReconstructionLossPayload struct {
	Requested int `json:"requested"`
	Placed    int `json:"placed"`
	Dropped   int `json:"dropped"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event stamped with at
func NewEvent(eventType EventType, at time.Time, tickNum uint64, session string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: at.UnixNano(),
		TickNum:   tickNum,
		Session:   session,
		Payload:   EncodePayload(payload),
	}
}
