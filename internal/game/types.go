package game

import (
	"fmt"
	"strings"
	"time"
)

// Position is an integer grid cell
type Position struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// Add returns p offset by the unit vector of dir
func (p Position) Add(dir Direction) Position {
	v := dir.Vector()
	return Position{X: p.X + v.X, Y: p.Y + v.Y}
}

// Direction of travel
type Direction string

const (
	DirUp    Direction = "UP"
	DirDown  Direction = "DOWN"
	DirLeft  Direction = "LEFT"
	DirRight Direction = "RIGHT"
)

// cardinalDirections is the canonical order used by body reconstruction
var cardinalDirections = [4]Direction{DirUp, DirDown, DirLeft, DirRight}

// Vector returns the unit offset for the direction (screen coordinates, y grows down)
func (d Direction) Vector() Position {
	switch d {
	case DirUp:
		return Position{X: 0, Y: -1}
	case DirDown:
		return Position{X: 0, Y: 1}
	case DirLeft:
		return Position{X: -1, Y: 0}
	case DirRight:
		return Position{X: 1, Y: 0}
	default:
		return Position{}
	}
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return d
	}
}

// Valid reports whether d is one of the four cardinal directions
func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// ParseDirection normalizes a direction name (case-insensitive)
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

// Color of a body segment or food. The head carries ColorNone.
type Color string

// ColorNone marks the colorless head segment
const ColorNone Color = ""

// Segment is one cell of the snake
type Segment struct {
	Position
	Color Color `json:"color,omitempty" msgpack:"color,omitempty"`
}

// Snake is ordered head-first. Segment 0 is the head and never has a color;
// every other segment always has one. Colors are bound to body indices,
// not to cells: movement shifts positions under the colors.
type Snake []Segment

// Head returns the head segment
func (s Snake) Head() Segment {
	return s[0]
}

// BodyColors returns the colors of segments 1..n-1 in order
func (s Snake) BodyColors() []Color {
	if len(s) < 2 {
		return nil
	}
	colors := make([]Color, len(s)-1)
	for i := 1; i < len(s); i++ {
		colors[i-1] = s[i].Color
	}
	return colors
}

// Clone returns an independent copy
func (s Snake) Clone() Snake {
	if s == nil {
		return nil
	}
	out := make(Snake, len(s))
	copy(out, s)
	return out
}

// Occupies reports whether any segment sits on p
func (s Snake) Occupies(p Position) bool {
	for _, seg := range s {
		if seg.Position == p {
			return true
		}
	}
	return false
}

// Food is a normal, colored food item
type Food struct {
	Position
	Color Color `json:"color" msgpack:"color"`
}

// ItemKind identifies a special item
type ItemKind string

const (
	ItemUniversal ItemKind = "UNIVERSAL"
	ItemBomb      ItemKind = "BOMB"
)

// SpecialItem is a timed, length-triggered item
type SpecialItem struct {
	Position
	Kind      ItemKind  `json:"type" msgpack:"type"`
	ExpiresAt time.Time `json:"expiresAt" msgpack:"expiresAt"`
}

// Status of a game session
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusPlaying  Status = "PLAYING"
	StatusPaused   Status = "PAUSED"
	StatusGameOver Status = "GAME_OVER"
)
