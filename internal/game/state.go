package game

import (
	"time"

	"github.com/google/uuid"
)

// GameState is one immutable step of a session. The machine never mutates a
// published value; every transition works on a copy.
type GameState struct {
	Session    uuid.UUID
	Generation uint64
	Tick       uint64
	Status     Status

	Snake        Snake
	Direction    Direction
	Foods        []Food
	SpecialItems []SpecialItem

	Score           int
	HighScore       int
	Combo           int
	LastElimination time.Time // zero until the first elimination

	// Milestone latches, never reset within a session
	UniversalTriggered bool
	BombTriggered      bool

	// Body segments lost to reconstruction exhaustion this session
	DroppedSegments int
}

// Clone returns a deep copy
func (s GameState) Clone() GameState {
	out := s
	out.Snake = s.Snake.Clone()
	if s.Foods != nil {
		out.Foods = append([]Food(nil), s.Foods...)
	}
	if s.SpecialItems != nil {
		out.SpecialItems = append([]SpecialItem(nil), s.SpecialItems...)
	}
	return out
}

// Length is the snake length including the head
func (s GameState) Length() int {
	return len(s.Snake)
}

// initialSnake is the two-segment snake every session starts with:
// a colorless head and one red body segment trailing to the left.
func initialSnake(width, height int, palette []Color) Snake {
	head := Position{X: 10, Y: 10}
	if !InBounds(head, width, height) || !InBounds(Position{X: 9, Y: 10}, width, height) {
		head = Position{X: width / 2, Y: height / 2}
		if head.X == 0 {
			head.X = 1
		}
	}
	return Snake{
		{Position: head},
		{Position: Position{X: head.X - 1, Y: head.Y}, Color: startColor(palette)},
	}
}

// startColor is RED when the palette has it, otherwise the first color
func startColor(palette []Color) Color {
	for _, c := range palette {
		if c == "RED" {
			return c
		}
	}
	if len(palette) > 0 {
		return palette[0]
	}
	return "RED"
}
