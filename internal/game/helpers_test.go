package game

import (
	"math/rand"
	"testing"
	"time"

	"color-snake/internal/config"
)

var testPalette = []Color{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE"}

var testEpoch = time.Unix(1700000000, 0)

// line builds a straight snake whose head is at head, travelling in dir,
// with the body trailing behind it
func line(head Position, dir Direction, colors ...Color) Snake {
	back := dir.Opposite().Vector()
	snake := Snake{{Position: head}}
	for i, c := range colors {
		snake = append(snake, Segment{
			Position: Position{X: head.X + back.X*(i+1), Y: head.Y + back.Y*(i+1)},
			Color:    c,
		})
	}
	return snake
}

// randomSnake builds a snake of n segments with random body colors.
// Positions are laid out row by row and only matter for uniqueness.
func randomSnake(rng *rand.Rand, n int, palette []Color) Snake {
	snake := make(Snake, n)
	for i := range snake {
		snake[i].Position = Position{X: i % 20, Y: i / 20}
		if i > 0 {
			snake[i].Color = palette[rng.Intn(len(palette))]
		}
	}
	return snake
}

func testConfig() config.GameConfig {
	cfg := config.DefaultGame()
	cfg.Seed = 42
	cfg.TickInterval = time.Hour
	return cfg
}

// newPlayingMachine returns a started machine on a manual clock
func newPlayingMachine(t *testing.T) (*Machine, *ManualClock) {
	t.Helper()
	clock := NewManualClock(testEpoch)
	m, err := NewMachine(testConfig(), clock)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	if !m.Start() {
		t.Fatal("Start should move IDLE to PLAYING")
	}
	m.DrainEvents()
	return m, clock
}

// place replaces the snake and foods of a machine's current state
func place(m *Machine, snake Snake, dir Direction, foods ...Food) {
	s := m.state.Clone()
	s.Snake = snake
	s.Direction = dir
	s.Foods = foods
	m.state = s
}

func colorsOf(snake Snake) []Color {
	return snake.BodyColors()
}

func sameColors(a, b []Color) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assertNoOverlap(t *testing.T, snake Snake, width, height int) {
	t.Helper()
	seen := make(map[Position]int, len(snake))
	for i, seg := range snake {
		if !InBounds(seg.Position, width, height) {
			t.Errorf("Segment %d at %v is out of bounds", i, seg.Position)
		}
		if j, dup := seen[seg.Position]; dup {
			t.Errorf("Segments %d and %d share %v", j, i, seg.Position)
		}
		seen[seg.Position] = i
	}
}
