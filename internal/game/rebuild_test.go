package game

import (
	"math/rand"
	"testing"
)

func TestRebuildEmptyIsHeadOnly(t *testing.T) {
	head := Position{4, 7}
	snake, dropped := RebuildSnake(head, nil, DirRight, 20, 20)

	if len(snake) != 1 || snake[0].Position != head || snake[0].Color != ColorNone {
		t.Errorf("Expected head-only snake at %v, got %v", head, snake)
	}
	if dropped != 0 {
		t.Errorf("Expected nothing dropped, got %d", dropped)
	}
}

func TestRebuildPrefersReverseDirection(t *testing.T) {
	tests := []struct {
		name string
		head Position
		dir  Direction
		want []Position
	}{
		{"moving right", Position{10, 10}, DirRight, []Position{{9, 10}, {8, 10}, {7, 10}}},
		{"moving up", Position{10, 10}, DirUp, []Position{{10, 11}, {10, 12}, {10, 13}}},
		// LEFT runs out after two cells, UP continues the numbering
		{"wall then next direction", Position{2, 10}, DirRight, []Position{{1, 10}, {0, 10}, {2, 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snake, dropped := RebuildSnake(tt.head, []Color{"RED", "BLUE", "GREEN"}, tt.dir, 20, 20)
			if dropped != 0 {
				t.Fatalf("Expected nothing dropped, got %d", dropped)
			}
			for i, p := range tt.want {
				if snake[i+1].Position != p {
					t.Errorf("Segment %d: expected %v, got %v", i+1, p, snake[i+1].Position)
				}
			}
			want := []Color{"RED", "BLUE", "GREEN"}
			if !sameColors(colorsOf(snake), want) {
				t.Errorf("Expected colors %v in placement order, got %v", want, colorsOf(snake))
			}
		})
	}
}

func TestRebuildFallsBackToSpiral(t *testing.T) {
	// 3x3 grid, head in the middle: the four lines give 4 cells, the
	// spiral fills the corners
	colors := []Color{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE", "RED", "BLUE", "GREEN"}
	snake, dropped := RebuildSnake(Position{1, 1}, colors, DirRight, 3, 3)

	if dropped != 0 {
		t.Fatalf("Expected every color placed, %d dropped", dropped)
	}
	if len(snake) != 9 {
		t.Fatalf("Expected 9 segments, got %d", len(snake))
	}
	assertNoOverlap(t, snake, 3, 3)

	// Spiral from (1,1) visits (2,1),(2,2),(1,2),(0,2),(0,1),(0,0),(1,0),(2,0);
	// the corners come in that order after the line cells
	corners := []Position{{2, 2}, {0, 2}, {0, 0}, {2, 0}}
	for i, p := range corners {
		if snake[5+i].Position != p {
			t.Errorf("Spiral cell %d: expected %v, got %v", i, p, snake[5+i].Position)
		}
	}
}

func TestRebuildDropsOnExhaustion(t *testing.T) {
	colors := []Color{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE"}
	snake, dropped := RebuildSnake(Position{0, 0}, colors, DirLeft, 2, 2)

	if len(snake) != 4 {
		t.Errorf("Expected the 2x2 grid to hold 4 segments, got %d", len(snake))
	}
	if dropped != 2 {
		t.Errorf("Expected 2 dropped, got %d", dropped)
	}
	assertNoOverlap(t, snake, 2, 2)
}

// Any color sequence that fits is placed in full, in bounds, without overlap
func TestRebuildRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	dirs := []Direction{DirUp, DirDown, DirLeft, DirRight}

	for i := 0; i < 300; i++ {
		width, height := 5+rng.Intn(16), 5+rng.Intn(16)
		head := Position{X: rng.Intn(width), Y: rng.Intn(height)}
		n := rng.Intn(width*height - 1)
		colors := make([]Color, n)
		for j := range colors {
			colors[j] = testPalette[rng.Intn(len(testPalette))]
		}

		snake, dropped := RebuildSnake(head, colors, dirs[rng.Intn(4)], width, height)
		if dropped != 0 || len(snake) != n+1 {
			t.Fatalf("%dx%d head %v: expected %d segments, got %d (dropped %d)", width, height, head, n+1, len(snake), dropped)
		}
		if snake[0].Position != head {
			t.Fatalf("Head moved from %v to %v", head, snake[0].Position)
		}
		if !sameColors(colorsOf(snake), colors) {
			t.Fatalf("Colors changed order")
		}
		assertNoOverlap(t, snake, width, height)
	}
}

func TestSpiralCellsCoverGrid(t *testing.T) {
	for _, center := range []Position{{0, 0}, {19, 19}, {7, 3}, {0, 19}} {
		cells := spiralCells(center, 20, 20)
		if len(cells) != 399 {
			t.Errorf("Spiral from %v visited %d cells, expected 399", center, len(cells))
		}
	}
}
