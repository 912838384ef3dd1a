package game

import (
	"math/rand"
	"testing"
)

func TestDetectRunShortSnakes(t *testing.T) {
	tests := []struct {
		name  string
		snake Snake
	}{
		{"head only", line(Position{5, 5}, DirRight)},
		{"one body", line(Position{5, 5}, DirRight, "RED")},
		{"two same", line(Position{5, 5}, DirRight, "RED", "RED")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if run := DetectRun(tt.snake); run.Found {
				t.Errorf("Expected no run for length %d, got %+v", len(tt.snake), run)
			}
		})
	}
}

func TestDetectRun(t *testing.T) {
	tests := []struct {
		name    string
		colors  []Color
		found   bool
		color   Color
		indices []int
	}{
		{"leading run", []Color{"RED", "RED", "RED", "BLUE"}, true, "RED", []int{1, 2, 3}},
		{"trailing run", []Color{"BLUE", "RED", "RED", "RED"}, true, "RED", []int{2, 3, 4}},
		{"whole body", []Color{"GREEN", "GREEN", "GREEN"}, true, "GREEN", []int{1, 2, 3}},
		{"first of two runs", []Color{"RED", "RED", "RED", "BLUE", "BLUE", "BLUE"}, true, "RED", []int{1, 2, 3}},
		{"long run", []Color{"BLUE", "PURPLE", "PURPLE", "PURPLE", "PURPLE", "RED"}, true, "PURPLE", []int{2, 3, 4, 5}},
		{"no run", []Color{"RED", "RED", "BLUE", "BLUE", "RED"}, false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := DetectRun(line(Position{10, 10}, DirRight, tt.colors...))
			if run.Found != tt.found {
				t.Fatalf("Expected found=%v, got %+v", tt.found, run)
			}
			if !tt.found {
				return
			}
			if run.Color != tt.color {
				t.Errorf("Expected color %s, got %s", tt.color, run.Color)
			}
			if run.Count != len(tt.indices) {
				t.Errorf("Expected count %d, got %d", len(tt.indices), run.Count)
			}
			for i, idx := range tt.indices {
				if run.Indices[i] != idx {
					t.Errorf("Expected indices %v, got %v", tt.indices, run.Indices)
					break
				}
			}
		})
	}
}

func TestRemoveSegments(t *testing.T) {
	snake := line(Position{10, 10}, DirRight, "RED", "RED", "RED", "BLUE")
	out := RemoveSegments(snake, []int{1, 2, 3})

	if len(out) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(out))
	}
	if out[0].Position != snake[0].Position || out[1].Color != "BLUE" {
		t.Errorf("Unexpected result %v", out)
	}
}

func TestRemoveSegmentsPanicsOnHead(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected a panic when removing the head")
		}
	}()
	RemoveSegments(line(Position{10, 10}, DirRight, "RED", "RED", "RED"), []int{0, 1, 2})
}

// Random bodies never produce a run that touches the head, and every run
// removes cleanly
func TestDetectRunNeverIncludesHead(t *testing.T) {
	rng := rand.New(rand.NewSource(20240607))
	palette := []Color{"RED", "BLUE", "GREEN"}

	for i := 0; i < 2000; i++ {
		snake := randomSnake(rng, 1+rng.Intn(30), palette)
		run := DetectRun(snake)
		if !run.Found {
			continue
		}
		if run.Count < MinRunLength || run.Count != len(run.Indices) {
			t.Fatalf("Bad run %+v", run)
		}
		for j, idx := range run.Indices {
			if idx < 1 {
				t.Fatalf("Run includes the head: %+v", run)
			}
			if j > 0 && idx != run.Indices[j-1]+1 {
				t.Fatalf("Run is not contiguous: %+v", run)
			}
			if snake[idx].Color != run.Color {
				t.Fatalf("Index %d has color %s, run is %s", idx, snake[idx].Color, run.Color)
			}
		}
		out := RemoveSegments(snake, run.Indices)
		if len(out) != len(snake)-run.Count {
			t.Fatalf("Expected %d segments after removal, got %d", len(snake)-run.Count, len(out))
		}
	}
}
