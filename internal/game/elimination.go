package game

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

// MinRunLength is the shortest same-color run that gets eliminated
const MinRunLength = 3

// Run describes a contiguous same-colored stretch of body segments
type Run struct {
	Found   bool
	Indices []int // Snake indices, always >= 1
	Color   Color
	Count   int
}

// DetectRun finds the first qualifying run in the body, scanning from the
// segment behind the head outward. Later runs are left for later calls.
// The head is never part of a run; snakes shorter than head + MinRunLength
// body segments have no run.
func DetectRun(snake Snake) Run {
	if len(snake) < MinRunLength+1 {
		return Run{}
	}

	current := snake[1].Color
	count := 1
	start := 1

	for i := 2; i < len(snake); i++ {
		c := snake[i].Color
		if c != ColorNone && c == current {
			count++
			continue
		}
		if count >= MinRunLength && current != ColorNone {
			return newRun(start, count, current)
		}
		current = c
		count = 1
		start = i
	}

	if count >= MinRunLength && current != ColorNone {
		return newRun(start, count, current)
	}
	return Run{}
}

func newRun(start, count int, color Color) Run {
	indices := make([]int, count)
	for j := range indices {
		indices[j] = start + j
	}
	return Run{Found: true, Indices: indices, Color: color, Count: count}
}

// RemoveSegments filters the given indices out of the snake.
// It panics if the head (index 0) is in the set: that is a logic defect,
// DetectRun never produces it.
func RemoveSegments(snake Snake, indices []int) Snake {
	drop := mapset.New[int]()
	for _, idx := range indices {
		if idx == 0 {
			panic(fmt.Sprintf("elimination: head segment cannot be removed (indices %v)", indices))
		}
		drop.Put(idx)
	}

	out := make(Snake, 0, len(snake))
	for i, seg := range snake {
		if !drop.Has(i) {
			out = append(out, seg)
		}
	}
	return out
}

// removeColorIndices returns the body colors with the run removed.
// indices are snake indices; body color i belongs to snake index i+1.
func removeColorIndices(snake Snake, indices []int) []Color {
	return RemoveSegments(snake, indices).BodyColors()
}
