package game

import (
	"math/rand"
	"testing"
	"time"

	"color-snake/internal/config"
)

// =============================================================================
// BENCHMARK SUITE: CRITICAL PATH PERFORMANCE TESTS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

// -----------------------------------------------------------------------------
// ENGINE TICK BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkEngineTick(b *testing.B) {
	cfg := config.DefaultGame()
	cfg.Seed = 1
	cfg.TickInterval = time.Hour
	clock := NewManualClock(time.Unix(1700000000, 0))

	engine, err := NewEngine(cfg, clock)
	if err != nil {
		b.Fatal(err)
	}
	defer engine.Close()
	engine.Start()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		clock.Advance(cfg.TickInterval)
		engine.Tick()
		if engine.GetSnapshot().Status == StatusGameOver {
			engine.Restart()
		}
	}
}

// -----------------------------------------------------------------------------
// RECONSTRUCTION BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkRebuildSnake_10(b *testing.B)  { benchmarkRebuild(b, 10) }
func BenchmarkRebuildSnake_50(b *testing.B)  { benchmarkRebuild(b, 50) }
func BenchmarkRebuildSnake_200(b *testing.B) { benchmarkRebuild(b, 200) }

func benchmarkRebuild(b *testing.B, n int) {
	rng := rand.New(rand.NewSource(7))
	palette := []Color{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE"}
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = palette[rng.Intn(len(palette))]
	}
	head := Position{X: 3, Y: 4}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		RebuildSnake(head, colors, DirRight, 20, 20)
	}
}

// -----------------------------------------------------------------------------
// ELIMINATION BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkDetectRun(b *testing.B) {
	rng := rand.New(rand.NewSource(11))
	snake := randomSnake(rng, 100, []Color{"RED", "BLUE", "GREEN", "YELLOW", "PURPLE"})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		DetectRun(snake)
	}
}

// -----------------------------------------------------------------------------
// SNAPSHOT BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkNewSnapshot(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	state := GameState{
		Status:    StatusPlaying,
		Snake:     randomSnake(rng, 60, []Color{"RED", "BLUE"}),
		Direction: DirRight,
		Foods:     []Food{{Position: Position{X: 1, Y: 1}, Color: "RED"}},
	}
	now := time.Unix(1700000000, 0)
	store := NewSnapshotStore()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		store.Publish(NewSnapshot(state, 20, 20, now))
	}
}
