package game

import (
	"time"

	"color-snake/internal/config"
)

// Effect is a deferred state transition resolved at the tick boundary,
// after the consumption that caused it has been published.
//
// Variants: EliminationCheck, UniversalEffect, BombEffect.
type Effect interface {
	Name() string
	Apply(ctx *EffectContext, s GameState) GameState
}

// EffectContext is what an effect may read or trigger while resolving
type EffectContext struct {
	Now     time.Time
	Config  config.GameConfig
	Palette []Color

	// Emit records a domain event; may be nil
	Emit func(EventType, interface{})
	// Enqueue schedules follow-up work for the same Settle pass; may be nil
	Enqueue func(Effect)
}

func (c *EffectContext) emit(t EventType, payload interface{}) {
	if c.Emit != nil {
		c.Emit(t, payload)
	}
}

func (c *EffectContext) enqueue(e Effect) {
	if c.Enqueue != nil {
		c.Enqueue(e)
	}
}

// ApplyEffect is the single dispatch point for deferred effects
func ApplyEffect(ctx *EffectContext, e Effect, s GameState) GameState {
	return e.Apply(ctx, s)
}

// effectFor maps a consumed special item to its effect
func effectFor(kind ItemKind) Effect {
	switch kind {
	case ItemUniversal:
		return UniversalEffect{}
	case ItemBomb:
		return BombEffect{}
	default:
		return nil
	}
}

// EliminationCheck removes the first qualifying run, scores it and
// re-derives body positions. One check resolves one run; a run left behind
// or formed by the removal waits for the next consumption.
type EliminationCheck struct{}

func (EliminationCheck) Name() string { return "elimination" }

func (EliminationCheck) Apply(ctx *EffectContext, s GameState) GameState {
	run := DetectRun(s.Snake)
	if !run.Found {
		return s
	}

	combo := NextCombo(s.Combo, s.LastElimination, ctx.Now, ctx.Config.ComboWindow)
	gained := EliminationScore(run.Count, combo, ctx.Config.EliminationUnitScore)

	s = withBodyColors(ctx, s, removeColorIndices(s.Snake, run.Indices))
	s.Combo = combo
	s.LastElimination = ctx.Now
	s = addScore(s, gained)

	ctx.emit(EventTypeElimination, EliminationPayload{
		Color:       string(run.Color),
		Count:       run.Count,
		Combo:       combo,
		ScoreGained: gained,
		SnakeLength: len(s.Snake),
	})
	return s
}

// UniversalEffect recolors every body segment to the majority color
type UniversalEffect struct{}

func (UniversalEffect) Name() string { return "universal" }

func (UniversalEffect) Apply(ctx *EffectContext, s GameState) GameState {
	colors := s.Snake.BodyColors()
	if len(colors) == 0 {
		return s
	}

	majority := MajorityColor(colors, ctx.Palette)
	snake := s.Snake.Clone()
	for i := 1; i < len(snake); i++ {
		snake[i].Color = majority
	}
	s.Snake = snake

	ctx.emit(EventTypeEffectApplied, EffectPayload{
		Kind:     string(ItemUniversal),
		Color:    string(majority),
		Affected: len(colors),
	})
	ctx.enqueue(EliminationCheck{})
	return s
}

// BombEffect removes every body segment of the majority color and scores
// each one at the bomb rate
type BombEffect struct{}

func (BombEffect) Name() string { return "bomb" }

func (BombEffect) Apply(ctx *EffectContext, s GameState) GameState {
	colors := s.Snake.BodyColors()
	if len(colors) == 0 {
		return s
	}

	majority := MajorityColor(colors, ctx.Palette)
	kept := make([]Color, 0, len(colors))
	for _, c := range colors {
		if c != majority {
			kept = append(kept, c)
		}
	}
	removed := len(colors) - len(kept)
	gained := removed * ctx.Config.BombExplosionUnitScore

	s = withBodyColors(ctx, s, kept)
	s = addScore(s, gained)

	ctx.emit(EventTypeEffectApplied, EffectPayload{
		Kind:        string(ItemBomb),
		Color:       string(majority),
		Affected:    removed,
		ScoreGained: gained,
	})
	ctx.enqueue(EliminationCheck{})
	return s
}

// MajorityColor returns the most frequent color. Ties go to the color that
// comes first in the palette, then to the first one seen.
func MajorityColor(colors []Color, palette []Color) Color {
	if len(colors) == 0 {
		if len(palette) > 0 {
			return palette[0]
		}
		return ColorNone
	}

	counts := make(map[Color]int, len(palette))
	for _, c := range colors {
		counts[c]++
	}

	best, bestCount := ColorNone, 0
	for _, c := range palette {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	// Colors outside the palette still count
	for _, c := range colors {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// withBodyColors is the second phase of a shape change: the color sequence
// has been decided, positions are re-derived from the head. Segments that
// cannot be placed are dropped and counted.
func withBodyColors(ctx *EffectContext, s GameState, colors []Color) GameState {
	snake, dropped := RebuildSnake(s.Snake[0].Position, colors, s.Direction, ctx.Config.GridWidth, ctx.Config.GridHeight)
	s.Snake = snake
	if dropped > 0 {
		s.DroppedSegments += dropped
		ctx.emit(EventTypeReconstructionLoss, ReconstructionLossPayload{
			Requested: len(colors),
			Placed:    len(snake) - 1,
			Dropped:   dropped,
		})
	}
	return s
}

// addScore raises the score and the high score with it
func addScore(s GameState, gained int) GameState {
	s.Score += gained
	if s.Score > s.HighScore {
		s.HighScore = s.Score
	}
	return s
}
