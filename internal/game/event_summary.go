package game

import (
	"encoding/json"
	"time"
)

// SessionSummary condenses one session of an event log
type SessionSummary struct {
	Session       string
	Seed          int64
	StartedAt     time.Time
	Ticks         uint64
	FoodEaten     int
	SpecialsEaten int
	Eliminations  int
	Eliminated    int // body segments removed by eliminations
	MaxCombo      int
	DroppedBody   int
	FinalScore    int
	FinalLength   int
	GameOver      bool
}

// SummarizeEvents groups events by session in order of first appearance.
// Events with undecodable payloads still count toward their session.
func SummarizeEvents(events []Event) []SessionSummary {
	var order []string
	byID := make(map[string]*SessionSummary)

	for _, ev := range events {
		sum, ok := byID[ev.Session]
		if !ok {
			sum = &SessionSummary{Session: ev.Session, StartedAt: time.Unix(0, ev.Timestamp)}
			byID[ev.Session] = sum
			order = append(order, ev.Session)
		}
		if ev.TickNum > sum.Ticks {
			sum.Ticks = ev.TickNum
		}

		switch ev.Type {
		case EventTypeStart, EventTypeRestart:
			var p SessionPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				sum.Seed = p.Seed
			}
		case EventTypeTick:
			var p TickPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				sum.FinalScore = p.Score
				sum.FinalLength = p.Length
			}
		case EventTypeFoodEaten:
			sum.FoodEaten++
		case EventTypeSpecialEaten:
			sum.SpecialsEaten++
		case EventTypeElimination:
			var p EliminationPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				sum.Eliminations++
				sum.Eliminated += p.Count
				sum.MaxCombo = max(sum.MaxCombo, p.Combo)
				sum.FinalLength = p.SnakeLength
			}
		case EventTypeReconstructionLoss:
			var p ReconstructionLossPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				sum.DroppedBody += p.Dropped
			}
		case EventTypeGameOver:
			var p GameOverPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				sum.FinalScore = p.Score
				sum.FinalLength = p.Length
			}
			sum.GameOver = true
		}
	}

	out := make([]SessionSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
