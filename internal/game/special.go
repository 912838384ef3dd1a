package game

import (
	"math/rand"
	"time"
)

// Triggers reports which special items should spawn now
type Triggers struct {
	Universal bool
	Bomb      bool
}

// SpecialItemManager spawns and expires length-triggered special items
type SpecialItemManager struct {
	width, height      int
	attempts           int
	universalThreshold int
	bombThreshold      int
	universalTTL       time.Duration
	bombTTL            time.Duration
	rng                *rand.Rand
}

// SpecialItemConfig configures a SpecialItemManager
type SpecialItemConfig struct {
	Width, Height      int
	Attempts           int
	UniversalThreshold int
	BombThreshold      int
	UniversalTTL       time.Duration
	BombTTL            time.Duration
}

// NewSpecialItemManager creates a manager drawing from rng
func NewSpecialItemManager(cfg SpecialItemConfig, rng *rand.Rand) *SpecialItemManager {
	return &SpecialItemManager{
		width:              cfg.Width,
		height:             cfg.Height,
		attempts:           cfg.Attempts,
		universalThreshold: cfg.UniversalThreshold,
		bombThreshold:      cfg.BombThreshold,
		universalTTL:       cfg.UniversalTTL,
		bombTTL:            cfg.BombTTL,
		rng:                rng,
	}
}

// CheckTriggers fires each milestone once: Universal at the universal
// threshold, Bomb at the bomb threshold. Already-latched kinds never fire.
func (m *SpecialItemManager) CheckTriggers(length int, universalTriggered, bombTriggered bool) Triggers {
	return Triggers{
		Universal: length >= m.universalThreshold && !universalTriggered,
		Bomb:      length >= m.bombThreshold && !bombTriggered,
	}
}

// TTL returns the lifetime of an item kind
func (m *SpecialItemManager) TTL(kind ItemKind) time.Duration {
	if kind == ItemUniversal {
		return m.universalTTL
	}
	return m.bombTTL
}

// Spawn places an item of kind on a free cell, expiring TTL(kind) after now.
// Returns false when no free cell was found within the attempt budget.
func (m *SpecialItemManager) Spawn(kind ItemKind, snake Snake, foods []Food, items []SpecialItem, now time.Time) (SpecialItem, bool) {
	occupied := occupiedCells(snake, foods, items)
	p, ok := sampleFreeCell(m.rng, m.width, m.height, m.attempts, occupied)
	if !ok {
		return SpecialItem{}, false
	}
	return SpecialItem{
		Position:  p,
		Kind:      kind,
		ExpiresAt: now.Add(m.TTL(kind)),
	}, true
}

// Expire keeps the items still alive at now, in order.
// An item is gone at the exact instant it expires.
func Expire(items []SpecialItem, now time.Time) (alive, expired []SpecialItem) {
	alive = make([]SpecialItem, 0, len(items))
	for _, it := range items {
		if now.Before(it.ExpiresAt) {
			alive = append(alive, it)
		} else {
			expired = append(expired, it)
		}
	}
	return alive, expired
}

// ItemAt returns the special item on p, if any
func ItemAt(items []SpecialItem, p Position) (SpecialItem, bool) {
	for _, it := range items {
		if it.Position == p {
			return it, true
		}
	}
	return SpecialItem{}, false
}

// removeItem drops the item with the same cell and kind
func removeItem(items []SpecialItem, eaten SpecialItem) []SpecialItem {
	out := make([]SpecialItem, 0, len(items))
	for _, it := range items {
		if it.Position == eaten.Position && it.Kind == eaten.Kind {
			continue
		}
		out = append(out, it)
	}
	return out
}
