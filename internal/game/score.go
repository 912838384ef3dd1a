package game

import "time"

// ComboBonus is the extra score for a combo streak: none below 2,
// then (c-1)(c+2)/2 rounded down (2 -> 2, 3 -> 5, 4 -> 9).
func ComboBonus(combo int) int {
	if combo < 2 {
		return 0
	}
	return (combo - 1) * (combo + 2) / 2
}

// EliminationScore scores a run of count segments at the given combo
func EliminationScore(count, combo, unitScore int) int {
	return count*unitScore + ComboBonus(combo)
}

// NextCombo returns the combo after an elimination at now. A zero last time
// means there was no previous elimination. A fresh elimination always
// yields at least 1.
func NextCombo(prev int, last, now time.Time, window time.Duration) int {
	if !last.IsZero() && now.Sub(last) <= window {
		return prev + 1
	}
	return 1
}

// ComboExpired reports whether the combo window after the last elimination
// has closed
func ComboExpired(last, now time.Time, window time.Duration) bool {
	return !last.IsZero() && now.Sub(last) > window
}
