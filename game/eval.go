package game

import "math"

// Score evaluates state with h for player and panics if the value is not finite.
func Score(h Heuristic, state State, player PlayerID) float64 {
	value := h(state, player)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		Raise("heuristic returned a non-finite value", "player", player, "value", value, "round", state.Round())
	}
	return value
}

// Normalize maps a pair of non-negative quantities to a score between -1 and 1
// indicating how far value is ahead of other.
func Normalize(value, other float64) float64 {
	if value+other == 0 {
		return 0
	}
	return (value - other) / (value + other)
}
