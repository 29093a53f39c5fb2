package sushi

import "reflex/game"

// cardValues rates each card on the table by how much it tends to be worth.
var cardValues = [numCards]float64{
	Tempura:      2.5,
	Sashimi:      3,
	Dumpling:     3,
	Maki1:        1,
	Maki2:        2,
	Maki3:        3,
	SalmonNigiri: 6,
	SquidNigiri:  8,
	EggNigiri:    4,
	Pudding:      2,
	Wasabi:       10,
	Chopsticks:   4,
}

// Evaluate adds the banked score to the value of the cards played this round.
// A won game is worth 50% more and a lost game half as much.
func Evaluate(s game.State, player game.PlayerID) float64 {
	gs, ok := s.(*State)
	if !ok {
		panic("unexpected state type")
	}
	score := float64(gs.scores[player])
	for c, n := range gs.tableaus[player].cards {
		score += float64(n) * cardValues[c]
	}
	switch gs.Outcome(player) {
	case Win:
		return score * 1.5
	case Loss:
		return score * 0.5
	}
	return score
}

// EvaluateAdvantage scores the banked points of player against the best
// opponent, between -1 and 1.
func EvaluateAdvantage(s game.State, player game.PlayerID) float64 {
	gs, ok := s.(*State)
	if !ok {
		panic("unexpected state type")
	}
	best := 0
	for p, score := range gs.scores {
		if p != int(player) && score > best {
			best = score
		}
	}
	own := max(gs.scores[player], 0)
	return game.Normalize(float64(own), float64(best))
}

// Heuristics lists the evaluation functions by the name used in experiment
// files.
var Heuristics = map[string]game.Heuristic{
	"score":     Evaluate,
	"advantage": EvaluateAdvantage,
}
