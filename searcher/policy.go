package searcher

import (
	"math"
	"sort"

	"reflex/game"
)

// ucb picks the child of n with the highest upper confidence bound. Values
// are negated on opponent turns and a jitter below epsilon breaks ties.
func (t *tree) ucb(n int) int {
	t.selections++
	p := &t.nodes[n]
	eps := t.m.params.Epsilon
	logN := math.Log(float64(p.visits) + 1)
	sign := 1.0
	if p.state.TurnOwner() != t.player {
		sign = -1.0
	}

	best, bestScore := -1, math.Inf(-1)
	for i, c := range p.children {
		if c == unexpanded {
			game.Raise("selection reached an unexpanded child",
				"node", n, "action", p.actions[i], "visits", p.visits, "iterations", t.ctrl.Iterations())
		}
		child := &t.nodes[c]
		visits := float64(child.visits) + eps
		score := sign*child.value/visits + t.m.params.K*math.Sqrt(logN/visits) + eps*t.m.rng.Float64()
		if best < 0 || score > bestScore {
			best, bestScore = c, score
		}
	}
	if best < 0 {
		game.Raise("selection found no child",
			"node", n, "depth", p.depth, "visits", p.visits, "iterations", t.ctrl.Iterations())
	}
	return best
}

// bestAction returns the most visited action at the root.
func (t *tree) bestAction() game.Action {
	root := &t.nodes[0]
	eps := t.m.params.Epsilon
	best, bestScore := -1, math.Inf(-1)
	for i, c := range root.children {
		if c == unexpanded || t.nodes[c].visits == 0 {
			continue
		}
		score := float64(t.nodes[c].visits) + eps*t.m.rng.Float64()
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		game.Raise("best action found no visited child",
			"visits", root.visits, "iterations", t.ctrl.Iterations(),
			"fm_calls", t.ctrl.FMCalls(), "copies", t.ctrl.Copies())
	}
	return root.actions[best]
}

// ActionStat summarizes a root action after a search.
type ActionStat struct {
	Action game.Action
	Visits int
	Value  float64 // mean rollout value
}

// ranked returns up to n visited root actions, most visited first.
func (t *tree) ranked(n int) []ActionStat {
	root := &t.nodes[0]
	var stats []ActionStat
	for i, c := range root.children {
		if c == unexpanded || t.nodes[c].visits == 0 {
			continue
		}
		child := &t.nodes[c]
		stats = append(stats, ActionStat{
			Action: root.actions[i],
			Visits: child.visits,
			Value:  child.value / float64(child.visits),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Visits > stats[j].Visits
	})
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
