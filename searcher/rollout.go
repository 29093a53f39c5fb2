package searcher

import (
	"reflex/game"
)

// rollout plays out from the state at n and scores the result for the
// searching player. While the tree's level is above zero, up to
// ReflexiveCalls moves are chosen by nested searches one level down.
func (t *tree) rollout(n int) float64 {
	params := &t.m.params
	state := t.nodes[n].state.Copy()
	t.ctrl.AddCopies(1)

	round := state.Round()
	calls := params.ReflexiveCalls
	for depth := 0; depth < params.RolloutLength && !state.IsTerminal(); depth++ {
		if params.CurrentRound && state.Round() != round {
			break
		}
		var action game.Action
		if t.level > 0 && calls > 0 && (params.ReflexiveInOpponent || state.TurnOwner() == t.player) {
			action = t.reflect(state)
			calls--
		} else {
			action = t.m.rollout.Choose(state, state.LegalActions(), t.m.rng, t.ctrl)
		}
		state.Next(action, t.m.rng)
		t.ctrl.AddFMCalls(1)
	}
	return game.Score(params.Heuristic, state, t.player)
}

// reflect runs a nested search from state one level below this tree and
// returns its best action.
func (t *tree) reflect(state game.State) game.Action {
	inner := t.ctrl.Nested(t.m.params.ReflexiveIterations, t.m.params.SharedReflexiveBudget)
	t.m.metrics.AddReflexiveCall()
	return t.m.runSearch(state, t.level-1, t.player, inner).bestAction()
}
