package game

import (
	"math"

	"golang.org/x/exp/rand"
)

// Policy picks one of actions at state. Any forward model calls or copies it
// makes are reported to counter.
type Policy interface {
	Choose(state State, actions []Action, rng *rand.Rand, counter Counter) Action
}

// PolicyFunc adapts an ordinary function to a Policy.
type PolicyFunc func(state State, actions []Action, rng *rand.Rand, counter Counter) Action

func (f PolicyFunc) Choose(state State, actions []Action, rng *rand.Rand, counter Counter) Action {
	return f(state, actions, rng, counter)
}

// RandomPolicy picks uniformly at random.
type RandomPolicy struct{}

func (RandomPolicy) Choose(state State, actions []Action, rng *rand.Rand, _ Counter) Action {
	if len(actions) == 0 {
		Raise("no legal actions at a non-terminal state", "round", state.Round(), "player", state.TurnOwner())
	}
	return actions[rng.Intn(len(actions))]
}

// GreedyPolicy looks one step ahead and picks the action whose successor
// scores best for the player to move. Ties are broken uniformly at random.
type GreedyPolicy struct {
	Heuristic Heuristic
}

func (g GreedyPolicy) Choose(state State, actions []Action, rng *rand.Rand, counter Counter) Action {
	if len(actions) == 0 {
		Raise("no legal actions at a non-terminal state", "round", state.Round(), "player", state.TurnOwner())
	}
	if len(actions) == 1 {
		return actions[0]
	}
	player := state.TurnOwner()
	best := math.Inf(-1)
	var ties []Action
	for _, action := range actions {
		next := Apply(state, action, rng, counter)
		value := Score(g.Heuristic, next, player)
		if value > best {
			best = value
			ties = ties[:0]
		}
		if value == best {
			ties = append(ties, action)
		}
	}
	return ties[rng.Intn(len(ties))]
}
