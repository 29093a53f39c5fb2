package game

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// PlayerID identifies a seat at the table, starting from 0.
type PlayerID int

// NoPlayer stands for nobody, such as the winner of a drawn game.
const NoPlayer PlayerID = -1

// Action is a move that can be applied to a State. Actions are compared with
// ==, so implementations must be comparable values.
type Action interface {
	fmt.Stringer
}

// State is a mutable game state reached through the forward model.
type State interface {
	// TurnOwner returns the player to move
	TurnOwner() PlayerID
	// Round returns the index of the current round
	Round() int
	IsTerminal() bool
	// LegalActions returns the legal actions in a deterministic order
	LegalActions() []Action
	// Next advances the state in place by one action. Chance events draw from rng.
	Next(action Action, rng *rand.Rand)
	// Copy returns an independent deep copy
	Copy() State
}

// Heuristic scores a state from the perspective of player. Higher is better.
type Heuristic func(state State, player PlayerID) float64

// Counter records forward model calls and state copies made on behalf of a search.
type Counter interface {
	AddFMCalls(n int)
	AddCopies(n int)
}

type discard struct{}

func (discard) AddFMCalls(int) {}
func (discard) AddCopies(int)  {}

// Discard is a Counter that records nothing.
var Discard Counter = discard{}

// Contains reports whether action is one of actions.
func Contains(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// Apply copies state and advances the copy by action, counting one copy and one forward model call.
func Apply(state State, action Action, rng *rand.Rand, counter Counter) State {
	next := state.Copy()
	counter.AddCopies(1)
	next.Next(action, rng)
	counter.AddFMCalls(1)
	return next
}
