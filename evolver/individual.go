package evolver

import (
	"fmt"
	"math"
	"strings"

	"reflex/game"
)

// Individual is a candidate plan of Horizon actions together with the states
// they lead to: States[i+1] results from playing Actions[i] at States[i].
// Stored states are snapshots that are never advanced in place, so clones
// share them freely.
type Individual struct {
	Actions []game.Action
	States  []game.State
	// Length is the number of playable actions, shorter than the horizon
	// when the game ends first
	Length     int
	Fitness    float64
	Repairs    int // actions replaced by the last repair walk
	NonRepairs int // actions kept by the last repair walk

	// dirtyFrom is the first position whose successor state may be stale
	dirtyFrom int
}

func newIndividual(horizon int, root game.State) *Individual {
	ind := &Individual{
		Actions:   make([]game.Action, horizon),
		States:    make([]game.State, horizon+1),
		Fitness:   math.Inf(-1),
		dirtyFrom: 0,
	}
	ind.States[0] = root
	return ind
}

func (ind *Individual) horizon() int { return len(ind.Actions) }

func (ind *Individual) clone() *Individual {
	c := *ind
	c.Actions = append([]game.Action(nil), ind.Actions...)
	c.States = append([]game.State(nil), ind.States...)
	return &c
}

// shift drops the first action and rebases the plan on root. The freed
// last slot is left empty.
func (ind *Individual) shift(root game.State) {
	copy(ind.Actions, ind.Actions[1:])
	ind.Actions[ind.horizon()-1] = nil
	ind.Length = max(ind.Length-1, 0)
	ind.States[0] = root
	ind.Fitness = math.Inf(-1)
	ind.dirtyFrom = 0
}

func (ind *Individual) markDirty(pos int) {
	ind.dirtyFrom = min(ind.dirtyFrom, pos)
}

// hasChoice reports whether some planned position has more than one legal
// action.
func (ind *Individual) hasChoice() bool {
	for i := 0; i < ind.Length; i++ {
		if len(ind.States[i].LegalActions()) > 1 {
			return true
		}
	}
	return false
}

func (ind *Individual) String() string {
	names := make([]string, ind.Length)
	for i := range names {
		if ind.Actions[i] == nil {
			names[i] = "-"
			continue
		}
		names[i] = ind.Actions[i].String()
	}
	return fmt.Sprintf("[%s] fitness=%.3f", strings.Join(names, " "), ind.Fitness)
}
