package searcher

import (
	"fmt"
	"math"

	"reflex/game"
)

// Params tune a reflexive search.
type Params struct {
	K             float64 // exploration constant
	RolloutLength int
	MaxTreeDepth  int
	Epsilon       float64 // tie-break jitter and zero-division guard

	// MetaLevel is the nesting depth of searches run inside rollouts; 0 is plain MCTS
	MetaLevel int
	// ReflexiveIterations caps each nested search
	ReflexiveIterations int
	// ReflexiveCalls is the number of nested searches a single rollout may start
	ReflexiveCalls      int
	ReflexiveInOpponent bool
	// CurrentRound stops rollouts at the end of the round they started in
	CurrentRound bool
	// SharedReflexiveBudget makes nested searches spend the outer budget as well
	SharedReflexiveBudget bool

	Heuristic game.Heuristic
}

func DefaultParams() Params {
	return Params{
		K:                   math.Sqrt2,
		RolloutLength:       10,
		MaxTreeDepth:        100,
		Epsilon:             1e-6,
		MetaLevel:           1,
		ReflexiveIterations: 3,
		ReflexiveCalls:      3,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Heuristic == nil:
		return fmt.Errorf("heuristic is required")
	case p.K < 0:
		return fmt.Errorf("exploration constant must not be negative, got %v", p.K)
	case p.RolloutLength < 0:
		return fmt.Errorf("rollout length must not be negative, got %d", p.RolloutLength)
	case p.MaxTreeDepth < 1:
		return fmt.Errorf("max tree depth must be at least 1, got %d", p.MaxTreeDepth)
	case p.Epsilon <= 0:
		return fmt.Errorf("epsilon must be positive, got %v", p.Epsilon)
	case p.MetaLevel < 0:
		return fmt.Errorf("meta level must not be negative, got %d", p.MetaLevel)
	case p.MetaLevel > 0 && p.ReflexiveIterations < 1:
		return fmt.Errorf("reflexive iterations must be at least 1, got %d", p.ReflexiveIterations)
	case p.ReflexiveCalls < 0:
		return fmt.Errorf("reflexive calls must not be negative, got %d", p.ReflexiveCalls)
	}
	return nil
}
