package evolver

import (
	"fmt"
	"strings"

	"reflex/game"
)

type Selection int

const (
	Tournament Selection = iota
	Rank
)

var selectionNames = []string{"tournament", "rank"}

func (s Selection) String() string {
	if s < 0 || int(s) >= len(selectionNames) {
		return fmt.Sprintf("Selection(%d)", int(s))
	}
	return selectionNames[s]
}

func (s Selection) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Selection) UnmarshalText(text []byte) error {
	i, err := parseName(selectionNames, string(text), "selection")
	*s = Selection(i)
	return err
}

type Crossover int

const (
	NoCrossover Crossover = iota
	Uniform
	OnePoint
	TwoPoint
)

var crossoverNames = []string{"none", "uniform", "one_point", "two_point"}

func (c Crossover) String() string {
	if c < 0 || int(c) >= len(crossoverNames) {
		return fmt.Sprintf("Crossover(%d)", int(c))
	}
	return crossoverNames[c]
}

func (c Crossover) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Crossover) UnmarshalText(text []byte) error {
	i, err := parseName(crossoverNames, string(text), "crossover")
	*c = Crossover(i)
	return err
}

func parseName(names []string, s, what string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

// ParseSelection accepts the names printed by Selection.String.
func ParseSelection(s string) (Selection, error) {
	var sel Selection
	err := sel.UnmarshalText([]byte(s))
	return sel, err
}

// ParseCrossover accepts the names printed by Crossover.String.
func ParseCrossover(s string) (Crossover, error) {
	var c Crossover
	err := c.UnmarshalText([]byte(s))
	return c, err
}

// Params tune a rolling horizon evolutionary search.
type Params struct {
	Horizon        int
	Discount       float64
	PopulationSize int
	EliteCount     int
	ChildCount     int
	MutationCount  int
	Selection      Selection
	TournamentSize int
	Crossover      Crossover
	// ShiftLeft keeps the population between decisions
	ShiftLeft bool

	Heuristic game.Heuristic
}

func DefaultParams() Params {
	return Params{
		Horizon:        10,
		Discount:       0.9,
		PopulationSize: 10,
		EliteCount:     2,
		ChildCount:     10,
		MutationCount:  1,
		Selection:      Tournament,
		TournamentSize: 4,
		Crossover:      Uniform,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Heuristic == nil:
		return fmt.Errorf("heuristic is required")
	case p.Horizon < 1:
		return fmt.Errorf("horizon must be at least 1, got %d", p.Horizon)
	case p.Discount <= 0 || p.Discount > 1:
		return fmt.Errorf("discount must be in (0, 1], got %v", p.Discount)
	case p.PopulationSize < 1:
		return fmt.Errorf("population size must be at least 1, got %d", p.PopulationSize)
	case p.EliteCount < 0 || p.EliteCount > p.PopulationSize:
		return fmt.Errorf("elite count must be between 0 and the population size, got %d", p.EliteCount)
	case p.ChildCount < 0:
		return fmt.Errorf("child count must not be negative, got %d", p.ChildCount)
	case p.MutationCount < 0:
		return fmt.Errorf("mutation count must not be negative, got %d", p.MutationCount)
	case p.Selection != Tournament && p.Selection != Rank:
		return fmt.Errorf("unknown selection %d", int(p.Selection))
	case p.Selection == Tournament && p.TournamentSize < 1:
		return fmt.Errorf("tournament size must be at least 1, got %d", p.TournamentSize)
	case p.Crossover < NoCrossover || p.Crossover > TwoPoint:
		return fmt.Errorf("unknown crossover %d", int(p.Crossover))
	}
	return nil
}
