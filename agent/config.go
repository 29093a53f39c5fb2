package agent

import (
	"fmt"
	"strings"

	"reflex/budget"
	"reflex/evolver"
	"reflex/game"
	"reflex/searcher"
)

// Kind selects the search algorithm behind an agent.
type Kind int

const (
	MCTS Kind = iota // reflexive Monte Carlo tree search
	RHEA             // rolling horizon evolution
)

var kindNames = []string{searcher.Algorithm, evolver.Algorithm}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	i, err := lookup(kindNames, string(text), "agent kind")
	*k = Kind(i)
	return err
}

// SeedPolicy picks how RHEA builds its first plan and repairs illegal actions.
type SeedPolicy int

const (
	SeedRandom SeedPolicy = iota
	SeedGreedy            // one step look-ahead
	SeedMCTS              // shallow plain tree search
)

var seedNames = []string{"random", "greedy", "mcts"}

func (s SeedPolicy) String() string {
	if s < 0 || int(s) >= len(seedNames) {
		return fmt.Sprintf("SeedPolicy(%d)", int(s))
	}
	return seedNames[s]
}

func (s SeedPolicy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SeedPolicy) UnmarshalText(text []byte) error {
	i, err := lookup(seedNames, string(text), "seed policy")
	*s = SeedPolicy(i)
	return err
}

// Accounting decides what nested reflexive searches are charged to.
type Accounting int

const (
	InnerOnly Accounting = iota // only the nested iteration cap
	Shared                      // the outer budget as well
)

var accountingNames = []string{"inner_only", "shared"}

func (a Accounting) String() string {
	if a < 0 || int(a) >= len(accountingNames) {
		return fmt.Sprintf("Accounting(%d)", int(a))
	}
	return accountingNames[a]
}

func (a Accounting) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Accounting) UnmarshalText(text []byte) error {
	i, err := lookup(accountingNames, string(text), "reflexive accounting")
	*a = Accounting(i)
	return err
}

func lookup(names []string, s, what string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

type Config struct {
	Name   string        `yaml:"name" json:"name"`
	Kind   Kind          `yaml:"kind" json:"kind"`
	Seed   uint64        `yaml:"seed" json:"seed"`
	Budget budget.Budget `yaml:"budget" json:"budget"`

	// Reflexive MCTS
	K                   float64    `yaml:"k" json:"k"`
	RolloutLength       int        `yaml:"rollout_length" json:"rollout_length"`
	MaxTreeDepth        int        `yaml:"max_tree_depth" json:"max_tree_depth"`
	Epsilon             float64    `yaml:"epsilon" json:"epsilon"`
	MetaLevel           int        `yaml:"meta_level" json:"meta_level"`
	ReflexiveIterations int        `yaml:"reflexive_iterations" json:"reflexive_iterations"`
	ReflexiveCalls      int        `yaml:"reflexive_calls" json:"reflexive_calls"`
	ReflexiveInOpponent bool       `yaml:"reflexive_in_opponent" json:"reflexive_in_opponent"`
	CurrentRound        bool       `yaml:"current_round" json:"current_round"`
	ReflexiveAccounting Accounting `yaml:"reflexive_accounting" json:"reflexive_accounting"`

	// RHEA
	Horizon           int               `yaml:"horizon" json:"horizon"`
	Discount          float64           `yaml:"discount" json:"discount"`
	PopulationSize    int               `yaml:"population_size" json:"population_size"`
	EliteCount        int               `yaml:"elite_count" json:"elite_count"`
	ChildCount        int               `yaml:"child_count" json:"child_count"`
	MutationCount     int               `yaml:"mutation_count" json:"mutation_count"`
	Selection         evolver.Selection `yaml:"selection" json:"selection"`
	TournamentSize    int               `yaml:"tournament_size" json:"tournament_size"`
	Crossover         evolver.Crossover `yaml:"crossover" json:"crossover"`
	ShiftLeft         bool              `yaml:"shift_left" json:"shift_left"`
	SeedPolicy        SeedPolicy        `yaml:"seed_policy" json:"seed_policy"`
	SeedIterations    int               `yaml:"seed_iterations" json:"seed_iterations"`
	SeedRolloutLength int               `yaml:"seed_rollout_length" json:"seed_rollout_length"`

	Heuristic game.Heuristic `yaml:"-" json:"-"`
}

// DefaultConfig returns a reflexive MCTS agent with a 40ms budget.
func DefaultConfig() Config {
	m := searcher.DefaultParams()
	e := evolver.DefaultParams()
	return Config{
		Kind:   MCTS,
		Seed:   1,
		Budget: budget.Budget{Kind: budget.Time, Limit: 40, BreakMS: 5},

		K:                   m.K,
		RolloutLength:       m.RolloutLength,
		MaxTreeDepth:        m.MaxTreeDepth,
		Epsilon:             m.Epsilon,
		MetaLevel:           m.MetaLevel,
		ReflexiveIterations: m.ReflexiveIterations,
		ReflexiveCalls:      m.ReflexiveCalls,

		Horizon:           e.Horizon,
		Discount:          e.Discount,
		PopulationSize:    e.PopulationSize,
		EliteCount:        e.EliteCount,
		ChildCount:        e.ChildCount,
		MutationCount:     e.MutationCount,
		Selection:         e.Selection,
		TournamentSize:    e.TournamentSize,
		Crossover:         e.Crossover,
		SeedIterations:    20,
		SeedRolloutLength: 1,
	}
}

func (c Config) MCTSParams() searcher.Params {
	return searcher.Params{
		K:                     c.K,
		RolloutLength:         c.RolloutLength,
		MaxTreeDepth:          c.MaxTreeDepth,
		Epsilon:               c.Epsilon,
		MetaLevel:             c.MetaLevel,
		ReflexiveIterations:   c.ReflexiveIterations,
		ReflexiveCalls:        c.ReflexiveCalls,
		ReflexiveInOpponent:   c.ReflexiveInOpponent,
		CurrentRound:          c.CurrentRound,
		SharedReflexiveBudget: c.ReflexiveAccounting == Shared,
		Heuristic:             c.Heuristic,
	}
}

func (c Config) RHEAParams() evolver.Params {
	return evolver.Params{
		Horizon:        c.Horizon,
		Discount:       c.Discount,
		PopulationSize: c.PopulationSize,
		EliteCount:     c.EliteCount,
		ChildCount:     c.ChildCount,
		MutationCount:  c.MutationCount,
		Selection:      c.Selection,
		TournamentSize: c.TournamentSize,
		Crossover:      c.Crossover,
		ShiftLeft:      c.ShiftLeft,
		Heuristic:      c.Heuristic,
	}
}

// seedParams configures the plain search behind the mcts seed policy.
func (c Config) seedParams() searcher.Params {
	p := c.MCTSParams()
	p.MetaLevel = 0
	p.RolloutLength = c.SeedRolloutLength
	return p
}

func (c Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("invalid budget: %w", err)
	}
	switch c.Kind {
	case MCTS:
		if err := c.MCTSParams().Validate(); err != nil {
			return fmt.Errorf("invalid %s params: %w", c.Kind, err)
		}
	case RHEA:
		if err := c.RHEAParams().Validate(); err != nil {
			return fmt.Errorf("invalid %s params: %w", c.Kind, err)
		}
		if c.SeedPolicy < SeedRandom || c.SeedPolicy > SeedMCTS {
			return fmt.Errorf("unknown seed policy %d", int(c.SeedPolicy))
		}
		if c.SeedPolicy == SeedMCTS {
			if c.SeedIterations < 1 {
				return fmt.Errorf("seed iterations must be at least 1, got %d", c.SeedIterations)
			}
			if err := c.seedParams().Validate(); err != nil {
				return fmt.Errorf("invalid seed search params: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown agent kind %d", int(c.Kind))
	}
	return nil
}

// String describes the settings that matter for the agent's kind.
func (c Config) String() string {
	if c.Kind == RHEA {
		return fmt.Sprintf("%s(%s horizon=%d pop=%d elites=%d children=%d mutations=%d %s/%s seed=%s shift=%t)",
			c.Kind, c.Budget, c.Horizon, c.PopulationSize, c.EliteCount, c.ChildCount, c.MutationCount,
			c.Selection, c.Crossover, c.SeedPolicy, c.ShiftLeft)
	}
	return fmt.Sprintf("%s(%s k=%.2f rollout=%d depth=%d meta=%d calls=%d iters=%d opp=%t round=%t %s)",
		c.Kind, c.Budget, c.K, c.RolloutLength, c.MaxTreeDepth, c.MetaLevel, c.ReflexiveCalls,
		c.ReflexiveIterations, c.ReflexiveInOpponent, c.CurrentRound, c.ReflexiveAccounting)
}
