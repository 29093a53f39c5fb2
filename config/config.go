// Package config loads experiment descriptions from YAML or JSON files with
// environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"reflex/agent"
	"reflex/budget"
	"reflex/game/sushi"

	"gopkg.in/yaml.v3"
)

// Experiment describes a set of games between agents.
type Experiment struct {
	Name string `json:"name" yaml:"name"`

	// Game selects the game and how states are evaluated.
	Game GameConfig `json:"game" yaml:"game"`

	// Budget is given to every agent unless its description overrides it.
	Budget budget.Budget `json:"budget" yaml:"budget"`

	Agents []AgentEntry `json:"agents" yaml:"agents"`

	// Matchups lists the agents seated at each table by name. When empty, every
	// pair of agents meets.
	Matchups [][]string `json:"matchups" yaml:"matchups"`

	// Games is the number of games per matchup. Seats rotate between games.
	Games    int    `json:"games" yaml:"games"`
	Seed     uint64 `json:"seed" yaml:"seed"`
	Parallel int    `json:"parallel" yaml:"parallel"`

	Output   OutputConfig `json:"output" yaml:"output"`
	LogLevel string       `json:"log_level" yaml:"log_level"`
}

type GameConfig struct {
	Name      string `json:"name" yaml:"name"`
	Players   int    `json:"players" yaml:"players"`
	Heuristic string `json:"heuristic" yaml:"heuristic"`
}

// AgentEntry names an agent described as in agent.Parse.
type AgentEntry struct {
	Name string `json:"name" yaml:"name"`
	Spec string `json:"spec" yaml:"spec"`
}

type OutputConfig struct {
	// Dir receives one CSV directory per run; empty disables CSV output
	Dir string `json:"dir" yaml:"dir"`
	// SQLite is a database file shared by all runs; empty disables it
	SQLite string `json:"sqlite" yaml:"sqlite"`
}

// Default returns a two player sushi experiment between plain and reflexive MCTS.
func Default() Experiment {
	return Experiment{
		Name: "reflexive-vs-plain",
		Game: GameConfig{
			Name:      "sushi",
			Players:   2,
			Heuristic: "score",
		},
		Budget: budget.Budget{Kind: budget.Iterations, Limit: 200},
		Agents: []AgentEntry{
			{Name: "plain", Spec: "rmcts:meta=0"},
			{Name: "reflexive", Spec: "rmcts:meta=1"},
		},
		Games:    10,
		Seed:     1,
		Parallel: 4,
		Output: OutputConfig{
			Dir: "experiments",
		},
		LogLevel: "info",
	}
}

// Load reads an experiment with priority: env > file > defaults.
func Load(path string) (Experiment, error) {
	exp := Default()

	if path != "" {
		if err := loadFile(path, &exp); err != nil {
			return exp, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&exp); err != nil {
		return exp, fmt.Errorf("load config from environment: %w", err)
	}

	if err := exp.Validate(); err != nil {
		return exp, fmt.Errorf("invalid config: %w", err)
	}
	return exp, nil
}

func loadFile(path string, exp *Experiment) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, exp); err != nil {
		if jsonErr := json.Unmarshal(data, exp); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

// loadEnv applies REFLEX_* variables. Unlike a missing variable, a malformed
// one is an error.
func loadEnv(exp *Experiment) error {
	ints := map[string]*int{
		"REFLEX_GAMES":        &exp.Games,
		"REFLEX_PARALLEL":     &exp.Parallel,
		"REFLEX_PLAYERS":      &exp.Game.Players,
		"REFLEX_BUDGET_LIMIT": &exp.Budget.Limit,
		"REFLEX_BUDGET_BREAK": &exp.Budget.BreakMS,
	}
	for key, target := range ints {
		if v := os.Getenv(key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s=%q is not an integer", key, v)
			}
			*target = i
		}
	}

	strs := map[string]*string{
		"REFLEX_HEURISTIC":  &exp.Game.Heuristic,
		"REFLEX_OUTPUT_DIR": &exp.Output.Dir,
		"REFLEX_SQLITE":     &exp.Output.SQLite,
		"REFLEX_LOG_LEVEL":  &exp.LogLevel,
	}
	for key, target := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}

	if v := os.Getenv("REFLEX_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("REFLEX_SEED=%q is not a seed", v)
		}
		exp.Seed = seed
	}
	if v := os.Getenv("REFLEX_BUDGET_KIND"); v != "" {
		if err := exp.Budget.Kind.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("REFLEX_BUDGET_KIND: %w", err)
		}
	}
	return nil
}

func (e Experiment) Validate() error {
	if e.Game.Name != "sushi" {
		return fmt.Errorf("unknown game %q", e.Game.Name)
	}
	if e.Game.Players < sushi.MinPlayers || e.Game.Players > sushi.MaxPlayers {
		return fmt.Errorf("players must be between %d and %d, got %d", sushi.MinPlayers, sushi.MaxPlayers, e.Game.Players)
	}
	if _, ok := sushi.Heuristics[e.Game.Heuristic]; !ok {
		return fmt.Errorf("unknown heuristic %q", e.Game.Heuristic)
	}
	if err := e.Budget.Validate(); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if e.Games < 1 {
		return fmt.Errorf("games must be >= 1")
	}
	if e.Parallel < 1 {
		return fmt.Errorf("parallel must be >= 1")
	}
	if len(e.Agents) < 1 {
		return fmt.Errorf("at least one agent is required")
	}

	names := make(map[string]bool, len(e.Agents))
	for _, entry := range e.Agents {
		if entry.Name == "" {
			return fmt.Errorf("agent %q has no name", entry.Spec)
		}
		if names[entry.Name] {
			return fmt.Errorf("duplicate agent name %q", entry.Name)
		}
		names[entry.Name] = true
	}
	if _, err := e.AgentConfigs(); err != nil {
		return err
	}

	if len(e.Matchups) == 0 && len(e.Agents) < 2 {
		return fmt.Errorf("need two agents or explicit matchups")
	}
	for i, seats := range e.Matchups {
		if len(seats) != e.Game.Players {
			return fmt.Errorf("matchup %d seats %d agents for %d players", i, len(seats), e.Game.Players)
		}
		for _, name := range seats {
			if !names[name] {
				return fmt.Errorf("matchup %d names unknown agent %q", i, name)
			}
		}
	}
	return nil
}

// AgentConfigs parses every agent description on top of the experiment's
// budget and heuristic. Each agent gets its own seed derived from the
// experiment seed unless its description sets one.
func (e Experiment) AgentConfigs() ([]agent.Config, error) {
	heuristic := sushi.Heuristics[e.Game.Heuristic]
	configs := make([]agent.Config, len(e.Agents))
	for i, entry := range e.Agents {
		base := agent.DefaultConfig()
		base.Budget = e.Budget
		base.Heuristic = heuristic
		base.Seed = e.Seed + uint64(i)
		cfg, err := agent.Parse(entry.Spec, base)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", entry.Name, err)
		}
		cfg.Name = entry.Name
		configs[i] = cfg
	}
	return configs, nil
}

// Tables returns the agent indices seated at each table, before rotation.
func (e Experiment) Tables() [][]int {
	index := make(map[string]int, len(e.Agents))
	for i, entry := range e.Agents {
		index[entry.Name] = i
	}

	if len(e.Matchups) > 0 {
		tables := make([][]int, len(e.Matchups))
		for i, seats := range e.Matchups {
			tables[i] = make([]int, len(seats))
			for s, name := range seats {
				tables[i][s] = index[name]
			}
		}
		return tables
	}

	// Pairs alternate around the table.
	var tables [][]int
	for a := 0; a < len(e.Agents); a++ {
		for b := a + 1; b < len(e.Agents); b++ {
			seats := make([]int, e.Game.Players)
			for s := range seats {
				if s%2 == 0 {
					seats[s] = a
				} else {
					seats[s] = b
				}
			}
			tables = append(tables, seats)
		}
	}
	return tables
}

func (e Experiment) String() string {
	names := make([]string, len(e.Agents))
	for i, entry := range e.Agents {
		names[i] = entry.Name
	}
	return fmt.Sprintf("%s: %s with %d players, %s, agents %s, %d games per table",
		e.Name, e.Game.Name, e.Game.Players, e.Budget, strings.Join(names, ", "), e.Games)
}
