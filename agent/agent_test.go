package agent

import (
	"testing"

	"reflex/budget"
	"reflex/evolver"
	"reflex/game"
	"reflex/game/sushi"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func testConfig(kind Kind) Config {
	cfg := DefaultConfig()
	cfg.Kind = kind
	cfg.Budget = budget.Budget{Kind: budget.Iterations, Limit: 20}
	cfg.Heuristic = sushi.Evaluate
	return cfg
}

func newGame(seed uint64) *sushi.State {
	return sushi.New(3, rand.New(rand.NewSource(seed)))
}

func TestNew(t *testing.T) {
	t.Run("rejects a config without heuristic", func(t *testing.T) {
		cfg := testConfig(MCTS)
		cfg.Heuristic = nil

		_, err := New(cfg)

		require.Error(t, err)
	})

	t.Run("rejects an invalid budget", func(t *testing.T) {
		cfg := testConfig(RHEA)
		cfg.Budget.Limit = 0

		_, err := New(cfg)

		require.ErrorContains(t, err, "invalid budget")
	})

	t.Run("rejects an mcts seed without iterations", func(t *testing.T) {
		cfg := testConfig(RHEA)
		cfg.SeedPolicy = SeedMCTS
		cfg.SeedIterations = 0

		_, err := New(cfg)

		require.ErrorContains(t, err, "seed iterations")
	})
}

func TestChooseAction(t *testing.T) {
	variants := map[string]func(cfg *Config){
		"reflexive mcts": func(cfg *Config) {},
		"plain mcts":     func(cfg *Config) { cfg.MetaLevel = 0 },
		"shared reflexive budget": func(cfg *Config) {
			cfg.Budget = budget.Budget{Kind: budget.FMCalls, Limit: 400}
			cfg.ReflexiveAccounting = Shared
		},
		"rhea random seed": func(cfg *Config) { cfg.Kind = RHEA },
		"rhea greedy seed": func(cfg *Config) {
			cfg.Kind = RHEA
			cfg.SeedPolicy = SeedGreedy
			cfg.Selection = evolver.Rank
		},
		"rhea mcts seed": func(cfg *Config) {
			cfg.Kind = RHEA
			cfg.SeedPolicy = SeedMCTS
			cfg.SeedIterations = 4
			cfg.Budget = budget.Budget{Kind: budget.FMAndCopies, Limit: 2000}
		},
	}

	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(MCTS)
			variant(&cfg)
			state := newGame(3)

			action, err := ChooseAction(state, state.LegalActions(), cfg)

			require.NoError(t, err)
			require.True(t, game.Contains(state.LegalActions(), action), "Action %v should be legal", action)
		})
	}

	t.Run("does not modify the state", func(t *testing.T) {
		state := newGame(5)
		before := state.Copy()

		_, err := ChooseAction(state, state.LegalActions(), testConfig(RHEA))

		require.NoError(t, err)
		require.Equal(t, before, state)
	})

	t.Run("returns config errors", func(t *testing.T) {
		cfg := testConfig(MCTS)
		cfg.K = -1
		state := newGame(5)

		_, err := ChooseAction(state, state.LegalActions(), cfg)

		require.Error(t, err)
	})

	t.Run("panics when the decision is not in the legal list", func(t *testing.T) {
		state := newGame(7)
		legal := []game.Action{sushi.Pick{First: sushi.Chopsticks, Second: sushi.Chopsticks}}

		defer func() {
			err, ok := recover().(*game.IllegalStateError)
			require.True(t, ok, "Should panic with an illegal state error")
			require.Equal(t, "returned action is not legal", err.Invariant)
			require.Equal(t, legal, err.Context["legal"])
		}()
		ChooseAction(state, legal, testConfig(MCTS))
	})
}

func TestAgent(t *testing.T) {
	t.Run("reports search metrics", func(t *testing.T) {
		a, err := New(testConfig(MCTS))
		require.NoError(t, err)
		state := newGame(1)

		_, metric := a.ChooseAction(state, state.LegalActions())

		require.Equal(t, "rmcts", metric.Algorithm)
		require.Equal(t, 20, metric.Iterations)
		require.Positive(t, metric.FMCalls)
		require.Positive(t, metric.ReflexiveCalls)
		require.Equal(t, "Iterations", metric.StopReason)
	})

	t.Run("reuses the rhea population with shift left", func(t *testing.T) {
		cfg := testConfig(RHEA)
		cfg.ShiftLeft = true
		a, err := New(cfg)
		require.NoError(t, err)
		state := newGame(2)

		first, metric := a.ChooseAction(state, state.LegalActions())
		require.False(t, metric.PopulationReused)

		// Play the other seats so the same player is to move again.
		rng := rand.New(rand.NewSource(2))
		next := game.Apply(state, first, rng, game.Discard)
		for next.TurnOwner() != state.TurnOwner() {
			next = game.Apply(next, next.LegalActions()[0], rng, game.Discard)
		}
		_, metric = a.ChooseAction(next, next.LegalActions())

		require.Equal(t, "rhea", metric.Algorithm)
		require.True(t, metric.PopulationReused)
	})

	t.Run("same seed gives the same decisions", func(t *testing.T) {
		state := newGame(4)
		a, _ := New(testConfig(RHEA))
		b, _ := New(testConfig(RHEA))

		x, _ := a.ChooseAction(state, state.LegalActions())
		y, _ := b.ChooseAction(state, state.LegalActions())

		require.Equal(t, x, y)
	})
}
