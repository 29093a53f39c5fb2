package agent

import (
	"math"
	"testing"

	"reflex/budget"
	"reflex/evolver"
	"reflex/game/sushi"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	base := DefaultConfig()
	base.Heuristic = sushi.Evaluate

	t.Run("reflexive mcts", func(t *testing.T) {
		cfg, err := Parse("rmcts:k=1.4,meta=2,budget=iterations,limit=200,opponent,accounting=shared,seed=7", base)

		require.NoError(t, err)
		require.Equal(t, MCTS, cfg.Kind)
		require.Equal(t, 1.4, cfg.K)
		require.Equal(t, 2, cfg.MetaLevel)
		require.Equal(t, budget.Budget{Kind: budget.Iterations, Limit: 200, BreakMS: base.Budget.BreakMS}, cfg.Budget)
		require.True(t, cfg.ReflexiveInOpponent)
		require.False(t, cfg.CurrentRound)
		require.Equal(t, Shared, cfg.ReflexiveAccounting)
		require.Equal(t, uint64(7), cfg.Seed)
		require.True(t, cfg.MCTSParams().SharedReflexiveBudget)
	})

	t.Run("rhea", func(t *testing.T) {
		cfg, err := Parse("rhea:horizon=8,crossover=one_point,selection=rank,seed_policy=greedy,shift,name=evo", base)

		require.NoError(t, err)
		require.Equal(t, RHEA, cfg.Kind)
		require.Equal(t, "evo", cfg.Name)
		require.Equal(t, 8, cfg.Horizon)
		require.Equal(t, evolver.OnePoint, cfg.Crossover)
		require.Equal(t, evolver.Rank, cfg.Selection)
		require.Equal(t, SeedGreedy, cfg.SeedPolicy)
		require.True(t, cfg.ShiftLeft)
		require.Equal(t, base.PopulationSize, cfg.PopulationSize, "Unset parameters keep their base value")
	})

	t.Run("seeds keep the full unsigned range", func(t *testing.T) {
		wide := base
		wide.Seed = math.MaxUint64

		cfg, err := Parse("rhea:horizon=4", wide)
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), cfg.Seed, "A base seed should pass through unchanged")

		cfg, err = Parse("rmcts:seed=18446744073709551615", base)
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), cfg.Seed)
	})

	t.Run("name only", func(t *testing.T) {
		cfg, err := Parse("rhea", base)

		require.NoError(t, err)
		require.Equal(t, RHEA, cfg.Kind)
	})

	errorCases := map[string]string{
		"unknown algorithm":         "minimax:depth=3",
		"unknown parameter":         "rmcts:k=1,horizon=3",
		"malformed int":             "rmcts:meta=two",
		"malformed bool":            "rhea:shift=maybe",
		"unknown crossover":         "rhea:crossover=three_point",
		"invalid resulting config":  "rhea:elites=20",
		"negative seed":             "rmcts:seed=-1",
		"time budget without slack": "rmcts:budget=time,limit=5,break_ms=5",
	}
	for name, description := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(description, base)

			require.Error(t, err)
		})
	}

	t.Run("unknown parameters are listed", func(t *testing.T) {
		_, err := Parse("rmcts:zeta=1,alpha", base)

		require.ErrorContains(t, err, "alpha, zeta")
	})
}

func TestGetParamOr(t *testing.T) {
	params := splitConfigString("a=3,b,c=0.5,d=false")

	a, err := GetParamOr(params, "a", 1)
	require.NoError(t, err)
	require.Equal(t, 3, a)

	b, err := GetParamOr(params, "b", false)
	require.NoError(t, err)
	require.True(t, b, "A key without value is true")

	c, err := GetParamOr(params, "c", 0.0)
	require.NoError(t, err)
	require.Equal(t, 0.5, c)

	d, err := PopParamOr(params, "d", true)
	require.NoError(t, err)
	require.False(t, d)
	require.NotContains(t, params, "d")

	missing, err := GetParamOr(params, "missing", 42)
	require.NoError(t, err)
	require.Equal(t, 42, missing)
}
