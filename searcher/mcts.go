package searcher

import (
	"reflex/budget"
	"reflex/experiments/metrics"
	"reflex/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const Algorithm = "rmcts"

type Option func(mcts *MCTS)

// WithRolloutPolicy replaces the uniform random rollout policy.
func WithRolloutPolicy(policy game.Policy) Option {
	return func(m *MCTS) {
		if policy != nil {
			m.rollout = policy
		}
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(m *MCTS) {
		if collector != nil {
			m.metrics = collector
		}
	}
}

// MCTS is a reflexive Monte Carlo tree search. Rollouts of a level N search
// may choose moves with level N-1 searches, down to level 0 where rollouts
// are random.
type MCTS struct {
	params  Params
	rng     *rand.Rand
	rollout game.Policy
	metrics metrics.Collector
}

func New(params Params, rng *rand.Rand, options ...Option) *MCTS {
	if err := params.Validate(); err != nil {
		panic(err.Error())
	}
	m := &MCTS{ // Default values
		params:  params,
		rng:     rng,
		rollout: game.RandomPolicy{},
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

type Result struct {
	Action game.Action
	Ranked []ActionStat
}

// Search runs until ctrl stops it, always completing at least one iteration,
// and returns the most visited action for the player to move at state.
func (m *MCTS) Search(state game.State, ctrl *budget.Controller) (Result, metrics.SearchMetric) {
	m.metrics.Start(Algorithm)
	t := m.runSearch(state, m.params.MetaLevel, state.TurnOwner(), ctrl)
	result := Result{
		Action: t.bestAction(),
		Ranked: t.ranked(3),
	}
	metric := m.metrics.Complete(ctrl)

	log.Debug().
		Str("action", result.Action.String()).
		Int("iterations", ctrl.Iterations()).
		Int("fm_calls", ctrl.FMCalls()).
		Int("copies", ctrl.Copies()).
		Int("nodes", len(t.nodes)).
		Stringer("stop", ctrl.StopReason()).
		Msg("search complete")
	return result, metric
}

func (m *MCTS) runSearch(root game.State, level int, player game.PlayerID, ctrl *budget.Controller) *tree {
	t := newTree(m, root, player, level, ctrl)
	for {
		ctrl.StartIteration()
		leaf := t.treePolicy(0)
		value := t.rollout(leaf)
		t.backUp(leaf, value)
		ctrl.EndIteration()
		if !ctrl.Continue() {
			break
		}
	}
	return t
}

// Policy returns a policy that picks each action with a plain search of the
// given number of iterations, deciding for whoever is to move. Work is
// charged to the caller's counter.
func (m *MCTS) Policy(iterations int) game.Policy {
	return game.PolicyFunc(func(state game.State, actions []game.Action, _ *rand.Rand, counter game.Counter) game.Action {
		if len(actions) == 1 {
			return actions[0]
		}
		var ctrl *budget.Controller
		if outer, ok := counter.(*budget.Controller); ok {
			ctrl = outer.Nested(iterations, true)
		} else {
			ctrl = budget.New(budget.Budget{Kind: budget.Iterations, Limit: iterations})
		}
		return m.runSearch(state, 0, state.TurnOwner(), ctrl).bestAction()
	})
}
