package agent

import (
	"reflex/budget"
	"reflex/evolver"
	"reflex/experiments/metrics"
	"reflex/game"
	"reflex/searcher"

	"golang.org/x/exp/rand"
)

type Agent interface {
	// ChooseAction returns one of legal for the player to move at state and
	// the metrics of the search behind it
	ChooseAction(state game.State, legal []game.Action) (game.Action, metrics.SearchMetric)
}

// New builds an agent from cfg. Agents keep their random source and, for
// RHEA with shift-left, their population across decisions.
func New(cfg Config) (Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	collector := metrics.NewCollector()

	switch cfg.Kind {
	case RHEA:
		options := []evolver.Option{evolver.WithMetrics(collector)}
		switch cfg.SeedPolicy {
		case SeedGreedy:
			options = append(options, evolver.WithSeedPolicy(game.GreedyPolicy{Heuristic: cfg.Heuristic}))
		case SeedMCTS:
			seed := searcher.New(cfg.seedParams(), rng)
			options = append(options, evolver.WithSeedPolicy(seed.Policy(cfg.SeedIterations)))
		}
		return &rheaAgent{cfg: cfg, rhea: evolver.New(cfg.RHEAParams(), rng, options...)}, nil
	default:
		return &mctsAgent{cfg: cfg, mcts: searcher.New(cfg.MCTSParams(), rng, searcher.WithMetrics(collector))}, nil
	}
}

// ChooseAction makes a single decision with a fresh agent built from cfg.
func ChooseAction(state game.State, legal []game.Action, cfg Config) (game.Action, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	action, _ := a.ChooseAction(state, legal)
	return action, nil
}

type mctsAgent struct {
	cfg  Config
	mcts *searcher.MCTS
}

func (a *mctsAgent) ChooseAction(state game.State, legal []game.Action) (game.Action, metrics.SearchMetric) {
	ctrl := budget.New(a.cfg.Budget)
	result, metric := a.mcts.Search(state, ctrl)
	return ensureLegal(result.Action, legal, metric), metric
}

type rheaAgent struct {
	cfg  Config
	rhea *evolver.RHEA
}

func (a *rheaAgent) ChooseAction(state game.State, legal []game.Action) (game.Action, metrics.SearchMetric) {
	ctrl := budget.New(a.cfg.Budget)
	action, metric := a.rhea.Search(state, ctrl)
	return ensureLegal(action, legal, metric), metric
}

func ensureLegal(action game.Action, legal []game.Action, metric metrics.SearchMetric) game.Action {
	if !game.Contains(legal, action) {
		game.Raise("returned action is not legal",
			"action", action, "legal", legal, "algorithm", metric.Algorithm,
			"iterations", metric.Iterations, "fm_calls", metric.FMCalls, "copies", metric.Copies)
	}
	return action
}
