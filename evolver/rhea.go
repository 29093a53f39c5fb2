package evolver

import (
	"reflex/budget"
	"reflex/experiments/metrics"
	"reflex/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const Algorithm = "rhea"

// maxIdleGenerations bounds how many generations in a row may spend nothing
// under a counting budget before the search gives up.
const maxIdleGenerations = 1000

type Option func(r *RHEA)

// WithSeedPolicy sets the policy that builds the first individual and picks
// substitutes for actions that turned illegal.
func WithSeedPolicy(policy game.Policy) Option {
	return func(r *RHEA) {
		if policy != nil {
			r.seed = policy
		}
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(r *RHEA) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

// RHEA is a rolling horizon evolutionary algorithm. It evolves a population
// of fixed length plans and plays the first action of the fittest one.
type RHEA struct {
	params  Params
	rng     *rand.Rand
	seed    game.Policy
	metrics metrics.Collector
	flip    func() bool

	population []*Individual
	player     game.PlayerID
	ctrl       *budget.Controller
}

func New(params Params, rng *rand.Rand, options ...Option) *RHEA {
	if err := params.Validate(); err != nil {
		panic(err.Error())
	}
	r := &RHEA{
		params:  params,
		rng:     rng,
		seed:    game.RandomPolicy{},
		metrics: metrics.NewDummyCollector(),
	}
	r.flip = func() bool { return r.rng.Float64() >= 0.5 }
	for _, option := range options {
		option(r)
	}
	return r
}

// Population returns the population left by the last search, fittest first.
func (r *RHEA) Population() []*Individual {
	return r.population
}

// Reset forgets the population kept for shift-left reuse.
func (r *RHEA) Reset() {
	r.population = nil
}

// Search evolves plans from state until ctrl stops it and returns the first
// action of the fittest plan.
func (r *RHEA) Search(state game.State, ctrl *budget.Controller) (game.Action, metrics.SearchMetric) {
	r.metrics.Start(Algorithm)
	r.ctrl = ctrl
	defer func() { r.ctrl = nil }()

	root := state.Copy()
	ctrl.AddCopies(1)

	player := state.TurnOwner()
	reuse := r.params.ShiftLeft && len(r.population) > 0 && r.player == player
	r.player = player
	if reuse {
		r.shiftPopulation(root)
	} else {
		r.initialize(root)
	}
	r.metrics.SetPopulationReused(reuse)
	sortPopulation(r.population)

	idle := 0
	for ctrl.Continue() {
		spent := ctrl.FMCalls() + ctrl.Copies()
		ctrl.StartIteration()
		r.generation()
		ctrl.EndIteration()
		if !countsSpending(ctrl) || ctrl.FMCalls()+ctrl.Copies() > spent {
			idle = 0
			continue
		}
		idle++
		if idle >= maxIdleGenerations || !r.canChange() {
			ctrl.Halt(budget.StopStalled)
		}
	}

	best := r.population[0]
	action := best.Actions[0]
	if action == nil || !game.Contains(state.LegalActions(), action) {
		game.Raise("chosen action is not legal",
			"action", action, "generations", ctrl.Iterations(), "shift_left", r.params.ShiftLeft,
			"fm_calls", ctrl.FMCalls())
	}
	metric := r.metrics.Complete(ctrl)

	log.Debug().
		Str("action", action.String()).
		Int("generations", ctrl.Iterations()).
		Int("population", len(r.population)).
		Float64("fitness", best.Fitness).
		Int("repairs", metric.Repairs).
		Bool("reused", reuse).
		Stringer("stop", ctrl.StopReason()).
		Msg("evolution complete")
	return action, metric
}

// initialize rolls out one individual with the seed policy and fills the
// population with mutated copies of it while budget remains.
func (r *RHEA) initialize(root game.State) {
	seed := newIndividual(r.params.Horizon, root)
	r.repair(seed, 0)
	r.population = []*Individual{seed}
	for len(r.population) < r.params.PopulationSize && r.ctrl.Continue() {
		ind := seed.clone()
		r.mutate(ind, max(r.params.MutationCount, 1))
		r.population = append(r.population, ind)
	}
}

// shiftPopulation rebases the kept population on root. The first individual
// is always repaired; the others only while budget remains, and any left
// over keep a fitness of -Inf.
func (r *RHEA) shiftPopulation(root game.State) {
	for _, ind := range r.population {
		ind.shift(root)
	}
	for i, ind := range r.population {
		if i > 0 && !r.ctrl.Continue() {
			break
		}
		r.repair(ind, 0)
	}
}

// generation runs one step of elitism, crossover, mutation and replacement.
func (r *RHEA) generation() {
	next := make([]*Individual, 0, r.params.PopulationSize)
	for i := 0; i < min(r.params.EliteCount, len(r.population)); i++ {
		next = append(next, r.population[i].clone())
	}

	for i := 0; i < r.params.ChildCount; i++ {
		p1, p2 := r.selectParent(), r.selectParent()
		r.population = append(r.population, crossover(r.params.Crossover, p1, p2, r.flip))
	}

	for _, ind := range r.population {
		r.mutate(ind, r.params.MutationCount)
	}
	sortPopulation(r.population)

	for i := 0; i < len(r.population) && len(next) < r.params.PopulationSize; i++ {
		next = append(next, r.population[i])
	}
	r.population = next
	sortPopulation(r.population)
}

// countsSpending reports whether ctrl only moves when forward model calls or
// copies are made, so a generation that spends nothing brings it no closer
// to stopping.
func countsSpending(ctrl *budget.Controller) bool {
	switch ctrl.Budget().Kind {
	case budget.FMCalls, budget.Copies, budget.FMAndCopies:
		return true
	}
	return false
}

// canChange reports whether some later generation could still alter a plan.
func (r *RHEA) canChange() bool {
	longest := 0
	for _, ind := range r.population {
		if ind.dirtyFrom < ind.horizon() {
			return true
		}
		if r.params.MutationCount > 0 && ind.hasChoice() {
			return true
		}
		longest = max(longest, ind.Length)
	}
	if r.params.ChildCount == 0 {
		return false
	}
	switch r.params.Crossover {
	case Uniform:
		return longest >= 1
	case OnePoint:
		return longest >= 2
	case TwoPoint:
		return longest >= 3
	}
	return false
}
