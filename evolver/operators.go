package evolver

import (
	"sort"

	"reflex/game"
)

// crossover builds a child from a copy of p1 with some positions taken from
// p2. Positions are copied with their resulting states and nothing is
// re-simulated; the child is marked dirty from the first spliced position so
// the next repair walk restores consistency.
func crossover(kind Crossover, p1, p2 *Individual, flip func() bool) *Individual {
	child := p1.clone()
	shortest := min(p1.Length, p2.Length)

	take := func(c, d int) {
		child.Actions[c] = p2.Actions[d]
		child.States[c+1] = p2.States[d+1]
		child.markDirty(c)
	}

	switch kind {
	case NoCrossover:
	case Uniform:
		for i := 0; i < shortest; i++ {
			if flip() {
				take(i, i)
			}
		}
	case OnePoint:
		for i := 0; i < shortest/2; i++ {
			take(child.Length-1-i, p2.Length-1-i)
		}
	case TwoPoint:
		for i := 0; i < shortest/3; i++ {
			take(i, i)
			take(child.Length-1-i, p2.Length-1-i)
		}
	default:
		game.Raise("unreachable crossover kind", "crossover", int(kind))
	}
	return child
}

func sortPopulation(population []*Individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness > population[j].Fitness
	})
}

// tournament returns the fittest of size uniform draws with replacement.
func (r *RHEA) tournament() *Individual {
	var best *Individual
	for i := 0; i < r.params.TournamentSize; i++ {
		current := r.population[r.rng.Intn(len(r.population))]
		if best == nil || current.Fitness > best.Fitness {
			best = current
		}
	}
	return best
}

// rank draws an individual with probability proportional to its rank, the
// fittest having the largest weight.
func (r *RHEA) rank() *Individual {
	sortPopulation(r.population)
	n := len(r.population)
	draw := r.rng.Intn(n * (n + 1) / 2)
	acc := 0
	for i, ind := range r.population {
		acc += n - i
		if acc >= draw {
			return ind
		}
	}
	game.Raise("rank selection overran the population", "draw", draw, "sum", acc)
	return nil
}

func (r *RHEA) selectParent() *Individual {
	switch r.params.Selection {
	case Tournament:
		return r.tournament()
	case Rank:
		return r.rank()
	}
	game.Raise("unreachable selection kind", "selection", int(r.params.Selection))
	return nil
}

// mutate replaces count random actions with different legal ones and
// repairs the plan from the earliest changed or stale position.
func (r *RHEA) mutate(ind *Individual, count int) {
	for k := 0; k < count && ind.Length > 0; k++ {
		pos := r.rng.Intn(ind.Length)
		var alternatives []game.Action
		for _, a := range ind.States[pos].LegalActions() {
			if a != ind.Actions[pos] {
				alternatives = append(alternatives, a)
			}
		}
		if len(alternatives) == 0 {
			continue
		}
		ind.Actions[pos] = alternatives[r.rng.Intn(len(alternatives))]
		ind.markDirty(pos)
	}
	if ind.dirtyFrom < ind.horizon() {
		r.repair(ind, ind.dirtyFrom)
	}
}

// repair walks the plan from position from, replacing actions that are no
// longer legal with the seed policy's choice, re-simulating every state after
// it and scoring the result.
func (r *RHEA) repair(ind *Individual, from int) {
	ind.Repairs, ind.NonRepairs = 0, 0
	h := ind.horizon()
	i := from
	for ; i < h; i++ {
		state := ind.States[i]
		if state.IsTerminal() {
			break
		}
		legal := state.LegalActions()
		action := ind.Actions[i]
		switch {
		case action == nil:
			action = r.seed.Choose(state, legal, r.rng, r.ctrl)
		case !game.Contains(legal, action):
			action = r.seed.Choose(state, legal, r.rng, r.ctrl)
			ind.Repairs++
		default:
			ind.NonRepairs++
		}
		ind.Actions[i] = action
		ind.States[i+1] = game.Apply(state, action, r.rng, r.ctrl)
	}
	ind.Length = i
	for j := i; j < h; j++ {
		ind.Actions[j] = nil
		ind.States[j+1] = nil
	}
	ind.dirtyFrom = h
	ind.Fitness = r.fitness(ind)
	r.metrics.AddRepairs(ind.Repairs, ind.NonRepairs)
}

// fitness is the discounted mean of the heuristic along the plan.
func (r *RHEA) fitness(ind *Individual) float64 {
	if ind.Length == 0 {
		return game.Score(r.params.Heuristic, ind.States[0], r.player)
	}
	total, weights, weight := 0.0, 0.0, 1.0
	for i := 0; i < ind.Length; i++ {
		total += weight * game.Score(r.params.Heuristic, ind.States[i+1], r.player)
		weights += weight
		weight *= r.params.Discount
	}
	return total / weights
}
