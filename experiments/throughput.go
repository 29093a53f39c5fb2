package experiments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reflex/agent"
	"reflex/config"
	"reflex/game/sushi"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// Throughput is the average work an agent does per decision.
type Throughput struct {
	Agent      string
	Decisions  int
	Iterations float64
	FMCalls    float64
	Copies     float64
	PerMove    time.Duration
}

// FMCallsPerSecond is the forward model rate reached while deciding.
func (t Throughput) FMCallsPerSecond() float64 {
	if t.PerMove <= 0 {
		return 0
	}
	return t.FMCalls / t.PerMove.Seconds()
}

// MeasureThroughput lets each agent of exp make the given number of decisions
// in self-play, with the same configuration at every seat so positions stay
// comparable. Games restart when they end.
func MeasureThroughput(ctx context.Context, exp config.Experiment, decisions int) ([]Throughput, error) {
	if decisions < 1 {
		return nil, fmt.Errorf("decisions must be >= 1, got %d", decisions)
	}
	configs, err := exp.AgentConfigs()
	if err != nil {
		return nil, err
	}

	results := make([]Throughput, len(configs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(exp.Parallel)
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			result, err := measure(gCtx, cfg, exp.Game.Players, exp.Seed, decisions)
			if err != nil {
				return fmt.Errorf("agent %q: %w", cfg.Name, err)
			}
			results[i] = result
			log.Info().
				Str("agent", cfg.Name).
				Float64("iterations", result.Iterations).
				Float64("fm_calls", result.FMCalls).
				Dur("per_move", result.PerMove).
				Msg("measured throughput")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func measure(ctx context.Context, cfg agent.Config, players int, seed uint64, decisions int) (Throughput, error) {
	agents := make([]agent.Agent, players)
	for p := range agents {
		c := cfg
		c.Seed += uint64(p)
		a, err := agent.New(c)
		if err != nil {
			return Throughput{}, err
		}
		agents[p] = a
	}

	rng := rand.New(rand.NewSource(seed))
	state := sushi.New(players, rng)
	result := Throughput{Agent: cfg.Name, Decisions: decisions}
	var elapsed time.Duration
	for d := 0; d < decisions; d++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if state.IsTerminal() {
			state = sushi.New(players, rng)
		}
		action, metric := agents[state.TurnOwner()].ChooseAction(state, state.LegalActions())
		result.Iterations += float64(metric.Iterations)
		result.FMCalls += float64(metric.FMCalls)
		result.Copies += float64(metric.Copies)
		elapsed += metric.Duration
		state.Next(action, rng)
	}

	n := float64(decisions)
	result.Iterations /= n
	result.FMCalls /= n
	result.Copies /= n
	result.PerMove = elapsed / time.Duration(decisions)
	return result, nil
}

// FormatThroughput renders throughput results as a plain text table.
func FormatThroughput(results []Throughput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %10s %12s %12s %12s %14s\n", "agent", "decisions", "iterations", "fm calls", "copies", "fm/s")
	for _, r := range results {
		fmt.Fprintf(&b, "%-16s %10d %12s %12s %12s %14s\n", r.Agent, r.Decisions,
			humanize.FormatFloat("#,###.#", r.Iterations),
			humanize.FormatFloat("#,###.#", r.FMCalls),
			humanize.FormatFloat("#,###.#", r.Copies),
			humanize.SIWithDigits(r.FMCallsPerSecond(), 1, ""))
	}
	return b.String()
}
