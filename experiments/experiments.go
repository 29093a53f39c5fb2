package experiments

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"reflex/agent"
	"reflex/config"
	"reflex/engine"
	"reflex/experiments/metrics"
	"reflex/game"
	"reflex/game/sushi"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// Result holds the records of one experiment run.
type Result struct {
	RunID     string
	Agents    []metrics.AgentRecord
	Games     []metrics.GameRecord
	Moves     []metrics.MoveRecord
	Standings []Standing
	Duration  time.Duration
}

// Standing sums up the games of one agent. A game counts as a win for every
// seat the winner's agent occupied.
type Standing struct {
	Agent     string
	Games     int
	Wins      int
	Shared    int // games without a single winner
	MeanScore float64
	Decisions int
	FMCalls   int
	Copies    int
}

type job struct {
	id    int
	seats []int // agent index by player
	seed  uint64
}

// Run plays every table of exp the configured number of times, rotating
// seats between games, with up to exp.Parallel games at once.
func Run(ctx context.Context, exp config.Experiment) (Result, error) {
	configs, err := exp.AgentConfigs()
	if err != nil {
		return Result{}, err
	}
	result := Result{RunID: uuid.NewString()}
	for i, cfg := range configs {
		result.Agents = append(result.Agents, metrics.AgentRecord{
			ID:        i,
			Name:      cfg.Name,
			Algorithm: cfg.Kind.String(),
			Config:    cfg.String(),
		})
	}

	var jobs []job
	for _, table := range exp.Tables() {
		for g := 0; g < exp.Games; g++ {
			seats := make([]int, len(table))
			for s := range seats {
				seats[s] = table[(s+g)%len(table)]
			}
			id := len(jobs)
			jobs = append(jobs, job{id: id, seats: seats, seed: exp.Seed + uint64(id)})
		}
	}

	log.Info().
		Str("run", result.RunID).
		Str("experiment", exp.Name).
		Int("games", len(jobs)).
		Int("parallel", exp.Parallel).
		Msg("starting experiment")
	start := time.Now()

	games := make([]metrics.GameRecord, len(jobs))
	moves := make([][]metrics.MoveRecord, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(exp.Parallel)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			record, moveRecords, err := runGame(gCtx, exp, configs, j)
			if err != nil {
				return fmt.Errorf("game %d: %w", j.id, err)
			}
			games[j.id] = record
			moves[j.id] = moveRecords
			log.Info().
				Int("game", j.id+1).
				Int("of", len(jobs)).
				Int("winner", record.Winner).
				Ints("scores", record.Scores).
				Msg("completed game")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result.Games = games
	for _, m := range moves {
		result.Moves = append(result.Moves, m...)
	}
	result.Duration = time.Since(start)
	result.Standings = standings(configs, games, result.Moves)
	log.Info().Str("run", result.RunID).Dur("duration", result.Duration).Msg("completed experiment")
	return result, nil
}

// runGame plays a single game with fresh agents. A panic inside the game is
// returned as an error.
func runGame(ctx context.Context, exp config.Experiment, configs []agent.Config, j job) (record metrics.GameRecord, moves []metrics.MoveRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Int("game", j.id).Msg("game panicked")
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()

	agents := make([]agent.Agent, len(j.seats))
	for p, index := range j.seats {
		cfg := configs[index]
		cfg.Seed += j.seed*uint64(len(j.seats)+1) + uint64(p)
		agents[p], err = agent.New(cfg)
		if err != nil {
			return record, nil, err
		}
	}

	rng := rand.New(rand.NewSource(j.seed))
	state := sushi.New(exp.Game.Players, rng)
	gameMetric, moveMetrics, err := engine.NewLocalEngine(state, agents, rng).Run(ctx)
	if err != nil {
		return record, nil, err
	}

	record = metrics.GameRecord{
		ID:         j.id,
		Seats:      j.seats,
		Seed:       j.seed,
		GameMetric: gameMetric,
	}
	moves = make([]metrics.MoveRecord, len(moveMetrics))
	for i, mm := range moveMetrics {
		moves[i] = metrics.MoveRecord{
			Game:       j.id,
			Agent:      j.seats[mm.Player],
			MoveMetric: mm,
		}
	}
	return record, moves, nil
}

func standings(configs []agent.Config, games []metrics.GameRecord, moves []metrics.MoveRecord) []Standing {
	table := make([]Standing, len(configs))
	scores := make([]int, len(configs))
	seated := make([]int, len(configs))
	for i, cfg := range configs {
		table[i].Agent = cfg.Name
	}

	for _, g := range games {
		present := map[int]bool{}
		for p, index := range g.Seats {
			present[index] = true
			scores[index] += g.Scores[p]
			seated[index]++
		}
		for index := range present {
			table[index].Games++
			switch {
			case g.Winner == int(game.NoPlayer):
				table[index].Shared++
			case g.Seats[g.Winner] == index:
				table[index].Wins++
			}
		}
	}
	for _, m := range moves {
		table[m.Agent].Decisions++
		table[m.Agent].FMCalls += m.FMCalls
		table[m.Agent].Copies += m.Copies
	}
	for i := range table {
		if seated[i] > 0 {
			table[i].MeanScore = float64(scores[i]) / float64(seated[i])
		}
	}

	sort.SliceStable(table, func(a, b int) bool { return table[a].Wins > table[b].Wins })
	return table
}

// Summary renders the standings as a plain text table.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s games, %s moves in %s\n",
		r.RunID, humanize.Comma(int64(len(r.Games))), humanize.Comma(int64(len(r.Moves))), r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "%-16s %6s %6s %6s %8s %14s %14s\n", "agent", "games", "wins", "shared", "score", "fm/move", "copies/move")
	for _, s := range r.Standings {
		var fmPerMove, copiesPerMove int64
		if s.Decisions > 0 {
			fmPerMove = int64(s.FMCalls / s.Decisions)
			copiesPerMove = int64(s.Copies / s.Decisions)
		}
		fmt.Fprintf(&b, "%-16s %6d %6d %6d %8.2f %14s %14s\n", s.Agent, s.Games, s.Wins, s.Shared, s.MeanScore,
			humanize.Comma(fmPerMove), humanize.Comma(copiesPerMove))
	}
	return b.String()
}

// Store writes the records of r to every sink configured in output.
func Store(ctx context.Context, output config.OutputConfig, r Result) error {
	var sinks []metrics.Sink
	if output.Dir != "" {
		writer, err := metrics.NewWriter(output.Dir, r.RunID)
		if err != nil {
			return fmt.Errorf("failed to create experiment writer: %w", err)
		}
		sinks = append(sinks, writer)
	}
	if output.SQLite != "" {
		store := metrics.NewSQLiteStore(output.SQLite, r.RunID)
		if err := store.Init(ctx); err != nil {
			return errors.Join(fmt.Errorf("failed to open %s: %w", output.SQLite, err), closeAll(sinks))
		}
		sinks = append(sinks, store)
	}
	return writeAll(ctx, sinks, r)
}

// writeAll writes r to each sink in turn, stopping at the first failure, and
// closes every sink either way.
func writeAll(ctx context.Context, sinks []metrics.Sink, r Result) error {
	var err error
	for _, sink := range sinks {
		if err = writeRecords(ctx, sink, r); err != nil {
			break
		}
	}
	return errors.Join(err, closeAll(sinks))
}

func closeAll(sinks []metrics.Sink) error {
	var errs []error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeRecords(ctx context.Context, sink metrics.Sink, r Result) error {
	if err := sink.WriteAgentRecords(ctx, r.Agents); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Debug().Msg("stored agent configs")

	if err := sink.WriteGameRecords(ctx, r.Games); err != nil {
		return fmt.Errorf("failed to write game records: %w", err)
	}
	log.Debug().Msg("stored game records")

	if err := sink.WriteMoveRecords(ctx, r.Moves); err != nil {
		return fmt.Errorf("failed to write move records: %w", err)
	}
	log.Debug().Msg("stored move records")
	return nil
}
