package engine

import (
	"context"
	"fmt"
	"time"

	"reflex/agent"
	"reflex/experiments/metrics"
	"reflex/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// Observer is told about every move right after it is applied.
type Observer func(step int, player game.PlayerID, action game.Action, state Game)

type Option func(e *LocalEngine)

func WithObserver(observer Observer) Option {
	return func(e *LocalEngine) {
		e.observer = observer
	}
}

// WithMaxMoves lowers the number of moves after which a game is abandoned.
func WithMaxMoves(n int) Option {
	return func(e *LocalEngine) {
		if n > 0 {
			e.maxMoves = n
		}
	}
}

// LocalEngine plays a game in process, asking the agent seated at each
// player's place for its moves.
type LocalEngine struct {
	state    Game
	agents   []agent.Agent
	rng      *rand.Rand
	observer Observer
	maxMoves int
}

// NewLocalEngine takes ownership of state and advances it in place. Chance
// events of the game draw from rng.
func NewLocalEngine(state Game, agents []agent.Agent, rng *rand.Rand, options ...Option) *LocalEngine {
	if len(agents) != state.Players() {
		panic(fmt.Sprintf("number of agents %d does not match number of players %d", len(agents), state.Players()))
	}
	if len(agents) < 2 {
		panic("need at least two players")
	}

	e := &LocalEngine{
		state:    state,
		agents:   agents,
		rng:      rng,
		maxMoves: MaxMoves,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

func (e *LocalEngine) State() Game { return e.state }

// Run executes the game loop until the game ends, ctx is done, or the move
// limit is reached.
func (e *LocalEngine) Run(ctx context.Context) (metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: int(e.state.TurnOwner()),
		Winner:         int(game.NoPlayer),
		StartTime:      time.Now(),
	}
	log.Debug().Msgf("player %d is starting", gameMetric.StartingPlayer)

	var moveMetrics []metrics.MoveMetric
	step := 0
	for ; !e.state.IsTerminal() && step < e.maxMoves; step++ {
		if err := ctx.Err(); err != nil {
			return gameMetric, moveMetrics, err
		}

		player := e.state.TurnOwner()
		legal := e.state.LegalActions()
		action, searchMetric := e.agents[player].ChooseAction(e.state, legal)
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       int(player),
			Action:       action.String(),
			SearchMetric: searchMetric,
		})

		e.state.Next(action, e.rng)
		if e.observer != nil {
			e.observer(step, player, action, e.state)
		}
	}

	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = step
	gameMetric.Scores = make([]int, e.state.Players())
	for p := range gameMetric.Scores {
		gameMetric.Scores[p] = e.state.Score(game.PlayerID(p))
	}

	if !e.state.IsTerminal() {
		log.Warn().Int("moves", step).Msg("game stopped before reaching the end")
		return gameMetric, moveMetrics, nil
	}
	gameMetric.Winner = int(e.state.Winner())
	log.Debug().
		Int("winner", gameMetric.Winner).
		Ints("scores", gameMetric.Scores).
		Int("moves", step).
		Dur("duration", gameMetric.Duration).
		Msg("game over")
	return gameMetric, moveMetrics, nil
}

var _ Engine = (*LocalEngine)(nil)
