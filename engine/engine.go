package engine

import (
	"context"

	"reflex/experiments/metrics"
	"reflex/game"
)

// MaxMoves bounds a game that never reaches a terminal state.
const MaxMoves = 10000

// Game is a state the engine can referee until the end.
type Game interface {
	game.State
	Players() int
	Score(player game.PlayerID) int
	// Winner returns game.NoPlayer while the game is ongoing or the win is shared
	Winner() game.PlayerID
}

type Engine interface {
	// Run plays a game till it ends or MaxMoves moves are made
	Run(ctx context.Context) (gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
