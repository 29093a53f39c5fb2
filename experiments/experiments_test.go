package experiments

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"reflex/budget"
	"reflex/config"
	"reflex/experiments/metrics"
	"reflex/game"

	"github.com/stretchr/testify/require"
)

func testExperiment() config.Experiment {
	exp := config.Default()
	exp.Budget = budget.Budget{Kind: budget.Iterations, Limit: 3}
	exp.Agents = []config.AgentEntry{
		{Name: "plain", Spec: "rmcts:meta=0,rollout=3"},
		{Name: "evo", Spec: "rhea:horizon=3,population=4,children=2"},
	}
	exp.Games = 2
	exp.Parallel = 2
	return exp
}

func TestRun(t *testing.T) {
	exp := testExperiment()

	result, err := Run(context.Background(), exp)

	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Len(t, result.Agents, 2)
	require.Len(t, result.Games, 2)
	require.Equal(t, []int{0, 1}, result.Games[0].Seats)
	require.Equal(t, []int{1, 0}, result.Games[1].Seats, "Seats rotate between games")

	total := 0
	for _, g := range result.Games {
		total += g.TotalMoves
	}
	require.Len(t, result.Moves, total)
	for _, m := range result.Moves {
		seats := result.Games[m.Game].Seats
		require.Equal(t, seats[m.Player], m.Agent, "Move should be credited to the seated agent")
	}

	require.Len(t, result.Standings, 2)
	decisions := 0
	for _, s := range result.Standings {
		require.Equal(t, 2, s.Games)
		decisions += s.Decisions
	}
	require.Equal(t, total, decisions)
	require.Contains(t, result.Summary(), result.RunID)
}

func TestRunGame(t *testing.T) {
	t.Run("returns a panic as an error", func(t *testing.T) {
		exp := testExperiment()
		configs, err := exp.AgentConfigs()
		require.NoError(t, err)
		configs[0].Heuristic = func(game.State, game.PlayerID) float64 { return math.NaN() }

		_, _, err = runGame(context.Background(), exp, configs, job{seats: []int{0, 1}, seed: 1})

		require.ErrorContains(t, err, "non-finite")
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		exp := testExperiment()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Run(ctx, exp)

		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore(t *testing.T) {
	exp := testExperiment()
	exp.Games = 1
	result, err := Run(context.Background(), exp)
	require.NoError(t, err)
	dir := t.TempDir()
	output := config.OutputConfig{Dir: dir, SQLite: filepath.Join(dir, "records.db")}

	require.NoError(t, Store(context.Background(), output, result))

	for _, name := range []string{"agent_configs.csv", "game_records.csv", "move_records.csv"} {
		_, err := os.Stat(filepath.Join(dir, result.RunID, name))
		require.NoError(t, err, "Missing %s", name)
	}
	_, err = os.Stat(output.SQLite)
	require.NoError(t, err)
}

type mockSink struct {
	writeErr error
	closeErr error
	writes   int
	closed   bool
}

func (m *mockSink) WriteAgentRecords(_ context.Context, _ []metrics.AgentRecord) error {
	m.writes++
	return m.writeErr
}

func (m *mockSink) WriteGameRecords(_ context.Context, _ []metrics.GameRecord) error {
	m.writes++
	return m.writeErr
}

func (m *mockSink) WriteMoveRecords(_ context.Context, _ []metrics.MoveRecord) error {
	m.writes++
	return m.writeErr
}

func (m *mockSink) Close() error {
	m.closed = true
	return m.closeErr
}

func TestWriteAll(t *testing.T) {
	t.Run("closes every sink after a failed write", func(t *testing.T) {
		writeErr := errors.New("disk full")
		failing := &mockSink{writeErr: writeErr}
		skipped := &mockSink{}

		err := writeAll(context.Background(), []metrics.Sink{failing, skipped}, Result{})

		require.ErrorIs(t, err, writeErr)
		require.True(t, failing.closed)
		require.True(t, skipped.closed, "Sinks after the failure should still be closed")
		require.Zero(t, skipped.writes, "Sinks after the failure should not be written")
	})

	t.Run("reports close errors", func(t *testing.T) {
		closeErr := errors.New("close failed")
		first := &mockSink{closeErr: closeErr}
		second := &mockSink{}

		err := writeAll(context.Background(), []metrics.Sink{first, second}, Result{})

		require.ErrorIs(t, err, closeErr)
		require.Equal(t, 3, second.writes, "A close error should not stop the other sinks")
		require.True(t, second.closed)
	})
}

func TestStoreFailedSQLite(t *testing.T) {
	dir := t.TempDir()
	output := config.OutputConfig{Dir: dir, SQLite: filepath.Join(dir, "missing", "records.db")}

	err := Store(context.Background(), output, Result{RunID: "run"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open")
}

func TestMeasureThroughput(t *testing.T) {
	exp := testExperiment()

	results, err := MeasureThroughput(context.Background(), exp, 4)

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, 4, r.Decisions)
		require.Positive(t, r.FMCalls)
	}
	require.InDelta(t, 3, results[0].Iterations, 1e-9, "Iteration budget is spent exactly")
	require.Contains(t, FormatThroughput(results), "plain")

	_, err = MeasureThroughput(context.Background(), exp, 0)
	require.Error(t, err)
}
