package metrics

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reflex/budget"

	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	ctrl := budget.New(budget.Budget{Kind: budget.Iterations, Limit: 2})
	c := NewCollector()

	c.Start("rhea")
	c.AddRepairs(2, 5)
	c.AddRepairs(1, 0)
	c.AddReflexiveCall()
	c.SetPopulationReused(true)
	for ctrl.Continue() {
		ctrl.StartIteration()
		ctrl.AddFMCalls(3)
		ctrl.AddCopies(1)
		ctrl.EndIteration()
	}
	metric := c.Complete(ctrl)

	require.Equal(t, "rhea", metric.Algorithm)
	require.Equal(t, 2, metric.Iterations)
	require.Equal(t, 6, metric.FMCalls)
	require.Equal(t, 2, metric.Copies)
	require.Equal(t, 3, metric.Repairs)
	require.Equal(t, 5, metric.NonRepairs)
	require.Equal(t, 1, metric.ReflexiveCalls)
	require.True(t, metric.PopulationReused)
	require.Equal(t, "Iterations", metric.StopReason)

	c.Start("rmcts")
	metric = c.Complete(ctrl)
	require.Zero(t, metric.Repairs, "Start should reset the counters")
	require.False(t, metric.PopulationReused)
}

func testRecords() ([]AgentRecord, []GameRecord, []MoveRecord) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agents := []AgentRecord{
		{ID: 0, Name: "reflexive", Algorithm: "rmcts", Config: "rmcts:meta=1"},
		{ID: 1, Name: "evo", Algorithm: "rhea", Config: "rhea:horizon=8"},
	}
	games := []GameRecord{{
		ID:    0,
		Seats: []int{0, 1},
		Seed:  42,
		GameMetric: GameMetric{
			StartingPlayer: 0,
			Winner:         1,
			Scores:         []int{20, 31},
			StartTime:      start,
			EndTime:        start.Add(time.Second),
			Duration:       time.Second,
			TotalMoves:     2,
		},
	}}
	moves := []MoveRecord{
		{Game: 0, Agent: 0, MoveMetric: MoveMetric{Step: 0, Player: 0, Action: "Tempura",
			SearchMetric: SearchMetric{Algorithm: "rmcts", Iterations: 10, FMCalls: 50, StopReason: "Iterations"}}},
		{Game: 0, Agent: 1, MoveMetric: MoveMetric{Step: 1, Player: 1, Action: "Wasabi+SalmonNigiri",
			SearchMetric: SearchMetric{Algorithm: "rhea", Repairs: 3, PopulationReused: true, StopReason: "FMCalls"}}},
	}
	return agents, games, moves
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriter(t *testing.T) {
	ctx := context.Background()
	agents, games, moves := testRecords()
	w, err := NewWriter(t.TempDir(), "run-1")
	require.NoError(t, err)

	require.NoError(t, w.WriteAgentRecords(ctx, agents))
	require.NoError(t, w.WriteGameRecords(ctx, games))
	require.NoError(t, w.WriteMoveRecords(ctx, moves))
	require.NoError(t, w.Close())

	rows := readCSV(t, filepath.Join(w.Dir(), "agent_configs.csv"))
	require.Len(t, rows, 3, "Header and two agents")
	require.Equal(t, []string{"1", "evo", "rhea", "rhea:horizon=8"}, rows[2])

	rows = readCSV(t, filepath.Join(w.Dir(), "game_records.csv"))
	require.Len(t, rows, 2)
	require.Equal(t, "0;1", rows[1][1])
	require.Equal(t, "42", rows[1][2])
	require.Equal(t, "20;31", rows[1][5])
	require.Equal(t, "2024-05-01T12:00:00Z", rows[1][6])

	rows = readCSV(t, filepath.Join(w.Dir(), "move_records.csv"))
	require.Len(t, rows, 3)
	require.Equal(t, "Wasabi+SalmonNigiri", rows[2][4])
	require.Equal(t, "true", rows[2][13])
	require.Equal(t, "FMCalls", rows[2][14])
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	agents, games, moves := testRecords()
	path := filepath.Join(t.TempDir(), "records.db")

	t.Run("requires init", func(t *testing.T) {
		store := NewSQLiteStore(path, "run-0")

		require.ErrorContains(t, store.WriteAgentRecords(ctx, agents), "not initialized")
	})

	t.Run("requires a path", func(t *testing.T) {
		require.Error(t, NewSQLiteStore("", "run-0").Init(ctx))
	})

	t.Run("stores records per run", func(t *testing.T) {
		for _, runID := range []string{"run-1", "run-2"} {
			store := NewSQLiteStore(path, runID)
			require.NoError(t, store.Init(ctx))
			require.NoError(t, store.WriteAgentRecords(ctx, agents))
			require.NoError(t, store.WriteGameRecords(ctx, games))
			require.NoError(t, store.WriteMoveRecords(ctx, moves))
			require.NoError(t, store.Close())
		}

		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		defer db.Close()

		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moves WHERE run_id = ?`, "run-2").Scan(&count))
		require.Equal(t, 2, count)

		var winner int
		var scores string
		var duration int64
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT winner, scores, duration_ns FROM games WHERE run_id = ? AND id = ?`, "run-1", 0).
			Scan(&winner, &scores, &duration))
		require.Equal(t, 1, winner)
		require.Equal(t, "20;31", scores)
		require.Equal(t, int64(time.Second), duration)

		var reused bool
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT population_reused FROM moves WHERE run_id = ? AND step = ?`, "run-1", 1).Scan(&reused))
		require.True(t, reused)
	})

	t.Run("rejects duplicate moves", func(t *testing.T) {
		store := NewSQLiteStore(path, "run-1")
		require.NoError(t, store.Init(ctx))
		defer store.Close()

		require.Error(t, store.WriteMoveRecords(ctx, moves))
	})
}
