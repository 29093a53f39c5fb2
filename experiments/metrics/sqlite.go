package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the records of many runs in one database file, keyed by
// run ID.
type SQLiteStore struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path, runID string) *SQLiteStore {
	return &SQLiteStore{path: path, runID: runID}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) WriteAgentRecords(ctx context.Context, records []AgentRecord) error {
	return s.insert(ctx, `
		INSERT INTO agents (run_id, id, name, algorithm, config)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, id) DO UPDATE SET
			name = excluded.name,
			algorithm = excluded.algorithm,
			config = excluded.config
	`, len(records), func(i int) []any {
		r := records[i]
		return []any{s.runID, r.ID, r.Name, r.Algorithm, r.Config}
	})
}

func (s *SQLiteStore) WriteGameRecords(ctx context.Context, records []GameRecord) error {
	return s.insert(ctx, `
		INSERT INTO games (run_id, id, seats, seed, starting_player, winner, scores, start_time, end_time,
			duration_ns, total_moves)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(records), func(i int) []any {
		r := records[i]
		return []any{s.runID, r.ID, joinInts(r.Seats), strconv.FormatUint(r.Seed, 10), r.StartingPlayer, r.Winner,
			joinInts(r.Scores), r.StartTime.UTC().Format(time.RFC3339Nano), r.EndTime.UTC().Format(time.RFC3339Nano),
			int64(r.Duration), r.TotalMoves}
	})
}

func (s *SQLiteStore) WriteMoveRecords(ctx context.Context, records []MoveRecord) error {
	return s.insert(ctx, `
		INSERT INTO moves (run_id, game, step, player, agent, action, algorithm, duration_ns, iterations,
			fm_calls, copies, reflexive_calls, repairs, non_repairs, population_reused, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(records), func(i int) []any {
		r := records[i]
		return []any{s.runID, r.Game, r.Step, r.Player, r.Agent, r.Action, r.Algorithm, int64(r.Duration),
			r.Iterations, r.FMCalls, r.Copies, r.ReflexiveCalls, r.Repairs, r.NonRepairs, r.PopulationReused,
			r.StopReason}
	})
}

// insert runs query once per record inside a single transaction.
func (s *SQLiteStore) insert(ctx context.Context, query string, n int, args func(i int) []any) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS agents (
			run_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			name TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			config TEXT NOT NULL,
			PRIMARY KEY (run_id, id)
		);
		CREATE TABLE IF NOT EXISTS games (
			run_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			seats TEXT NOT NULL,
			seed TEXT NOT NULL,
			starting_player INTEGER NOT NULL,
			winner INTEGER NOT NULL,
			scores TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			total_moves INTEGER NOT NULL,
			PRIMARY KEY (run_id, id)
		);
		CREATE TABLE IF NOT EXISTS moves (
			run_id TEXT NOT NULL,
			game INTEGER NOT NULL,
			step INTEGER NOT NULL,
			player INTEGER NOT NULL,
			agent INTEGER NOT NULL,
			action TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			fm_calls INTEGER NOT NULL,
			copies INTEGER NOT NULL,
			reflexive_calls INTEGER NOT NULL,
			repairs INTEGER NOT NULL,
			non_repairs INTEGER NOT NULL,
			population_reused INTEGER NOT NULL,
			stop_reason TEXT NOT NULL,
			PRIMARY KEY (run_id, game, step)
		);
	`)
	return err
}

var (
	_ Sink = (*Writer)(nil)
	_ Sink = (*SQLiteStore)(nil)
)
