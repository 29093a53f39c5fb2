package metrics

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AgentRecord describes one agent taking part in an experiment.
type AgentRecord struct {
	ID        int
	Name      string
	Algorithm string
	Config    string
}

type GameRecord struct {
	ID    int
	Seats []int // AgentRecord.ID by player ID
	Seed  uint64
	GameMetric
}

type MoveRecord struct {
	Game  int // GameRecord.ID
	Agent int // AgentRecord.ID
	MoveMetric
}

// Sink stores experiment records.
type Sink interface {
	WriteAgentRecords(ctx context.Context, records []AgentRecord) error
	WriteGameRecords(ctx context.Context, records []GameRecord) error
	WriteMoveRecords(ctx context.Context, records []MoveRecord) error
	Close() error
}

// Writer stores records as CSV files in one directory per run.
type Writer struct {
	baseDir string
}

func NewWriter(root, runID string) (*Writer, error) {
	baseDir := filepath.Join(root, runID)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string { return w.baseDir }

func (w *Writer) Close() error { return nil }

func (w *Writer) WriteAgentRecords(_ context.Context, records []AgentRecord) error {
	header := []string{"id", "name", "algorithm", "config"}
	return w.write("agent_configs.csv", header, len(records), func(i int) []string {
		r := records[i]
		return []string{strconv.Itoa(r.ID), r.Name, r.Algorithm, r.Config}
	})
}

func (w *Writer) WriteGameRecords(_ context.Context, records []GameRecord) error {
	header := []string{"id", "seats", "seed", "starting_player", "winner", "scores", "start_time", "end_time",
		"duration", "total_moves"}
	return w.write("game_records.csv", header, len(records), func(i int) []string {
		r := records[i]
		return []string{
			strconv.Itoa(r.ID),
			joinInts(r.Seats),
			strconv.FormatUint(r.Seed, 10),
			strconv.Itoa(r.StartingPlayer),
			strconv.Itoa(r.Winner),
			joinInts(r.Scores),
			r.StartTime.Format(time.RFC3339),
			r.EndTime.Format(time.RFC3339),
			r.Duration.String(),
			strconv.Itoa(r.TotalMoves),
		}
	})
}

func (w *Writer) WriteMoveRecords(_ context.Context, records []MoveRecord) error {
	header := []string{"game", "step", "player", "agent", "action", "algorithm", "duration", "iterations",
		"fm_calls", "copies", "reflexive_calls", "repairs", "non_repairs", "population_reused", "stop_reason"}
	return w.write("move_records.csv", header, len(records), func(i int) []string {
		r := records[i]
		return []string{
			strconv.Itoa(r.Game),
			strconv.Itoa(r.Step),
			strconv.Itoa(r.Player),
			strconv.Itoa(r.Agent),
			r.Action,
			r.Algorithm,
			r.Duration.String(),
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.FMCalls),
			strconv.Itoa(r.Copies),
			strconv.Itoa(r.ReflexiveCalls),
			strconv.Itoa(r.Repairs),
			strconv.Itoa(r.NonRepairs),
			strconv.FormatBool(r.PopulationReused),
			r.StopReason,
		}
	})
}

// write creates name in the run directory with header and one row per record.
func (w *Writer) write(name string, header []string, n int, row func(i int) []string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for i := 0; i < n; i++ {
		err = writer.Write(row(i))
		if err != nil {
			return fmt.Errorf("failed to write %s row: %w", name, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ";")
}
