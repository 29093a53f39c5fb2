package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	t.Run("play", func(t *testing.T) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"play", "--log-level", "warn", "--budget", "iterations", "--limit", "3",
			"--agent", "rmcts:meta=0,rollout=2", "--agent", "rhea:horizon=2,population=3,children=2"})

		require.NoError(t, rootCmd.Execute())
		require.Contains(t, out.String(), "player 0: rmcts")
		require.Contains(t, out.String(), "player 1: rhea")
		require.Contains(t, out.String(), "scored")
	})

	t.Run("tournament", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "exp.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
name: smoke
budget: {kind: iterations, limit: 2}
agents:
  - {name: a, spec: "rmcts:meta=0,rollout=2"}
  - {name: b, spec: "rhea:horizon=2,population=3,children=2"}
games: 1
parallel: 1
output: {dir: `+dir+`}
`), 0644))
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"tournament", "--log-level", "warn", "--config", path})

		require.NoError(t, rootCmd.Execute())
		require.Contains(t, out.String(), "run ")
	})

	t.Run("rejects unknown agents", func(t *testing.T) {
		rootCmd.SetArgs([]string{"play", "--log-level", "warn", "--agent", "minimax"})

		require.Error(t, rootCmd.Execute())
	})
}
