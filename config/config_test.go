package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"landbid/meta"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 2, cfg.Players)
		require.True(t, cfg.Dice)
		require.Equal(t, meta.GO_ROUTINES, cfg.Workers)
		require.Equal(t, meta.SEARCH_BUDGET, cfg.SearchBudget)
		require.Equal(t, meta.JUDGE_TASKS, cfg.JudgeTasks)
		require.Equal(t, "state", cfg.Inputs().State)
		require.Equal(t, "graph", cfg.Inputs().Graph)
		require.Equal(t, 0.8, cfg.Params().Threshold)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("LANDBID_PLAYERS", "4")
		t.Setenv("LANDBID_DICE", "false")
		t.Setenv("LANDBID_WORKERS", "16")
		t.Setenv("LANDBID_SEARCH_BUDGET", "250ms")
		t.Setenv("LANDBID_EXPLORE", "true")
		t.Setenv("LANDBID_EPSILON", "0.5")
		t.Setenv("LANDBID_BUFFER_DSN", "postgres://localhost/buffer")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 4, cfg.Players)
		require.False(t, cfg.Dice)
		require.Equal(t, 16, cfg.Workers)
		require.Equal(t, 250*time.Millisecond, cfg.SearchBudget)
		require.Equal(t, "postgres://localhost/buffer", cfg.BufferDSN)

		params := cfg.Params()
		require.True(t, params.Explore)
		require.Equal(t, 0.5, params.Epsilon)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("LANDBID_PLAYERS", "1")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("unparsable values", func(t *testing.T) {
		t.Setenv("LANDBID_WORKERS", "many")
		_, err := Load()
		require.Error(t, err)
	})
}
