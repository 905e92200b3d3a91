package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInts(t *testing.T) {
	t.Run("list with blanks", func(t *testing.T) {
		got, err := parseInts(" 1, 2,,8 ")
		require.NoError(t, err)
		require.Equal(t, []int{1, 2, 8}, got)
	})

	t.Run("empty", func(t *testing.T) {
		got, err := parseInts("")
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := parseInts("1,two")
		require.Error(t, err)
	})
}

func TestSplitNames(t *testing.T) {
	require.Equal(t, []string{"ada", "player 2", "bob"}, splitNames("ada,, bob", 3, "player"))
	require.Equal(t, []string{"seat 1", "seat 2"}, splitNames("", 2, "seat"))
	require.Equal(t, []string{"a"}, splitNames("a,b,c", 1, "player"))
}

func TestCommands(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range commands {
		require.False(t, seen[c.name], "duplicate command %s", c.name)
		seen[c.name] = true
		require.NotNil(t, c.run)
		require.NotEmpty(t, c.usage)
	}
}
