package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"landbid/buffer"
	"landbid/game"
	"landbid/player"
	"landbid/searcher"
)

func newState(t *testing.T, players int, dice bool) *game.State {
	t.Helper()
	return game.NewState(game.NewMap(game.NewRand(7)), players, dice)
}

func randomSeats(n int) []game.Agent {
	seats := make([]game.Agent, n)
	for i := range seats {
		seats[i] = player.Random{}
	}
	return seats
}

func placedTroops(moves []Turn) int {
	n := 0
	for _, m := range moves {
		n += m.Placement.Troops
	}
	return n
}

func TestLocal(t *testing.T) {
	t.Run("plays random agents to the end", func(t *testing.T) {
		state := newState(t, 3, false)
		e := LocalEngine(state, randomSeats(3), game.NewRand(1))
		e.First = 2

		var turns []Turn
		e.OnTurn = func(turn Turn) { turns = append(turns, turn) }

		result, err := e.Run(context.Background())
		require.NoError(t, err)
		require.True(t, state.Terminal())
		require.Len(t, result.Scores, 3)
		require.NotEmpty(t, result.Winners)
		require.Len(t, result.Awards, game.NumRegions)
		require.Equal(t, len(result.Moves), result.Game.TotalMoves)
		require.Len(t, turns, len(result.Moves))
		require.Equal(t, 2, result.Game.StartingPlayer)
		require.Equal(t, 2, turns[0].Player)
		require.Equal(t, 3*game.StandardRules().StartingSoldiers, placedTroops(turns))

		for _, turn := range turns {
			require.Len(t, turn.Features, player.FeatureSize(3))
			require.Nil(t, turn.Search)
		}
	})

	t.Run("searching seats consult the searcher", func(t *testing.T) {
		s := searcher.New(searcher.WithWorkers(2), searcher.WithRollouts(1), searcher.WithSeed(3), searcher.WithMetrics())
		defer s.Close()

		state := newState(t, 2, false)
		policy := player.NewPolicy(nil, player.DefaultParams())
		e := LocalEngine(state, []game.Agent{policy, player.Random{}}, game.NewRand(2)).Search(s, 0)
		// The policy has no scorer, so rollouts must not ask it to move unsearched.
		e.Rollouts = func(int) []game.Agent { return randomSeats(2) }

		var turns []Turn
		e.OnTurn = func(turn Turn) { turns = append(turns, turn) }
		result, err := e.Run(context.Background())
		require.NoError(t, err)

		for i, turn := range turns {
			if turn.Player == 0 {
				require.Len(t, turn.Search, game.NumActions)
				require.Equal(t, game.NumActions, result.Moves[i].Rollouts)
			} else {
				require.Nil(t, turn.Search)
				require.Zero(t, result.Moves[i].Rollouts)
			}
		}
	})

	t.Run("agent errors stop the game", func(t *testing.T) {
		failing := game.AgentFunc(func(context.Context, *game.Decision) (game.Choice, error) {
			return game.Choice{}, context.Canceled
		})
		e := LocalEngine(newState(t, 2, false), []game.Agent{failing, player.Random{}}, game.NewRand(1))
		_, err := e.Run(context.Background())
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("agent count must match", func(t *testing.T) {
		require.Panics(t, func() { LocalEngine(newState(t, 3, false), randomSeats(2), game.NewRand(1)) })
	})
}

func TestRemoteAgent(t *testing.T) {
	var (
		mu      sync.Mutex
		players []int
	)
	inner := game.AgentFunc(func(ctx context.Context, d *game.Decision) (game.Choice, error) {
		mu.Lock()
		players = append(players, d.Player)
		mu.Unlock()
		return player.Random{}.Choose(ctx, d)
	})
	server := httptest.NewServer(AgentHandler(inner))
	defer server.Close()

	t.Run("plays a dice game over http", func(t *testing.T) {
		state := newState(t, 2, true)
		remote := NewRemoteAgent(server.URL)
		result, err := LocalEngine(state, []game.Agent{remote, player.Random{}}, game.NewRand(5)).Run(context.Background())
		require.NoError(t, err)
		require.True(t, state.Terminal())
		require.Len(t, result.Scores, 2)

		mu.Lock()
		defer mu.Unlock()
		require.NotEmpty(t, players)
		for _, p := range players {
			require.Equal(t, 0, p)
		}
	})

	t.Run("rejects malformed requests", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/choose", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, err = http.Post(server.URL+"/choose", "application/json", strings.NewReader(`{"player":0,"board":{}}`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("surfaces server errors", func(t *testing.T) {
		remote := NewRemoteAgent(server.URL + "/missing")
		state := newState(t, 2, false)
		d := &game.Decision{Player: 0, State: state, Rand: game.NewRand(1)}
		_, err := remote.Choose(context.Background(), d)
		require.Error(t, err)
	})
}

type memoryStore struct {
	examples []buffer.Example
	rounds   int
}

func (m *memoryStore) Append(_ context.Context, examples []buffer.Example) error {
	m.examples = append(m.examples, examples...)
	m.rounds++
	return nil
}

func TestSelfPlay(t *testing.T) {
	s := searcher.New(searcher.WithWorkers(4), searcher.WithRollouts(1), searcher.WithSeed(11))
	defer s.Close()

	store := &memoryStore{}
	sp := NewSelfPlay(2, player.NewPolicy(nil, player.DefaultParams()), s, store, game.NewRand(9))
	sp.GamesPerRound = 2
	sp.LogEvery = 1

	summary, err := sp.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 4, summary.Games)
	require.InDelta(t, 1.0, summary.WinRates[0]+summary.WinRates[1], 1e-9)
	require.Equal(t, 2, store.rounds)
	require.NotEmpty(t, store.examples)

	episodes := map[string]int{}
	for _, e := range store.examples {
		episodes[e.Episode]++
		require.Equal(t, 2, e.Players)
		require.Len(t, e.State, player.FeatureSize(2))
		require.Len(t, e.Label, game.NumActions)
		require.Len(t, e.Graph, game.NumRegions*game.NumRegions)
		for _, v := range e.Label {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
	require.Len(t, episodes, 4)

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sp.Run(ctx, 1)
		require.ErrorIs(t, err, context.Canceled)
	})
}
