package server_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"landbid/communication"
	"landbid/communication/client"
	"landbid/communication/server"
	"landbid/game"
	"landbid/gamemaster"
	"landbid/model"
	"landbid/player"
	"landbid/searcher"
)

func setup(t *testing.T) (*server.Server, *client.Client) {
	t.Helper()
	s := server.New()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, client.New(ts.URL)
}

func dicePrompt() communication.Prompt {
	roll := game.Roll{0, 2, 4}
	options := roll.Options()
	return communication.Prompt{Player: 1, Name: "bob", Dice: true, Roll: roll, Options: options[:], Soldiers: 9}
}

func waitForPrompt(t *testing.T, c *client.Client) communication.Prompt {
	t.Helper()
	var p communication.Prompt
	require.Eventually(t, func() bool {
		var ok bool
		var err error
		p, ok, err = c.Prompt(context.Background())
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)
	return p
}

func TestSnapshot(t *testing.T) {
	s, c := setup(t)
	ctx := context.Background()

	_, err := c.Snapshot(ctx)
	require.Error(t, err)

	state := game.NewState(game.NewMap(game.NewRand(1)), 2, true)
	require.NoError(t, s.Publish(ctx, gamemaster.Update{Board: state.Snapshot(), Names: []string{"a", "b"}, Player: 1}))

	u, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, u.Player)
	require.Equal(t, []string{"a", "b"}, u.Names)
	require.Equal(t, state.Snapshot().Values, u.Board.Values)
}

func TestChoose(t *testing.T) {
	t.Run("waits for a valid choice", func(t *testing.T) {
		s, c := setup(t)
		ctx := context.Background()

		_, ok, err := c.Prompt(ctx)
		require.NoError(t, err)
		require.False(t, ok)
		require.Error(t, c.Choose(ctx, communication.Reply{Index: 0}))

		got := make(chan communication.Reply, 1)
		go func() {
			r, err := s.Choose(ctx, dicePrompt())
			if err == nil {
				got <- r
			}
		}()

		p := waitForPrompt(t, c)
		require.Equal(t, "bob", p.Name)
		require.Len(t, p.Options, 3)

		require.Error(t, c.Choose(ctx, communication.Reply{Index: 3}))
		require.Error(t, c.Choose(ctx, communication.Reply{Reroll: true}), "reroll was not offered")
		require.NoError(t, c.Choose(ctx, communication.Reply{Index: 2}))

		select {
		case r := <-got:
			require.Equal(t, communication.Reply{Index: 2}, r)
		case <-time.After(5 * time.Second):
			t.Fatal("choice was not delivered")
		}
	})

	t.Run("close releases waiting seats", func(t *testing.T) {
		s, _ := setup(t)
		errs := make(chan error, 1)
		go func() {
			_, err := s.Choose(context.Background(), dicePrompt())
			errs <- err
		}()
		time.Sleep(20 * time.Millisecond)
		s.Close()
		require.ErrorIs(t, <-errs, communication.ErrClosed)
	})

	t.Run("context cancels", func(t *testing.T) {
		s, _ := setup(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Choose(ctx, dicePrompt())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWatch(t *testing.T) {
	s, c := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Publish(ctx, gamemaster.Update{Player: 0}))

	var (
		mu     sync.Mutex
		events []server.Event
	)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(e server.Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		})
	}()

	// The greeting carries the latest update.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Publish(ctx, gamemaster.Update{Player: 1, Final: true}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Equal(t, server.EventUpdate, events[1].Type)
	var u gamemaster.Update
	require.NoError(t, json.Unmarshal(events[1].Data, &u))
	mu.Unlock()
	require.True(t, u.Final)
	require.Equal(t, 1, u.Player)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestHumanSeatOverHTTP(t *testing.T) {
	s, c := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A remote player that always takes the first option.
	go func() {
		for ctx.Err() == nil {
			if _, ok, err := c.Prompt(ctx); err == nil && ok {
				_ = c.Choose(ctx, communication.Reply{Index: 0})
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	srch := searcher.New(searcher.WithWorkers(2), searcher.WithRollouts(1), searcher.WithSeed(1))
	defer srch.Close()
	state := game.NewState(game.NewMap(game.NewRand(2)), 2, true)
	controller, err := gamemaster.NewController(state,
		[]gamemaster.Seat{{Name: "remote", Input: s}, {Name: "ai"}},
		player.NewPolicy(model.Values{}, player.DefaultParams()), srch, game.NewRand(3), s)
	require.NoError(t, err)

	result, err := controller.Run(ctx)
	require.NoError(t, err)
	require.True(t, state.Terminal())

	u, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, u.Final)
	require.Equal(t, result.Scores, u.Board.Score)
}
