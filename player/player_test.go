package player

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"landbid/communication"
	"landbid/game"
)

type staticScorer struct {
	scores []float64
	calls  int
}

func (s *staticScorer) Score(features []float32, graph []float32) ([]float64, error) {
	s.calls++
	return s.scores, nil
}

type scriptedInput struct {
	replies []communication.Reply
	prompts []communication.Prompt
}

func (in *scriptedInput) Choose(_ context.Context, p communication.Prompt) (communication.Reply, error) {
	in.prompts = append(in.prompts, p)
	if len(in.replies) == 0 {
		return communication.Reply{}, communication.ErrClosed
	}
	r := in.replies[0]
	in.replies = in.replies[1:]
	return r, nil
}

func identityState(t *testing.T, players int, dice bool) *game.State {
	t.Helper()
	var values [game.NumRegions]int
	for i := range values {
		values[i] = game.MinValue + i
	}
	m, err := game.NewMapFromValues(values)
	require.NoError(t, err)
	return game.NewState(m, players, dice)
}

func rampScores() []float64 {
	scores := make([]float64, game.NumActions)
	for i := range scores {
		scores[i] = float64(i) / game.NumActions
	}
	return scores
}

func TestNew(t *testing.T) {
	t.Run("builds each kind", func(t *testing.T) {
		a, err := New(Config{Kind: KindRandom})
		require.NoError(t, err)
		require.IsType(t, Random{}, a)

		a, err = New(Config{Kind: KindPolicy, Scorer: &staticScorer{}, Params: DefaultParams()})
		require.NoError(t, err)
		require.IsType(t, &Policy{}, a)

		a, err = New(Config{Kind: KindHuman, Input: &scriptedInput{}})
		require.NoError(t, err)
		require.IsType(t, &Human{}, a)
	})

	t.Run("rejects incomplete configs", func(t *testing.T) {
		_, err := New(Config{Kind: KindPolicy})
		require.Error(t, err)
		_, err = New(Config{Kind: KindHuman})
		require.Error(t, err)
		_, err = New(Config{Kind: "oracle"})
		require.Error(t, err)
	})

	t.Run("parses kinds", func(t *testing.T) {
		k, err := ParseKind("human")
		require.NoError(t, err)
		require.Equal(t, KindHuman, k)
		_, err = ParseKind("bot")
		require.Error(t, err)
	})
}

func TestFeatures(t *testing.T) {
	s := identityState(t, 3, false)
	s.Place(0, 0, 0)
	s.Place(1, 1, 1)
	s.Place(2, 2, 2)

	f := Features(s, 1)
	require.Len(t, f, FeatureSize(3))
	require.Equal(t, float32(2), f[1])                   // self first
	require.Equal(t, float32(1), f[game.NumRegions])     // then player 0
	require.Equal(t, float32(3), f[2*game.NumRegions+2]) // then player 2
	require.Equal(t, float32(2), f[3*game.NumRegions])   // values last
	require.Equal(t, float32(12), f[4*game.NumRegions-1])
}

func TestPolicyChoose(t *testing.T) {
	ctx := context.Background()

	t.Run("raw mode takes the best action", func(t *testing.T) {
		s := identityState(t, 2, false)
		scorer := &staticScorer{scores: rampScores()}
		p := NewPolicy(scorer, DefaultParams())
		c, err := p.Choose(ctx, &game.Decision{Player: 0, State: s, Rand: game.NewRand(1)})
		require.NoError(t, err)
		require.Equal(t, game.NumActions-1, c.Index)
		require.False(t, c.Reroll)
		require.Equal(t, 1, scorer.calls)
	})

	t.Run("search result overrides the scorer", func(t *testing.T) {
		s := identityState(t, 2, false)
		scorer := &staticScorer{scores: rampScores()}
		search := make([]float64, game.NumActions)
		search[4] = 1
		p := NewPolicy(scorer, DefaultParams())
		c, err := p.Choose(ctx, &game.Decision{Player: 0, State: s, SearchResult: search, Rand: game.NewRand(1)})
		require.NoError(t, err)
		require.Equal(t, 4, c.Index)
		require.Zero(t, scorer.calls)
	})

	t.Run("dice mode maps options through the board", func(t *testing.T) {
		s := identityState(t, 2, true)
		scores := make([]float64, game.NumActions)
		scores[game.ActionIndex(9, 0)] = 0.9 // value 11 with one troop
		options := game.Roll{5, 1, 4}.Options()
		p := NewPolicy(&staticScorer{scores: scores}, DefaultParams())
		c, err := p.Choose(ctx, &game.Decision{Player: 0, State: s, Options: &options, CanReroll: true, Rand: game.NewRand(1)})
		require.NoError(t, err)
		require.Equal(t, 1, c.Index)
		require.False(t, c.Reroll)
	})

	t.Run("weak roll is rerolled only when allowed", func(t *testing.T) {
		s := identityState(t, 2, true)
		p := NewPolicy(&staticScorer{scores: rampScores()}, DefaultParams())
		options := game.Roll{0, 0, 0}.Options() // value 2, the worst region on the ramp
		d := &game.Decision{Player: 0, State: s, Options: &options, CanReroll: true, Rand: game.NewRand(1)}
		c, err := p.Choose(ctx, d)
		require.NoError(t, err)
		require.True(t, c.Reroll)

		d.CanReroll = false
		c, err = p.Choose(ctx, d)
		require.NoError(t, err)
		require.False(t, c.Reroll)
	})

	t.Run("exploration short-circuits", func(t *testing.T) {
		s := identityState(t, 2, true)
		scorer := &staticScorer{scores: rampScores()}
		p := NewPolicy(scorer, DefaultParams()).WithExplore(1)
		options := game.Roll{0, 0, 0}.Options()
		for i := 0; i < 20; i++ {
			c, err := p.Choose(ctx, &game.Decision{Player: 0, State: s, Options: &options, CanReroll: true, Rand: game.NewRand(uint64(i))})
			require.NoError(t, err)
			require.False(t, c.Reroll)
			require.GreaterOrEqual(t, c.Index, 0)
			require.Less(t, c.Index, 3)
		}
		require.Zero(t, scorer.calls)
	})

	t.Run("wrong score length is an error", func(t *testing.T) {
		s := identityState(t, 2, false)
		p := NewPolicy(&staticScorer{scores: []float64{1, 2}}, DefaultParams())
		_, err := p.Choose(ctx, &game.Decision{Player: 0, State: s, Rand: game.NewRand(1)})
		require.Error(t, err)
	})
}

func TestRerollCutoff(t *testing.T) {
	s := identityState(t, 2, true)
	rng := game.NewRand(11)

	t.Run("monotone in threshold", func(t *testing.T) {
		for trial := 0; trial < 20; trial++ {
			scores := make([]float64, game.NumActions)
			for i := range scores {
				scores[i] = rng.Float64()
			}
			prev := 0.0
			for th := 0.0; th <= 1.0; th += 0.05 {
				cutoff := RerollCutoff(scores, 18, s.Map, th)
				require.GreaterOrEqual(t, cutoff, prev)
				prev = cutoff
			}
		}
	})

	t.Run("never below the floor", func(t *testing.T) {
		scores := make([]float64, game.NumActions)
		require.Equal(t, minCutoff, RerollCutoff(scores, 18, s.Map, 0.8))
	})

	t.Run("threshold one is clamped", func(t *testing.T) {
		scores := rampScores()
		require.Equal(t, scores[game.NumActions-1], RerollCutoff(scores, 18, s.Map, 1))
	})
}

func TestHuman(t *testing.T) {
	ctx := context.Background()

	t.Run("re-prompts on invalid dice reply", func(t *testing.T) {
		s := identityState(t, 2, true)
		in := &scriptedInput{replies: []communication.Reply{{Index: 5}, {Reroll: true}, {Index: 2}}}
		h := &Human{Name: "ann", Input: in}
		options := game.Roll{1, 2, 3}.Options()
		c, err := h.Choose(ctx, &game.Decision{Player: 1, State: s, Options: &options, CanReroll: false})
		require.NoError(t, err)
		require.Equal(t, game.Choice{Index: 2}, c)
		require.Len(t, in.prompts, 3)
		require.Equal(t, "ann", in.prompts[0].Name)
		require.True(t, in.prompts[0].Dice)
	})

	t.Run("raw reply maps value and troops", func(t *testing.T) {
		s := identityState(t, 2, false)
		in := &scriptedInput{replies: []communication.Reply{{Value: 13, Troops: 1}, {Value: 7, Troops: 3}}}
		h := &Human{Name: "bo", Input: in}
		c, err := h.Choose(ctx, &game.Decision{Player: 0, State: s})
		require.NoError(t, err)
		require.Equal(t, game.ActionIndex(5, 2), c.Index)
	})

	t.Run("closed input ends the game", func(t *testing.T) {
		s := identityState(t, 2, false)
		h := &Human{Name: "cy", Input: &scriptedInput{}}
		_, err := h.Choose(ctx, &game.Decision{Player: 0, State: s})
		require.True(t, errors.Is(err, communication.ErrClosed))
	})
}

func TestLineup(t *testing.T) {
	base := NewPolicy(&staticScorer{}, DefaultParams())
	seats := []game.Agent{base, &Human{Name: "h"}, Random{}}

	out := Lineup(seats, base, 0, 0.1)
	require.Same(t, base, out[0])
	stand, ok := out[1].(*Policy)
	require.True(t, ok)
	require.True(t, stand.Params.Explore)
	require.Equal(t, 0.1, stand.Params.Epsilon)
	require.Equal(t, Random{}, out[2])
	require.False(t, base.Params.Explore)

	explored := Explore(seats, 0.5)
	require.True(t, explored[0].(*Policy).Params.Explore)
	require.Equal(t, Random{}, explored[1])
}
