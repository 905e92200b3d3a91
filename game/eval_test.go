package game

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	t.Run("empty board scores nothing", func(t *testing.T) {
		s := identityState(t, 3, false)
		require.Equal(t, []float64{0, 0, 0}, s.Score())
	})

	t.Run("uncontested regions", func(t *testing.T) {
		s := identityState(t, 2, false)
		for !s.Terminal() {
			if s.Soldiers[0] > 0 {
				s.Place(0, 10, 2)
			}
			if s.Soldiers[1] > 0 {
				s.Place(1, 0, 2)
			}
		}
		require.True(t, s.Terminal())
		require.Equal(t, []float64{12, 2}, s.Score())
	})

	t.Run("runner-up takes half rounded down", func(t *testing.T) {
		s := identityState(t, 2, false)
		s.Place(0, 5, 2) // value 7
		s.Place(1, 5, 1)
		require.Equal(t, []float64{7, 3}, s.Score())
	})

	t.Run("elimination bonus breaks raw ties", func(t *testing.T) {
		rules := Rules{StartingSoldiers: 2, RankBonus: 0.1, CascadeBonus: 2}
		s := NewStateWithRules(identityMap(t), 2, false, rules)
		s.Place(0, 3, 0)
		s.Place(1, 3, 0)
		s.Place(1, 4, 0) // player 1 out first
		s.Place(0, 5, 0)
		require.Equal(t, 2, s.Rank[1])
		require.Equal(t, 1, s.Rank[0])

		scores, awards := s.ScoreDetail()
		var region3 RegionAward
		for _, a := range awards {
			if a.Region == 3 {
				region3 = a
			}
		}
		require.Equal(t, 1, region3.Winner)
		require.Equal(t, 0, region3.RunnerUp)
		require.InDelta(t, 1.2, region3.Effective[1], 1e-9)
		require.Equal(t, []float64{2 + 7, 5 + 6}, scores)
	})

	t.Run("winning a region reinforces dominated footholds", func(t *testing.T) {
		rules := Rules{StartingSoldiers: 2, RankBonus: 0.1, CascadeBonus: 2}
		s := NewStateWithRules(identityMap(t), 2, false, rules)
		s.Place(0, 0, 0) // value 2, dominates region 1
		s.Place(1, 1, 1) // two troops in value 3
		s.Place(0, 1, 0) // one troop in value 3

		scores, awards := s.ScoreDetail()
		require.Equal(t, 0, awards[0].Winner)
		require.Equal(t, 1, awards[1].Region)
		require.Equal(t, 0, awards[1].Winner)
		require.Equal(t, []float64{2 + 3, 1}, scores)
	})

	t.Run("cascade needs an existing foothold", func(t *testing.T) {
		s := identityState(t, 2, false)
		s.Place(0, 0, 0)
		s.Place(1, 1, 0)
		require.Equal(t, []float64{2, 3}, s.Score())
	})

	t.Run("score is bounded and recomputable", func(t *testing.T) {
		ctx := context.Background()
		for seed := uint64(0); seed < 30; seed++ {
			rng := NewRand(seed)
			players := 2 + int(seed%4)
			s := NewState(NewMap(rng), players, true)
			agents := make([]Agent, players)
			for p := range agents {
				agents[p] = randomAgent
			}
			require.NoError(t, s.PlayOut(ctx, 0, agents, rng))

			limit := 0.0
			for _, r := range s.Map.Regions {
				limit += float64(r.Value) + math.Floor(float64(r.Value)/2)
			}
			scores := s.Score()
			total := 0.0
			for _, sc := range scores {
				require.GreaterOrEqual(t, sc, 0.0)
				require.LessOrEqual(t, sc, float64(s.Map.SumValues()))
				total += sc
			}
			require.LessOrEqual(t, total, limit)
			require.Equal(t, scores, s.Score())
		}
	})
}

func TestLeaders(t *testing.T) {
	require.Equal(t, []int{1}, Leaders([]float64{3, 9, 4}))
	require.Equal(t, []int{0, 2}, Leaders([]float64{9, 1, 9}))
	require.True(t, IsLeader([]float64{9, 1, 9}, 2))
	require.False(t, IsLeader([]float64{9, 1, 9}, 1))
}
