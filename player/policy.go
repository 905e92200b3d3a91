package player

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"landbid/game"
	"landbid/utils"
)

// Scorer estimates a win rate for each of the 33 raw actions of the player
// whose features are given.
type Scorer interface {
	Score(features []float32, graph []float32) ([]float64, error)
}

// Params are the per-seat knobs of the policy agent.
type Params struct {
	Epsilon   float64 // Chance of a uniformly random move in explore mode
	Explore   bool
	Threshold float64 // Quantile of roll qualities below which a roll is rerolled
}

func DefaultParams() Params {
	return Params{Epsilon: 0.2, Threshold: 0.8}
}

// Policy plays the best-scoring move, scored either by a precomputed search
// vector or by its Scorer. It is immutable and safe for concurrent use as
// long as the Scorer is.
type Policy struct {
	Scorer Scorer
	Params Params
}

func NewPolicy(scorer Scorer, params Params) *Policy {
	return &Policy{Scorer: scorer, Params: params}
}

// WithExplore returns a copy of the policy in explore mode.
func (p *Policy) WithExplore(epsilon float64) *Policy {
	c := *p
	c.Params.Explore = true
	c.Params.Epsilon = epsilon
	return &c
}

func (p *Policy) Choose(ctx context.Context, d *game.Decision) (game.Choice, error) {
	if p.Params.Explore && d.Rand.Float64() < p.Params.Epsilon {
		return Random{}.Choose(ctx, d)
	}

	scores, err := p.scores(d)
	if err != nil {
		return game.Choice{}, err
	}

	if d.Options == nil {
		return game.Choice{Index: utils.ArgMax(scores)}, nil
	}

	soldiers := d.Soldiers()
	m := d.State.Map
	options := make([]float64, len(d.Options))
	for i, o := range d.Options {
		options[i] = scores[m.OptionAction(o, soldiers)]
	}
	index := utils.ArgMax(options)

	choice := game.Choice{Index: index}
	if d.CanReroll {
		cutoff := RerollCutoff(scores, soldiers, m, p.Params.Threshold)
		choice.Reroll = options[index] < cutoff
		if d.SearchResult != nil {
			log.Debug().Msgf("player %d: chosen win rate %.3f, reroll cutoff %.3f, reroll %t",
				d.Player, options[index], cutoff, choice.Reroll)
		}
	}
	return choice, nil
}

func (p *Policy) scores(d *game.Decision) ([]float64, error) {
	scores := d.SearchResult
	if scores == nil {
		if p.Scorer == nil {
			return nil, fmt.Errorf("player %d: no search result and no scorer", d.Player)
		}
		var err error
		scores, err = p.Scorer.Score(Features(d.State, d.Player), d.State.Map.Matrix())
		if err != nil {
			return nil, fmt.Errorf("player %d: score: %w", d.Player, err)
		}
	}
	if len(scores) != game.NumActions {
		return nil, fmt.Errorf("player %d: got %d scores, want %d", d.Player, len(scores), game.NumActions)
	}
	return scores, nil
}

// Features encodes the board from player's point of view: its own troops per
// region, then every other player's in ascending ID order, then the region
// values.
func Features(s *game.State, player int) []float32 {
	players := s.Players()
	out := make([]float32, 0, game.NumRegions*(players+1))
	appendTroops := func(p int) {
		for r := 0; r < game.NumRegions; r++ {
			out = append(out, float32(s.Troops[r][p]))
		}
	}
	appendTroops(player)
	for p := 0; p < players; p++ {
		if p != player {
			appendTroops(p)
		}
	}
	for _, v := range s.Map.Values() {
		out = append(out, float32(v))
	}
	return out
}

// FeatureSize is the length of Features for a table of the given size.
func FeatureSize(players int) int {
	return game.NumRegions * (players + 1)
}
