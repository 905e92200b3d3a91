package model

import (
	"fmt"

	"landbid/game"
)

// Static always returns the same scores. Useful to play without a trained
// network and in tests.
type Static struct {
	scores []float64
}

func NewStatic(scores []float64) (*Static, error) {
	if len(scores) != game.NumActions {
		return nil, fmt.Errorf("%w: got %d values", ErrBadOutput, len(scores))
	}
	return &Static{scores: append([]float64(nil), scores...)}, nil
}

func (s *Static) Score(_ []float32, _ []float32) ([]float64, error) {
	return append([]float64(nil), s.scores...), nil
}

// Uniform rates every action alike, so a policy falls back to its tie-break
// order and never rerolls above the cutoff floor.
type Uniform struct {
	Players int
}

func (u Uniform) Score(_ []float32, _ []float32) ([]float64, error) {
	p := 1.0
	if u.Players > 0 {
		p = 1 / float64(u.Players)
	}
	scores := make([]float64, game.NumActions)
	for i := range scores {
		scores[i] = p
	}
	return scores, nil
}

// Values scores an action by the value of its region, preferring bigger
// placements. It is a cheap heuristic opponent.
type Values struct{}

func (Values) Score(features []float32, _ []float32) ([]float64, error) {
	if len(features) < game.NumRegions {
		return nil, fmt.Errorf("features too short: %d", len(features))
	}
	values := features[len(features)-game.NumRegions:]
	scores := make([]float64, game.NumActions)
	for region, v := range values {
		for troop := 0; troop < game.TroopOffsets; troop++ {
			scores[game.ActionIndex(region, troop)] = (float64(v) + float64(troop)/game.TroopOffsets) / game.MaxValue
		}
	}
	return scores, nil
}

// Scorer rates the 33 raw actions of a position.
type Scorer interface {
	Score(features []float32, graph []float32) ([]float64, error)
}

// New picks a scorer by name: a path to an .onnx file, "uniform" or "values".
func New(source string, inputs Inputs, players int) (Scorer, error) {
	switch source {
	case "", "uniform":
		return Uniform{Players: players}, nil
	case "values":
		return Values{}, nil
	default:
		o, err := Load(source, inputs, players)
		if err != nil {
			return nil, err
		}
		return o, nil
	}
}
