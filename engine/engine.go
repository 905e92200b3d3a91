package engine

import (
	"context"

	"landbid/experiments/metrics"
	"landbid/game"
)

type Engine interface {
	// Run plays one episode to the end
	Run(ctx context.Context) (Result, error)
}

type Result struct {
	Scores  []float64
	Winners []int
	Awards  []game.RegionAward
	Game    metrics.GameMetric
	Moves   []metrics.MoveMetric
}
