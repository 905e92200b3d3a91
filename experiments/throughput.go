package experiments

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"landbid/engine"
	"landbid/experiments/metrics"
	"landbid/game"
	"landbid/player"
	"landbid/searcher"
)

// ThroughputConfig measures how the rollout rate scales with search workers.
// Each worker count plays Games searched games of player 0 against random
// players.
type ThroughputConfig struct {
	Players int
	Games   int
	Workers []int
	Budget  time.Duration
	OutDir  string
	Seed    uint64
}

// Throughput is the rollout rate reached with a number of workers.
type Throughput struct {
	Workers           int
	Rollouts          int
	RolloutsPerSecond float64
}

func RunThroughputExperiment(ctx context.Context, cfg ThroughputConfig) ([]Throughput, error) {
	var (
		out     []Throughput
		configs []metrics.PlayerConfig
		all     matchRun
	)
	rng := game.NewRand(cfg.Seed)

	log.Info().Msg("starting throughput experiment...")
	for i, workers := range cfg.Workers {
		start := time.Now()
		s := searcher.New(
			searcher.WithWorkers(workers),
			searcher.WithDuration(cfg.Budget),
			searcher.WithSeed(cfg.Seed+uint64(i)),
			searcher.WithMetrics(),
		)
		seats := make([]game.Agent, cfg.Players)
		seats[0] = player.NewPolicy(nil, player.DefaultParams())
		for p := 1; p < cfg.Players; p++ {
			seats[p] = player.Random{}
		}
		rollouts := player.Explore(seats, 1)

		run, err := runMatches(ctx, cfg.Players, cfg.Games, false, rng, func(state *game.State) *engine.Local {
			e := engine.LocalEngine(state, seats, rng).Search(s, 0)
			e.Rollouts = func(int) []game.Agent { return rollouts }
			return e
		})
		closeErr := s.Close()
		if err != nil {
			return out, err
		}
		if closeErr != nil {
			return out, fmt.Errorf("close searcher: %w", closeErr)
		}

		t := Throughput{Workers: workers}
		var busy time.Duration
		for _, m := range run.moves {
			t.Rollouts += m.Rollouts
			busy += m.Duration
		}
		if busy > 0 {
			t.RolloutsPerSecond = float64(t.Rollouts) / busy.Seconds()
		}
		out = append(out, t)
		log.Info().Msgf("%d workers: %d rollouts, %.0f rollouts/s (%s)", workers, t.Rollouts, t.RolloutsPerSecond, sinceStart(start))

		configs = append(configs, metrics.PlayerConfig{
			ID: i, Kind: string(player.KindPolicy), Name: fmt.Sprintf("%d workers", workers),
			Search: true, Workers: workers, Budget: cfg.Budget,
		})
		offset := len(all.games)
		for _, g := range run.games {
			g.ID += offset
			all.games = append(all.games, g)
		}
		for _, m := range run.moves {
			m.Game += offset
			all.moves = append(all.moves, m)
		}
	}
	log.Info().Msg("completed throughput experiment")

	if cfg.OutDir != "" {
		if err := all.write(cfg.OutDir, configs); err != nil {
			return out, err
		}
	}
	return out, nil
}
