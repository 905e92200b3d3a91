package experiments

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"landbid/engine"
	"landbid/experiments/metrics"
	"landbid/game"
	"landbid/player"
	"landbid/searcher"
)

// Config describes an evaluation: a policy agent at TestID against random
// players, or against copies of itself when AllAgent is set.
type Config struct {
	Players  int
	Rounds   int
	Dice     bool
	TestID   int
	AllAgent bool
	Scorer   player.Scorer
	Params   player.Params
	Model    string             // Recorded in player_configs.csv only
	Agent    game.Agent         // Replaces the policy at TestID, e.g. an agent served remotely
	Searcher *searcher.Searcher // When set, TestID searches before every move
	OutDir   string             // Empty disables the CSV records
	Seed     uint64
}

func (c Config) lineup() ([]game.Agent, []metrics.PlayerConfig) {
	agents := make([]game.Agent, c.Players)
	configs := make([]metrics.PlayerConfig, c.Players)
	params := c.Params
	params.Explore = false
	for p := range agents {
		if p == c.TestID || c.AllAgent {
			agents[p] = player.NewPolicy(c.Scorer, params)
			configs[p] = metrics.PlayerConfig{
				ID: p, Kind: string(player.KindPolicy), Name: fmt.Sprintf("agent %d", p),
				Model: c.Model, Threshold: params.Threshold,
			}
		} else {
			agents[p] = player.Random{}
			configs[p] = metrics.PlayerConfig{ID: p, Kind: string(player.KindRandom), Name: fmt.Sprintf("random %d", p)}
		}
	}
	if c.Agent != nil {
		agents[c.TestID] = c.Agent
		configs[c.TestID].Kind = "remote"
	}
	if c.Searcher != nil {
		configs[c.TestID].Search = true
		configs[c.TestID].Workers = c.Searcher.Workers()
		configs[c.TestID].Budget = c.Searcher.Budget()
	}
	return agents, configs
}

// RunEvaluation plays Rounds games and reports each player's win rate, tied
// leaders sharing a win, and mean score.
func RunEvaluation(ctx context.Context, cfg Config) (metrics.RoundSummary, error) {
	if cfg.TestID < 0 || cfg.TestID >= cfg.Players {
		return metrics.RoundSummary{}, fmt.Errorf("test player %d out of range for %d players", cfg.TestID, cfg.Players)
	}
	agents, configs := cfg.lineup()
	rng := game.NewRand(cfg.Seed)

	log.Info().Msgf("starting evaluation of player %d over %d rounds...", cfg.TestID, cfg.Rounds)
	run, err := runMatches(ctx, cfg.Players, cfg.Rounds, cfg.Dice, rng, func(state *game.State) *engine.Local {
		e := engine.LocalEngine(state, agents, rng)
		if cfg.Searcher != nil {
			e.Search(cfg.Searcher, cfg.TestID)
		}
		return e
	})
	if err != nil {
		return run.summary, err
	}

	engine.LogTable(fmt.Sprintf("Evaluation of player %d", cfg.TestID), run.summary)
	if cfg.OutDir != "" {
		if err := run.write(cfg.OutDir, configs); err != nil {
			return run.summary, err
		}
	}
	return run.summary, nil
}

type matchRun struct {
	summary metrics.RoundSummary
	games   []metrics.GameRecord
	moves   []metrics.MoveRecord
}

// runMatches plays games on fresh maps, rotating the starting player.
func runMatches(ctx context.Context, players, games int, dice bool, rng *rand.Rand, build func(*game.State) *engine.Local) (matchRun, error) {
	var run matchRun
	wins := make([]float64, players)
	scores := make([]float64, players)

	for i := 0; i < games; i++ {
		state := game.NewState(game.NewMap(rng), players, dice)
		e := build(state)
		e.First = i % players

		result, err := e.Run(ctx)
		if err != nil {
			return run, fmt.Errorf("game %d: %w", i+1, err)
		}
		log.Debug().Msgf("completed game %d of %d with scores %v", i+1, games, result.Scores)

		for _, p := range result.Winners {
			wins[p] += 1 / float64(len(result.Winners))
		}
		for p, s := range result.Scores {
			scores[p] += s
		}

		run.games = append(run.games, metrics.GameRecord{ID: i + 1, GameMetric: result.Game})
		for _, mm := range result.Moves {
			run.moves = append(run.moves, metrics.MoveRecord{Game: i + 1, MoveMetric: mm})
		}
	}

	run.summary = metrics.RoundSummary{Games: games, WinRates: wins, Scores: scores}
	if games > 0 {
		for p := range wins {
			wins[p] /= float64(games)
			scores[p] /= float64(games)
		}
	}
	return run, nil
}

func (run matchRun) write(dir string, configs []metrics.PlayerConfig) error {
	writer, err := metrics.NewWriter(dir)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WritePlayerConfigs(configs); err != nil {
		return fmt.Errorf("failed to store player configs: %w", err)
	}
	if err := writer.WriteGameRecords(run.games); err != nil {
		return fmt.Errorf("failed to write game records: %w", err)
	}
	if err := writer.WriteMoveRecords(run.moves); err != nil {
		return fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msgf("stored experiment records in %s", writer.Dir())
	return nil
}

func sinceStart(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
