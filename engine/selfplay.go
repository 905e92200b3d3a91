package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"landbid/buffer"
	"landbid/experiments/metrics"
	"landbid/game"
	"landbid/meta"
	"landbid/player"
	"landbid/searcher"
)

// ExampleWriter receives the examples of each round.
type ExampleWriter interface {
	Append(ctx context.Context, examples []buffer.Example) error
}

// SelfPlay generates training examples by letting a policy play against
// copies of itself, searching every decision point in raw mode.
type SelfPlay struct {
	Players       int
	Policy        *player.Policy
	Searcher      *searcher.Searcher
	Store         ExampleWriter
	Summary       *metrics.Writer // Optional
	GamesPerRound int
	RandomSim     float64 // Epsilon of the agents inside rollouts
	Explore       float64 // Epsilon of the agents actually moving
	LogEvery      int
	Rand          *rand.Rand
}

func NewSelfPlay(players int, policy *player.Policy, s *searcher.Searcher, store ExampleWriter, rng *rand.Rand) *SelfPlay {
	return &SelfPlay{
		Players:       players,
		Policy:        policy,
		Searcher:      s,
		Store:         store,
		GamesPerRound: meta.GAMES_PER_ROUND,
		RandomSim:     meta.RANDOM_SIM,
		Explore:       meta.EXPLORE,
		LogEvery:      meta.LOG_EVERY,
		Rand:          rng,
	}
}

// Run plays the given number of rounds and returns the cumulative outcome.
func (sp *SelfPlay) Run(ctx context.Context, rounds int) (metrics.RoundSummary, error) {
	seats := make([]game.Agent, sp.Players)
	for i := range seats {
		seats[i] = sp.Policy
	}
	acting := player.Explore(seats, sp.Explore)
	simulated := player.Explore(seats, sp.RandomSim)

	total := newTally(sp.Players)
	for round := 0; round < rounds; round++ {
		if err := ctx.Err(); err != nil {
			return total.summary(round), err
		}

		var examples []buffer.Example
		tally := newTally(sp.Players)
		for g := 0; g < sp.GamesPerRound; g++ {
			first := (round*sp.GamesPerRound + g) % sp.Players
			result, recorded, err := sp.playGame(ctx, acting, simulated, first)
			if err != nil {
				return total.summary(round), fmt.Errorf("round %d game %d: %w", round, g, err)
			}
			log.Debug().Msgf("round %d game %d: scores %v", round, g, result.Scores)
			examples = append(examples, recorded...)
			tally.add(result.Scores)
			total.add(result.Scores)
		}

		if sp.Store != nil {
			if err := sp.Store.Append(ctx, examples); err != nil {
				return total.summary(round), fmt.Errorf("save round %d: %w", round, err)
			}
		}
		log.Info().Msgf("round %d: %d examples saved", round, len(examples))

		if sp.Summary != nil {
			if err := sp.Summary.AppendRoundSummary(tally.summary(round)); err != nil {
				log.Warn().Err(err).Msg("failed to write round summary")
			}
		}
		if sp.LogEvery > 0 && round%sp.LogEvery == 0 {
			LogTable(fmt.Sprintf("Simulation %d", round), total.summary(round))
		}
	}
	return total.summary(rounds - 1), nil
}

func (sp *SelfPlay) playGame(ctx context.Context, acting, simulated []game.Agent, first int) (Result, []buffer.Example, error) {
	m := game.NewMap(sp.Rand)
	state := game.NewState(m, sp.Players, false)
	graph := m.Matrix()
	episode := uuid.NewString()

	var examples []buffer.Example
	e := LocalEngine(state, acting, sp.Rand)
	e.First = first
	e.Rollouts = func(int) []game.Agent { return simulated }
	all := make([]int, sp.Players)
	for i := range all {
		all[i] = i
	}
	e.Search(sp.Searcher, all...)
	e.OnTurn = func(t Turn) {
		examples = append(examples, buffer.Example{
			Episode: episode,
			Step:    t.Step,
			Player:  t.Player,
			Players: sp.Players,
			State:   t.Features,
			Label:   t.Search,
			Graph:   graph,
		})
	}

	result, err := e.Run(ctx)
	if err != nil {
		return Result{}, nil, err
	}
	return result, examples, nil
}

type tally struct {
	games  int
	wins   []float64
	scores []float64
}

func newTally(players int) *tally {
	return &tally{wins: make([]float64, players), scores: make([]float64, players)}
}

// add counts a game; tied leaders share the win.
func (t *tally) add(scores []float64) {
	t.games++
	leaders := game.Leaders(scores)
	for _, p := range leaders {
		t.wins[p] += 1 / float64(len(leaders))
	}
	for p, s := range scores {
		t.scores[p] += s
	}
}

func (t *tally) summary(round int) metrics.RoundSummary {
	s := metrics.RoundSummary{
		Round:    round,
		Games:    t.games,
		WinRates: make([]float64, len(t.wins)),
		Scores:   make([]float64, len(t.scores)),
	}
	if t.games == 0 {
		return s
	}
	for p := range t.wins {
		s.WinRates[p] = t.wins[p] / float64(t.games)
		s.Scores[p] = t.scores[p] / float64(t.games)
	}
	return s
}

// LogTable logs win rate and mean score per player.
func LogTable(title string, s metrics.RoundSummary) {
	log.Info().Msg(title)
	log.Info().Msgf("%-8s%12s%10s", "Player", "Win rate", "Score")
	log.Info().Msg(strings.Repeat("=", 30))
	for p := range s.WinRates {
		log.Info().Msgf("%-8d%10.2f %%%10.2f", p, 100*s.WinRates[p], s.Scores[p])
	}
}
