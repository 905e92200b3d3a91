package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"landbid/experiments/metrics"
	"landbid/game"
	"landbid/player"
	"landbid/searcher"
)

// Turn describes one move as it was played.
type Turn struct {
	Step      int
	Player    int
	Features  []float32 // Acting player's view before the move
	Search    []float64 // nil unless the seat searched
	Placement game.Placement
}

// Local plays an episode in process.
type Local struct {
	State     *game.State
	Agents    []game.Agent
	Searcher  *searcher.Searcher
	Searching []bool // Seats that run a search before every move
	// Rollouts picks the agents searches simulate with when acting moves.
	// Defaults to Agents.
	Rollouts func(acting int) []game.Agent
	First    int
	Rand     *rand.Rand
	OnTurn   func(Turn)
}

func LocalEngine(state *game.State, agents []game.Agent, rng *rand.Rand) *Local {
	if len(agents) != state.Players() {
		panic("number of agents does not match number of players")
	}
	return &Local{
		State:     state,
		Agents:    agents,
		Searching: make([]bool, len(agents)),
		Rand:      rng,
	}
}

// Search makes the given seats consult s before moving.
func (e *Local) Search(s *searcher.Searcher, seats ...int) *Local {
	e.Searcher = s
	for _, seat := range seats {
		e.Searching[seat] = true
	}
	return e
}

// Run executes the turn loop until every soldier is placed.
func (e *Local) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	log.Debug().Msgf("player %d is starting", e.First)

	var moves []metrics.MoveMetric
	step := 0
	p := e.First
	for !e.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if e.State.Soldiers[p] == 0 {
			p = e.State.NextPlayer(p)
			continue
		}

		var (
			search []float64
			metric metrics.SearchMetric
		)
		if e.Searcher != nil && e.Searching[p] {
			eval, err := e.Searcher.Evaluate(ctx, e.State, p, e.rollouts(p))
			if err != nil {
				return Result{}, fmt.Errorf("search for player %d: %w", p, err)
			}
			search = eval.WinRates
			metric = eval.Metric
		}

		var features []float32
		if e.OnTurn != nil {
			features = player.Features(e.State, p)
		}

		placement, _, err := e.State.Step(ctx, p, e.Agents[p], e.Rand, game.StepOptions{SearchResult: search})
		if err != nil {
			return Result{}, err
		}
		step++

		moves = append(moves, metrics.MoveMetric{
			Step:         step,
			Player:       p,
			Region:       placement.Region,
			Troops:       placement.Troops,
			Rerolled:     placement.Rerolled,
			SearchMetric: metric,
		})
		if e.OnTurn != nil {
			e.OnTurn(Turn{Step: step, Player: p, Features: features, Search: search, Placement: placement})
		}

		p = e.State.NextPlayer(p)
	}

	scores, awards := e.State.ScoreDetail()
	end := time.Now()
	winners := game.Leaders(scores)
	return Result{
		Scores:  scores,
		Winners: winners,
		Awards:  awards,
		Game: metrics.GameMetric{
			StartingPlayer: e.First,
			Winners:        winners,
			Scores:         scores,
			StartTime:      start,
			EndTime:        end,
			Duration:       end.Sub(start),
			TotalMoves:     step,
		},
		Moves: moves,
	}, nil
}

func (e *Local) rollouts(acting int) []game.Agent {
	if e.Rollouts != nil {
		return e.Rollouts(acting)
	}
	return e.Agents
}

// LogAwards reports who took each region, lowest value first.
func LogAwards(awards []game.RegionAward, names []string) {
	name := func(p int) string {
		if p < 0 {
			return "-"
		}
		if p < len(names) {
			return names[p]
		}
		return fmt.Sprintf("player %d", p)
	}
	for _, a := range awards {
		log.Info().Msgf("region %d (value %d): first %s, second %s", a.Region, a.Value, name(a.Winner), name(a.RunnerUp))
	}
}
