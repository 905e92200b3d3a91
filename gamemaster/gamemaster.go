package gamemaster

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"landbid/communication"
	"landbid/engine"
	"landbid/game"
	"landbid/player"
	"landbid/searcher"
)

// Update is what front ends are shown after every move.
type Update struct {
	Board    game.Snapshot   `json:"board"`
	Names    []string        `json:"names"`
	Player   int             `json:"player"` // Seat to move next, -1 once the game is over
	LastMove *game.Placement `json:"lastMove,omitempty"`
	WinRates []float64       `json:"winRates,omitempty"`
	Rollouts int             `json:"rollouts"`
	Owners   []int           `json:"owners"` // Current winner of each region, -1 if nobody
	Final    bool            `json:"final"`
}

type Publisher interface {
	Publish(ctx context.Context, u Update) error
}

// Seat configures one player of an interactive match. Seats without an
// Input are played by the AI.
type Seat struct {
	Name  string
	Input communication.Input
}

func (s Seat) AI() bool { return s.Input == nil }

// Controller runs a match between AI and human seats and keeps front ends
// informed.
type Controller struct {
	state      *game.State
	seats      []Seat
	agents     []game.Agent
	policy     *player.Policy
	searcher   *searcher.Searcher
	publishers []Publisher
	rng        *rand.Rand

	First int
}

func NewController(state *game.State, seats []Seat, policy *player.Policy, s *searcher.Searcher, rng *rand.Rand, publishers ...Publisher) (*Controller, error) {
	if len(seats) != state.Players() {
		return nil, fmt.Errorf("got %d seats for %d players", len(seats), state.Players())
	}
	if policy == nil || s == nil {
		return nil, errors.New("a policy and a searcher are required")
	}

	agents := make([]game.Agent, len(seats))
	for i, seat := range seats {
		if seat.AI() {
			agents[i] = policy
		} else {
			agents[i] = &player.Human{Name: seat.Name, Input: seat.Input}
		}
	}
	return &Controller{
		state:      state,
		seats:      seats,
		agents:     agents,
		policy:     policy,
		searcher:   s,
		publishers: publishers,
		rng:        rng,
	}, nil
}

func (c *Controller) names() []string {
	names := make([]string, len(c.seats))
	for i, s := range c.seats {
		names[i] = s.Name
	}
	return names
}

func (c *Controller) aiSeats() []int {
	var seats []int
	for i, s := range c.seats {
		if s.AI() {
			seats = append(seats, i)
		}
	}
	return seats
}

// rollouts replaces humans with the policy and lets every seat but the
// acting one explore.
func (c *Controller) rollouts(acting int) []game.Agent {
	return player.Lineup(c.agents, c.policy, acting, c.policy.Params.Epsilon)
}

// Run plays the match to the end.
func (c *Controller) Run(ctx context.Context) (engine.Result, error) {
	c.publish(ctx, c.update(c.First, nil, nil, 0))

	e := engine.LocalEngine(c.state, c.agents, c.rng).Search(c.searcher, c.aiSeats()...)
	e.First = c.First
	e.Rollouts = c.rollouts
	e.OnTurn = func(t engine.Turn) {
		placement := t.Placement
		log.Info().Msgf("%s placed %d on region %d (value %d)", c.seats[t.Player].Name, placement.Troops, placement.Region, placement.Value)
		if c.state.Terminal() {
			return
		}
		next := c.nextToMove(t.Player)
		judgement, err := c.searcher.Judge(ctx, c.state, next, c.rollouts(-1))
		if err != nil {
			log.Warn().Err(err).Msg("failed to judge position")
		}
		c.publish(ctx, c.update(next, &placement, judgement.WinRates, judgement.Rollouts))
	}

	result, err := e.Run(ctx)
	if err != nil {
		return result, err
	}

	names := c.names()
	engine.LogAwards(result.Awards, names)
	for p, score := range result.Scores {
		log.Info().Msgf("%s scored %.1f", names[p], score)
	}

	final := c.update(-1, nil, winShares(result.Winners, c.state.Players()), 0)
	final.Final = true
	c.publish(ctx, final)
	return result, nil
}

// nextToMove is the first seat after p that still has soldiers.
func (c *Controller) nextToMove(p int) int {
	next := c.state.NextPlayer(p)
	for c.state.Soldiers[next] == 0 {
		next = c.state.NextPlayer(next)
	}
	return next
}

func (c *Controller) update(next int, move *game.Placement, winRates []float64, rollouts int) Update {
	_, awards := c.state.ScoreDetail()
	owners := make([]int, len(awards))
	for _, a := range awards {
		owners[a.Region] = a.Winner
	}
	return Update{
		Board:    c.state.Snapshot(),
		Names:    c.names(),
		Player:   next,
		LastMove: move,
		WinRates: winRates,
		Rollouts: rollouts,
		Owners:   owners,
	}
}

func (c *Controller) publish(ctx context.Context, u Update) {
	for _, p := range c.publishers {
		if err := p.Publish(ctx, u); err != nil {
			log.Warn().Err(err).Msg("failed to publish update")
		}
	}
}

func winShares(winners []int, players int) []float64 {
	shares := make([]float64, players)
	for _, w := range winners {
		shares[w] = 1 / float64(len(winners))
	}
	return shares
}
