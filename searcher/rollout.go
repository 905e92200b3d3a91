package searcher

import (
	"context"
	"time"

	"golang.org/x/exp/rand"

	"landbid/experiments/metrics"
	"landbid/game"
)

type task struct {
	ctx    context.Context
	state  *game.State
	player int  // Seat whose action is forced
	action int  // Raw action forced on player
	forced bool // Judge tasks force nothing
	first  int  // Seat to move first after the forced action
	agents []game.Agent

	index     int
	rng       *rand.Rand
	duration  time.Duration
	rollouts  int
	collector metrics.Collector
	out       chan<- result
}

// result holds the final scores of every rollout a task completed.
type result struct {
	index    int
	rollouts int
	scores   [][]float64
	err      error
}

// run plays rollouts until the budget is spent. The budget is checked only
// between rollouts, so a task may overrun it by one rollout, and a task that
// starts within budget always completes at least one.
func (t *task) run() {
	r := result{index: t.index}
	start := time.Now()
	for t.ctx.Err() == nil {
		scores, placements, err := t.rollout()
		if err != nil {
			r.err = err
			break
		}
		r.scores = append(r.scores, scores)
		r.rollouts++
		t.collector.AddRollout()
		t.collector.AddPlacements(placements)

		if t.rollouts > 0 {
			if r.rollouts >= t.rollouts {
				break
			}
		} else if time.Since(start) >= t.duration {
			break
		}
	}
	t.out <- r
}

func (t *task) rollout() ([]float64, int, error) {
	sim := t.state.Clone()
	placements := 0
	p := t.first
	if t.forced {
		if _, _, err := sim.Step(t.ctx, t.player, nil, t.rng, game.StepOptions{Force: true, Action: t.action}); err != nil {
			return nil, 0, err
		}
		placements++
	}
	for !sim.Terminal() {
		_, ok, err := sim.Step(t.ctx, p, t.agents[p], t.rng, game.StepOptions{})
		if err != nil {
			return nil, 0, err
		}
		if ok {
			placements++
		}
		p = sim.NextPlayer(p)
	}
	return sim.Score(), placements, nil
}
