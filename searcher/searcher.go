package searcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"landbid/experiments/metrics"
	"landbid/game"
)

var ErrClosed = errors.New("searcher closed")

type Option func(s *Searcher)

// Searcher estimates win rates by playing clones of a position to the end
// many times. It owns a fixed pool of workers for its whole lifetime; each
// call submits its tasks to the pool and gathers their results.
type Searcher struct {
	workers    int
	duration   time.Duration
	rollouts   int
	judgeTasks int
	seed       uint64
	metrics    func() metrics.Collector

	tasks  chan *task
	group  errgroup.Group
	calls  atomic.Uint64
	mu     sync.RWMutex
	closed bool
}

func WithWorkers(workers int) Option {
	return func(s *Searcher) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithDuration sets the time budget of every task.
func WithDuration(duration time.Duration) Option {
	return func(s *Searcher) {
		if duration > 0 {
			s.duration = duration
		}
	}
}

// WithRollouts replaces the time budget with a fixed number of rollouts per
// task, which makes results reproducible for a given seed.
func WithRollouts(rollouts int) Option {
	return func(s *Searcher) {
		if rollouts > 0 {
			s.rollouts = rollouts
		}
	}
}

func WithJudgeTasks(tasks int) Option {
	return func(s *Searcher) {
		if tasks > 0 {
			s.judgeTasks = tasks
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(s *Searcher) {
		s.seed = seed
	}
}

func WithMetrics() Option {
	return func(s *Searcher) {
		s.metrics = metrics.NewCollector
	}
}

func New(options ...Option) *Searcher {
	s := &Searcher{ // Default values
		workers:    4,
		duration:   time.Second,
		judgeTasks: 5,
		seed:       game.RandomSeed(),
		metrics:    metrics.NewDummyCollector,
	}
	for _, option := range options {
		option(s)
	}

	s.tasks = make(chan *task)
	for i := 0; i < s.workers; i++ {
		s.group.Go(func() error {
			for t := range s.tasks {
				t.run()
			}
			return nil
		})
	}
	return s
}

// Close stops the workers once queued tasks are done.
func (s *Searcher) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()
	return s.group.Wait()
}

func (s *Searcher) Workers() int {
	return s.workers
}

// Budget is the per task time budget, zero when rollouts are counted instead.
func (s *Searcher) Budget() time.Duration {
	if s.rollouts > 0 {
		return 0
	}
	return s.duration
}

// Evaluation holds one estimate per raw action.
type Evaluation struct {
	WinRates []float64
	Rollouts []int
	Metric   metrics.SearchMetric
}

// Evaluate plays every raw action for player and rates each by how often
// player finishes among the leaders. agents are used for every seat after
// the forced move, including player's own later turns.
func (s *Searcher) Evaluate(ctx context.Context, state *game.State, player int, agents []game.Agent) (Evaluation, error) {
	if len(agents) != state.Players() {
		return Evaluation{}, fmt.Errorf("got %d rollout agents for %d players", len(agents), state.Players())
	}
	if state.Soldiers[player] == 0 {
		return Evaluation{}, fmt.Errorf("player %d has no soldiers to place", player)
	}

	tasks := make([]*task, game.NumActions)
	for action := range tasks {
		tasks[action] = &task{
			state:  state,
			player: player,
			action: action,
			forced: true,
			first:  state.NextPlayer(player),
			agents: agents,
		}
	}

	collector, results, err := s.submit(ctx, tasks)
	if err != nil {
		return Evaluation{}, err
	}

	eval := Evaluation{
		WinRates: winRates(results, player, state.Players()),
		Rollouts: make([]int, game.NumActions),
		Metric:   collector.Complete(),
	}
	for _, r := range results {
		eval.Rollouts[r.index] = r.rollouts
	}
	zerolog.Ctx(ctx).Debug().Msgf("evaluated player %d over %d rollouts in %v",
		player, eval.Metric.Rollouts, eval.Metric.Duration)
	return eval, nil
}

// Judgement is the estimated chance of each player finishing on top.
type Judgement struct {
	WinRates []float64
	Rollouts int
	Metric   metrics.SearchMetric
}

// Judge plays the position out from next without forcing any move.
func (s *Searcher) Judge(ctx context.Context, state *game.State, next int, agents []game.Agent) (Judgement, error) {
	if len(agents) != state.Players() {
		return Judgement{}, fmt.Errorf("got %d rollout agents for %d players", len(agents), state.Players())
	}

	tasks := make([]*task, s.judgeTasks)
	for i := range tasks {
		tasks[i] = &task{
			state:  state,
			first:  next,
			agents: agents,
		}
	}

	collector, results, err := s.submit(ctx, tasks)
	if err != nil {
		return Judgement{}, err
	}

	rates, rollouts := leaderShares(results, state.Players())
	return Judgement{
		WinRates: rates,
		Rollouts: rollouts,
		Metric:   collector.Complete(),
	}, nil
}

// submit hands tasks to the pool and blocks until all of them reported.
func (s *Searcher) submit(ctx context.Context, tasks []*task) (metrics.Collector, []result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, ErrClosed
	}

	call := s.calls.Add(1)
	collector := s.metrics()
	collector.Start(s.workers, len(tasks), s.Budget())

	out := make(chan result, len(tasks))
	for i, t := range tasks {
		t.ctx = ctx
		t.index = i
		t.rng = game.NewRand(taskSeed(s.seed, call, uint64(i)))
		t.duration = s.duration
		t.rollouts = s.rollouts
		t.collector = collector
		t.out = out
		s.tasks <- t
	}

	results := make([]result, 0, len(tasks))
	var errs []error
	for range tasks {
		r := <-out
		if r.err != nil {
			errs = append(errs, r.err)
		}
		results = append(results, r)
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return collector, results, nil
}

// taskSeed mixes the searcher seed with the call and task numbers so every
// task draws from its own stream regardless of which worker runs it.
func taskSeed(seed, call, task uint64) uint64 {
	z := seed + call*0x9e3779b97f4a7c15 + task*0xbf58476d1ce4e5b9
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
