package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Workers    int
	Tasks      int
	Budget     time.Duration // Per task time budget, 0 for fixed rollout counts
	Duration   time.Duration
	Rollouts   int
	Placements int // Simulated steps across all rollouts
}

type MoveMetric struct {
	Step     int
	Player   int // Player ID
	Region   int
	Troops   int
	Rerolled bool
	SearchMetric
}

type GameMetric struct {
	StartingPlayer int // Player ID
	Winners        []int
	Scores         []float64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(workers, tasks int, budget time.Duration)
	AddRollout()
	AddPlacements(n int)
	Complete() SearchMetric
}

type collector struct {
	workers    int
	tasks      int
	budget     time.Duration
	startTime  time.Time
	rollouts   atomic.Int64
	placements atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(workers, tasks int, budget time.Duration) {
	m.startTime = time.Now()
	m.workers = workers
	m.tasks = tasks
	m.budget = budget
}

func (m *collector) AddRollout() {
	m.rollouts.Add(1)
}

func (m *collector) AddPlacements(n int) {
	m.placements.Add(int64(n))
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Workers:    m.workers,
		Tasks:      m.tasks,
		Budget:     m.budget,
		Duration:   time.Since(m.startTime),
		Rollouts:   int(m.rollouts.Load()),
		Placements: int(m.placements.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(workers, tasks int, budget time.Duration) {}
func (m *dummyCollector) AddRollout()                                    {}
func (m *dummyCollector) AddPlacements(n int)                            {}
func (m *dummyCollector) Complete() SearchMetric                         { return SearchMetric{} }
