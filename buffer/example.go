package buffer

import (
	"landbid/utils"
)

// Example is one searched decision point: the acting player's view of the
// board, the win rate search found for each raw action and the board graph.
type Example struct {
	Episode string
	Step    int
	Player  int
	Players int
	State   []float32
	Label   []float64
	Graph   []float32
}

// Filter selects examples. Min and Max drop degenerate labels: an example is
// kept when its best action reaches Min and its worst does not exceed Max.
type Filter struct {
	Players int // 0 matches any table size
	Min     float64
	Max     float64
	Limit   int // 0 for no limit
}

// DefaultFilter drops positions already decided either way.
func DefaultFilter(players int) Filter {
	return Filter{Players: players, Min: 0.1, Max: 0.95}
}

// Keep reports whether a label passes the filter bounds.
func (f Filter) Keep(label []float64) bool {
	if len(label) == 0 {
		return false
	}
	lo, hi := labelRange(label)
	return hi >= f.Min && lo <= f.Max
}

func labelRange(label []float64) (lo, hi float64) {
	lo, hi = label[0], label[0]
	for _, v := range label[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Stats summarises every label entry of a set of examples.
type Stats struct {
	Count int
	Mean  float64
	Std   float64
}

func Summarize(examples []Example) Stats {
	values := make([]float64, 0, len(examples)*len(firstLabel(examples)))
	for _, e := range examples {
		values = append(values, e.Label...)
	}
	return Stats{
		Count: len(examples),
		Mean:  utils.Mean(values),
		Std:   utils.Std(values),
	}
}

func firstLabel(examples []Example) []float64 {
	if len(examples) == 0 {
		return nil
	}
	return examples[0].Label
}

// Split keeps the first ratio of examples for training and the rest for
// testing, preserving insertion order.
func Split(examples []Example, ratio float64) (train, test []Example) {
	ratio = min(max(ratio, 0), 1)
	cut := int(float64(len(examples)) * ratio)
	return examples[:cut], examples[cut:]
}
