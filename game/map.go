package game

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"

	"landbid/utils"
)

type Region struct {
	ID          int   // Region index on the board
	Value       int   // Points awarded to the region winner, 2..12
	AdjacentIDs []int // IDs of bordering regions
}

// Map is the board topology of one episode. It is immutable once built and
// shared by every clone of a State.
type Map struct {
	Regions   [NumRegions]Region
	Dominates [NumRegions][NumRegions]bool // lower-value region -> adjacent higher-value region
	byOffset  [NumRegions]int             // value-MinValue -> region ID
	byValue   [NumRegions]int             // region IDs in ascending value order
}

// Fixed board borders. Values are shuffled over these regions every episode.
var borders = [][2]int{
	{0, 1}, {0, 7}, {0, 8},
	{1, 7}, {1, 4}, {2, 5},
	{2, 9}, {2, 6}, {2, 10},
	{3, 6}, {4, 5}, {4, 7},
	{4, 9}, {5, 9}, {6, 10}, {9, 10},
}

// NewMap shuffles the region values uniformly.
func NewMap(rng *rand.Rand) *Map {
	var values [NumRegions]int
	for i := range values {
		values[i] = MinValue + i
	}
	rng.Shuffle(NumRegions, func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	m, err := NewMapFromValues(values)
	if err != nil {
		panic(err) // a shuffled range is always a permutation
	}
	return m
}

// NewMapFromValues builds the board with a fixed value per region.
func NewMapFromValues(values [NumRegions]int) (*Map, error) {
	seen := [NumRegions]bool{}
	for id, v := range values {
		if v < MinValue || v > MaxValue {
			return nil, fmt.Errorf("region %d: value %d outside %d..%d", id, v, MinValue, MaxValue)
		}
		if seen[v-MinValue] {
			return nil, fmt.Errorf("region %d: duplicate value %d", id, v)
		}
		seen[v-MinValue] = true
	}

	m := &Map{}
	for id, v := range values {
		m.Regions[id] = Region{ID: id, Value: v, AdjacentIDs: []int{}}
		m.byOffset[v-MinValue] = id
	}
	for _, b := range borders {
		m.AddBorder(b[0], b[1])
	}
	for id := range m.byValue {
		m.byValue[id] = id
	}
	sort.Slice(m.byValue[:], func(i, j int) bool {
		return values[m.byValue[i]] < values[m.byValue[j]]
	})
	return m, nil
}

// AddBorder adds a bidirectional border and the dominance edge it induces.
func (m *Map) AddBorder(id1, id2 int) {
	if !contains(m.Regions[id1].AdjacentIDs, id2) {
		m.Regions[id1].AdjacentIDs = append(m.Regions[id1].AdjacentIDs, id2)
	}
	if !contains(m.Regions[id2].AdjacentIDs, id1) {
		m.Regions[id2].AdjacentIDs = append(m.Regions[id2].AdjacentIDs, id1)
	}
	if m.Regions[id1].Value < m.Regions[id2].Value {
		m.Dominates[id1][id2] = true
	} else {
		m.Dominates[id2][id1] = true
	}
}

func contains(slice []int, item int) bool {
	return utils.FindIndex(slice, item) >= 0
}

// AreAdjacent checks if two regions share a border.
func (m *Map) AreAdjacent(id1, id2 int) bool {
	return contains(m.Regions[id1].AdjacentIDs, id2)
}

// ValueToRegion maps a dice offset (value-2) to the region holding that value.
func (m *Map) ValueToRegion(offset int) int {
	return m.byOffset[offset]
}

// ByValue returns region IDs ordered from lowest to highest value.
func (m *Map) ByValue() [NumRegions]int {
	return m.byValue
}

func (m *Map) Values() [NumRegions]int {
	var values [NumRegions]int
	for id, r := range m.Regions {
		values[id] = r.Value
	}
	return values
}

// SumValues is the most points a single player could collect.
func (m *Map) SumValues() int {
	total := 0
	for _, r := range m.Regions {
		total += r.Value
	}
	return total
}

// Matrix flattens dominance plus identity row-major. This is the graph input
// of the scoring model and the graph stored with every training example.
func (m *Map) Matrix() []float32 {
	out := make([]float32, NumRegions*NumRegions)
	for i := 0; i < NumRegions; i++ {
		out[i*NumRegions+i] = 1
		for j := 0; j < NumRegions; j++ {
			if m.Dominates[i][j] {
				out[i*NumRegions+j] = 1
			}
		}
	}
	return out
}
