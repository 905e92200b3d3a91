package game

import "fmt"

// Snapshot is the board as shown to front ends and persisted between turns.
type Snapshot struct {
	Values    []int     `json:"values"`
	Troops    [][]int   `json:"troops"`
	Soldiers  []int     `json:"soldiers"`
	Rank      []int     `json:"rank"`
	Score     []float64 `json:"score"`
	Remaining int       `json:"remaining"`
	Dice      bool      `json:"dice"`
}

// Snapshot copies the state into its serialisable form.
func (s *State) Snapshot() Snapshot {
	c := s.Clone()
	values := s.Map.Values()
	return Snapshot{
		Values:    values[:],
		Troops:    c.Troops,
		Soldiers:  c.Soldiers,
		Rank:      c.Rank,
		Score:     s.Score(),
		Remaining: s.Remaining,
		Dice:      s.Dice,
	}
}

// Restore rebuilds a state from a snapshot, validating the board.
func Restore(snap Snapshot) (*State, error) {
	if len(snap.Values) != NumRegions {
		return nil, fmt.Errorf("snapshot has %d region values, want %d", len(snap.Values), NumRegions)
	}
	if len(snap.Troops) != NumRegions {
		return nil, fmt.Errorf("snapshot has %d troop rows, want %d", len(snap.Troops), NumRegions)
	}
	players := len(snap.Soldiers)
	if players < 2 || len(snap.Rank) != players {
		return nil, fmt.Errorf("snapshot has inconsistent player count")
	}

	var values [NumRegions]int
	copy(values[:], snap.Values)
	m, err := NewMapFromValues(values)
	if err != nil {
		return nil, fmt.Errorf("restore map: %w", err)
	}

	s := NewState(m, players, snap.Dice)
	for r, row := range snap.Troops {
		if len(row) != players {
			return nil, fmt.Errorf("troop row %d has %d players, want %d", r, len(row), players)
		}
		copy(s.Troops[r], row)
	}
	copy(s.Soldiers, snap.Soldiers)
	copy(s.Rank, snap.Rank)
	s.Remaining = snap.Remaining
	return s, nil
}
