package game

import (
	"math"
	"sort"
)

// RegionAward reports how one region was scored.
type RegionAward struct {
	Region    int       `json:"region"`
	Value     int       `json:"value"`
	Winner    int       `json:"winner"`   // -1 when nobody holds a full troop
	RunnerUp  int       `json:"runnerUp"` // -1 when nobody qualifies
	Effective []float64 `json:"effective"`
}

// Score computes every player's points from scratch.
func (s *State) Score() []float64 {
	scores, _ := s.evaluate(false)
	return scores
}

// ScoreDetail also reports the winner of every region, in scoring order.
func (s *State) ScoreDetail() ([]float64, []RegionAward) {
	return s.evaluate(true)
}

// evaluate walks regions from lowest to highest value. The winner of a region
// takes its value and reinforces its footholds in the regions it dominates,
// which can swing the ranking of those regions when they are scored later.
// The runner-up takes half the value, rounded down.
func (s *State) evaluate(detail bool) ([]float64, []RegionAward) {
	players := s.Players()

	effective := make([][]float64, NumRegions)
	for r := range effective {
		effective[r] = make([]float64, players)
		for p := 0; p < players; p++ {
			effective[r][p] = float64(s.Troops[r][p]) + s.Rules.RankBonus*float64(s.Rank[p])
		}
	}

	scores := make([]float64, players)
	var awards []RegionAward
	if detail {
		awards = make([]RegionAward, 0, NumRegions)
	}

	ranking := make([]int, players)
	for _, region := range s.Map.ByValue() {
		row := effective[region]
		value := s.Map.Regions[region].Value
		rankPlayers(row, ranking)

		award := RegionAward{Region: region, Value: value, Winner: -1, RunnerUp: -1}
		if detail {
			award.Effective = append([]float64(nil), row...)
		}

		first := ranking[0]
		if row[first] >= 1 {
			scores[first] += float64(value)
			award.Winner = first
			for other := 0; other < NumRegions; other++ {
				if s.Map.Dominates[region][other] && effective[other][first] >= 1 {
					effective[other][first] += s.Rules.CascadeBonus
				}
			}
		}

		second := ranking[1]
		if row[second] >= 1 {
			scores[second] += math.Floor(float64(value) / 2)
			award.RunnerUp = second
		}

		if detail {
			awards = append(awards, award)
		}
	}

	return scores, awards
}

// rankPlayers orders player IDs by effective troops descending, lower ID first
// on ties, so scoring is deterministic.
func rankPlayers(row []float64, ranking []int) {
	for p := range ranking {
		ranking[p] = p
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return row[ranking[i]] > row[ranking[j]]
	})
}

// Leaders returns every player sharing the top score.
func Leaders(scores []float64) []int {
	best := math.Inf(-1)
	for _, s := range scores {
		best = max(best, s)
	}
	leaders := []int{}
	for p, s := range scores {
		if s == best {
			leaders = append(leaders, p)
		}
	}
	return leaders
}

// IsLeader reports whether player holds the top score, ties included.
func IsLeader(scores []float64, player int) bool {
	for _, p := range Leaders(scores) {
		if p == player {
			return true
		}
	}
	return false
}
