package player

import (
	"math"
	"sort"

	"landbid/game"
)

// minCutoff keeps near-hopeless positions from rerolling every roll.
const minCutoff = 0.1

var allRolls = game.AllRolls()

// RerollCutoff is the quality a roll must reach to be kept. Every possible
// roll is rated by its best option under scores; the cutoff is the rating at
// the threshold quantile, but never below minCutoff.
func RerollCutoff(scores []float64, soldiers int, m *game.Map, threshold float64) float64 {
	best := make([]float64, 0, len(allRolls))
	for _, roll := range allRolls {
		b := math.Inf(-1)
		for _, o := range roll.Options() {
			b = max(b, scores[m.OptionAction(o, soldiers)])
		}
		best = append(best, b)
	}
	sort.Float64s(best)

	i := int(float64(len(best)) * threshold)
	i = min(max(i, 0), len(best)-1)
	return max(best[i], minCutoff)
}
