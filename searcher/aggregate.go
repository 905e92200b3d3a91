package searcher

import "landbid/game"

// winRates is the share of rollouts in which player led, per task. Tasks
// without rollouts get the neutral prior 1/players.
func winRates(results []result, player, players int) []float64 {
	rates := make([]float64, len(results))
	for _, r := range results {
		if r.rollouts == 0 {
			rates[r.index] = 1 / float64(players)
			continue
		}
		wins := 0
		for _, scores := range r.scores {
			if game.IsLeader(scores, player) {
				wins++
			}
		}
		rates[r.index] = float64(wins) / float64(r.rollouts)
	}
	return rates
}

// leaderShares pools every rollout of every task and counts how often each
// player led. Shared leads are split evenly so the shares sum to one.
func leaderShares(results []result, players int) ([]float64, int) {
	shares := make([]float64, players)
	total := 0
	for _, r := range results {
		for _, scores := range r.scores {
			leaders := game.Leaders(scores)
			for _, p := range leaders {
				shares[p] += 1 / float64(len(leaders))
			}
			total++
		}
	}
	if total == 0 {
		for p := range shares {
			shares[p] = 1 / float64(players)
		}
		return shares, 0
	}
	for p := range shares {
		shares[p] /= float64(total)
	}
	return shares, total
}
