package player

import (
	"landbid/game"
)

// Lineup returns the agents a search plays its rollouts with. Policies are
// switched to explore mode with the given epsilon, except at the keep seat
// (pass -1 to explore everywhere). Humans cannot be simulated and are
// replaced by an exploring copy of standIn; Random seats play as they are.
func Lineup(seats []game.Agent, standIn *Policy, keep int, epsilon float64) []game.Agent {
	out := make([]game.Agent, len(seats))
	for i, agent := range seats {
		switch a := agent.(type) {
		case *Policy:
			if i == keep {
				out[i] = a
			} else {
				out[i] = a.WithExplore(epsilon)
			}
		case *Human:
			if standIn == nil {
				out[i] = Random{}
			} else {
				out[i] = standIn.WithExplore(epsilon)
			}
		default:
			out[i] = agent
		}
	}
	return out
}

// Explore switches every policy seat to explore mode for real play, as
// self-play does to diversify the episodes it records.
func Explore(seats []game.Agent, epsilon float64) []game.Agent {
	return Lineup(seats, nil, -1, epsilon)
}
