package game

// Rules holds the tunable numbers of the game.
type Rules struct {
	StartingSoldiers int     // Soldiers each player may commit per episode
	RankBonus        float64 // Effective troops per elimination rank, breaks ties
	CascadeBonus     float64 // Effective troops added to a dominated foothold
}

func StandardRules() Rules {
	return Rules{
		StartingSoldiers: 18,
		RankBonus:        0.1,
		CascadeBonus:     2,
	}
}
