package game

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"
)

// State is the dynamic part of an episode. It holds no references besides
// the immutable Map, so Clone is a plain structural copy and clones can be
// driven independently on different goroutines.
type State struct {
	Map       *Map    // Board of this episode
	Rules     Rules   // Tunable numbers
	Dice      bool    // Moves come from dice options rather than the 33 raw actions
	Troops    [][]int // Troops per region per player, [region][player]
	Soldiers  []int   // Soldiers left to place per player
	Rank      []int   // Elimination rank per player, 0 while still placing
	Remaining int     // Players with soldiers left
}

// StepOptions alters how a step is resolved.
type StepOptions struct {
	Force        bool // Place Action directly without consulting the agent
	Action       int  // Raw action used when Force is set
	SearchResult []float64
}

// NewState initializes a fresh episode on the given map with standard rules.
func NewState(m *Map, players int, dice bool) *State {
	return NewStateWithRules(m, players, dice, StandardRules())
}

func NewStateWithRules(m *Map, players int, dice bool, rules Rules) *State {
	if players < 2 {
		panic("need at least two players")
	}
	s := &State{
		Rules:    rules,
		Dice:     dice,
		Troops:   make([][]int, NumRegions),
		Soldiers: make([]int, players),
		Rank:     make([]int, players),
	}
	for r := range s.Troops {
		s.Troops[r] = make([]int, players)
	}
	s.Reset(m)
	return s
}

// Reset starts a new episode on m, keeping the player count and mode.
func (s *State) Reset(m *Map) {
	s.Map = m
	for r := range s.Troops {
		for p := range s.Troops[r] {
			s.Troops[r][p] = 0
		}
	}
	for p := range s.Soldiers {
		s.Soldiers[p] = s.Rules.StartingSoldiers
		s.Rank[p] = 0
	}
	s.Remaining = len(s.Soldiers)
}

func (s *State) Players() int {
	return len(s.Soldiers)
}

// NextPlayer returns the seat after p in turn order.
func (s *State) NextPlayer(p int) int {
	return (p + 1) % s.Players()
}

func (s *State) Clone() *State {
	troops := make([][]int, len(s.Troops))
	for r, row := range s.Troops {
		troops[r] = make([]int, len(row))
		copy(troops[r], row)
	}
	soldiers := make([]int, len(s.Soldiers))
	copy(soldiers, s.Soldiers)
	rank := make([]int, len(s.Rank))
	copy(rank, s.Rank)

	return &State{
		Map:       s.Map, // Map is immutable
		Rules:     s.Rules,
		Dice:      s.Dice,
		Troops:    troops,
		Soldiers:  soldiers,
		Rank:      rank,
		Remaining: s.Remaining,
	}
}

func (s *State) Terminal() bool {
	return s.Remaining == 0
}

// Placed returns how many soldiers a player has on the board.
func (s *State) Placed(player int) int {
	total := 0
	for _, row := range s.Troops {
		total += row[player]
	}
	return total
}

// Step lets player move once. It returns false without error when the player
// has no soldiers left; callers are expected to skip such players.
func (s *State) Step(ctx context.Context, player int, agent Agent, rng *rand.Rand, opts StepOptions) (Placement, bool, error) {
	s.checkPlayer(player)
	if s.Soldiers[player] == 0 {
		return Placement{}, false, nil
	}

	if opts.Force {
		region, troop := SplitAction(opts.Action)
		p := s.Place(player, region, troop)
		p.Forced = true
		return p, true, nil
	}

	if !s.Dice {
		choice, err := agent.Choose(ctx, &Decision{
			Player:       player,
			State:        s,
			SearchResult: opts.SearchResult,
			Rand:         rng,
		})
		if err != nil {
			return Placement{}, false, fmt.Errorf("player %d: %w", player, err)
		}
		region, troop := SplitAction(choice.Index)
		return s.Place(player, region, troop), true, nil
	}

	roll := RollDice(rng)
	options := roll.Options()
	choice, err := agent.Choose(ctx, &Decision{
		Player:       player,
		State:        s,
		Roll:         roll,
		Options:      &options,
		CanReroll:    true,
		SearchResult: opts.SearchResult,
		Rand:         rng,
	})
	if err != nil {
		return Placement{}, false, fmt.Errorf("player %d: %w", player, err)
	}

	rerolled := choice.Reroll
	if rerolled {
		roll = RollDice(rng)
		options = roll.Options()
		choice, err = agent.Choose(ctx, &Decision{
			Player:       player,
			State:        s,
			Roll:         roll,
			Options:      &options,
			SearchResult: opts.SearchResult,
			Rand:         rng,
		})
		if err != nil {
			return Placement{}, false, fmt.Errorf("player %d after reroll: %w", player, err)
		}
	}

	if choice.Index < 0 || choice.Index >= len(options) {
		panic(fmt.Sprintf("option index %d out of range", choice.Index))
	}
	option := options[choice.Index]
	p := s.Place(player, s.Map.ValueToRegion(option.Offset), option.Troop)
	p.Rerolled = rerolled
	return p, true, nil
}

// Place commits min(troop+1, soldiers left) soldiers of player to region and
// records the elimination rank when the player runs out.
func (s *State) Place(player, region, troop int) Placement {
	s.checkPlayer(player)
	if region < 0 || region >= NumRegions {
		panic(fmt.Sprintf("region %d out of range", region))
	}
	if s.Soldiers[player] == 0 {
		panic(fmt.Sprintf("player %d has no soldiers left", player))
	}

	troops := min(troop+1, s.Soldiers[player])
	s.Troops[region][player] += troops
	s.Soldiers[player] -= troops

	if s.Soldiers[player] == 0 {
		s.Rank[player] = s.Remaining
		s.Remaining--
	}

	return Placement{
		Player: player,
		Region: region,
		Value:  s.Map.Regions[region].Value,
		Troops: troops,
	}
}

// PlayOut steps every player in turn, starting at first, until the episode
// is over.
func (s *State) PlayOut(ctx context.Context, first int, agents []Agent, rng *rand.Rand) error {
	if len(agents) != s.Players() {
		panic("number of agents does not match number of players")
	}
	p := first
	for !s.Terminal() {
		if _, _, err := s.Step(ctx, p, agents[p], rng, StepOptions{}); err != nil {
			return err
		}
		p = s.NextPlayer(p)
	}
	return nil
}

func (s *State) checkPlayer(player int) {
	if player < 0 || player >= s.Players() {
		panic(fmt.Sprintf("player %d out of range", player))
	}
}
