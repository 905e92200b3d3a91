package game

import (
	"context"

	"golang.org/x/exp/rand"
)

const (
	NumRegions   = 11
	TroopOffsets = 3
	NumActions   = NumRegions * TroopOffsets // raw action = region*3 + troop offset
	MinValue     = 2
	MaxValue     = MinValue + NumRegions - 1
	NumRolls     = 6 * 6 * 6
)

// Agent picks a move for the acting player. Implementations must be safe for
// concurrent use: search workers share the same agents across goroutines.
type Agent interface {
	Choose(ctx context.Context, d *Decision) (Choice, error)
}

// Decision is everything an agent may look at when it is asked to move.
// State must be treated as read-only.
type Decision struct {
	Player    int
	State     *State
	Roll      Roll
	Options   *[3]Option // nil outside dice mode
	CanReroll bool
	// SearchResult holds one win-rate estimate per raw action when the move
	// was searched beforehand, nil otherwise.
	SearchResult []float64
	Rand         *rand.Rand
}

// Choice is an agent's answer: an option index (0..2) in dice mode or a raw
// action index (0..32) otherwise.
type Choice struct {
	Index  int
	Reroll bool
}

// Soldiers is a shortcut for the acting player's remaining soldiers.
func (d *Decision) Soldiers() int {
	return d.State.Soldiers[d.Player]
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc func(ctx context.Context, d *Decision) (Choice, error)

func (f AgentFunc) Choose(ctx context.Context, d *Decision) (Choice, error) {
	return f(ctx, d)
}
