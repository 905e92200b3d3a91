package communication

import (
	"context"
	"errors"
	"fmt"

	"landbid/game"
)

// ErrClosed is returned by an Input once its front end has gone away.
var ErrClosed = errors.New("input closed")

// Input abstracts where a human player's choices come from.
type Input interface {
	Choose(ctx context.Context, p Prompt) (Reply, error)
}

// Prompt describes the decision a human is asked to make.
type Prompt struct {
	Player    int           `json:"player"`
	Name      string        `json:"name"`
	Dice      bool          `json:"dice"`
	Roll      game.Roll     `json:"roll"`
	Options   []game.Option `json:"options,omitempty"`
	CanReroll bool          `json:"canReroll"`
	Soldiers  int           `json:"soldiers"`
	Board     game.Snapshot `json:"board"`
}

// Reply is a human choice. Dice games use Index or Reroll, raw games use
// Value (2..12) and Troops (1..3).
type Reply struct {
	Index  int  `json:"index"`
	Reroll bool `json:"reroll,omitempty"`
	Value  int  `json:"value,omitempty"`
	Troops int  `json:"troops,omitempty"`
}

// NewPrompt builds the prompt for a decision.
func NewPrompt(d *game.Decision, name string) Prompt {
	p := Prompt{
		Player:    d.Player,
		Name:      name,
		Dice:      d.Options != nil,
		Roll:      d.Roll,
		CanReroll: d.CanReroll,
		Soldiers:  d.Soldiers(),
		Board:     d.State.Snapshot(),
	}
	if d.Options != nil {
		p.Options = d.Options[:]
	}
	return p
}

// Validate reports why a reply does not answer the prompt.
func (r Reply) Validate(p Prompt) error {
	if p.Dice {
		if r.Reroll {
			if !p.CanReroll {
				return errors.New("reroll already used")
			}
			return nil
		}
		if r.Index < 0 || r.Index >= len(p.Options) {
			return fmt.Errorf("option %d out of range 0..%d", r.Index, len(p.Options)-1)
		}
		return nil
	}
	if r.Reroll {
		return errors.New("no dice to reroll")
	}
	if r.Value < game.MinValue || r.Value > game.MaxValue {
		return fmt.Errorf("value %d out of range %d..%d", r.Value, game.MinValue, game.MaxValue)
	}
	if r.Troops < 1 || r.Troops > game.TroopOffsets {
		return fmt.Errorf("troops %d out of range 1..%d", r.Troops, game.TroopOffsets)
	}
	return nil
}
