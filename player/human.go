package player

import (
	"context"

	"github.com/rs/zerolog/log"

	"landbid/communication"
	"landbid/game"
)

// Human relays decisions to a person through an Input and asks again until
// the reply is valid.
type Human struct {
	Name  string
	Input communication.Input
}

func (h *Human) Choose(ctx context.Context, d *game.Decision) (game.Choice, error) {
	prompt := communication.NewPrompt(d, h.Name)
	for {
		reply, err := h.Input.Choose(ctx, prompt)
		if err != nil {
			return game.Choice{}, err
		}
		if err := reply.Validate(prompt); err != nil {
			log.Warn().Msgf("%s: %v, asking again", h.Name, err)
			continue
		}

		if prompt.Dice {
			return game.Choice{Index: reply.Index, Reroll: reply.Reroll}, nil
		}
		region := d.State.Map.ValueToRegion(reply.Value - game.MinValue)
		return game.Choice{Index: game.ActionIndex(region, reply.Troops-1)}, nil
	}
}
