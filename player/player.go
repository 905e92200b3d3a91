package player

import (
	"context"
	"fmt"

	"landbid/communication"
	"landbid/game"
)

// Kind names an agent implementation.
type Kind string

const (
	KindRandom Kind = "random"
	KindPolicy Kind = "policy"
	KindHuman  Kind = "human"
)

// Config describes one seat at the table.
type Config struct {
	Kind   Kind
	Name   string
	Scorer Scorer              // used by KindPolicy
	Input  communication.Input // used by KindHuman
	Params Params              // used by KindPolicy
}

// New builds the agent for a seat.
func New(cfg Config) (game.Agent, error) {
	switch cfg.Kind {
	case KindRandom:
		return Random{}, nil
	case KindPolicy:
		if cfg.Scorer == nil {
			return nil, fmt.Errorf("policy player %q: no scorer", cfg.Name)
		}
		return NewPolicy(cfg.Scorer, cfg.Params), nil
	case KindHuman:
		if cfg.Input == nil {
			return nil, fmt.Errorf("human player %q: no input", cfg.Name)
		}
		return &Human{Name: cfg.Name, Input: cfg.Input}, nil
	default:
		return nil, fmt.Errorf("unknown player kind %q", cfg.Kind)
	}
}

// ParseKind validates a kind given on the command line.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRandom, KindPolicy, KindHuman:
		return k, nil
	default:
		return "", fmt.Errorf("unknown player kind %q", s)
	}
}

// Random plays uniformly and never rerolls.
type Random struct{}

func (Random) Choose(_ context.Context, d *game.Decision) (game.Choice, error) {
	if d.Options != nil {
		return game.Choice{Index: d.Rand.Intn(len(d.Options))}, nil
	}
	return game.Choice{Index: d.Rand.Intn(game.NumActions)}, nil
}
