package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"landbid/communication"
	"landbid/game"
	"landbid/gamemaster"
)

var palette = []string{"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6", "#e67e22"}

// Console reads human choices from a line-based reader and renders updates
// with terminal colours.
type Console struct {
	out   *termenv.Output
	lines chan string
	mu    sync.Mutex
	names []string
}

// New starts reading lines from in. Output is coloured according to what
// out supports.
func New(in io.Reader, out io.Writer, opts ...termenv.OutputOption) *Console {
	c := &Console{
		out:   termenv.NewOutput(out, opts...),
		lines: make(chan string),
	}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()
	return c
}

func (c *Console) color(player int) termenv.Color {
	return c.out.Color(palette[player%len(palette)])
}

func (c *Console) name(player int, fallback string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if player >= 0 && player < len(c.names) {
		return c.names[player]
	}
	return fallback
}

func (c *Console) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Choose asks until a parsable answer arrives.
func (c *Console) Choose(ctx context.Context, p communication.Prompt) (communication.Reply, error) {
	name := c.out.String(c.name(p.Player, p.Name)).Foreground(c.color(p.Player)).Bold()
	for {
		if p.Dice {
			c.printf("%s rolled %d %d %d, %d soldiers left\n", name, p.Roll[0]+1, p.Roll[1]+1, p.Roll[2]+1, p.Soldiers)
			for i, o := range p.Options {
				c.printf("  [%d] region %d with %d troops\n", i, o.Value(), o.Troops())
			}
			if p.CanReroll {
				c.printf("  [r] reroll\n")
			}
		} else {
			c.printf("%s, %d soldiers left. Enter region value (%d-%d) and troops (1-%d):\n",
				name, p.Soldiers, game.MinValue, game.MaxValue, game.TroopOffsets)
		}
		c.printf("> ")

		var line string
		select {
		case l, ok := <-c.lines:
			if !ok {
				return communication.Reply{}, communication.ErrClosed
			}
			line = l
		case <-ctx.Done():
			return communication.Reply{}, ctx.Err()
		}

		reply, err := Parse(line, p.Dice)
		if err == nil {
			err = reply.Validate(p)
		}
		if err != nil {
			c.printf("%s\n", c.out.String(err.Error()).Foreground(c.out.Color("#e74c3c")))
			continue
		}
		return reply, nil
	}
}

// Parse reads "0", "1", "2" or "r" in dice games and "<value> <troops>"
// otherwise.
func Parse(line string, dice bool) (communication.Reply, error) {
	fields := strings.Fields(strings.ToLower(line))
	if dice {
		if len(fields) != 1 {
			return communication.Reply{}, fmt.Errorf("expected an option or r, got %q", line)
		}
		if fields[0] == "r" {
			return communication.Reply{Reroll: true}, nil
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return communication.Reply{}, fmt.Errorf("expected an option or r, got %q", line)
		}
		return communication.Reply{Index: i}, nil
	}

	if len(fields) != 2 {
		return communication.Reply{}, fmt.Errorf("expected a value and a troop count, got %q", line)
	}
	value, err := strconv.Atoi(fields[0])
	if err != nil {
		return communication.Reply{}, fmt.Errorf("bad value %q", fields[0])
	}
	troops, err := strconv.Atoi(fields[1])
	if err != nil {
		return communication.Reply{}, fmt.Errorf("bad troop count %q", fields[1])
	}
	return communication.Reply{Value: value, Troops: troops}, nil
}

// Publish renders the board.
func (c *Console) Publish(_ context.Context, u gamemaster.Update) error {
	c.mu.Lock()
	c.names = u.Names
	c.mu.Unlock()

	if u.LastMove != nil {
		m := u.LastMove
		c.printf("%s placed %d on region %d\n",
			c.out.String(c.name(m.Player, "?")).Foreground(c.color(m.Player)), m.Troops, m.Value)
	}

	c.printf("%s\n", c.out.String("Region  Troops").Underline())
	order := make([]int, game.NumRegions)
	for r, v := range u.Board.Values {
		if off := v - game.MinValue; off >= 0 && off < len(order) {
			order[off] = r
		}
	}
	for _, r := range order {
		c.printf("%6d  ", u.Board.Values[r])
		for p, n := range u.Board.Troops[r] {
			cell := c.out.String(fmt.Sprintf("%3d", n)).Foreground(c.color(p))
			if r < len(u.Owners) && u.Owners[r] == p {
				cell = cell.Bold()
			}
			c.printf("%s", cell)
		}
		c.printf("\n")
	}

	for p, score := range u.Board.Score {
		line := fmt.Sprintf("%s: %.1f points, %d soldiers", c.name(p, strconv.Itoa(p)), score, u.Board.Soldiers[p])
		if p < len(u.WinRates) {
			line += fmt.Sprintf(", %.0f%% to win", 100*u.WinRates[p])
		}
		c.printf("%s\n", c.out.String(line).Foreground(c.color(p)))
	}
	if u.Rollouts > 0 {
		c.printf("(%d rollouts)\n", u.Rollouts)
	}
	if u.Final {
		c.printf("%s\n", c.out.String("Game over").Bold())
	}
	return nil
}
