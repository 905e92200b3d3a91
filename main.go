package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"landbid/config"
	"landbid/logger"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, cfg config.Config, args []string) error
}

var commands = []command{
	{"selfplay", "generate training examples by searched self-play", runSelfPlay},
	{"eval", "evaluate a policy against random players", runEval},
	{"match", "play one game between configured seats in the terminal", runMatch},
	{"play", "play against the AI in the terminal", runPlay},
	{"serve", "host a game for remote players over HTTP and websockets", runServe},
	{"agent", "serve the policy agent over HTTP", runAgent},
	{"throughput", "measure search throughput per worker count", runThroughput},
	{"buffer", "summarise the training buffer", runBuffer},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <command> [flags]\n\ncommands:\n", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", c.name, c.usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile, cfg.Dev); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, cfg, os.Args[2:]); err != nil {
			log.Error().Err(err).Msgf("%s failed", name)
			stop()
			os.Exit(1)
		}
		return
	}
	usage()
	os.Exit(2)
}
