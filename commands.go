package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"landbid/buffer"
	"landbid/communication"
	"landbid/communication/console"
	"landbid/communication/redis"
	"landbid/communication/server"
	"landbid/config"
	"landbid/engine"
	"landbid/experiments"
	"landbid/experiments/metrics"
	"landbid/game"
	"landbid/gamemaster"
	"landbid/meta"
	"landbid/model"
	"landbid/player"
	"landbid/searcher"
)

func newSearcher(cfg config.Config) *searcher.Searcher {
	options := []searcher.Option{
		searcher.WithWorkers(cfg.Workers),
		searcher.WithDuration(cfg.SearchBudget),
		searcher.WithJudgeTasks(cfg.JudgeTasks),
		searcher.WithMetrics(),
	}
	if cfg.Rollouts > 0 {
		options = append(options, searcher.WithRollouts(cfg.Rollouts))
	}
	if cfg.Seed != 0 {
		options = append(options, searcher.WithSeed(cfg.Seed))
	}
	return searcher.New(options...)
}

func newRand(cfg config.Config) *rand.Rand {
	if cfg.Seed != 0 {
		return game.NewRand(cfg.Seed)
	}
	return game.NewRand(game.RandomSeed())
}

func newScorer(cfg config.Config, players int) (player.Scorer, error) {
	scorer, err := model.New(cfg.ModelPath, cfg.Inputs(), players)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if cfg.ModelPath != "" {
		log.Info().Msgf("model: %s", cfg.ModelPath)
	}
	return scorer, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

func splitNames(s string, players int, fallback string) []string {
	names := strings.Split(s, ",")
	out := make([]string, players)
	for i := range out {
		if i < len(names) && strings.TrimSpace(names[i]) != "" {
			out[i] = strings.TrimSpace(names[i])
		} else {
			out[i] = fmt.Sprintf("%s %d", fallback, i+1)
		}
	}
	return out
}

func runSelfPlay(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("selfplay", flag.ContinueOnError)
	players := fs.Int("players", cfg.Players, "number of players")
	rounds := fs.Int("rounds", 10, "number of rounds")
	games := fs.Int("games", meta.GAMES_PER_ROUND, "games per round")
	randomSim := fs.Float64("random-sim", meta.RANDOM_SIM, "exploration rate inside rollouts")
	explore := fs.Float64("explore", meta.EXPLORE, "exploration rate of moving agents")
	logEvery := fs.Int("log-every", meta.LOG_EVERY, "rounds between win rate tables")
	summary := fs.Bool("summary", true, "append round summaries under the results directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := buffer.Open(ctx, cfg.BufferDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	scorer, err := newScorer(cfg, *players)
	if err != nil {
		return err
	}
	s := newSearcher(cfg)
	defer s.Close()

	sp := engine.NewSelfPlay(*players, player.NewPolicy(scorer, cfg.Params()), s, store, newRand(cfg))
	sp.GamesPerRound = *games
	sp.RandomSim = *randomSim
	sp.Explore = *explore
	sp.LogEvery = *logEvery
	if *summary {
		w, err := metrics.NewWriter(cfg.ResultsDir)
		if err != nil {
			return err
		}
		sp.Summary = w
	}

	result, err := sp.Run(ctx, *rounds)
	if err != nil {
		return err
	}
	engine.LogTable("Self-play", result)

	n, err := store.Count(ctx, *players)
	if err != nil {
		return err
	}
	log.Info().Msgf("buffer holds %d examples for %d players", n, *players)
	return nil
}

func runEval(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	players := fs.Int("players", cfg.Players, "number of players")
	rounds := fs.Int("rounds", meta.EVAL_ROUNDS, "number of games")
	testID := fs.Int("test-id", 0, "seat of the evaluated agent")
	search := fs.Bool("search", false, "let the evaluated agent search before every move")
	allAgent := fs.Bool("all-agent", false, "seat the policy everywhere")
	dice := fs.Bool("dice", cfg.Dice, "play with dice")
	remote := fs.String("remote", "", "URL of an agent server to evaluate instead of the local policy")
	out := fs.Bool("out", true, "write CSV records under the results directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scorer, err := newScorer(cfg, *players)
	if err != nil {
		return err
	}
	evalCfg := experiments.Config{
		Players:  *players,
		Rounds:   *rounds,
		Dice:     *dice,
		TestID:   *testID,
		AllAgent: *allAgent,
		Scorer:   scorer,
		Params:   cfg.Params(),
		Model:    cfg.ModelPath,
		Seed:     cfg.Seed,
	}
	if evalCfg.Seed == 0 {
		evalCfg.Seed = game.RandomSeed()
	}
	if *remote != "" {
		evalCfg.Agent = engine.NewRemoteAgent(*remote)
	}
	if *search {
		s := newSearcher(cfg)
		defer s.Close()
		evalCfg.Searcher = s
	}
	if *out {
		evalCfg.OutDir = cfg.ResultsDir
	}

	_, err = experiments.RunEvaluation(ctx, evalCfg)
	return err
}

func runMatch(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	seats := fs.String("seats", "policy,random", "comma separated seat kinds: random, policy or human")
	names := fs.String("names", "", "comma separated seat names")
	dice := fs.Bool("dice", cfg.Dice, "play with dice")
	search := fs.Bool("search", false, "let policy seats search before every move")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kinds := strings.Split(*seats, ",")
	scorer, err := newScorer(cfg, len(kinds))
	if err != nil {
		return err
	}
	term := console.New(os.Stdin, os.Stdout)
	seatNames := splitNames(*names, len(kinds), "player")

	agents := make([]game.Agent, len(kinds))
	var policySeats []int
	for i, k := range kinds {
		kind, err := player.ParseKind(strings.TrimSpace(k))
		if err != nil {
			return err
		}
		agents[i], err = player.New(player.Config{
			Kind:   kind,
			Name:   seatNames[i],
			Scorer: scorer,
			Input:  term,
			Params: cfg.Params(),
		})
		if err != nil {
			return err
		}
		if kind == player.KindPolicy {
			policySeats = append(policySeats, i)
		}
	}

	rng := newRand(cfg)
	state := game.NewState(game.NewMap(rng), len(kinds), *dice)
	e := engine.LocalEngine(state, agents, rng)
	if *search && len(policySeats) > 0 {
		s := newSearcher(cfg)
		defer s.Close()
		e.Search(s, policySeats...)
		standIn := player.NewPolicy(scorer, cfg.Params())
		e.Rollouts = func(acting int) []game.Agent {
			return player.Lineup(agents, standIn, acting, cfg.Epsilon)
		}
	}

	result, err := e.Run(ctx)
	if err != nil {
		return err
	}
	engine.LogAwards(result.Awards, seatNames)
	for p, score := range result.Scores {
		log.Info().Msgf("%s scored %.1f", seatNames[p], score)
	}
	return term.Publish(ctx, gamemaster.Update{Board: state.Snapshot(), Names: seatNames, Player: -1, Final: true})
}

type matchSetup struct {
	state      *game.State
	seats      []gamemaster.Seat
	policy     *player.Policy
	searcher   *searcher.Searcher
	rng        *rand.Rand
	publishers []gamemaster.Publisher
	closers    []func() error
}

func (m *matchSetup) close() {
	for _, c := range m.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("failed to close")
		}
	}
}

// frontend both shows the match and answers for its human seats.
type frontend interface {
	gamemaster.Publisher
	communication.Input
}

// newMatch prepares an interactive match whose human seats are answered by
// the frontend.
func newMatch(ctx context.Context, cfg config.Config, fs *flag.FlagSet, args []string, front frontend) (*matchSetup, error) {
	players := fs.Int("players", cfg.Players, "number of players")
	humans := fs.String("humans", "0", "comma separated human seats")
	names := fs.String("names", "", "comma separated seat names")
	dice := fs.Bool("dice", cfg.Dice, "play with dice")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	humanSeats, err := parseInts(*humans)
	if err != nil {
		return nil, err
	}

	scorer, err := newScorer(cfg, *players)
	if err != nil {
		return nil, err
	}
	m := &matchSetup{
		policy:   player.NewPolicy(scorer, cfg.Params()),
		searcher: newSearcher(cfg),
		rng:      newRand(cfg),
	}
	m.closers = append(m.closers, m.searcher.Close)
	m.state = game.NewState(game.NewMap(m.rng), *players, *dice)

	m.publishers = append(m.publishers, front)
	seatNames := splitNames(*names, *players, "player")
	m.seats = make([]gamemaster.Seat, *players)
	for i := range m.seats {
		m.seats[i].Name = seatNames[i]
	}
	for _, h := range humanSeats {
		if h < 0 || h >= *players {
			m.close()
			return nil, fmt.Errorf("human seat %d out of range", h)
		}
		m.seats[h].Input = front
	}

	if cfg.RedisURL != "" {
		store, err := redis.NewStore(ctx, cfg.RedisURL, uuid.NewString())
		if err != nil {
			m.close()
			return nil, err
		}
		log.Info().Msgf("mirroring match %s to redis", store.MatchID())
		m.publishers = append(m.publishers, store)
		m.closers = append(m.closers, store.Close)
	}
	return m, nil
}

func (m *matchSetup) run(ctx context.Context) error {
	c, err := gamemaster.NewController(m.state, m.seats, m.policy, m.searcher, m.rng, m.publishers...)
	if err != nil {
		return err
	}
	_, err = c.Run(ctx)
	return err
}

func runPlay(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	m, err := newMatch(ctx, cfg, fs, args, console.New(os.Stdin, os.Stdout))
	if err != nil {
		return err
	}
	defer m.close()
	return m.run(ctx)
}

func runServe(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	srv := server.New()
	m, err := newMatch(ctx, cfg, fs, args, srv)
	if err != nil {
		return err
	}
	defer m.close()

	httpServer := &http.Server{Addr: cfg.Listen, Handler: srv.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msgf("serving match on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := m.run(ctx); err != nil {
			return err
		}
		log.Info().Msg("game over, serving the final board until interrupted")
		<-ctx.Done()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAgent(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	players := fs.Int("players", cfg.Players, "number of players the model was trained for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	scorer, err := newScorer(cfg, *players)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.Listen, Handler: engine.AgentHandler(player.NewPolicy(scorer, cfg.Params()))}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("serving agent on %s", cfg.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runThroughput(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("throughput", flag.ContinueOnError)
	players := fs.Int("players", cfg.Players, "number of players")
	games := fs.Int("games", 1, "games per worker count")
	workers := fs.String("workers", "1,2,4,8,16", "comma separated worker counts")
	budget := fs.Duration("budget", 10*time.Millisecond, "search budget per task")
	if err := fs.Parse(args); err != nil {
		return err
	}
	counts, err := parseInts(*workers)
	if err != nil {
		return err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = game.RandomSeed()
	}

	_, err = experiments.RunThroughputExperiment(ctx, experiments.ThroughputConfig{
		Players: *players,
		Games:   *games,
		Workers: counts,
		Budget:  *budget,
		OutDir:  cfg.ResultsDir,
		Seed:    seed,
	})
	return err
}

func runBuffer(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("buffer", flag.ContinueOnError)
	defaults := buffer.DefaultFilter(cfg.Players)
	players := fs.Int("players", defaults.Players, "table size, 0 for all")
	minLabel := fs.Float64("min", defaults.Min, "drop examples whose best action is below this")
	maxLabel := fs.Float64("max", defaults.Max, "drop examples whose worst action is above this")
	limit := fs.Int("limit", 0, "load at most this many examples")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := buffer.Open(ctx, cfg.BufferDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := buffer.Filter{Players: *players, Min: *minLabel, Max: *maxLabel, Limit: *limit}
	total, err := store.Count(ctx, *players)
	if err != nil {
		return err
	}
	kept, err := store.Stats(ctx, filter)
	if err != nil {
		return err
	}
	log.Info().Msgf("%d examples stored, %d kept, label mean %.3f, std %.3f", total, kept.Count, kept.Mean, kept.Std)

	examples, err := store.Load(ctx, filter)
	if err != nil {
		return err
	}
	train, test := buffer.Split(examples, meta.TRAIN_SPLIT)
	for _, set := range []struct {
		name     string
		examples []buffer.Example
	}{{"train", train}, {"test", test}} {
		stats := buffer.Summarize(set.examples)
		log.Info().Msgf("%-5s %6d examples, label mean %.3f, std %.3f", set.name, stats.Count, stats.Mean, stats.Std)
	}
	return nil
}
