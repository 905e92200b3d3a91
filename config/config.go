package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"landbid/meta"
	"landbid/model"
	"landbid/player"
)

// Config is read from the environment. Command-line flags may override it.
type Config struct {
	Players      int           `env:"LANDBID_PLAYERS"       envDefault:"2"`
	Dice         bool          `env:"LANDBID_DICE"          envDefault:"true"`
	Workers      int           `env:"LANDBID_WORKERS"`
	SearchBudget time.Duration `env:"LANDBID_SEARCH_BUDGET"`
	Rollouts     int           `env:"LANDBID_ROLLOUTS"`
	JudgeTasks   int           `env:"LANDBID_JUDGE_TASKS"`
	Seed         uint64        `env:"LANDBID_SEED"`
	Epsilon      float64       `env:"LANDBID_EPSILON"       envDefault:"0.2"`
	Explore      bool          `env:"LANDBID_EXPLORE"`
	Threshold    float64       `env:"LANDBID_THRESHOLD"     envDefault:"0.8"`

	ModelPath       string `env:"LANDBID_MODEL_PATH"`
	ModelStateInput string `env:"LANDBID_MODEL_STATE_INPUT" envDefault:"state"`
	ModelGraphInput string `env:"LANDBID_MODEL_GRAPH_INPUT" envDefault:"graph"`

	BufferDSN  string `env:"LANDBID_BUFFER_DSN"  envDefault:"buffer.db"`
	RedisURL   string `env:"LANDBID_REDIS_URL"`
	Listen     string `env:"LANDBID_LISTEN"      envDefault:":8080"`
	ResultsDir string `env:"LANDBID_RESULTS_DIR" envDefault:"results"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
	Dev      bool   `env:"DEV"`
}

// Load parses the environment and fills unset search knobs from meta.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = meta.GO_ROUTINES
	}
	if cfg.SearchBudget <= 0 {
		cfg.SearchBudget = meta.SEARCH_BUDGET
	}
	if cfg.JudgeTasks <= 0 {
		cfg.JudgeTasks = meta.JUDGE_TASKS
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Players < 2 {
		return fmt.Errorf("need at least 2 players, got %d", c.Players)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon %v out of range 0..1", c.Epsilon)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range 0..1", c.Threshold)
	}
	return nil
}

func (c Config) Params() player.Params {
	return player.Params{Epsilon: c.Epsilon, Explore: c.Explore, Threshold: c.Threshold}
}

func (c Config) Inputs() model.Inputs {
	return model.Inputs{State: c.ModelStateInput, Graph: c.ModelGraphInput}
}
