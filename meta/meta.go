// meta/meta.go
package meta

import "time"

// GO_ROUTINES defines the number of search workers.
const GO_ROUTINES = 4

// SEARCH_BUDGET defines how long each search task keeps playing rollouts.
const SEARCH_BUDGET = time.Second

// JUDGE_TASKS defines how many tasks estimate the standings after a move.
const JUDGE_TASKS = 5

// GAMES_PER_ROUND defines the number of self-play games between buffer flushes.
const GAMES_PER_ROUND = 3

// RANDOM_SIM defines the exploration rate of agents inside self-play rollouts.
const RANDOM_SIM = 1.0

// EXPLORE defines the exploration rate of agents moving in self-play.
const EXPLORE = 0.5

// LOG_EVERY defines how often self-play logs its win rate table.
const LOG_EVERY = 10

// EVAL_ROUNDS defines the number of games of an evaluation.
const EVAL_ROUNDS = 1000

const TRAIN_SPLIT = 0.8
