package game

import (
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"
)

var seedCounter atomic.Uint64

// NewRand returns a deterministic source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// RandomSeed derives a fresh seed from the clock. Successive calls never
// return the same value within a process.
func RandomSeed() uint64 {
	return uint64(time.Now().UnixNano()) + seedCounter.Add(0x9e3779b97f4a7c15)
}
