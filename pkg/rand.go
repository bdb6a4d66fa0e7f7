package scuttlebutt

import (
	"math/rand"
	"time"
)

// RandSource abstracts the randomness used for gossip partner selection
// so tests can inject a fixed-seed source and get reproducible rounds.
type RandSource interface {
	// Intn returns a non-negative integer in [0, n).
	Intn(n int) int
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
}

// NewRandSource returns a process-seeded RandSource suitable for
// production use.
func NewRandSource() RandSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
