package engine

import (
	"math/rand/v2"
	"time"
)

// RandomSource supplies the randomness used to pick cells and tile values.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

// NewRandomSource returns a time-seeded source. It is not safe for concurrent use.
func NewRandomSource() RandomSource {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>32|1))
}

// NewSeededRandomSource returns a deterministic source for replays and tests
func NewSeededRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
