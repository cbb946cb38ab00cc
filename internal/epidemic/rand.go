package epidemic

import "math/rand/v2"

// Rand is the source of uniform draws in [0, 1) used for infection trials.
// *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG-backed source seeded with seed. Two sources with the
// same seed produce identical streams.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
