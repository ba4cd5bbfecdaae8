package rng

import "math/rand/v2"

// Source is the run-wide uniform random bit generator.
// It is not safe for concurrent use; callers serialize access.
type Source struct {
	r    *rand.Rand
	seed uint64
}

// New returns a PCG-backed Source. A zero seed draws a random one,
// which Seed reports so the run can be replayed.
func New(seed uint64) *Source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Source{
		r:    rand.New(rand.NewPCG(seed, seed)),
		seed: seed,
	}
}

// Seed returns the seed the Source was created with.
func (s *Source) Seed() uint64 { return s.seed }

// IntN returns a uniform integer in [0, n). It panics if n <= 0.
func (s *Source) IntN(n int) int { return s.r.IntN(n) }

// Float64 returns a uniform float in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Uint32 returns 32 uniformly distributed bits.
func (s *Source) Uint32() uint32 { return s.r.Uint32() }
