// Package rngstream provides the single seeded random stream threaded
// through every sampling site in the engine (consensus, propagation,
// mempool, attacks), in that fixed order, so identical seeds produce
// identical runs.
package rngstream

import (
	"math"
	"math/rand"
)

// countingSource wraps a rand.Source and counts every Int63 draw, so a
// checkpoint can record exactly how far into the stream a run has
// progressed. math/rand exposes no serializable generator state, so
// seed + draw count is the whole of the recordable RNG position.
type countingSource struct {
	src rand.Source
	n   uint64
}

func (c *countingSource) Int63() int64 {
	c.n++
	return c.src.Int63()
}
func (c *countingSource) Seed(seed int64) { c.src.Seed(seed) }

// Stream wraps a *rand.Rand so the coordinator owns exactly one seeded
// source; no package-level rand.Seed call happens anywhere in this module.
type Stream struct {
	r    *rand.Rand
	seed int64
	src  *countingSource
}

// New creates a deterministic stream from seed.
func New(seed int64) *Stream {
	src := &countingSource{src: rand.NewSource(seed)}
	return &Stream{r: rand.New(src), seed: seed, src: src}
}

// Resume recreates the stream from seed and fast-forwards it by draws Int63
// calls, reproducing the exact position a checkpointed run left off at.
func Resume(seed int64, draws uint64) *Stream {
	s := New(seed)
	for i := uint64(0); i < draws; i++ {
		s.src.Int63()
	}
	return s
}

// Seed returns the originating seed.
func (s *Stream) Seed() int64 { return s.seed }

// Draws returns the number of primitive Int63 draws consumed so far.
func (s *Stream) Draws() uint64 { return s.src.n }

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (s *Stream) Float64() float64 { return s.r.Float64() }

// Expovariate draws from an exponential distribution with the given rate
// (mean = 1/rate).
func (s *Stream) Expovariate(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	// -ln(U)/rate, U uniform on (0,1)
	u := s.r.Float64()
	for u == 0 {
		u = s.r.Float64()
	}
	return -math.Log(u) / rate
}

// Intn returns a pseudo-random int in [0, n).
func (s *Stream) Intn(n int) int { return s.r.Intn(n) }

// Shuffle permutes a slice of length n in place using swap(i, j).
func (s *Stream) Shuffle(n int, swap func(i, j int)) { s.r.Shuffle(n, swap) }
