// Package rng wraps a single seeded math/rand stream so every stochastic
// component (arrivals, failure injection, GPU telemetry noise, carbon
// intensity noise) draws from the same reproducible sequence, in the order
// the tick orchestrator calls them — spec §5 requires the RNG is never
// shared across components concurrently, only by the single writer.
package rng

import "math/rand"

// Source is the facility-wide deterministic random stream.
type Source struct {
	r    *rand.Rand
	seed int64
}

// New builds a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed)), seed: seed}
}

// Reset reseeds the stream back to its original seed, used by Simulator.Reset
// to guarantee bit-identical replay.
func (s *Source) Reset() {
	s.r = rand.New(rand.NewSource(s.seed))
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Uniform returns a uniform draw in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Float64()*(hi-lo)
}

// UniformInt returns a uniform integer draw in [lo, hi] inclusive.
func (s *Source) UniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo+1)
}

// Normal returns a standard-normal draw, scaled by sigma and shifted
// by mu.
func (s *Source) Normal(mu, sigma float64) float64 {
	return mu + s.r.NormFloat64()*sigma
}

// Bernoulli returns true with probability p.
func (s *Source) Bernoulli(p float64) bool {
	return s.r.Float64() < p
}

// Intn returns a uniform draw in [0, n).
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n)
}

// WeightedIndex returns a weighted-random index into weights.
func (s *Source) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	draw := s.r.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if draw < cum {
			return i
		}
	}
	return len(weights) - 1
}
