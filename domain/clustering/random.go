package clustering

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness the engine draws from: uniform indices for
// empty-cluster reseeding and seeding, uniform floats for point generation.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// LockedSource is a Source safe for concurrent use by request handlers.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource returns a PCG backed source. A zero seed seeds from the clock.
func NewSource(seed uint64) *LockedSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &LockedSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// IntN returns a uniform int in [0, n)
func (s *LockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Float64 returns a uniform float in [0, 1)
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
