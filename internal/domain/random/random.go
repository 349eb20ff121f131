// Package random provides the injectable randomness used by the prediction
// core. Production code uses System; tests use NewSeeded so a fixed seed
// reproduces an exact result.
package random

import (
	"math/rand"
	"sync"
)

// Source is the random stream consumed by the models and the aggregator.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Bool returns a fair coin flip.
	Bool() bool
}

type systemSource struct{}

// System returns a source backed by the auto-seeded global generator.
// It is safe for concurrent use.
func System() Source { return systemSource{} }

func (systemSource) Float64() float64 { return rand.Float64() } //nolint:gosec // not security sensitive
func (systemSource) Bool() bool       { return rand.Intn(2) == 1 } //nolint:gosec // not security sensitive

// Seeded is a deterministic source. Calls are serialized so one instance can
// be shared between goroutines; the stream order then depends on call order.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded creates a deterministic source for the given seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // deterministic seed for reproducible predictions
}

// Float64 returns a uniform value in [0, 1).
func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Bool returns a fair coin flip.
func (s *Seeded) Bool() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(2) == 1
}

// Between returns a uniform value in [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}
