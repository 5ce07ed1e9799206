// Package sampler draws the random subset of liveness tasks for a session.
package sampler

import (
	"math/rand/v2"
	"sync"

	"github.com/harrison/verifier/internal/models"
)

// Sampler selects n distinct tasks from a catalog using a uniform random
// permutation. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Sampler backed by rng. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{rng: rng}
}

// NewSeeded creates a deterministic Sampler, mainly for tests and --seed.
func NewSeeded(seed uint64) *Sampler {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Sample returns min(n, len(catalog)) distinct tasks in random order.
// A negative n is treated as zero. An empty result is not an error here;
// the caller decides whether it is a load failure.
func (s *Sampler) Sample(catalog []models.Task, n int) models.TaskSequence {
	if n <= 0 || len(catalog) == 0 {
		return models.TaskSequence{}
	}
	if n > len(catalog) {
		n = len(catalog)
	}

	shuffled := make([]models.Task, len(catalog))
	copy(shuffled, catalog)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	return models.TaskSequence(shuffled[:n:n])
}
