// Package validator judges whether a captured attempt satisfies a liveness
// task.
//
// The only implementation here is a randomized stand-in: it ignores the
// captured frame and the task, waits a random delay and passes with a fixed
// probability. Real liveness detection plugs in behind the same interface.
package validator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Validator decides asynchronously whether the applicant performed taskID.
// An error means no decision was reached; callers treat it as a failed attempt.
type Validator interface {
	Validate(ctx context.Context, taskID string) (bool, error)
}

// Func adapts a plain function to the Validator interface.
type Func func(ctx context.Context, taskID string) (bool, error)

// Validate calls f.
func (f Func) Validate(ctx context.Context, taskID string) (bool, error) {
	return f(ctx, taskID)
}

// Defaults for the randomized stand-in.
const (
	DefaultSuccessRate = 0.9
	DefaultMinDelay    = 1000 * time.Millisecond
	DefaultMaxDelay    = 2000 * time.Millisecond
)

// Config controls the randomized stand-in.
type Config struct {
	SuccessRate float64       // Probability of a pass, in [0, 1]
	MinDelay    time.Duration // Lower bound of the simulated processing time
	MaxDelay    time.Duration // Upper bound of the simulated processing time
}

// DefaultConfig returns the stand-in's default behaviour.
func DefaultConfig() Config {
	return Config{
		SuccessRate: DefaultSuccessRate,
		MinDelay:    DefaultMinDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Validate checks the config values.
func (c Config) Validate() error {
	if c.SuccessRate < 0 || c.SuccessRate > 1 {
		return fmt.Errorf("success_rate must be within [0, 1], got %v", c.SuccessRate)
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min_delay must be >= 0, got %v", c.MinDelay)
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max_delay (%v) must be >= min_delay (%v)", c.MaxDelay, c.MinDelay)
	}
	return nil
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Random is the content-independent stand-in validator.
type Random struct {
	cfg  Config
	wait WaitFunc

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates the stand-in. A nil rng uses a randomly seeded source.
func NewRandom(cfg Config, rng *rand.Rand) (*Random, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{cfg: cfg, wait: sleep, rng: rng}, nil
}

// WithWait replaces the delay function, letting tests skip real sleeps.
func (r *Random) WithWait(wait WaitFunc) *Random {
	r.wait = wait
	return r
}

// Validate waits a uniformly random delay in [MinDelay, MaxDelay] and then
// passes with probability SuccessRate. taskID does not influence the outcome.
func (r *Random) Validate(ctx context.Context, taskID string) (bool, error) {
	delay, pass := r.draw()
	if err := r.wait(ctx, delay); err != nil {
		return false, fmt.Errorf("validate %s: %w", taskID, err)
	}
	return pass, nil
}

func (r *Random) draw() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delay := r.cfg.MinDelay
	if span := r.cfg.MaxDelay - r.cfg.MinDelay; span > 0 {
		delay += time.Duration(r.rng.Int64N(int64(span) + 1))
	}
	return delay, r.rng.Float64() < r.cfg.SuccessRate
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
