package engine

import (
	"sync"
	"time"
)

// Clock abstracts wall time so the pacing gate and the decision loop can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Cooldown enforces a minimum spacing between decision cycles that are
// allowed to act. Asking is the act that commits: an allowed query stamps
// the current time, so callers must ask exactly once per cycle and only
// when a yes will be acted on.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	clock    Clock
	last     time.Time
}

// NewCooldown builds a gate with the given minimum spacing. A nil clock
// falls back to the system clock.
func NewCooldown(interval time.Duration, clock Clock) *Cooldown {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cooldown{interval: interval, clock: clock}
}

// CanTrade reports whether the interval has elapsed since the previous
// allowed query. A yes stamps the current time; a no leaves the stamp
// untouched. The first query is always allowed.
func (c *Cooldown) CanTrade() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if !c.last.IsZero() && now.Sub(c.last) < c.interval {
		return false
	}
	c.last = now
	return true
}

// Seed restores the stamp from persisted state so a restart keeps the
// pacing instead of resetting it.
func (c *Cooldown) Seed(last time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = last
}

// Last returns the time of the most recent allowed query, zero if none.
func (c *Cooldown) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
