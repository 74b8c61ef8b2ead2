package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source acquisition code paces itself against. Depending
// on the interface rather than package time lets tests substitute a virtual
// clock for the wall clock.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// SleepUntil blocks until Now() >= t or ctx is done. It returns
	// ctx.Err() when the wait was cut short.
	SleepUntil(ctx context.Context, t time.Time) error
}

// Mode describes how a clock advances.
type Mode int

const (
	// RealTime follows the wall clock.
	RealTime Mode = iota
	// Accelerated jumps straight to every requested wake-up time.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "real-time"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// New returns a clock for the given mode. Accelerated clocks start at start.
func New(mode Mode, start time.Time) Clock {
	if mode == Accelerated {
		return NewManualClock(start)
	}
	return WallClock{}
}

// WallClock is a Clock backed by package time. Waits use a timer against the
// monotonic reading, so wall-clock adjustments do not stretch them.
type WallClock struct{}

// Now returns time.Now().
func (WallClock) Now() time.Time { return time.Now() }

// SleepUntil waits on a timer until t.
func (WallClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ManualClock is a virtual Clock. SleepUntil returns immediately after moving
// the clock forward, and tests can Advance or Set it explicitly. A non-zero
// Step is added on every Now call to model time spent between readings.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	sleeps []time.Duration
}

// NewManualClock constructs a virtual clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// SetStep sets the amount Now advances the clock by on every call.
func (c *ManualClock) SetStep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = d
}

// Now returns the current virtual time, then advances it by Step.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// SleepUntil moves the clock to t if t is in the future and records the
// length of the simulated wait.
func (c *ManualClock) SleepUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.sleeps = append(c.sleeps, t.Sub(c.now))
		c.now = t
	}
	return nil
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t, backwards included.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Sleeps returns a copy of every wait SleepUntil simulated, in order.
func (c *ManualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
