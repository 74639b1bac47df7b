// Package clock supplies the current time to the enrollment and schedule services.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock and reports it in Loc.
type System struct {
	Loc *time.Location
}

// New returns a system clock reporting times in loc.
func New(loc *time.Location) System {
	if loc == nil {
		loc = time.UTC
	}
	return System{Loc: loc}
}

func (c System) Now() time.Time {
	return time.Now().In(c.Loc)
}

// Fixed is a settable clock for tests and one-off tooling.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at now.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now.
func (c *Fixed) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
