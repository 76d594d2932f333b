// Package clock supplies wall-clock timestamps for stored records.
//
// Timestamps are informational only. Record ordering always uses sort ids
// allocated by the store, never these values.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Millis converts t to epoch milliseconds. Times before the epoch map to 0.
func Millis(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// Stepping is a deterministic clock for tests. Each call to Now advances the
// clock by Step, so consecutive records get distinct timestamps.
//
// Safe for concurrent use.
type Stepping struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewStepping creates a stepping clock whose first Now returns start.
func NewStepping(start time.Time, step time.Duration) *Stepping {
	return &Stepping{now: start, Step: step}
}

// Now returns the current time and advances the clock.
func (c *Stepping) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.Step)
	return now
}

// Set moves the clock to t.
func (c *Stepping) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
