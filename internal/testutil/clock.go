package testutil

import (
	"time"

	"github.com/roach88/threadstate/internal/clock"
)

// Epoch is the first instant returned by clocks from NewClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// EpochMillis is Epoch in epoch milliseconds.
var EpochMillis = clock.Millis(Epoch)

// NewClock returns a deterministic clock starting at Epoch that advances one
// millisecond per call.
//
// The same test with a fresh clock produces identical timestamps, which keeps
// golden output stable.
func NewClock() *clock.Stepping {
	return clock.NewStepping(Epoch, time.Millisecond)
}
