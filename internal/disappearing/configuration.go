package disappearing

import (
	"github.com/roach88/threadstate/internal/duration"
	"github.com/roach88/threadstate/internal/thread"
)

// Configuration is a thread's disappearing-message setting.
type Configuration struct {
	uniqueID        string
	enabled         bool
	durationSeconds uint32

	// wasClamped records that the duration supplied to the copy that produced
	// this value exceeded the policy maximum. Not part of equality.
	wasClamped bool
}

// BuildDefault returns the configuration a never-configured thread has:
// disabled, with the default duration. The result is not persisted.
func BuildDefault(t thread.Thread) Configuration {
	return buildDefault(t.UniqueID())
}

func buildDefault(threadID string) Configuration {
	return Configuration{
		uniqueID:        threadID,
		enabled:         false,
		durationSeconds: duration.DefaultDurationSeconds,
	}
}

// load rebuilds a configuration verbatim from a stored row.
func load(threadID string, enabled bool, durationSeconds uint32) Configuration {
	return Configuration{
		uniqueID:        threadID,
		enabled:         enabled,
		durationSeconds: durationSeconds,
	}
}

// UniqueID returns the owning thread's unique id.
func (c Configuration) UniqueID() string { return c.uniqueID }

// IsEnabled reports whether messages in the thread expire.
func (c Configuration) IsEnabled() bool { return c.enabled }

// DurationSeconds returns the expiration interval. Meaningful only when
// IsEnabled is true.
func (c Configuration) DurationSeconds() uint32 { return c.durationSeconds }

// DurationIndex returns the position of the duration in the policy table.
func (c Configuration) DurationIndex() int { return duration.Index(c.durationSeconds) }

// DurationString returns a human-readable label for the duration.
func (c Configuration) DurationString() string { return duration.String(c.durationSeconds) }

// WasClamped reports whether the duration passed to the copy that produced c
// was above the policy maximum and clamped.
func (c Configuration) WasClamped() bool { return c.wasClamped }

// CopyWithIsEnabled returns a copy with enabled set. The duration is kept.
func (c Configuration) CopyWithIsEnabled(enabled bool) Configuration {
	next := c
	next.enabled = enabled
	next.wasClamped = false
	return next
}

// CopyWithDurationSeconds returns a copy with the duration set, clamped to the
// policy maximum. enabled is kept.
func (c Configuration) CopyWithDurationSeconds(seconds uint32) Configuration {
	next := c
	next.durationSeconds, next.wasClamped = duration.Clamp(seconds)
	return next
}

// CopyAsEnabledWithDurationSeconds returns an enabled copy with the duration
// set, clamped to the policy maximum.
func (c Configuration) CopyAsEnabledWithDurationSeconds(seconds uint32) Configuration {
	next := c
	next.enabled = true
	next.durationSeconds, next.wasClamped = duration.Clamp(seconds)
	return next
}

// Equal reports whether c and other describe the same thread with the same
// enabled flag and duration.
func (c Configuration) Equal(other Configuration) bool {
	return c.uniqueID == other.uniqueID && c.sameSettings(other)
}

func (c Configuration) sameSettings(other Configuration) bool {
	return c.enabled == other.enabled && c.durationSeconds == other.durationSeconds
}
