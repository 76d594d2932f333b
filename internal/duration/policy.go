// Package duration defines the disappearing-message duration policy: the
// fixed table of durations a user may pick from, the maximum any stored
// configuration may hold, and labels for display.
package duration

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Well-known interval lengths in seconds.
const (
	Minute uint32 = 60
	Hour          = 60 * Minute
	Day           = 24 * Hour
	Week          = 7 * Day
)

// DefaultDurationSeconds is the duration a configuration carries before the
// user ever configures the thread.
const DefaultDurationSeconds = Day

var validDurations = []uint32{
	5,
	10,
	30,
	Minute,
	5 * Minute,
	30 * Minute,
	Hour,
	6 * Hour,
	12 * Hour,
	Day,
	Week,
}

// ValidDurationsSeconds returns the ascending table of selectable durations.
// The returned slice is a copy; callers may modify it.
func ValidDurationsSeconds() []uint32 {
	out := make([]uint32, len(validDurations))
	copy(out, validDurations)
	return out
}

// MaxDurationSeconds returns the largest duration that is ever persisted.
func MaxDurationSeconds() uint32 {
	return validDurations[len(validDurations)-1]
}

// Clamp limits seconds to MaxDurationSeconds. The second result reports
// whether the value was clamped. Out-of-range values from other clients are
// accepted this way rather than rejected.
func Clamp(seconds uint32) (uint32, bool) {
	if limit := MaxDurationSeconds(); seconds > limit {
		return limit, true
	}
	return seconds, false
}

// Index returns the table position of seconds. Values missing from the table
// map to the largest entry not exceeding them, and values below the table
// map to 0.
func Index(seconds uint32) int {
	i := sort.Search(len(validDurations), func(i int) bool { return validDurations[i] > seconds })
	if i == 0 {
		return 0
	}
	return i - 1
}

type unit struct {
	seconds  uint32
	singular string
	plural   string
}

var units = []unit{
	{Week, "week", "weeks"},
	{Day, "day", "days"},
	{Hour, "hour", "hours"},
	{Minute, "minute", "minutes"},
	{1, "second", "seconds"},
}

var printer = message.NewPrinter(language.English)

// String returns an English label such as "5 minutes" or "1 week". The
// largest unit that divides seconds evenly is used, so off-table values
// like 90 render as "90 seconds".
func String(seconds uint32) string {
	for _, u := range units {
		if seconds == 0 || seconds%u.seconds != 0 {
			continue
		}
		n := seconds / u.seconds
		if n == 1 {
			return printer.Sprintf("%d %s", n, u.singular)
		}
		return printer.Sprintf("%d %s", n, u.plural)
	}
	return "0 seconds"
}
