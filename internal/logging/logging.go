// Package logging builds the zerolog logger threadstate components share.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a logger writing to w at the given level. format "console"
// selects human-readable output; anything else writes JSON lines.
func New(w io.Writer, level, format string) zerolog.Logger {
	out := w
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", "threadstate").
		Logger().
		Level(ParseLevel(level))
}

// ParseLevel parses a zerolog level name, falling back to info for empty or
// unknown input.
func ParseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
