// Package logging builds the structured JSON loggers used across the
// pipelines.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger tagged with a component name. Level comes from
// HYPERREPLAY_LOG_LEVEL (default info).
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stderr).
		Level(parseLevel(os.Getenv("HYPERREPLAY_LOG_LEVEL"))).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
