// Package obs wires up linastore's process-wide structured logger.
package obs

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console-friendly zerolog.Logger with the given component
// name pre-bound, so every log line it emits is attributable at a glance.
func New(component string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
