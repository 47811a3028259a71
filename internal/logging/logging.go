// Package logging constructs the process logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger writing to stderr at the given level. If
// pretty is true, output is formatted for human readability. An unknown
// level falls back to info.
func New(level string, pretty bool) zerolog.Logger {
	var l zerolog.Logger
	if pretty {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	return l.Level(zLevel)
}
