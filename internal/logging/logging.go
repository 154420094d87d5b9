// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr: info level, or debug when verbose.
// console switches to human-readable output.
func New(verbose, console bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, verbose, console)
}

func NewWithWriter(w io.Writer, verbose, console bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}
