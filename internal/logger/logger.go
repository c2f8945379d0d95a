// Package logger constructs the application's zerolog logger.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger writing human-readable output to stderr. Verbose
// lowers the level to debug, quiet raises it to warn; the two flags are
// mutually exclusive and verbose wins if both are set upstream.
func New(verbose, quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.WarnLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	return NewWriter(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// NewWriter returns a logger at the given level writing to w. Tests use
// this to capture output.
func NewWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}
