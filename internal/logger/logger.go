// Package logger builds the zerolog loggers used by the commands and workers.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable console logger writing to w at level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewStderr is New on os.Stderr, so log lines never mix with the report on stdout.
func NewStderr(level zerolog.Level) zerolog.Logger {
	return New(os.Stderr, level)
}

// ParseLevel accepts zerolog level names ("debug", "info", "warn", ...).
func ParseLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	if level == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return level, nil
}
