// Package logger builds the zerolog loggers used by the CLI and pipeline.
package logger

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to out at level. format is "console" or
// "json"; an empty format means console.
func New(out io.Writer, level, format string) (zerolog.Logger, error) {
	var w io.Writer
	switch format {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case FormatJSON:
		w = out
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	return NewWithWriter(w).Level(lvl), nil
}

// NewWithWriter returns a JSON logger writing to w.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parsing log level: %w", err)
	}
	return lvl, nil
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}
