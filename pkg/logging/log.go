// Package logging carries the zerolog logger through contexts and renders its events as
// the short, colored console lines build scripts print.
package logging

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logKey struct{}

// Log returns the logger attached to ctx or the global zerolog logger if there is none
func Log(ctx context.Context) *zerolog.Logger {
	logger := ctx.Value(logKey{})
	if logger == nil {
		return &log.Logger
	}

	return logger.(*zerolog.Logger)
}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// Echo levels understood by ParseLevel. "trace" enables per-call tracing, "all" adds the
// details of each call on top of that.
var levels = map[string]zerolog.Level{
	"none":    zerolog.Disabled,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"trace":   zerolog.DebugLevel,
	"debug":   zerolog.DebugLevel,
	"all":     zerolog.TraceLevel,
}

// ParseLevel converts an echo level name to a zerolog.Level
func ParseLevel(name string) (zerolog.Level, error) {
	level, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return zerolog.NoLevel, eris.Errorf("unknown log level %q (expected one of %s)", name, strings.Join(LevelNames(), ", "))
	}

	return level, nil
}

// LevelNames returns the sorted list of accepted level names
func LevelNames() []string {
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a console logger that only emits events at or above level
func New(level zerolog.Level, noColor bool) zerolog.Logger {
	return NewWithWriter(NewConsoleWriter(noColor), level)
}

// NewWithWriter is New for a custom writer. The global level is lowered if necessary
// since zerolog drops trace events by default.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	if level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}

	return zerolog.New(w).Level(level)
}
