// Package cli implements the panpart command-line interface.
//
// The commands read a pangenome (JSON graph or Rtab matrix), partition it,
// resample it for evolution curves and render the results. The CLI is
// built with cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - partition: Classify gene families as persistent, shell or cloud
//   - evolution: Compute rarefaction curves and Heaps' law fits
//   - render: Draw the partitioned graph, U-shape or evolution plots
//   - runs: List, show and delete evolution runs kept in a database
//   - cache: Manage the chunk selection cache
//
// # Configuration
//
// Defaults come from a TOML or YAML file given with --config or
// $PANPART_CONFIG. Flags set on the command line override file values.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --log-format for text, JSON or logfmt output. Loggers are passed through
// context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// opProgress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine.
type opProgress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *opProgress {
	return &opProgress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond, followed
// by the key/value pairs in keyvals.
// Example output: "Partitioned 120 organisms (1.234s)"
func (p *opProgress) done(msg string, keyvals ...any) {
	p.logger.Info(msg+" ("+time.Since(p.start).Round(time.Millisecond).String()+")", keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
