// Package logging provides the leveled logger used across ufwgo. It wraps
// charmbracelet/log, promoted here from the teacher's indirect dependency
// to a direct one, the same way the teacher threads a *Logger through
// firewall.Manager while also exposing package-level helpers for call
// sites that don't carry one.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is a thin wrapper so ufwgo code depends on this package's API
// rather than charmbracelet/log directly, matching the teacher's
// internal/logging indirection (referenced throughout the teacher as
// *logging.Logger and via the fwlog package alias).
type Logger struct {
	l *charmlog.Logger
}

// New creates a Logger writing to w with the given prefix, e.g. "engine"
// or "status".
func New(w io.Writer, prefix string) *Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
	})
	return &Logger{l: l}
}

func (g *Logger) Info(msg string, kv ...any)  { g.l.Info(msg, kv...) }
func (g *Logger) Warn(msg string, kv ...any)  { g.l.Warn(msg, kv...) }
func (g *Logger) Error(msg string, kv ...any) { g.l.Error(msg, kv...) }
func (g *Logger) Debug(msg string, kv ...any) { g.l.Debug(msg, kv...) }

// With returns a Logger with the given key/value pairs attached to every
// subsequent entry, e.g. log.With("family", "v6").
func (g *Logger) With(kv ...any) *Logger {
	return &Logger{l: g.l.With(kv...)}
}

var std = New(os.Stderr, "ufwgo")

// Default returns the package-level logger used by call sites that don't
// carry their own *Logger.
func Default() *Logger { return std }

func Info(msg string, kv ...any)  { std.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { std.Warn(msg, kv...) }
func Error(msg string, kv ...any) { std.Error(msg, kv...) }
func Debug(msg string, kv ...any) { std.Debug(msg, kv...) }
