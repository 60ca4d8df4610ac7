// Package logger is the logging seam for the library: packages log through
// the Logger interface and callers swap in their own implementation or
// silence it with Noop.
package logger

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logging contract used across the library.
// Keyvals are alternating key/value pairs.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

type charmLogger struct {
	l *charmlog.Logger
}

// New returns the default logger writing to stderr, prefixed with the
// component name. The level comes from PREFER_LOG_LEVEL (debug, info, warn,
// error), defaulting to info.
func New(name string) Logger {
	return NewWithLevel(name, os.Getenv("PREFER_LOG_LEVEL"))
}

// NewWithLevel returns the default logger with an explicit level.
func NewWithLevel(name, level string) Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Prefix:          name,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           parseLevel(level),
	})
	return &charmLogger{l: l}
}

func parseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

// Noop discards everything.
type Noop struct{}

func (Noop) Debug(string, ...any) {}
func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}
