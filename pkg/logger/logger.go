// Package logger wraps zerolog with a per-component module tag so every log
// event names the pipeline stage that emitted it.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger bound to a module name.
type Logger struct {
	*zerolog.Logger
	module string
}

var (
	rootMu sync.RWMutex
	root   zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
)

// Init configures the root logger. level is a zerolog level name ("debug",
// "info", ...); unknown names fall back to info.
func Init(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	rootMu.Lock()
	root = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	rootMu.Unlock()
}

// GetLogger returns a logger tagged with the given module name.
func GetLogger(module string) *Logger {
	rootMu.RLock()
	l := root.With().Str("module", module).Logger()
	rootMu.RUnlock()
	return &Logger{Logger: &l, module: module}
}

// Module returns the module tag the logger was created with.
func (l *Logger) Module() string { return l.module }

// Named returns a sub-logger with a dotted module suffix.
func (l *Logger) Named(name string) *Logger {
	return GetLogger(l.module + "." + name)
}
