// Package logger provides component-tagged slog loggers rendered by tint.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type Level slog.Level

var (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
)

var defaultLevel = LevelInfo

// SetDefaultLevel changes the level of loggers created afterwards.
func SetDefaultLevel(level Level) {
	defaultLevel = level
}

type LoggerOption func(*Logger)

func WithName(name string) LoggerOption {
	return func(l *Logger) {
		l.name = name
	}
}

func WithLevel(level Level) LoggerOption {
	return func(l *Logger) {
		l.level = level
	}
}

// WithWriter sends log output to w instead of stderr.
func WithWriter(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.writer = w
	}
}

func WithHandler(handler slog.Handler) LoggerOption {
	return func(l *Logger) {
		l.handler = handler
	}
}

// Logger tags every record with the component that produced it.
type Logger struct {
	*slog.Logger
	level   Level
	handler slog.Handler
	writer  io.Writer
	name    string
}

func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		name:   "kagglesync",
		level:  defaultLevel,
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.handler == nil {
		l.handler = tint.NewHandler(l.writer, tintOptions(l.writer, l.level))
	}
	l.Logger = slog.New(l.handler).With("component", l.name)
	return l
}

// tintOptions colours output and shortens timestamps only on a terminal;
// redirected output keeps RFC 3339 times for grepping.
func tintOptions(w io.Writer, level Level) *tint.Options {
	terminal := false
	if f, ok := w.(*os.File); ok {
		terminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	opts := &tint.Options{
		Level:      slog.Level(level),
		NoColor:    !terminal,
		TimeFormat: time.RFC3339,
	}
	if terminal {
		opts.TimeFormat = time.Kitchen
	}
	return opts
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLogger(WithHandler(slog.NewTextHandler(io.Discard, nil)))
}

// Named returns a logger sharing l's handler under another component name.
func (l *Logger) Named(name string) *Logger {
	child := *l
	child.name = name
	child.Logger = slog.New(l.handler).With("component", name)
	return &child
}
