package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// BasicLogger prints key=value log lines to a writer.
type BasicLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	min    Level
	fields map[string]any
}

var _ Logger = (*BasicLogger)(nil)

// BasicOption configures a BasicLogger.
type BasicOption func(*BasicLogger)

// WithWriter redirects output (stdout by default).
func WithWriter(w io.Writer) BasicOption {
	return func(l *BasicLogger) {
		if w != nil {
			l.out = w
		}
	}
}

// WithLevel drops lines below min.
func WithLevel(min Level) BasicOption {
	return func(l *BasicLogger) {
		l.min = min
	}
}

// New returns a basic logger that writes to stdout.
func New(opts ...BasicOption) *BasicLogger {
	l := &BasicLogger{
		mu:     &sync.Mutex{},
		out:    os.Stdout,
		min:    LevelDebug,
		fields: make(map[string]any),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Default returns the default basic logger implementation.
func Default() Logger {
	return New(WithLevel(LevelInfo))
}

// With returns a logger that includes fields on each log line.
func (l *BasicLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	next := l.clone()
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

func (l *BasicLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *BasicLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *BasicLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *BasicLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *BasicLogger) log(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	line := fmt.Sprintf("[%s] %s", level, msg)
	if rendered := formatFields(l.fields, fields); rendered != "" {
		line += " " + rendered
	}
	l.mu.Lock()
	fmt.Fprintln(l.out, line)
	l.mu.Unlock()
}

func (l *BasicLogger) clone() *BasicLogger {
	out := &BasicLogger{
		mu:     l.mu,
		out:    l.out,
		min:    l.min,
		fields: make(map[string]any, len(l.fields)),
	}
	for k, v := range l.fields {
		out.fields[k] = v
	}
	return out
}

func formatFields(base map[string]any, extra []Field) string {
	if len(base) == 0 && len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(base))
	for k := range base {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+len(extra))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, base[k]))
	}
	for _, f := range extra {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	return strings.Join(parts, " ")
}
