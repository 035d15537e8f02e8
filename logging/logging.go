// Package logging provides a small leveled logger with structured fields,
// shared by the command-line entry points and background services.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Fields carries structured key/value context for one log entry.
type Fields map[string]interface{}

// Logger writes leveled, timestamped lines with optional fields.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	fields Fields
}

func New(out io.Writer, level Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, level: level}
}

// WithFields returns a logger that attaches the given fields to every
// entry it writes.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{out: l.out, level: l.level, fields: merged}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	fmt.Fprintf(&sb, msg, args...)

	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, l.fields[k])
		}
	}
	sb.WriteString("\n")
	io.WriteString(l.out, sb.String())
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(DebugLevel, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(InfoLevel, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(WarnLevel, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(ErrorLevel, msg, args...) }

var (
	globalMu sync.RWMutex
	global   = New(os.Stderr, InfoLevel)
)

// SetGlobal replaces the process-wide logger.
func SetGlobal(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = logger
}

// Global returns the process-wide logger.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func Debug(msg string, args ...interface{}) { Global().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Global().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Global().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Global().Error(msg, args...) }
