// Package logger provides the level-gated logging used across greentaxi.
// It wraps the standard `log` package and writes lines in the form
//
//	2019-01-01 00:00:00,000 - loader - INFO - message
//
// Messages below the configured level are discarded.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel is a type representing the logging level.
// Smaller numbers indicate more detailed levels.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for errors.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

// String returns the upper-case name printed in each line.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return "INFO"
}

const rootName = "greentaxi"

var (
	mu       sync.RWMutex
	logLevel = LevelInfo
	std      = log.New(os.Stderr, "", 0)
	now      = time.Now
)

// ParseLevel converts "DEBUG", "INFO", "WARN", "ERROR" or "FATAL" (case-insensitive) to a LogLevel.
// The second return value is false for unknown names, in which case LevelInfo is returned.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	}
	return LevelInfo, false
}

// SetLogLevel sets the global log level.
// An unknown value falls back to INFO and a warning is printed to stdout.
func SetLogLevel(level string) {
	lvl, ok := ParseLevel(level)
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	mu.Lock()
	logLevel = lvl
	mu.Unlock()
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// SetOutput redirects all log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	std.SetOutput(w)
	mu.Unlock()
}

func enabled(level LogLevel) bool {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel <= level
}

func output(name string, level LogLevel, format string, v ...interface{}) {
	if !enabled(level) {
		return
	}
	ts := now().Format("2006-01-02 15:04:05.000")
	ts = strings.Replace(ts, ".", ",", 1)
	std.Printf("%s - %s - %s - %s", ts, name, level, fmt.Sprintf(format, v...))
}

// Logger is a named logger. The zero value logs under the root name.
type Logger struct {
	name string
}

// Named returns a logger whose lines carry the given component name.
func Named(name string) *Logger {
	if name == "" {
		name = rootName
	}
	return &Logger{name: name}
}

func (l *Logger) loggerName() string {
	if l == nil || l.name == "" {
		return rootName
	}
	return l.name
}

// Debugf logs at DEBUG level.
func (l *Logger) Debugf(format string, v ...interface{}) {
	output(l.loggerName(), LevelDebug, format, v...)
}

// Infof logs at INFO level.
func (l *Logger) Infof(format string, v ...interface{}) {
	output(l.loggerName(), LevelInfo, format, v...)
}

// Warnf logs at WARN level.
func (l *Logger) Warnf(format string, v ...interface{}) {
	output(l.loggerName(), LevelWarn, format, v...)
}

// Errorf logs at ERROR level.
func (l *Logger) Errorf(format string, v ...interface{}) {
	output(l.loggerName(), LevelError, format, v...)
}

// Debugf formats and outputs a DEBUG level message under the root name.
//
// format: A format string in the same format as `fmt.Printf`.
// v: Arguments to pass to the format string.
func Debugf(format string, v ...interface{}) {
	output(rootName, LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level message under the root name.
func Infof(format string, v ...interface{}) {
	output(rootName, LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level message under the root name.
func Warnf(format string, v ...interface{}) {
	output(rootName, LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level message under the root name.
func Errorf(format string, v ...interface{}) {
	output(rootName, LevelError, format, v...)
}

// Fatalf outputs a FATAL level message and terminates the program with exit code 1.
func Fatalf(format string, v ...interface{}) {
	output(rootName, LevelFatal, format, v...)
	os.Exit(1)
}
