package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger provides component-scoped logging to stderr. Debug output is
// gated on the verbose flag; warnings and errors always print.
type Logger struct {
	component string
	verbose   bool
	mu        sync.Mutex
	writer    io.Writer
}

// New creates a logger for a component.
func New(component string, verbose bool) *Logger {
	return &Logger{
		component: component,
		verbose:   verbose,
		writer:    os.Stderr,
	}
}

// WithComponent derives a logger with a different component label.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		verbose:   l.verbose,
		writer:    l.writer,
	}
}

// SetWriter redirects output, mainly for tests.
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// Debug logs only when verbose is enabled.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l != nil && l.verbose {
		l.log("DEBUG", msg, args...)
	}
}

// Info logs only when verbose is enabled.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l != nil && l.verbose {
		l.log("INFO", msg, args...)
	}
}

// Warn always logs.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l != nil {
		l.log("WARN", msg, args...)
	}
}

// Error always logs.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l != nil {
		l.log("ERROR", msg, args...)
	}
}

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return
	}

	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	fmt.Fprintf(l.writer, "%s [%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), level, l.component, formatted)
}
