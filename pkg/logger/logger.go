package logger

import (
	"log"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// Component tags a log line with the subsystem that emitted it.
type Component int

const (
	None Component = iota
	Store
	Intake
	Poller
	Submitter
	Validator
)

var componentPrefixes = map[Component]string{
	None:      "",
	Store:     "[STORE]     ",
	Intake:    "[INTAKE]    ",
	Poller:    "[POLLER]    ",
	Submitter: "[SUBMITTER] ",
	Validator: "[VALIDATOR] ",
}

var componentColors = map[Component]color.Attribute{
	None:      color.FgWhite,
	Store:     color.FgHiBlue,
	Intake:    color.FgHiGreen,
	Poller:    color.FgYellow,
	Submitter: color.FgMagenta,
	Validator: color.FgHiCyan,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	Info(format string, args ...interface{})
	InfoWithComponent(c Component, format string, args ...interface{})

	Error(format string, args ...interface{})
	ErrorWithComponent(c Component, format string, args ...interface{})

	Debug(format string, args ...interface{})
	DebugWithComponent(c Component, format string, args ...interface{})

	Notice(format string, args ...interface{})
	NoticeWithComponent(c Component, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                            {}
func (l *EmptyLogger) InfoWithComponent(_ Component, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                           {}
func (l *EmptyLogger) ErrorWithComponent(_ Component, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                           {}
func (l *EmptyLogger) DebugWithComponent(_ Component, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                          {}
func (l *EmptyLogger) NoticeWithComponent(_ Component, _ string, _ ...interface{}) {
}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// formatMessage formats the log message with the appropriate log level, component prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, c Component, format string) string {
	prefix := componentPrefixes[c]
	if l.enableColoring {
		prefix = color.New(componentColors[c]).Sprint(prefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + prefix + format
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.InfoWithComponent(None, format, args...)
}

func (l *StdLogger) InfoWithComponent(c Component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= InfoLevel {
		log.Printf(l.formatMessage(InfoLevel, c, format), args...)
	}
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.ErrorWithComponent(None, format, args...)
}

func (l *StdLogger) ErrorWithComponent(c Component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= ErrorLevel {
		log.Printf(l.formatMessage(ErrorLevel, c, format), args...)
	}
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.DebugWithComponent(None, format, args...)
}

func (l *StdLogger) DebugWithComponent(c Component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= DebugLevel {
		log.Printf(l.formatMessage(DebugLevel, c, format), args...)
	}
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.NoticeWithComponent(None, format, args...)
}

func (l *StdLogger) NoticeWithComponent(c Component, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= NoticeLevel {
		log.Printf(l.formatMessage(NoticeLevel, c, format), args...)
	}
}
