package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a level. Unknown values fall back
// to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	rootInstance *componentLogger
	rootOnce     sync.Once
)

// componentLogger writes leveled, component-tagged lines to a shared sink.
type componentLogger struct {
	mu        *sync.Mutex
	out       *log.Logger
	level     LogLevel
	component string
}

// root returns the process-wide logger backing all component loggers.
func root() *componentLogger {
	rootOnce.Do(func() {
		rootInstance = newRoot(os.Stderr, INFO)
	})
	return rootInstance
}

func newRoot(w io.Writer, level LogLevel) *componentLogger {
	return &componentLogger{
		mu:    &sync.Mutex{},
		out:   log.New(w, "", 0),
		level: level,
	}
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	base := root()
	return &componentLogger{
		mu:        base.mu,
		out:       base.out,
		level:     base.level,
		component: component,
	}
}

// NewComponentLoggerWithWriter is like NewComponentLogger with an explicit sink.
// Used by tests and by the CLI when a log file is configured.
func NewComponentLoggerWithWriter(component string, w io.Writer, level LogLevel) Logger {
	l := newRoot(w, level)
	l.component = component
	return l
}

// SetLevel sets the minimum level for the shared process logger.
func SetLevel(level LogLevel) {
	base := root()
	base.mu.Lock()
	defer base.mu.Unlock()
	base.level = level
}

func (l *componentLogger) log(level LogLevel, format string, args ...any) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	msg := fmt.Sprintf(format, args...)
	tag := ""
	if l.component != "" {
		tag = "[" + l.component + "] "
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("%s [%s] %s%s (%s:%d)",
		time.Now().Format("2006-01-02 15:04:05.000"), level, tag, msg, file, line)
}

func (l *componentLogger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

func (l *componentLogger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

func (l *componentLogger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

func (l *componentLogger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}
