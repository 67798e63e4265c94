package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is the plain text logger. Each line carries the prefix, a
// timestamp and the level tag.
type Logger struct {
	logger *log.Logger
	out    io.Writer
	level  Level
	mu     sync.RWMutex
}

func NewLogger(prefix string, level string) *Logger {
	return NewLoggerWithWriter(os.Stderr, prefix, level)
}

// NewLoggerWithWriter creates a text logger writing to w.
func NewLoggerWithWriter(w io.Writer, prefix string, level string) *Logger {
	return &Logger{
		logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		out:    w,
		level:  parseLevel(level),
	}
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.shouldLog(DebugLevel) {
		l.logger.Print("[DEBUG] " + render(format, v))
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l.shouldLog(InfoLevel) {
		l.logger.Print("[INFO] " + render(format, v))
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l.shouldLog(WarnLevel) {
		l.logger.Print("[WARN] " + render(format, v))
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l.shouldLog(ErrorLevel) {
		l.logger.Print("[ERROR] " + render(format, v))
	}
}

// WithRequestID returns a copy of the logger whose prefix carries reqID.
func (l *Logger) WithRequestID(reqID string) *Logger {
	return &Logger{
		logger: log.New(l.out, fmt.Sprintf("%s[%s] ", l.logger.Prefix(), reqID), l.logger.Flags()),
		out:    l.out,
		level:  l.GetLevel(),
	}
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.logger.Fatal("[FATAL] " + render(format, v))
}

// render fills the printf verbs in format and appends any remaining args
// as key=value pairs, matching how StructuredLogger reads its args.
func render(format string, args []interface{}) string {
	verbs := countVerbs(format)
	if len(args) <= verbs {
		if len(args) == 0 {
			return strings.ReplaceAll(format, "%%", "%")
		}
		return fmt.Sprintf(format, args...)
	}

	var b strings.Builder
	if verbs > 0 {
		b.WriteString(fmt.Sprintf(format, args[:verbs]...))
	} else {
		b.WriteString(strings.ReplaceAll(format, "%%", "%"))
	}
	rest := args[verbs:]
	for i := 0; i+1 < len(rest); i += 2 {
		fmt.Fprintf(&b, " %v=%v", rest[i], rest[i+1])
	}
	if len(rest)%2 == 1 {
		fmt.Fprintf(&b, " extra=%v", rest[len(rest)-1])
	}
	return b.String()
}
