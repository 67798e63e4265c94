package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// LoggerAdapter lets the text Logger stand in where a ContextLogger is
// expected. Fields are appended to every message as key=value pairs.
type LoggerAdapter struct {
	*Logger
	fields map[string]interface{}
}

// NewLoggerAdapter creates a new adapter for the text logger.
func NewLoggerAdapter(logger *Logger) *LoggerAdapter {
	return &LoggerAdapter{
		Logger: logger,
		fields: make(map[string]interface{}),
	}
}

// WithContext returns a new logger with context values.
func (l *LoggerAdapter) WithContext(ctx context.Context) ContextLogger {
	var adapted ContextLogger = l
	if correlationID, ok := CorrelationIDFromContext(ctx); ok {
		adapted = adapted.WithField("correlation_id", correlationID)
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		adapted = adapted.WithField("request_id", requestID)
	}
	return adapted
}

// WithField returns a new logger with an additional field.
func (l *LoggerAdapter) WithField(key string, value interface{}) ContextLogger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a new logger with additional fields.
func (l *LoggerAdapter) WithFields(fields map[string]interface{}) ContextLogger {
	newLogger := &LoggerAdapter{
		Logger: l.Logger,
		fields: make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
		// The request ID goes into the line prefix instead.
		if k == "request_id" {
			if reqID, ok := v.(string); ok {
				newLogger.Logger = newLogger.Logger.WithRequestID(reqID)
				delete(newLogger.fields, k)
			}
		}
	}
	return newLogger
}

func (l *LoggerAdapter) Debug(format string, args ...interface{}) {
	l.Logger.Debug(l.formatWithFields(format), args...)
}

func (l *LoggerAdapter) Info(format string, args ...interface{}) {
	l.Logger.Info(l.formatWithFields(format), args...)
}

func (l *LoggerAdapter) Warn(format string, args ...interface{}) {
	l.Logger.Warn(l.formatWithFields(format), args...)
}

func (l *LoggerAdapter) Error(format string, args ...interface{}) {
	l.Logger.Error(l.formatWithFields(format), args...)
}

func (l *LoggerAdapter) Fatal(format string, args ...interface{}) {
	l.Logger.Fatal(l.formatWithFields(format), args...)
}

// formatWithFields appends the fields, sorted by key, to the message.
func (l *LoggerAdapter) formatWithFields(format string) string {
	if len(l.fields) == 0 {
		return format
	}

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		// Escape so field values are never read as verbs.
		parts[i] = strings.ReplaceAll(fmt.Sprintf("%s=%v", k, l.fields[k]), "%", "%%")
	}
	return fmt.Sprintf("%s [%s]", format, strings.Join(parts, " "))
}
