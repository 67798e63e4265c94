package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		testFunc  func(*Logger)
		shouldLog bool
	}{
		{
			name:      "debug level logs everything",
			logLevel:  "debug",
			testFunc:  func(l *Logger) { l.Debug("test") },
			shouldLog: true,
		},
		{
			name:      "info level skips debug",
			logLevel:  "info",
			testFunc:  func(l *Logger) { l.Debug("test") },
			shouldLog: false,
		},
		{
			name:      "warn level logs warnings",
			logLevel:  "warning",
			testFunc:  func(l *Logger) { l.Warn("test") },
			shouldLog: true,
		},
		{
			name:      "error level only logs errors",
			logLevel:  "error",
			testFunc:  func(l *Logger) { l.Warn("test") },
			shouldLog: false,
		},
		{
			name:      "unknown level falls back to info",
			logLevel:  "verbose",
			testFunc:  func(l *Logger) { l.Info("test") },
			shouldLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, "[TEST] ", tt.logLevel)

			tt.testFunc(logger)

			if hasOutput := buf.Len() > 0; hasOutput != tt.shouldLog {
				t.Errorf("Expected shouldLog=%v but got output=%v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestLoggerKeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "", "info")

	logger.Info("Parsed %s", "a.pgn", "games", 12, "malformed", 1)

	output := buf.String()
	for _, want := range []string{"[INFO] Parsed a.pgn", "games=12", "malformed=1"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestLoggerWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "[TEST] ", "info")

	logger.WithRequestID("req-123").Info("test message")

	if !strings.Contains(buf.String(), "[TEST] [req-123] ") {
		t.Errorf("Expected request ID in prefix, got: %s", buf.String())
	}
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "", "info")

	logger.SetLevel(ErrorLevel)
	if logger.GetLevel() != ErrorLevel {
		t.Errorf("Expected ErrorLevel, got %v", logger.GetLevel())
	}
	logger.Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected no output after raising level, got: %s", buf.String())
	}
}

func TestLoggerAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewLoggerAdapter(NewLoggerWithWriter(&buf, "", "debug"))

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ContextWithRequestID(ctx, "req-9")
	adapter.WithContext(ctx).WithField("source", "100%.pgn").Info("Opened source")

	output := buf.String()
	if !strings.Contains(output, "[req-9] ") {
		t.Errorf("Expected request ID in prefix, got: %s", output)
	}
	if !strings.Contains(output, "[correlation_id=corr-1 source=100%.pgn]") {
		t.Errorf("Expected sorted fields in output, got: %s", output)
	}
}
