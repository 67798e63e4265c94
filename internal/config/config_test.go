package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	// Check default values
	if cfg.Book.Threshold != 20 {
		t.Errorf("Expected default threshold 20, got %d", cfg.Book.Threshold)
	}
	if cfg.Book.Output != "opening_book" {
		t.Errorf("Expected default output 'opening_book', got %s", cfg.Book.Output)
	}
	if cfg.Book.Indent != " " {
		t.Errorf("Expected default indent of one space, got %q", cfg.Book.Indent)
	}
	if cfg.Ingest.ProgressEvery != 10000 {
		t.Errorf("Expected default progress interval 10000, got %d", cfg.Ingest.ProgressEvery)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.Logging.Level)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}
	if !cfg.Cache.Enabled {
		t.Error("Expected cache to be enabled by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	testConfig := map[string]interface{}{
		"book": map[string]interface{}{
			"threshold": 3,
			"output":    "/tmp/book.txt",
			"sources":   []string{"a.pgn", "b.pgn.zst"},
		},
		"ingest": map[string]interface{}{
			"progressEvery": 500,
		},
		"logging": map[string]interface{}{
			"level": "debug",
		},
		"rateLimit": map[string]interface{}{
			"enabled":        false,
			"requestsPerMin": 120,
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load config
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from file: %v", err)
	}

	// Verify loaded values
	if cfg.Book.Threshold != 3 {
		t.Errorf("Expected threshold 3, got %d", cfg.Book.Threshold)
	}
	if cfg.Book.Output != "/tmp/book.txt" {
		t.Errorf("Expected output /tmp/book.txt, got %s", cfg.Book.Output)
	}
	if len(cfg.Book.Sources) != 2 || cfg.Book.Sources[1] != "b.pgn.zst" {
		t.Errorf("Expected two sources, got %v", cfg.Book.Sources)
	}
	if cfg.Ingest.ProgressEvery != 500 {
		t.Errorf("Expected progress interval 500, got %d", cfg.Ingest.ProgressEvery)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}
	// Untouched keys keep their defaults
	if cfg.Book.Indent != " " {
		t.Errorf("Expected default indent, got %q", cfg.Book.Indent)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PGNBOOK_BOOK_THRESHOLD", "7")
	t.Setenv("PGNBOOK_LOGGING_LEVEL", "warn")
	t.Setenv("PGNBOOK_RATELIMIT_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Book.Threshold != 7 {
		t.Errorf("Expected threshold 7 from env, got %d", cfg.Book.Threshold)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected log level warn from env, got %s", cfg.Logging.Level)
	}
	if cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting disabled from env")
	}
}

func TestInvalidThresholdIsRejected(t *testing.T) {
	for _, v := range []string{"0", "-1"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("PGNBOOK_BOOK_THRESHOLD", v)
			_, err := Load("")
			if !errors.Is(err, ErrInvalidThreshold) {
				t.Errorf("Expected ErrInvalidThreshold, got %v", err)
			}
		})
	}
}

func TestValidationClampsRanges(t *testing.T) {
	cfg := &Config{
		Book:   BookConfig{Threshold: 1, Output: "book", Indent: "\t"},
		Ingest: IngestConfig{ProgressEvery: 0, OpenAttempts: -2, OpenBackoffMs: -1},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 0,
			BurstSize:      0,
		},
	}

	if err := cfg.validate(); err != nil {
		t.Fatalf("Unexpected validation error: %v", err)
	}
	if cfg.Ingest.ProgressEvery != 10000 {
		t.Errorf("Expected progress interval clamped to 10000, got %d", cfg.Ingest.ProgressEvery)
	}
	if cfg.Ingest.OpenAttempts != 1 {
		t.Errorf("Expected open attempts clamped to 1, got %d", cfg.Ingest.OpenAttempts)
	}
	if cfg.RateLimit.RequestsPerMin != 1 || cfg.RateLimit.BurstSize != 1 {
		t.Errorf("Expected rate limits clamped to 1, got %d/%d", cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize)
	}
	if cfg.RateLimit.PerToolLimits == nil {
		t.Error("Expected per-tool limits map to be initialized")
	}
}

func TestValidationRejectsBadIndent(t *testing.T) {
	cfg := &Config{Book: BookConfig{Threshold: 1, Output: "book", Indent: "-"}}
	if err := cfg.validate(); err == nil {
		t.Error("Expected error for non-whitespace indent")
	}
}

func TestGetConfigPathFromEnv(t *testing.T) {
	t.Setenv("PGNBOOK_CONFIG", "/etc/pgnbook.json")
	if got := GetConfigPath(); got != "/etc/pgnbook.json" {
		t.Errorf("Expected path from env, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing config file")
	}
}
