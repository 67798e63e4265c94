package logging

import (
	"io"
	"os"
	"strings"

	"github.com/dmmcquay/pgnbook/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFormat represents the log output format.
type LogFormat string

const (
	// FormatText is the traditional text format.
	FormatText LogFormat = "text"
	// FormatJSON is structured JSON format.
	FormatJSON LogFormat = "json"
)

// Config represents logging configuration.
type Config struct {
	Level   string
	Format  LogFormat
	Service string
	Version string
	Prefix  string
	File    *config.FileLogConfig

	// Output replaces stderr as the console destination when set.
	Output io.Writer
}

// NewLoggerFromConfig creates a logger based on configuration. The returned
// closer is non-nil when a log file was opened and must be closed on exit.
func NewLoggerFromConfig(cfg *Config) (ContextLogger, io.Closer) {
	format := LogFormat(strings.ToLower(string(cfg.Format)))
	if format == "" {
		if envFormat := os.Getenv("PGNBOOK_LOG_FORMAT"); envFormat != "" {
			format = LogFormat(strings.ToLower(envFormat))
		} else {
			format = FormatText
		}
	}

	var writer io.Writer = os.Stderr
	if cfg.Output != nil {
		writer = cfg.Output
	}

	var rotator *lumberjack.Logger
	if cfg.File != nil && cfg.File.Enabled && cfg.File.Path != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		writer = io.MultiWriter(writer, rotator)
	}

	var logger ContextLogger
	switch format {
	case FormatJSON:
		logger = NewStructuredLoggerWithWriter(writer, cfg.Service, cfg.Version, cfg.Level)
	default:
		logger = NewLoggerAdapter(NewLoggerWithWriter(writer, cfg.Prefix, cfg.Level))
	}

	if rotator != nil {
		return logger, rotator
	}
	return logger, nil
}
