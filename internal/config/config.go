package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PGNBOOK_BOOK_THRESHOLD.
const EnvPrefix = "PGNBOOK"

type Config struct {
	// Opening book configuration
	Book BookConfig `json:"book" mapstructure:"book"`

	// Corpus ingestion configuration
	Ingest IngestConfig `json:"ingest" mapstructure:"ingest"`

	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `json:"rateLimit" mapstructure:"rateLimit"`

	// Lookup cache configuration
	Cache CacheConfig `json:"cache" mapstructure:"cache"`
}

type BookConfig struct {
	// Threshold is the minimum number of games a move must appear in to stay in the book.
	Threshold int      `json:"threshold" mapstructure:"threshold"`
	Output    string   `json:"output" mapstructure:"output"`
	Indent    string   `json:"indent" mapstructure:"indent"`
	Sources   []string `json:"sources" mapstructure:"sources"`
}

type IngestConfig struct {
	ProgressEvery int `json:"progressEvery" mapstructure:"progressEvery"`
	OpenAttempts  int `json:"openAttempts" mapstructure:"openAttempts"`
	OpenBackoffMs int `json:"openBackoffMs" mapstructure:"openBackoffMs"`
}

type ServerConfig struct {
	Name        string `json:"name" mapstructure:"name"`
	Version     string `json:"version" mapstructure:"version"`
	Description string `json:"description" mapstructure:"description"`
	HealthAddr  string `json:"healthAddr" mapstructure:"healthAddr"`
}

type LoggingConfig struct {
	Level  string        `json:"level" mapstructure:"level"`
	Prefix string        `json:"prefix" mapstructure:"prefix"`
	Format string        `json:"format" mapstructure:"format"`
	File   FileLogConfig `json:"file" mapstructure:"file"`
}

// FileLogConfig controls rotated log file output. MaxSize is in megabytes,
// MaxAge in days.
type FileLogConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Path       string `json:"path" mapstructure:"path"`
	MaxSize    int    `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
	MaxAge     int    `json:"maxAge" mapstructure:"maxAge"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

type RateLimitConfig struct {
	Enabled        bool           `json:"enabled" mapstructure:"enabled"`
	RequestsPerMin int            `json:"requestsPerMin" mapstructure:"requestsPerMin"`
	BurstSize      int            `json:"burstSize" mapstructure:"burstSize"`
	PerToolLimits  map[string]int `json:"perToolLimits" mapstructure:"perToolLimits"`
}

type CacheConfig struct {
	Enabled      bool  `json:"enabled" mapstructure:"enabled"`
	MaxItems     int   `json:"maxItems" mapstructure:"maxItems"`
	MaxSizeBytes int64 `json:"maxSizeBytes" mapstructure:"maxSizeBytes"`
	TTLSeconds   int   `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// ErrInvalidThreshold is returned when the configured prune threshold is below 1.
var ErrInvalidThreshold = errors.New("book threshold must be at least 1")

func setDefaults(v *viper.Viper) {
	v.SetDefault("book.threshold", 20)
	v.SetDefault("book.output", "opening_book")
	v.SetDefault("book.indent", " ")
	v.SetDefault("book.sources", []string{})

	v.SetDefault("ingest.progressEvery", 10000)
	v.SetDefault("ingest.openAttempts", 1)
	v.SetDefault("ingest.openBackoffMs", 500)

	v.SetDefault("server.name", "pgnbook")
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("server.description", "Opening book builder and lookup server")
	v.SetDefault("server.healthAddr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.prefix", "[pgnbook] ")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMin", 600)
	v.SetDefault("rateLimit.burstSize", 50)
	v.SetDefault("rateLimit.perToolLimits", map[string]int{})

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.maxItems", 10000)
	v.SetDefault("cache.maxSizeBytes", int64(16*1024*1024))
	v.SetDefault("cache.ttlSeconds", 0)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Load from JSON file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	// The threshold is a contract of the prune step and is never clamped.
	if c.Book.Threshold < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidThreshold, c.Book.Threshold)
	}
	if c.Book.Output == "" {
		return fmt.Errorf("book output path must not be empty")
	}
	if c.Book.Indent == "" || strings.TrimLeft(c.Book.Indent, " \t") != "" {
		return fmt.Errorf("book indent must be non-empty whitespace, got %q", c.Book.Indent)
	}

	// Validate numeric ranges
	if c.Ingest.ProgressEvery < 1 {
		c.Ingest.ProgressEvery = 10000
	}
	if c.Ingest.OpenAttempts < 1 {
		c.Ingest.OpenAttempts = 1
	}
	if c.Ingest.OpenBackoffMs < 0 {
		c.Ingest.OpenBackoffMs = 0
	}

	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		return fmt.Errorf("logging.file.path is required when file logging is enabled")
	}

	// Validate rate limits
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMin < 1 {
			c.RateLimit.RequestsPerMin = 1
		}
		if c.RateLimit.BurstSize < 1 {
			c.RateLimit.BurstSize = 1
		}
	}
	if c.RateLimit.PerToolLimits == nil {
		c.RateLimit.PerToolLimits = make(map[string]int)
	}

	if c.Cache.Enabled && c.Cache.MaxItems < 0 {
		c.Cache.MaxItems = 0
	}

	return nil
}

func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	// Check current directory
	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}

	// Check home directory
	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".pgnbook", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}
