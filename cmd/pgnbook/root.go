package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmmcquay/pgnbook/internal/config"
	"github.com/dmmcquay/pgnbook/internal/logging"
)

var (
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    logging.ContextLogger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "pgnbook",
	Short: "Build and query chess opening books from PGN corpora",
	Long: `pgnbook reads games in PGN move-text notation, builds a move-frequency
tree pruned to popular lines and writes it as an indented opening book.
The book can then be queried from the command line or served over MCP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $PGNBOOK_CONFIG, ./config.json, ~/.pgnbook/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// setup loads configuration and creates the logger shared by all commands.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, logCloser = logging.NewLoggerFromConfig(&logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.LogFormat(cfg.Logging.Format),
		Service: cfg.Server.Name,
		Version: cfg.Server.Version,
		Prefix:  cfg.Logging.Prefix,
		File:    &cfg.Logging.File,
		Output:  cmd.ErrOrStderr(),
	})
	if path != "" {
		logger.Debug("Loaded configuration", "path", path)
	}
	return nil
}

func closeLogger() {
	if logCloser != nil {
		_ = logCloser.Close()
	}
}
