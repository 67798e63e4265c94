package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/ingest"
	"github.com/dmmcquay/pgnbook/internal/metrics"
)

var buildFlags struct {
	threshold int
	output    string
	indent    string
}

var buildCmd = &cobra.Command{
	Use:   "build [sources...]",
	Short: "Build an opening book from PGN files",
	Long: `Build reads every source in order (plain PGN or zstd-compressed),
inserts each game's moves into the move tree, prunes moves seen in fewer
than --threshold games after each source, sorts replies by popularity and
writes the book. Sources default to book.sources from the configuration.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildFlags.threshold, "threshold", "t", 0, "minimum games for a move to stay in the book (default from config)")
	buildCmd.Flags().StringVarP(&buildFlags.output, "output", "o", "", "output book path (default from config)")
	buildCmd.Flags().StringVar(&buildFlags.indent, "indent", "", "indent unit per depth level (default from config)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("threshold") {
		cfg.Book.Threshold = buildFlags.threshold
	}
	if buildFlags.output != "" {
		cfg.Book.Output = buildFlags.output
	}
	if buildFlags.indent != "" {
		cfg.Book.Indent = buildFlags.indent
	}

	sources := args
	if len(sources) == 0 {
		sources = cfg.Book.Sources
	}
	if len(sources) == 0 {
		return errors.New("no sources given and book.sources is empty")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	tree := book.NewTree()
	prom := metrics.NewPrometheusCollector()
	in, err := ingest.New(tree, ingest.Options{
		Threshold:     cfg.Book.Threshold,
		ProgressEvery: cfg.Ingest.ProgressEvery,
		OpenAttempts:  cfg.Ingest.OpenAttempts,
		OpenBackoff:   time.Duration(cfg.Ingest.OpenBackoffMs) * time.Millisecond,
	}, logger, prom)
	if err != nil {
		return err
	}

	logger.Info("Building opening book", "sources", len(sources), "threshold", cfg.Book.Threshold)
	stats, err := in.Run(ctx, sources)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Build interrupted", "games", stats.Games)
		}
		return err
	}

	tree.SortByPopularity()
	written, err := book.WriteFile(cfg.Book.Output, tree, cfg.Book.Indent)
	if err != nil {
		return fmt.Errorf("failed to write book: %w", err)
	}
	prom.SetTreeNodes(tree.Size())

	logger.Info("Wrote %d moves to %s", written, cfg.Book.Output)
	logger.Info("Build complete",
		"files", stats.Files,
		"games", stats.Games,
		"malformed", stats.Malformed,
		"pruned", stats.Pruned,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
