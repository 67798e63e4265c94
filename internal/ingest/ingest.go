// Package ingest feeds PGN corpora into an opening-book move tree.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/logging"
	"github.com/dmmcquay/pgnbook/internal/pgn"
	"github.com/dmmcquay/pgnbook/internal/retry"
)

// Options controls an ingestion run.
type Options struct {
	// Threshold is the prune threshold applied after every source.
	Threshold int
	// ProgressEvery is the number of lines between progress log lines.
	ProgressEvery int
	// OpenAttempts is how many times opening a source is tried.
	OpenAttempts int
	// OpenBackoff is the delay before the second open attempt.
	OpenBackoff time.Duration
}

// Recorder receives ingestion metrics.
type Recorder interface {
	RecordGame(malformed bool)
	RecordPrune(removed, remaining int)
	RecordSource(status string, durationSecs float64)
}

// Stats summarizes an ingestion run.
type Stats struct {
	Files     int `json:"files"`
	Lines     int `json:"lines"`
	Games     int `json:"games"`
	Malformed int `json:"malformed"`
	Pruned    int `json:"pruned"`
	Nodes     int `json:"nodes"`
}

// Ingestor inserts every game of its sources into a tree. It is not safe for
// concurrent use.
type Ingestor struct {
	tree     *book.Tree
	opts     Options
	logger   logging.ContextLogger
	recorder Recorder
	open     func(path string) (io.ReadCloser, error)
}

// New creates an Ingestor writing into tree. recorder may be nil.
func New(tree *book.Tree, opts Options, logger logging.ContextLogger, recorder Recorder) (*Ingestor, error) {
	if opts.Threshold < 1 {
		return nil, fmt.Errorf("%w: %d", book.ErrInvalidThreshold, opts.Threshold)
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = 10000
	}
	if opts.OpenAttempts < 1 {
		opts.OpenAttempts = 1
	}
	return &Ingestor{
		tree:     tree,
		opts:     opts,
		logger:   logger,
		recorder: recorder,
		open:     openSource,
	}, nil
}

// Run ingests sources in order, pruning the tree after each one. It stops at
// the first source that cannot be read or when ctx is done, returning the
// stats gathered so far.
func (in *Ingestor) Run(ctx context.Context, sources []string) (Stats, error) {
	var stats Stats
	for _, path := range sources {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := in.ingestFile(ctx, path, &stats); err != nil {
			return stats, err
		}
	}
	stats.Nodes = in.tree.Size()
	return stats, nil
}

func (in *Ingestor) ingestFile(ctx context.Context, path string, stats *Stats) error {
	logger := in.logger.WithField("source", path)
	start := time.Now()
	status := "success"
	defer func() {
		if in.recorder != nil {
			in.recorder.RecordSource(status, time.Since(start).Seconds())
		}
	}()

	r, err := in.openWithRetry(ctx, path, logger)
	if err != nil {
		status = "error"
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	logger.Info("Reading source")
	if err := in.Ingest(ctx, path, r, stats); err != nil {
		status = "error"
		return err
	}

	removed, err := in.tree.Prune(in.opts.Threshold)
	if err != nil {
		status = "error"
		return err
	}
	stats.Files++
	stats.Pruned += removed
	stats.Nodes = in.tree.Size()
	if in.recorder != nil {
		in.recorder.RecordPrune(removed, stats.Nodes)
	}

	logger.Info("Finished source", "games", stats.Games, "pruned", removed, "nodes", stats.Nodes, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (in *Ingestor) openWithRetry(ctx context.Context, path string, logger logging.ContextLogger) (io.ReadCloser, error) {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = in.opts.OpenAttempts
	if in.opts.OpenBackoff > 0 {
		cfg.InitialDelay = in.opts.OpenBackoff
	}

	var r io.ReadCloser
	err := retry.NewManager(cfg).
		OnRetry(func(attempt int, delay time.Duration, err error) {
			logger.Warn("Open failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}).
		Run(ctx, func(context.Context) error {
			var err error
			r, err = in.open(path)
			return err
		})
	return r, err
}

// Ingest reads every game block from r into the tree without pruning. name
// identifies r in log lines. Malformed games are counted and their moves up
// to the open comment are still inserted.
func (in *Ingestor) Ingest(ctx context.Context, name string, r io.Reader, stats *Stats) error {
	logger := in.logger.WithField("source", name)
	sc := pgn.NewScanner(r)
	base := stats.Lines
	nextReport := in.opts.ProgressEvery

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			stats.Lines = base + sc.Line()
			return err
		}

		moves, err := sc.Moves()
		malformed := err != nil
		if malformed {
			if !errors.Is(err, pgn.ErrUnterminatedComment) {
				return fmt.Errorf("%s line %d: %w", name, sc.Line(), err)
			}
			stats.Malformed++
			logger.Warn("Malformed game, keeping moves before the comment", "line", sc.Line(), "moves", len(moves), "error", err)
		}

		in.tree.Insert(moves)
		stats.Games++
		if in.recorder != nil {
			in.recorder.RecordGame(malformed)
		}

		if sc.Line() >= nextReport {
			logger.Info("Progress", "lines", base+sc.Line(), "games", stats.Games, "nodes", in.tree.Size())
			for nextReport <= sc.Line() {
				nextReport += in.opts.ProgressEvery
			}
		}
	}
	stats.Lines = base + sc.Line()

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}
