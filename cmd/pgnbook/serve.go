package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/cache"
	"github.com/dmmcquay/pgnbook/internal/health"
	mcptools "github.com/dmmcquay/pgnbook/internal/mcp"
	"github.com/dmmcquay/pgnbook/internal/metrics"
	"github.com/dmmcquay/pgnbook/internal/ratelimit"
	httpserver "github.com/dmmcquay/pgnbook/internal/server"
	"github.com/dmmcquay/pgnbook/internal/shutdown"
)

var serveFlags struct {
	book       string
	healthAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve book lookups over MCP (stdio) with HTTP health and metrics",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.book, "book", "b", "", "book file (default book.output from config)")
	serveCmd.Flags().StringVar(&serveFlags.healthAddr, "health-addr", "", "HTTP address for /health, /ready, /metrics and /lookup (default server.healthAddr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("Starting pgnbook server version %s (commit: %s, built: %s)",
		cfg.Server.Version, GitCommit, BuildTime)

	path := serveFlags.book
	if path == "" {
		path = cfg.Book.Output
	}
	tree, err := book.ReadFile(path, cfg.Book.Indent)
	if err != nil {
		return err
	}
	logger.Info("Loaded opening book", "path", path, "nodes", tree.Size())

	prom := metrics.NewPrometheusCollector()
	prom.SetTreeNodes(tree.Size())
	collector := metrics.NewCollector()
	rateLimiter := ratelimit.NewLimiter(&cfg.RateLimit, logger)
	cacheManager := cache.NewManager(&cfg.Cache, logger, prom)
	loaded := func() *book.Tree { return tree }

	shutdownManager := shutdown.NewManager(logger)
	shutdownManager.HandleSignals()

	healthChecker := health.NewChecker(logger, cfg.Server.Version, GitCommit)
	healthChecker.RegisterCheck("book", health.BookCheck(loaded))

	healthAddr := serveFlags.healthAddr
	if healthAddr == "" {
		healthAddr = cfg.Server.HealthAddr
	}
	if healthAddr != "" {
		httpServer := httpserver.NewHTTPServer(healthAddr, logger, healthChecker, loaded)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		shutdownManager.Register("http", httpServer.Stop)
	}

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	toolsHandler := mcptools.NewToolsHandler(tree, path, cacheManager, logger)
	toolsHandler.SetMiddleware(mcptools.NewMiddleware(logger, collector, prom, rateLimiter))
	toolsHandler.RegisterTools(mcpServer)

	logger.Info("pgnbook MCP server ready")

	done := make(chan error, 1)
	go func() {
		done <- server.ServeStdio(mcpServer)
	}()

	var serveErr error
	select {
	case serveErr = <-done:
		if serveErr != nil && serveErr != context.Canceled {
			logger.Error("Server error", "error", serveErr)
		} else {
			serveErr = nil
		}
	case <-shutdownManager.Stopping().Done():
		logger.Info("Server stopped by signal")
	}

	if err := shutdownManager.Shutdown(shutdown.DefaultTimeout); err != nil {
		return err
	}
	return serveErr
}
