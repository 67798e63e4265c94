// Package server exposes health, metrics and book lookup over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/health"
	"github.com/dmmcquay/pgnbook/internal/logging"
	"github.com/dmmcquay/pgnbook/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer serves /health, /ready, /metrics and /lookup.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	logger   logging.ContextLogger
	book     func() *book.Tree
}

// NewHTTPServer creates the server. loaded returns the current book, or nil
// while none is loaded.
func NewHTTPServer(addr string, logger logging.ContextLogger, checker *health.Checker, loaded func() *book.Tree) *HTTPServer {
	s := &HTTPServer{logger: logger, book: loaded}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/lookup", s.handleLookup)

	handler := PrometheusMiddleware(metrics.NewPrometheusCollector())(mux)
	handler = CorrelationMiddleware(handler)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start binds the listen address and serves in the background.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// LookupResponse is the body of /lookup.
type LookupResponse struct {
	Moves         []string `json:"moves"`
	Found         bool     `json:"found"`
	Next          string   `json:"next,omitempty"`
	Continuations []string `json:"continuations,omitempty"`
}

func (s *HTTPServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t := s.book()
	if t == nil {
		http.Error(w, "book not loaded", http.StatusServiceUnavailable)
		return
	}

	moves := book.ParseMoveList(r.URL.Query().Get("moves"))
	resp := LookupResponse{Moves: moves}
	resp.Next, resp.Found = book.Lookup(t, moves)
	if resp.Found {
		resp.Continuations, _ = book.Continuations(t, moves)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithContext(r.Context()).Error("Failed to encode lookup response", "error", err)
	}
}
