// Package mcp exposes an opening book as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/cache"
	"github.com/dmmcquay/pgnbook/internal/logging"
	"github.com/dmmcquay/pgnbook/internal/metrics"
	"github.com/dmmcquay/pgnbook/internal/ratelimit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolBookMove          = "bookMove"
	ToolBookContinuations = "bookContinuations"
	ToolBookStats         = "bookStats"
)

// NoBookMove is the bookMove answer when the line is out of book.
const NoBookMove = "no book move"

// ToolsHandler answers book queries over a loaded, read-only tree.
type ToolsHandler struct {
	tree       *book.Tree
	source     string
	logger     logging.ContextLogger
	cache      *cache.Manager
	collector  *metrics.Collector
	limiter    *ratelimit.Limiter
	middleware *Middleware
}

// NewToolsHandler creates a tools handler for tree, loaded from source.
// cacheManager may be nil.
func NewToolsHandler(tree *book.Tree, source string, cacheManager *cache.Manager, logger logging.ContextLogger) *ToolsHandler {
	if cacheManager == nil {
		cacheManager = cache.NewManager(nil, logger, nil)
	}
	return &ToolsHandler{
		tree:   tree,
		source: source,
		logger: logger,
		cache:  cacheManager,
	}
}

// SetMiddleware sets the middleware wrapping every tool. Its collector and
// limiter are reported by bookStats.
func (h *ToolsHandler) SetMiddleware(middleware *Middleware) {
	h.middleware = middleware
	if middleware != nil {
		h.collector = middleware.metrics
		h.limiter = middleware.rateLimiter
	}
}

func (h *ToolsHandler) wrap(name string, handler ToolHandler) server.ToolHandlerFunc {
	if h.middleware != nil {
		handler = h.middleware.WrapTool(name, handler)
	}
	return server.ToolHandlerFunc(handler)
}

// RegisterTools registers all tools with the MCP server.
func (h *ToolsHandler) RegisterTools(s *server.MCPServer) {
	bookMoveTool := mcp.NewTool(ToolBookMove,
		mcp.WithDescription("Suggest the most popular book move after a sequence of moves. Returns \""+NoBookMove+"\" when the line is out of book."),
		mcp.WithString("moves",
			mcp.Description("Moves played so far in SAN, optionally with move numbers, e.g. \"1. e4 e5 2. Nf3\". Empty for the starting position."),
		),
	)
	s.AddTool(bookMoveTool, h.wrap(ToolBookMove, h.HandleBookMove))

	continuationsTool := mcp.NewTool(ToolBookContinuations,
		mcp.WithDescription("List every book reply after a sequence of moves, most popular first"),
		mcp.WithString("moves",
			mcp.Description("Moves played so far in SAN, optionally with move numbers"),
		),
	)
	s.AddTool(continuationsTool, h.wrap(ToolBookContinuations, h.HandleBookContinuations))

	statsTool := mcp.NewTool(ToolBookStats,
		mcp.WithDescription("Report the loaded book size, cache and tool call statistics"),
	)
	s.AddTool(statsTool, h.wrap(ToolBookStats, h.HandleBookStats))
}

// movesArgument extracts and normalizes the optional "moves" argument.
func movesArgument(request mcp.CallToolRequest) ([]string, error) {
	args := request.Params.Arguments
	if args == nil {
		return nil, nil
	}
	argsMap, ok := args.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid arguments format")
	}
	raw, present := argsMap["moves"]
	if !present || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("moves must be a string, got %T", raw)
	}
	return book.ParseMoveList(s), nil
}

// HandleBookMove answers with the most popular reply.
func (h *ToolsHandler) HandleBookMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moves, err := movesArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := h.cache.GetOrCompute(cache.Key(ToolBookMove, moves), func() cache.Result {
		next, found := book.Lookup(h.tree, moves)
		if !found {
			return cache.Result{}
		}
		return cache.Result{Moves: []string{next}, Found: true}
	})

	if !r.Found {
		return mcp.NewToolResultText(NoBookMove), nil
	}
	return mcp.NewToolResultText(r.Moves[0]), nil
}

// ContinuationsResult is the bookContinuations payload.
type ContinuationsResult struct {
	Moves         []string `json:"moves"`
	InBook        bool     `json:"inBook"`
	Continuations []string `json:"continuations"`
}

// HandleBookContinuations answers with every reply in book order.
func (h *ToolsHandler) HandleBookContinuations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moves, err := movesArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := h.cache.GetOrCompute(cache.Key(ToolBookContinuations, moves), func() cache.Result {
		replies, inBook := book.Continuations(h.tree, moves)
		return cache.Result{Moves: replies, Found: inBook}
	})

	result := ContinuationsResult{
		Moves:         moves,
		InBook:        r.Found,
		Continuations: r.Moves,
	}
	if result.Moves == nil {
		result.Moves = []string{}
	}
	if result.Continuations == nil {
		result.Continuations = []string{}
	}
	return jsonResult(result)
}

// StatsResult is the bookStats payload.
type StatsResult struct {
	Source     string              `json:"source"`
	Nodes      int                 `json:"nodes"`
	FirstMoves []string            `json:"firstMoves"`
	Cache      cache.Stats         `json:"cache"`
	RateLimit  ratelimit.Status    `json:"rateLimit"`
	Tools      []metrics.ToolStats `json:"tools,omitempty"`
}

// HandleBookStats reports book, cache and tool statistics.
func (h *ToolsHandler) HandleBookStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := StatsResult{
		Source:     h.source,
		Nodes:      h.tree.Size(),
		FirstMoves: h.tree.Root().ChildMoves(),
		Cache:      h.cache.Stats(),
		RateLimit:  h.limiter.Status(),
	}
	if h.collector != nil {
		result.Tools = h.collector.Snapshot()
	}
	return jsonResult(result)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// FormatMoves renders a move list with move numbers, e.g. "1. e4 e5 2. Nf3".
func FormatMoves(moves []string) string {
	var sb strings.Builder
	for i, move := range moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d. ", i/2+1)
		}
		sb.WriteString(move)
	}
	return sb.String()
}
