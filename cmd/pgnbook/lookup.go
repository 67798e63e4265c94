package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmmcquay/pgnbook/internal/book"
	mcptools "github.com/dmmcquay/pgnbook/internal/mcp"
)

var lookupFlags struct {
	book string
	all  bool
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [moves...]",
	Short: "Print the book move after a sequence of moves",
	Example: `  pgnbook lookup "1. e4 e5 2. Nf3"
  pgnbook lookup --all e4 c5`,
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVarP(&lookupFlags.book, "book", "b", "", "book file (default book.output from config)")
	lookupCmd.Flags().BoolVarP(&lookupFlags.all, "all", "a", false, "print every book reply, most popular first")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	path := lookupFlags.book
	if path == "" {
		path = cfg.Book.Output
	}

	tree, err := book.ReadFile(path, cfg.Book.Indent)
	if err != nil {
		return err
	}
	moves := book.ParseMoveList(strings.Join(args, " "))
	logger.Debug("Looking up position", "book", path, "moves", mcptools.FormatMoves(moves))

	out := cmd.OutOrStdout()
	if lookupFlags.all {
		replies, ok := book.Continuations(tree, moves)
		if !ok || len(replies) == 0 {
			fmt.Fprintln(out, mcptools.NoBookMove)
			return nil
		}
		for _, reply := range replies {
			fmt.Fprintln(out, reply)
		}
		return nil
	}

	next, ok := book.Lookup(tree, moves)
	if !ok {
		next = mcptools.NoBookMove
	}
	fmt.Fprintln(out, next)
	return nil
}
