package book

import (
	"strings"

	"github.com/dmmcquay/pgnbook/internal/pgn"
)

// ParseMoveList turns a move list such as "1. e4 e5 2. Nf3" into moves,
// dropping move numbers and results. Comments are not expected here; an
// unclosed one simply ends the list.
func ParseMoveList(s string) []string {
	moves, _ := pgn.Tokenize(strings.TrimSpace(s))
	return moves
}

// Find follows moves from the root and returns the node reached, or nil if
// the book leaves the line before the last move.
func Find(t *Tree, moves []string) *Node {
	current := t.root
	for _, move := range moves {
		current = current.ChildByMove(move)
		if current == nil {
			return nil
		}
	}
	return current
}

// Lookup returns the most popular book reply after moves. It reports false
// when the line is out of book or the book has no reply there.
func Lookup(t *Tree, moves []string) (string, bool) {
	n := Find(t, moves)
	if n == nil || len(n.children) == 0 {
		return "", false
	}
	return n.children[0].Move, true
}

// Continuations returns every book reply after moves in book order.
func Continuations(t *Tree, moves []string) ([]string, bool) {
	n := Find(t, moves)
	if n == nil {
		return nil, false
	}
	return n.ChildMoves(), true
}
