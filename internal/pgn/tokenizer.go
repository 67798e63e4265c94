// Package pgn turns PGN move text into plain move sequences.
package pgn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedComment is returned when a game's move text opens a
// brace comment that is never closed.
var ErrUnterminatedComment = errors.New("unterminated comment")

// resultMarkers are the game termination markers that end PGN move text.
var resultMarkers = map[string]bool{
	"1-0":     true,
	"0-1":     true,
	"1/2-1/2": true,
	"*":       true,
}

// Tokenize splits one game's move text into half-move tokens.
func Tokenize(block string) ([]string, error) {
	return TokenizeLines(strings.Split(block, "\n"))
}

// TokenizeLines is Tokenize for a block that is already split into lines.
//
// Brace comments, move numbers and result markers are removed in a single
// pass. A token that falls inside a comment is always part of the comment,
// even when it looks like a move number or a result. If the block ends with
// a comment still open, the moves read before it are returned together with
// ErrUnterminatedComment.
func TokenizeLines(lines []string) ([]string, error) {
	var tokens []string
	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		tokens = append(tokens, strings.Fields(line)...)
	}

	moves := make([]string, 0, len(tokens))
	inComment := false
	openedAt := -1
	for i, tok := range tokens {
		if !inComment && !strings.Contains(tok, "{") {
			if IsMoveNumber(tok) || IsResult(tok) {
				continue
			}
			moves = append(moves, tok)
			continue
		}
		if !inComment {
			openedAt = i
		}
		inComment = commentOpenAfter(tok, inComment)
	}

	if inComment {
		return moves, fmt.Errorf("%w: opened at token %d", ErrUnterminatedComment, openedAt+1)
	}
	return moves, nil
}

// commentOpenAfter reports whether a comment is still open once tok has been
// consumed. The last brace in the token decides.
func commentOpenAfter(tok string, open bool) bool {
	last := strings.LastIndexAny(tok, "{}")
	if last < 0 {
		return open
	}
	return tok[last] == '{'
}

// IsMoveNumber reports whether tok is a move number label such as "12." or "12...".
func IsMoveNumber(tok string) bool {
	return strings.HasSuffix(tok, ".")
}

// IsResult reports whether tok is a game termination marker.
func IsResult(tok string) bool {
	return resultMarkers[tok]
}
