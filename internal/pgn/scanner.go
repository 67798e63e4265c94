package pgn

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single line of a PGN source. Some exports put the
// whole move text of a game on one line.
const maxLineSize = 1024 * 1024

// Scanner reads game move-text blocks from a PGN source.
//
// A block starts at a line beginning with "1." and runs until the next
// blank line or the end of input. Tag pairs and any other text between
// blocks are skipped.
type Scanner struct {
	sc    *bufio.Scanner
	block []string
	line  int
	err   error
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Scanner{sc: sc}
}

// Scan advances to the next block. It returns false at the end of input or
// on a read error, which Err reports.
func (s *Scanner) Scan() bool {
	s.block = nil
	for s.sc.Scan() {
		s.line++
		text := strings.TrimRight(s.sc.Text(), "\r")

		if s.block == nil {
			if strings.HasPrefix(text, "1.") {
				s.block = []string{text}
			}
			continue
		}

		if strings.TrimSpace(text) == "" {
			return true
		}
		s.block = append(s.block, text)
	}

	s.err = s.sc.Err()
	return s.block != nil && s.err == nil
}

// Block returns the lines of the current block.
func (s *Scanner) Block() []string {
	return s.block
}

// Moves tokenizes the current block.
func (s *Scanner) Moves() ([]string, error) {
	return TokenizeLines(s.block)
}

// Line returns the number of lines consumed so far.
func (s *Scanner) Line() int {
	return s.line
}

// Err returns the first read error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}
