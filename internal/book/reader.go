package book

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedBook is returned when a book file skips an indentation level.
var ErrMalformedBook = errors.New("malformed book")

// Read parses a book written by Write back into a tree. Child order is the
// file order; popularity counts are not part of the format and are left at 1.
func Read(r io.Reader, indent string) (*Tree, error) {
	if indent == "" {
		indent = DefaultIndent
	}

	t := NewTree()
	parent := t.root
	lastDepth := -1

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		depth := 0
		for strings.HasPrefix(line, indent) {
			line = line[len(indent):]
			depth++
		}
		move := strings.TrimSpace(line)

		if depth > lastDepth+1 {
			return nil, fmt.Errorf("%w: line %d is nested %d levels below its parent", ErrMalformedBook, lineNo, depth-lastDepth)
		}
		for lastDepth >= depth {
			parent = parent.parent
			lastDepth--
		}

		if existing := parent.ChildByMove(move); existing != nil {
			return nil, fmt.Errorf("%w: line %d repeats move %q", ErrMalformedBook, lineNo, move)
		}
		parent = parent.addChild(move)
		t.size++
		lastDepth = depth
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read book: %w", err)
	}
	return t, nil
}

// ReadFile loads a book from path.
func ReadFile(path, indent string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open book: %w", err)
	}
	defer f.Close()
	return Read(f, indent)
}
