package book

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIndent is the indentation written per tree level.
const DefaultIndent = " "

// Write serializes the tree to w, one move per line in pre-order, each line
// indented by depth copies of indent. It returns the number of moves written.
func Write(w io.Writer, t *Tree, indent string) (int, error) {
	bw := bufio.NewWriter(w)
	count := 0
	err := t.Walk(func(depth int, n *Node) error {
		if _, err := bw.WriteString(strings.Repeat(indent, depth)); err != nil {
			return err
		}
		if _, err := bw.WriteString(n.Move); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to write book: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("failed to write book: %w", err)
	}
	return count, nil
}

// WriteFile writes the book to path. The file is written under a temporary
// name in the same directory and renamed into place once complete.
func WriteFile(path string, t *Tree, indent string) (int, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create book file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has happened.
		_ = os.Remove(tmpName)
	}()

	count, err := Write(tmp, t, indent)
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close book file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("failed to move book into place: %w", err)
	}
	return count, nil
}
