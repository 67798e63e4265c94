// Package book builds, prunes and serializes opening-book move trees.
package book

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidThreshold is returned by Prune for thresholds below 1.
var ErrInvalidThreshold = errors.New("invalid prune threshold")

// Node is one position in the move tree, reached by playing Move from its
// parent. The root has an empty Move and its Popularity is unused.
type Node struct {
	Move       string
	Popularity int

	parent   *Node
	children []*Node
	index    map[string]int
}

func newNode(parent *Node, move string) *Node {
	return &Node{
		Move:       move,
		Popularity: 1,
		parent:     parent,
	}
}

// Parent returns the node this one was reached from, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in their current order. The slice
// must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// ChildMoves returns the moves of the node's children in order.
func (n *Node) ChildMoves() []string {
	moves := make([]string, len(n.children))
	for i, child := range n.children {
		moves[i] = child.Move
	}
	return moves
}

// ChildByMove returns the child reached by move, or nil.
func (n *Node) ChildByMove(move string) *Node {
	if i, ok := n.index[move]; ok {
		return n.children[i]
	}
	return nil
}

// addChild appends a new child for move. The caller guarantees move is not
// already a child.
func (n *Node) addChild(move string) *Node {
	child := newNode(n, move)
	if n.index == nil {
		n.index = make(map[string]int)
	}
	n.index[move] = len(n.children)
	n.children = append(n.children, child)
	return child
}

// setChildren replaces the child list and rebuilds the move index.
func (n *Node) setChildren(children []*Node) {
	index := make(map[string]int, len(children))
	for i, child := range children {
		index[child.Move] = i
	}
	n.children = children
	n.index = index
}

// Tree is a move-frequency tree rooted at the starting position.
//
// A Tree is not safe for concurrent mutation. Once building is done it may
// be read from any number of goroutines.
type Tree struct {
	root *Node
	size int
}

// NewTree returns a tree holding only the root.
func NewTree() *Tree {
	root := newNode(nil, "")
	root.Popularity = 0
	return &Tree{root: root}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Size returns the number of nodes in the tree, not counting the root.
func (t *Tree) Size() int {
	return t.size
}

// Insert records one game. Every node on the path of moves has its
// popularity incremented; missing nodes are created with popularity 1.
func (t *Tree) Insert(moves []string) {
	current := t.root
	for _, move := range moves {
		if child := current.ChildByMove(move); child != nil {
			child.Popularity++
			current = child
			continue
		}
		current = current.addChild(move)
		t.size++
	}
}

// Prune removes every node whose popularity is below threshold, together
// with its subtree. It returns the number of nodes removed.
func (t *Tree) Prune(threshold int) (int, error) {
	if threshold < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}
	removed := prune(t.root, threshold)
	t.size -= removed
	return removed, nil
}

func prune(n *Node, threshold int) int {
	if len(n.children) == 0 {
		return 0
	}

	removed := 0
	kept := make([]*Node, 0, len(n.children))
	for _, child := range n.children {
		if child.Popularity >= threshold {
			kept = append(kept, child)
			continue
		}
		removed += subtreeSize(child)
	}
	if len(kept) != len(n.children) {
		n.setChildren(kept)
	}

	for _, child := range kept {
		removed += prune(child, threshold)
	}
	return removed
}

func subtreeSize(n *Node) int {
	size := 1
	for _, child := range n.children {
		size += subtreeSize(child)
	}
	return size
}

// SortByPopularity orders the children of every node by descending
// popularity. Children with equal popularity keep their relative order.
func (t *Tree) SortByPopularity() {
	sortByPopularity(t.root)
}

func sortByPopularity(n *Node) {
	if len(n.children) > 1 {
		sorted := make([]*Node, len(n.children))
		copy(sorted, n.children)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Popularity > sorted[j].Popularity
		})
		n.setChildren(sorted)
	}
	for _, child := range n.children {
		sortByPopularity(child)
	}
}

// WalkFunc is called for every node visited by Walk. depth is 0 for the
// root's children.
type WalkFunc func(depth int, n *Node) error

// Walk visits every node except the root in pre-order, children in their
// current order. It stops at the first error returned by fn.
func (t *Tree) Walk(fn WalkFunc) error {
	return walk(t.root, 0, fn)
}

func walk(n *Node, depth int, fn WalkFunc) error {
	for _, child := range n.children {
		if err := fn(depth, child); err != nil {
			return err
		}
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
