package book

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSiblingsUnique(t *testing.T, tree *Tree) {
	t.Helper()
	var check func(n *Node)
	check = func(n *Node) {
		seen := make(map[string]bool)
		for _, child := range n.Children() {
			assert.False(t, seen[child.Move], "duplicate sibling %q under %q", child.Move, n.Move)
			seen[child.Move] = true
			assert.Same(t, n, child.Parent())
			check(child)
		}
	}
	check(tree.Root())
}

func randomGames(r *rand.Rand, n int) [][]string {
	pool := []string{"e4", "d4", "c4", "Nf3", "e5", "c5", "d5", "Nf6"}
	games := make([][]string, n)
	for i := range games {
		length := r.Intn(6)
		game := make([]string, length)
		for j := range game {
			game[j] = pool[r.Intn(len(pool))]
		}
		games[i] = game
	}
	return games
}

func TestInsert_SiblingUniqueness(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	tree := NewTree()
	for _, game := range randomGames(r, 500) {
		tree.Insert(game)
	}
	assertSiblingsUnique(t, tree)
}

func TestInsert_Popularity(t *testing.T) {
	tree := NewTree()
	prefix := []string{"d4", "Nf6", "c4"}
	for i := 0; i < 5; i++ {
		tree.Insert(append(append([]string{}, prefix...), fmt.Sprintf("m%d", i)))
	}
	tree.Insert([]string{"e4"})

	n := Find(tree, prefix)
	require.NotNil(t, n)
	assert.Equal(t, 5, n.Popularity)
	assert.Len(t, n.Children(), 5)
	for _, child := range n.Children() {
		assert.Equal(t, 1, child.Popularity)
	}
	assert.Equal(t, 1, tree.Root().ChildByMove("e4").Popularity)
	assert.Equal(t, 9, tree.Size())
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	tree := NewTree()
	tree.Insert(nil)
	tree.Insert([]string{})
	assert.Empty(t, tree.Root().Children())
	assert.Equal(t, 0, tree.Size())
}

func TestChildLookup(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"e4", "e5"})
	tree.Insert([]string{"d4"})
	tree.Insert([]string{"e4", "c5"})

	assert.Equal(t, []string{"e4", "d4"}, tree.Root().ChildMoves())
	e4 := tree.Root().ChildByMove("e4")
	require.NotNil(t, e4)
	assert.Equal(t, []string{"e5", "c5"}, e4.ChildMoves())
	assert.Nil(t, tree.Root().ChildByMove("c4"))
}

func TestPrune_EndToEnd(t *testing.T) {
	build := func() *Tree {
		tree := NewTree()
		tree.Insert([]string{"e4", "e5"})
		tree.Insert([]string{"e4", "c5"})
		return tree
	}

	tree := build()
	removed, err := tree.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	e4 := tree.Root().ChildByMove("e4")
	require.NotNil(t, e4)
	assert.Equal(t, 2, e4.Popularity)
	assert.Equal(t, []string{"e5", "c5"}, e4.ChildMoves())

	tree = build()
	removed, err = tree.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"e4"}, tree.Root().ChildMoves())
	assert.Empty(t, tree.Root().ChildByMove("e4").Children())
	assert.Nil(t, tree.Root().ChildByMove("e4").ChildByMove("e5"))
	assert.Equal(t, 1, tree.Size())
}

func TestPrune_RemovesSubtreeTransitively(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"a4", "e5"})
	for i := 0; i < 3; i++ {
		tree.Insert([]string{"e4", "e5", "Nf3"})
	}

	// a4 -> e5 is below threshold as a whole, even though e5 elsewhere is popular.
	_, err := tree.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e4"}, tree.Root().ChildMoves())
	assert.NotNil(t, Find(tree, []string{"e4", "e5", "Nf3"}))
}

func TestPrune_Correctness(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	games := randomGames(r, 2000)
	tree := NewTree()
	for _, game := range games {
		tree.Insert(game)
	}

	// Expected survivors: every path whose nodes all meet the threshold.
	const threshold = 15
	want := make(map[string]bool)
	_ = tree.Walk(func(depth int, n *Node) error {
		for p := n; p.Parent() != nil; p = p.Parent() {
			if p.Popularity < threshold {
				return nil
			}
		}
		want[pathOf(n)] = true
		return nil
	})

	_, err := tree.Prune(threshold)
	require.NoError(t, err)

	got := make(map[string]bool)
	count := 0
	_ = tree.Walk(func(depth int, n *Node) error {
		assert.GreaterOrEqual(t, n.Popularity, threshold)
		got[pathOf(n)] = true
		count++
		return nil
	})
	assert.Equal(t, want, got)
	assert.Equal(t, count, tree.Size())
	assertSiblingsUnique(t, tree)
}

func pathOf(n *Node) string {
	path := ""
	for p := n; p.Parent() != nil; p = p.Parent() {
		path = "/" + p.Move + path
	}
	return path
}

func TestPrune_Idempotent(t *testing.T) {
	tree := NewTree()
	for _, game := range randomGames(rand.New(rand.NewSource(3)), 300) {
		tree.Insert(game)
	}
	_, err := tree.Prune(4)
	require.NoError(t, err)
	before := snapshot(t, tree)

	removed, err := tree.Prune(4)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	removed, err = tree.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, before, snapshot(t, tree))
}

func TestPrune_InvalidThreshold(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"e4"})

	for _, threshold := range []int{0, -3} {
		_, err := tree.Prune(threshold)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	}
	assert.Equal(t, 1, tree.Size())
}

func TestSortByPopularity(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"c4"})
	tree.Insert([]string{"d4", "d5"})
	tree.Insert([]string{"d4", "Nf6"})
	tree.Insert([]string{"d4", "Nf6"})
	tree.Insert([]string{"e4"})
	tree.Insert([]string{"e4"})
	tree.Insert([]string{"e4"})

	tree.SortByPopularity()

	assert.Equal(t, []string{"d4", "e4", "c4"}, tree.Root().ChildMoves())
	assert.Equal(t, []string{"Nf6", "d5"}, tree.Root().ChildByMove("d4").ChildMoves())
	// Index still resolves after reordering.
	assert.Equal(t, 3, tree.Root().ChildByMove("e4").Popularity)
	assert.Equal(t, 2, tree.Root().ChildByMove("d4").ChildByMove("Nf6").Popularity)
}

func TestSortByPopularity_StableAndIdempotent(t *testing.T) {
	tree := NewTree()
	for _, game := range randomGames(rand.New(rand.NewSource(11)), 400) {
		tree.Insert(game)
	}
	tree.SortByPopularity()

	_ = tree.Walk(func(depth int, n *Node) error {
		children := n.Children()
		for i := 1; i < len(children); i++ {
			assert.GreaterOrEqual(t, children[i-1].Popularity, children[i].Popularity)
		}
		return nil
	})

	once := snapshot(t, tree)
	tree.SortByPopularity()
	assert.Equal(t, once, snapshot(t, tree))
}

func TestSortByPopularity_TiesKeepInsertionOrder(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"A", "B"})
	tree.Insert([]string{"C"})
	tree.Insert([]string{"A"})
	tree.Insert([]string{"C"})

	tree.SortByPopularity()
	assert.Equal(t, []string{"A", "C"}, tree.Root().ChildMoves())
}

func snapshot(t *testing.T, tree *Tree) []string {
	t.Helper()
	var lines []string
	err := tree.Walk(func(depth int, n *Node) error {
		lines = append(lines, fmt.Sprintf("%d:%s:%d", depth, n.Move, n.Popularity))
		return nil
	})
	require.NoError(t, err)
	return lines
}
