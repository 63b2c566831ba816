package navtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// build walks one pass over two chapters, the first with two sections.
func build(t *Tree, visit func()) {
	t.Push("ch1")
	t.Push("s1")
	visit()
	t.Pop()
	t.Push("s2")
	t.Pop()
	t.Pop()
	t.Push("ch2")
	t.Pop()
}

func TestTree_SiblingsUseFinishedTree(t *testing.T) {
	tree := New()

	var prev, next string
	build(tree, func() { prev, next = tree.Siblings() })
	assert.Empty(t, prev, "first pass has no finished tree")
	assert.Empty(t, next)

	tree.Reset()
	build(tree, func() { prev, next = tree.Siblings() })
	assert.Empty(t, prev)
	assert.Equal(t, "s2", next)
}

func TestTree_ChapterSiblings(t *testing.T) {
	tree := New()
	build(tree, func() {})
	tree.Reset()

	tree.Push("ch1")
	prev, next := tree.Siblings()
	assert.Empty(t, prev)
	assert.Equal(t, "ch2", next)
	tree.Pop()

	tree.Push("ch2")
	prev, next = tree.Siblings()
	assert.Equal(t, "ch1", prev)
	assert.Empty(t, next)
	assert.Equal(t, []int{1}, tree.Path())
}

func TestTree_PopAtRoot(t *testing.T) {
	tree := New()
	tree.Pop()
	assert.Equal(t, 0, tree.Depth())
	prev, next := tree.Siblings()
	assert.Empty(t, prev)
	assert.Empty(t, next)
}

func TestTree_Outline(t *testing.T) {
	tree := New()
	build(tree, func() {})
	tree.Reset()

	assert.Equal(t, []Entry{
		{ID: "ch1", Depth: 0},
		{ID: "s1", Depth: 1},
		{ID: "s2", Depth: 1},
		{ID: "ch2", Depth: 0},
	}, tree.Outline())
}
