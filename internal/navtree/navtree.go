// Package navtree tracks section nesting. The tree is rebuilt on every pass,
// while sibling lookups consult the tree finished during the previous pass.
package navtree

// node is one section. Children are indices into the owning arena.
type node struct {
	id       string
	children []int
}

// Tree is an arena-backed section tree. Index 0 is always the root.
type Tree struct {
	nodes    []node
	finished []node
	path     []int // child positions from the root to the open section
}

// New returns an empty tree with an empty finished tree.
func New() *Tree {
	return &Tree{
		nodes:    []node{{}},
		finished: []node{{}},
	}
}

// Reset finishes the current tree and starts a fresh one.
func (t *Tree) Reset() {
	t.finished = t.nodes
	t.nodes = []node{{}}
	t.path = nil
}

// current returns the arena index of the open section.
func (t *Tree) current() int {
	cur := 0
	for _, pos := range t.path {
		cur = t.nodes[cur].children[pos]
	}
	return cur
}

// Push opens a new child section of the open section.
func (t *Tree) Push(id string) {
	parent := t.current()
	t.nodes = append(t.nodes, node{id: id})
	child := len(t.nodes) - 1
	t.nodes[parent].children = append(t.nodes[parent].children, child)
	t.path = append(t.path, len(t.nodes[parent].children)-1)
}

// Pop closes the open section.
func (t *Tree) Pop() {
	if len(t.path) > 0 {
		t.path = t.path[:len(t.path)-1]
	}
}

// Depth returns the number of open sections.
func (t *Tree) Depth() int { return len(t.path) }

// Path returns a copy of the current path.
func (t *Tree) Path() []int {
	return append([]int(nil), t.path...)
}

// Siblings returns the ids of the previous and next sibling of the open
// section, looked up in the finished tree. An empty string means there is
// no such sibling.
func (t *Tree) Siblings() (prev, next string) {
	if len(t.path) == 0 {
		return "", ""
	}

	// Walk to the parent in the finished tree.
	parent := 0
	for _, pos := range t.path[:len(t.path)-1] {
		children := t.finished[parent].children
		if pos >= len(children) {
			return "", ""
		}
		parent = children[pos]
	}

	children := t.finished[parent].children
	last := t.path[len(t.path)-1]
	if last-1 >= 0 && last-1 < len(children) {
		prev = t.finished[children[last-1]].id
	}
	if last+1 < len(children) {
		next = t.finished[children[last+1]].id
	}
	return prev, next
}

// Entry is one section in an outline listing.
type Entry struct {
	ID    string
	Depth int
}

// Outline lists the finished tree in document order.
func (t *Tree) Outline() []Entry {
	var out []Entry
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		for _, c := range t.finished[idx].children {
			out = append(out, Entry{ID: t.finished[c].id, Depth: depth})
			walk(c, depth+1)
		}
	}
	walk(0, 0)
	return out
}
