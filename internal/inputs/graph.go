// Package inputs records which source files include which.
// The graph is built while a pass expands the document and stays acyclic:
// an include that would close a cycle is rejected before the file is read.
package inputs

import (
	"errors"
	"strings"
)

// ErrCycle is returned when a file would include itself, directly or through
// other files.
var ErrCycle = errors.New("input includes itself")

// CycleError carries the include chain that closes the cycle. Path starts and
// ends with the same file. Its message is the chain alone; callers wrap it.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// Graph is a directed graph of files; an edge runs from a file to a file it
// includes.
type Graph struct {
	order    []string            // files in order of first inclusion
	includes map[string][]string // file -> included files
	parents  map[string][]string // file -> including files
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		includes: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// Len returns the number of files in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Has reports whether file is part of the graph.
func (g *Graph) Has(file string) bool {
	_, ok := g.includes[file]
	return ok
}

// AddFile adds a file without edges. Adding a known file is a no-op.
func (g *Graph) AddFile(file string) {
	if g.Has(file) {
		return
	}
	g.order = append(g.order, file)
	g.includes[file] = []string{}
}

// AddInclude records that parent includes child. Including the same file
// from several places is fine; closing a cycle is not.
func (g *Graph) AddInclude(parent, child string) error {
	g.AddFile(parent)
	if path := g.pathTo(child, parent); path != nil {
		return &CycleError{Path: append([]string{parent}, path...)}
	}
	g.AddFile(child)
	if !contains(g.includes[parent], child) {
		g.includes[parent] = append(g.includes[parent], child)
	}
	if !contains(g.parents[child], parent) {
		g.parents[child] = append(g.parents[child], parent)
	}
	return nil
}

// pathTo returns the include chain from 'from' to 'to', both included, or nil
// if 'to' cannot be reached.
func (g *Graph) pathTo(from, to string) []string {
	if from == to {
		return []string{from}
	}
	visited := make(map[string]bool)
	prev := make(map[string]string)

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		for _, next := range g.includes[id] {
			if visited[next] {
				continue
			}
			prev[next] = id
			if next == to || dfs(next) {
				return true
			}
		}
		return false
	}
	if !dfs(from) {
		return nil
	}

	path := []string{to}
	for curr := to; curr != from; {
		curr = prev[curr]
		path = append([]string{curr}, path...)
	}
	return path
}

// Includes returns the files file includes directly, in order.
func (g *Graph) Includes(file string) []string {
	return g.includes[file]
}


// Files returns every file with each file listed before the files it
// includes. Ties keep the order of first inclusion.
func (g *Graph) Files() []string {
	visited := make(map[string]bool, len(g.order))
	result := make([]string, 0, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, p := range g.parents[id] {
			visit(p)
		}
		result = append(result, id)
	}
	for _, id := range g.order {
		visit(id)
	}
	return result
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
