// Package markup turns §-sigil markup into call trees and binds macro
// templates to caller-supplied arguments.
//
// Syntax summary:
//
//	§§            literal §
//	§( §)         literal parentheses
//	§# ...        comment up to and including the next newline
//	§name         macro invocation, optionally followed by one [..] or {..}
//	              parameter literal and any number of (..) argument groups
package markup

import "github.com/AljoschaMeyer/atm-htmlgen/internal/source"

// Node is the interface for all call-tree nodes.
type Node interface {
	Trace() source.Trace
	node() // marker method to restrict implementation
}

type nodeBase struct {
	trace source.Trace
}

func (n *nodeBase) Trace() source.Trace { return n.trace }
func (n *nodeBase) node()               {}

// Text is a run of literal text.
type Text struct {
	nodeBase
	Value string
}

// Argument is a placeholder for the caller's argument at Index. It only
// appears in macro templates, never in parsed source.
type Argument struct {
	nodeBase
	Index int
}

// Many is an ordered sequence of nodes, expanded and concatenated in order.
type Many struct {
	nodeBase
	Nodes []Node
}

// Call is a macro invocation.
type Call struct {
	nodeBase
	Macro  string
	Params any // decoded parameter record, nil for macros without parameters
	Args   []Node
}

// NewText returns a synthetic text node.
func NewText(s string) *Text { return &Text{Value: s} }

// Arg returns a template placeholder for argument i.
func Arg(i int) *Argument { return &Argument{Index: i} }

// Seq returns a synthetic sequence.
func Seq(nodes ...Node) *Many { return &Many{Nodes: nodes} }

// Invoke returns a synthetic macro call, used by templates.
func Invoke(macro string, params any, args ...Node) *Call {
	return &Call{Macro: macro, Params: params, Args: args}
}

// collapse returns the single item, or a Many over all items. An empty list
// becomes an empty text node.
func collapse(items []Node, tr source.Trace) Node {
	switch len(items) {
	case 0:
		return &Text{nodeBase: nodeBase{trace: tr}}
	case 1:
		return items[0]
	default:
		return &Many{nodeBase: nodeBase{trace: tr}, Nodes: items}
	}
}
