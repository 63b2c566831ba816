package expand

import (
	"fmt"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"gopkg.in/yaml.v3"
)

// Attrs are HTML attributes, written as a flow map: {class: note, title: "x y"}.
type Attrs map[string]string

// IDParams name the identifier a macro registers or refers to: [intro].
type IDParams struct{ ID string }

// PathParams name a file: ["chapters/one.atm"].
type PathParams struct{ Path string }

// CopyParams name a source and a destination: [assets, static].
type CopyParams struct{ From, To string }

// TermParams name a defined term and optionally its forms:
// [group], [group, groups] or [group, group, groups].
type TermParams struct{ Term, Singular, Plural string }

// SymbolParams link a math symbol to an identifier: [phi, euler_phi].
type SymbolParams struct{ Symbol, Target string }

// ClassParams carry a CSS class: [highlight].
type ClassParams struct{ Class string }

// URLParams carry a URL: ["https://example.org/"].
type URLParams struct{ URL string }

func newAttrs() any        { return &Attrs{} }
func newIDParams() any     { return &IDParams{} }
func newPathParams() any   { return &PathParams{} }
func newCopyParams() any   { return &CopyParams{} }
func newTermParams() any   { return &TermParams{} }
func newSymbolParams() any { return &SymbolParams{} }
func newClassParams() any  { return &ClassParams{} }
func newURLParams() any    { return &URLParams{} }

// decodeTuple decodes a flow sequence of scalars positionally into dst. The
// first required elements must be present. A lone scalar counts as a
// one-element sequence.
func decodeTuple(n *yaml.Node, required int, dst ...*string) error {
	var items []*yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		items = []*yaml.Node{n}
	case yaml.SequenceNode:
		items = n.Content
	default:
		return fmt.Errorf("line %d: expected a sequence", n.Line)
	}
	if len(items) < required || len(items) > len(dst) {
		if required == len(dst) {
			return fmt.Errorf("expected %d values, got %d", required, len(items))
		}
		return fmt.Errorf("expected %d to %d values, got %d", required, len(dst), len(items))
	}
	for i, item := range items {
		if item.Kind != yaml.ScalarNode {
			return fmt.Errorf("value %d: expected a string", i+1)
		}
		*dst[i] = item.Value
	}
	return nil
}

func (p *IDParams) UnmarshalYAML(n *yaml.Node) error     { return decodeTuple(n, 1, &p.ID) }
func (p *PathParams) UnmarshalYAML(n *yaml.Node) error   { return decodeTuple(n, 1, &p.Path) }
func (p *CopyParams) UnmarshalYAML(n *yaml.Node) error   { return decodeTuple(n, 2, &p.From, &p.To) }
func (p *SymbolParams) UnmarshalYAML(n *yaml.Node) error { return decodeTuple(n, 2, &p.Symbol, &p.Target) }
func (p *ClassParams) UnmarshalYAML(n *yaml.Node) error  { return decodeTuple(n, 1, &p.Class) }
func (p *URLParams) UnmarshalYAML(n *yaml.Node) error    { return decodeTuple(n, 1, &p.URL) }

func (p *TermParams) UnmarshalYAML(n *yaml.Node) error {
	var a, b, c string
	if err := decodeTuple(n, 1, &a, &b, &c); err != nil {
		return err
	}
	switch {
	case c != "":
		p.Term, p.Singular, p.Plural = a, b, c
	case b != "":
		p.Term, p.Singular, p.Plural = a, a, b
	default:
		p.Term, p.Singular, p.Plural = a, a, ""
	}
	return nil
}

// paramsOf returns the call's parameter record, or a zero record if the
// invocation had no parameter literal.
func paramsOf[T any](c *markup.Call) *T {
	if p, ok := c.Params.(*T); ok && p != nil {
		return p
	}
	return new(T)
}
