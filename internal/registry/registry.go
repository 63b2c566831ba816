// Package registry provides the cross-reference database that survives both
// passes of a build. Pass 1 populates it; pass 2 re-derives the same entries
// and resolves references against what pass 1 found.
package registry

import (
	"fmt"
	"sort"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/navtree"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
)

// Pass identifies one complete parse and expansion of the document.
type Pass int

// Pass constants.
const (
	PassDiscovery Pass = iota + 1 // registers ids, writes nothing
	PassEmit                      // resolves references, writes output
)

func (p Pass) String() string {
	switch p {
	case PassDiscovery:
		return "discovery"
	case PassEmit:
		return "emit"
	default:
		return "unknown"
	}
}

// Kind is the kind of thing an identifier names.
type Kind int

// Kind constants.
const (
	KindSection Kind = iota + 1
	KindBox
	KindCase
	KindDefinitionAnchor
)

func (k Kind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindBox:
		return "box"
	case KindCase:
		return "case"
	case KindDefinitionAnchor:
		return "definition"
	default:
		return "unknown"
	}
}

// IDInfo describes a registered identifier.
type IDInfo struct {
	Trace source.Trace
	File  string // output path relative to the build directory
	Kind  Kind
}

// SectionInfo describes a heading.
type SectionInfo struct {
	Label     string // "Chapter", "Section", ...
	Title     string
	Numbering string
}

// BoxInfo describes a boxed unit such as a theorem or exercise.
type BoxInfo struct {
	Label     string // "Theorem", "Exercise", ...
	Numbering string
	Classes   string
}

// TermInfo describes a defined term.
type TermInfo struct {
	Href     string
	Preview  string
	Singular string
	Plural   string
	Trace    source.Trace
}

// SymbolInfo links a math symbol to the identifier that introduces it.
type SymbolInfo struct {
	Target string
	Trace  source.Trace
}

// DuplicateError reports a name registered twice in the discovery pass.
type DuplicateError struct {
	Table  string
	Key    string
	First  source.Trace
	Second source.Trace
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q registered twice", e.Table, e.Key)
}

// Registry is the sticky cross-reference database.
type Registry struct {
	pass Pass

	// ids maps identifiers to where and what they are: "intro" → {File: "index.html", Kind: KindSection}
	ids map[string]IDInfo

	// sections, boxes and cases hold per-kind details keyed by identifier
	sections map[string]SectionInfo
	boxes    map[string]BoxInfo
	cases    map[string]string

	// terms maps defined terms to their link targets: "group" → {Href: ".../#def_group"}
	terms map[string]TermInfo

	// symbols maps math symbol names to the identifier they link to
	symbols map[string]SymbolInfo

	nav *navtree.Tree

	// keys records every name registered in each pass, prefixed by table
	keys map[Pass]map[string]struct{}
}

// New creates an empty registry. It is created once per build.
func New() *Registry {
	return &Registry{
		ids:      make(map[string]IDInfo),
		sections: make(map[string]SectionInfo),
		boxes:    make(map[string]BoxInfo),
		cases:    make(map[string]string),
		terms:    make(map[string]TermInfo),
		symbols:  make(map[string]SymbolInfo),
		nav:      navtree.New(),
		keys:     make(map[Pass]map[string]struct{}),
	}
}

// BeginPass starts a pass. The navigation tree built so far becomes the
// finished tree that sibling lookups consult.
func (r *Registry) BeginPass(p Pass) {
	r.pass = p
	r.nav.Reset()
	r.keys[p] = make(map[string]struct{})
}

// Pass returns the pass in progress.
func (r *Registry) Pass() Pass { return r.pass }

// Nav returns the section navigation tree.
func (r *Registry) Nav() *navtree.Tree { return r.nav }

func (r *Registry) record(table, key string) {
	if r.keys[r.pass] == nil {
		r.keys[r.pass] = make(map[string]struct{})
	}
	r.keys[r.pass][table+":"+key] = struct{}{}
}

// RegisterID registers an identifier. Registering a name twice is an error
// in the discovery pass only; the emit pass re-derives the same names.
func (r *Registry) RegisterID(id string, info IDInfo) error {
	if old, ok := r.ids[id]; ok && r.pass != PassEmit {
		return &DuplicateError{Table: "identifier", Key: id, First: old.Trace, Second: info.Trace}
	}
	r.ids[id] = info
	r.record("id", id)
	return nil
}

// ID looks up an identifier.
func (r *Registry) ID(id string) (IDInfo, bool) {
	info, ok := r.ids[id]
	return info, ok
}

// SetSection stores heading details for a registered identifier.
func (r *Registry) SetSection(id string, info SectionInfo) { r.sections[id] = info }

// Section looks up heading details.
func (r *Registry) Section(id string) (SectionInfo, bool) {
	info, ok := r.sections[id]
	return info, ok
}

// SetBox stores box details for a registered identifier.
func (r *Registry) SetBox(id string, info BoxInfo) { r.boxes[id] = info }

// Box looks up box details.
func (r *Registry) Box(id string) (BoxInfo, bool) {
	info, ok := r.boxes[id]
	return info, ok
}

// SetCase stores the numbering of a case.
func (r *Registry) SetCase(id, numbering string) { r.cases[id] = numbering }

// Case looks up the numbering of a case.
func (r *Registry) Case(id string) (string, bool) {
	n, ok := r.cases[id]
	return n, ok
}

// DefineTerm registers a defined term, with the same duplicate policy as
// RegisterID.
func (r *Registry) DefineTerm(term string, info TermInfo) error {
	if old, ok := r.terms[term]; ok && r.pass != PassEmit {
		return &DuplicateError{Table: "definition", Key: term, First: old.Trace, Second: info.Trace}
	}
	r.terms[term] = info
	r.record("term", term)
	return nil
}

// Term looks up a defined term.
func (r *Registry) Term(term string) (TermInfo, bool) {
	info, ok := r.terms[term]
	return info, ok
}

// SetMathSymbol links a math symbol to an identifier, with the same
// duplicate policy as RegisterID.
func (r *Registry) SetMathSymbol(symbol string, info SymbolInfo) error {
	if old, ok := r.symbols[symbol]; ok && r.pass != PassEmit {
		return &DuplicateError{Table: "math symbol", Key: symbol, First: old.Trace, Second: info.Trace}
	}
	r.symbols[symbol] = info
	r.record("symbol", symbol)
	return nil
}

// MathSymbol looks up a math symbol.
func (r *Registry) MathSymbol(symbol string) (SymbolInfo, bool) {
	info, ok := r.symbols[symbol]
	return info, ok
}

// IDs returns all registered identifiers, sorted.
func (r *Registry) IDs() []string { return sortedKeys(r.ids) }

// Terms returns all defined terms, sorted.
func (r *Registry) Terms() []string { return sortedKeys(r.terms) }

// Keys returns every name registered during pass p, sorted and prefixed
// with its table ("id:intro", "term:group", "symbol:phi").
func (r *Registry) Keys(p Pass) []string { return sortedKeys(r.keys[p]) }

// Diff compares the names registered in two passes.
func (r *Registry) Diff(a, b Pass) (onlyA, onlyB []string) {
	for k := range r.keys[a] {
		if _, ok := r.keys[b][k]; !ok {
			onlyA = append(onlyA, k)
		}
	}
	for k := range r.keys[b] {
		if _, ok := r.keys[a][k]; !ok {
			onlyB = append(onlyB, k)
		}
	}
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return onlyA, onlyB
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
