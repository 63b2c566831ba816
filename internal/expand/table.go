package expand

import (
	"fmt"
	"sort"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
)

// Arity is the number of arguments a macro accepts.
type Arity struct {
	Min int
	Max int // -1 for no upper bound
}

// Exactly accepts n arguments.
func Exactly(n int) Arity { return Arity{Min: n, Max: n} }

// AtLeast accepts n or more arguments.
func AtLeast(n int) Arity { return Arity{Min: n, Max: -1} }

// AtMost accepts up to n arguments.
func AtMost(n int) Arity { return Arity{Min: 0, Max: n} }

// Between accepts min to max arguments.
func Between(minArgs, maxArgs int) Arity { return Arity{Min: minArgs, Max: maxArgs} }

// Accepts reports whether n arguments satisfy the arity.
func (a Arity) Accepts(n int) bool {
	return n >= a.Min && (a.Max < 0 || n <= a.Max)
}

func (a Arity) String() string {
	switch {
	case a.Max < 0:
		return fmt.Sprintf("at least %d", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d", a.Min)
	case a.Min == 0:
		return fmt.Sprintf("at most %d", a.Max)
	default:
		return fmt.Sprintf("%d to %d", a.Min, a.Max)
	}
}

// DownFunc builds a template from the parameters and the argument count.
// It must not look at argument content.
type DownFunc func(x *Expander, c *markup.Call) (markup.Node, error)

// PostFunc post-processes the expanded template of a down-first macro.
type PostFunc func(x *Expander, c *markup.Call, out string) (string, error)

// EnterFunc runs before the arguments of an up-first macro are expanded,
// or before the template of a down-first macro with a Post step is. The
// returned function runs after the macro finishes, whether or not it
// succeeded.
type EnterFunc func(x *Expander, c *markup.Call) (func(), error)

// UpFunc turns fully expanded arguments into output.
type UpFunc func(x *Expander, c *markup.Call, args []string) (string, error)

// Macro is one entry of the dispatch table. Exactly one of Down and Up is
// set.
type Macro struct {
	Name   string
	Arity  Arity
	Params func() any // nil if the macro takes no parameter literal

	Down DownFunc
	Post PostFunc

	Enter EnterFunc
	Up    UpFunc
}

// Table maps macro names to macros.
type Table struct {
	macros map[string]*Macro
}

// NewTable builds a table, checking every entry for a well-formed behavior.
func NewTable(groups ...[]*Macro) (*Table, error) {
	t := &Table{macros: make(map[string]*Macro)}
	for _, group := range groups {
		for _, m := range group {
			if err := m.validate(); err != nil {
				return nil, err
			}
			if _, dup := t.macros[m.Name]; dup {
				return nil, fmt.Errorf("macro %q defined twice", m.Name)
			}
			t.macros[m.Name] = m
		}
	}
	return t, nil
}

func (m *Macro) validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("macro without a name")
	case (m.Down == nil) == (m.Up == nil):
		return fmt.Errorf("macro %q must have exactly one of Down and Up", m.Name)
	case m.Post != nil && m.Down == nil:
		return fmt.Errorf("macro %q: Post requires Down", m.Name)
	case m.Enter != nil && m.Up == nil && m.Post == nil:
		return fmt.Errorf("macro %q: Enter requires Up or Post", m.Name)
	case m.Arity.Min < 0 || (m.Arity.Max >= 0 && m.Arity.Max < m.Arity.Min):
		return fmt.Errorf("macro %q: invalid arity", m.Name)
	}
	return nil
}

// Lookup implements markup.Catalog.
func (t *Table) Lookup(name string) (func() any, bool) {
	m, ok := t.macros[name]
	if !ok {
		return nil, false
	}
	return m.Params, true
}

// Get returns the macro called name.
func (t *Table) Get(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// Names returns all macro names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultTable = mustTable(
	htmlMacros(),
	ioMacros(),
	sectionMacros(),
	boxMacros(),
	referenceMacros(),
	mathMacros(),
)

func mustTable(groups ...[]*Macro) *Table {
	t, err := NewTable(groups...)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the built-in macro table.
func Default() *Table { return defaultTable }
