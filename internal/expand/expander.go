// Package expand reduces call trees to text. It owns the macro dispatch
// table and the behavior of every built-in macro.
//
// A macro is either down-first or up-first. A down-first macro builds a
// template from its parameters and argument count, which is then bound to
// the actual arguments and expanded. An up-first macro expands its arguments
// first, left to right, and then computes its output from the resulting
// text. Expansion is depth-first and left to right; every side effect
// happens in that order.
package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/document"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/tex"
	"github.com/yuin/goldmark"
)

// Options configure an Expander.
type Options struct {
	// Table defaults to Default().
	Table *Table
	// Math defaults to tex.Passthrough.
	Math tex.Renderer
	// Markdown defaults to goldmark.New().
	Markdown goldmark.Markdown
	// Logger is optional.
	Logger *slog.Logger
}

// Expander expands call trees against one pass's document state.
type Expander struct {
	ctx    context.Context
	st     *document.State
	table  *Table
	math   tex.Renderer
	md     goldmark.Markdown
	logger *slog.Logger
}

// New creates an expander for st.
func New(ctx context.Context, st *document.State, opts Options) *Expander {
	x := &Expander{
		ctx:    ctx,
		st:     st,
		table:  opts.Table,
		math:   opts.Math,
		md:     opts.Markdown,
		logger: opts.Logger,
	}
	if x.table == nil {
		x.table = Default()
	}
	if x.math == nil {
		x.math = tex.Passthrough{}
	}
	if x.md == nil {
		x.md = goldmark.New()
	}
	if x.logger == nil {
		x.logger = slog.New(slog.DiscardHandler)
	}
	return x
}

// State returns the document state.
func (x *Expander) State() *document.State { return x.st }

// Table returns the dispatch table.
func (x *Expander) Table() *Table { return x.table }

// IncludeFile reads, parses and expands a file with it as the current input
// file. tr is the invocation that asked for it, if any.
func (x *Expander) IncludeFile(path string, tr source.Trace) (string, error) {
	name := x.st.SourceName(path)
	if err := x.st.Include(path); err != nil {
		return "", &Error{Kind: ErrInputCycle, Trace: tr, Name: name, Err: err}
	}
	restore := x.st.EnterFile(path)
	defer restore()

	data, err := x.st.FS().ReadFile(path)
	if err != nil {
		return "", &Error{Kind: ErrInputIO, Trace: tr, Name: path, Err: err}
	}
	x.logger.Debug("reading input", "file", name, "pass", x.st.Pass())

	bias := x.st.Sources.Add(name, string(data))
	root, err := markup.Parse(string(data), bias, x.table)
	if err != nil {
		return "", err
	}
	return x.Expand(root)
}

// Expand reduces a bound tree to text.
func (x *Expander) Expand(n markup.Node) (string, error) {
	switch n := n.(type) {
	case *markup.Text:
		return n.Value, nil
	case *markup.Many:
		var b strings.Builder
		for _, child := range n.Nodes {
			s, err := x.Expand(child)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		return b.String(), nil
	case *markup.Call:
		out, err := x.call(n)
		if err != nil {
			return "", locate(err, n)
		}
		return out, nil
	case *markup.Argument:
		return "", &Error{Kind: ErrArgumentIndex, Trace: n.Trace(), Err: fmt.Errorf("unbound argument %d", n.Index)}
	default:
		return "", fmt.Errorf("unexpected node %T", n)
	}
}

func (x *Expander) call(c *markup.Call) (string, error) {
	m, ok := x.table.Get(c.Macro)
	if !ok {
		return "", &Error{Kind: ErrUndefinedMacro, Trace: c.Trace(), Name: c.Macro}
	}
	if !m.Arity.Accepts(len(c.Args)) {
		return "", &Error{
			Kind:  ErrArgumentNumber,
			Trace: c.Trace(),
			Macro: c.Macro,
			Err:   fmt.Errorf("got %d, want %s", len(c.Args), m.Arity),
		}
	}

	if m.Enter != nil {
		leave, err := m.Enter(x, c)
		if err != nil {
			return "", err
		}
		defer leave()
	}

	if m.Down != nil {
		tmpl, err := m.Down(x, c)
		if err != nil {
			return "", err
		}
		bound, err := markup.Bind(tmpl, c.Args)
		if err != nil {
			return "", &Error{Kind: ErrArgumentIndex, Trace: c.Trace(), Macro: c.Macro, Err: err}
		}
		out, err := x.Expand(bound)
		if err != nil || m.Post == nil {
			return out, err
		}
		return m.Post(x, c, out)
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		s, err := x.Expand(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return m.Up(x, c, args)
}

// locate gives errors raised by synthetic template nodes the span of the
// nearest invocation that came from source.
func locate(err error, c *markup.Call) error {
	if c.Trace().IsZero() {
		return err
	}
	var e *Error
	if errors.As(err, &e) && e.Trace.IsZero() {
		e.Trace = c.Trace()
		if e.Macro == "" {
			e.Macro = c.Macro
		}
	}
	return err
}

// fail builds an error located at the invocation.
func fail(kind error, c *markup.Call, name string, cause error) *Error {
	return &Error{Kind: kind, Trace: c.Trace(), Macro: c.Macro, Name: name, Err: cause}
}

// registerID registers an identifier defined by the invocation in the
// current output file.
func (x *Expander) registerID(c *markup.Call, id string, kind registry.Kind) error {
	err := x.st.Registry.RegisterID(id, registry.IDInfo{Trace: c.Trace(), File: x.st.Output(), Kind: kind})
	return duplicate(err, ErrDuplicateID, c)
}

func duplicate(err error, kind error, c *markup.Call) error {
	if err == nil {
		return nil
	}
	var dup *registry.DuplicateError
	if errors.As(err, &dup) {
		return &Error{Kind: kind, Trace: dup.Second, Related: dup.First, Macro: c.Macro, Name: dup.Key}
	}
	return err
}
