package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/expand"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
)

// PassError is a failure during one pass.
type PassError struct {
	Pass registry.Pass
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s pass: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Location is a resolved source location with the offending line.
type Location struct {
	Position source.Position
	Excerpt  string
}

// Diagnostic is an error prepared for display.
type Diagnostic struct {
	// Pass is zero for errors outside of a pass.
	Pass registry.Pass
	// Kind is the short description of the error class.
	Kind string
	// Message is the full error text.
	Message string
	// Where points at the offending source, if known.
	Where *Location
	// Related points at the first registration of a duplicate.
	Related *Location
}

// Diagnose resolves an error against the sources it was raised for.
func Diagnose(err error, srcs *source.Map) Diagnostic {
	d := Diagnostic{Message: err.Error()}

	var pe *PassError
	if errors.As(err, &pe) {
		d.Pass = pe.Pass
		d.Message = pe.Err.Error()
	}

	var (
		ee *expand.Error
		me *markup.ParseError
	)
	switch {
	case errors.As(err, &ee):
		d.Kind = ee.Kind.Error()
		d.Related = locate(srcs, ee.Related)
	case errors.As(err, &me):
		d.Kind = me.Kind.Error()
	case errors.Is(err, ErrNondeterministic):
		d.Kind = ErrNondeterministic.Error()
	}

	var loc source.Located
	if errors.As(err, &loc) {
		d.Where = locate(srcs, loc.Where())
	}
	return d
}

func locate(srcs *source.Map, tr source.Trace) *Location {
	sp, ok := tr.Span()
	if !ok || srcs == nil {
		return nil
	}
	return &Location{Position: srcs.Resolve(sp.Start), Excerpt: srcs.Excerpt(tr)}
}

// String renders the diagnostic as plain text.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString("error: " + d.Message)
	if d.Pass != 0 {
		fmt.Fprintf(&b, " (%s pass)", d.Pass)
	}
	if d.Where != nil {
		fmt.Fprintf(&b, "\n  --> %s\n%s", d.Where.Position, indent(d.Where.Excerpt))
	}
	if d.Related != nil {
		fmt.Fprintf(&b, "\nnote: first registered here\n  --> %s\n%s", d.Related.Position, indent(d.Related.Excerpt))
	}
	return b.String()
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "   | " + l
	}
	return strings.Join(lines, "\n")
}
