package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/engine"
)

// DiagnosticJSON is the machine-readable form of a diagnostic.
type DiagnosticJSON struct {
	Pass    string        `json:"pass,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Message string        `json:"message"`
	Where   *LocationJSON `json:"where,omitempty"`
	Related *LocationJSON `json:"related,omitempty"`
}

// LocationJSON is a source position.
type LocationJSON struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func locationJSON(l *engine.Location) *LocationJSON {
	if l == nil {
		return nil
	}
	return &LocationJSON{File: l.Position.File, Line: l.Position.Line, Column: l.Position.Column}
}

// Diagnostic prints d to stderr.
func (r *Renderer) Diagnostic(d engine.Diagnostic) {
	if r.EffectiveMode() == ModeJSON {
		out := DiagnosticJSON{
			Kind:    d.Kind,
			Message: d.Message,
			Where:   locationJSON(d.Where),
			Related: locationJSON(d.Related),
		}
		if d.Pass != 0 {
			out.Pass = d.Pass.String()
		}
		data, _ := json.Marshal(out)
		_, _ = fmt.Fprintln(r.errOut, string(data))
		return
	}

	s := r.styles
	var b strings.Builder
	b.WriteString(s.Error.Render("error:") + " " + s.Bold.Render(d.Message))
	if d.Pass != 0 {
		b.WriteString(s.Muted.Render(fmt.Sprintf(" (%s pass)", d.Pass)))
	}
	b.WriteString("\n")
	r.location(&b, d.Where)
	if d.Related != nil {
		b.WriteString(s.Info.Render("note:") + " first registered here\n")
		r.location(&b, d.Related)
	}
	_, _ = fmt.Fprint(r.errOut, b.String())
}

func (r *Renderer) location(b *strings.Builder, l *engine.Location) {
	if l == nil {
		return
	}
	s := r.styles
	fmt.Fprintf(b, "  %s %s\n", s.Gutter.Render("-->"), s.Path.Render(l.Position.String()))
	if l.Excerpt == "" {
		return
	}
	for _, line := range strings.Split(l.Excerpt, "\n") {
		fmt.Fprintf(b, "   %s %s\n", s.Gutter.Render("|"), line)
	}
}
