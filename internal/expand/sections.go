package expand

import (
	"fmt"
	"html"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
)

// sectionLabels name the heading at each depth.
var sectionLabels = [...]string{"Chapter", "Section", "Subsection", "Subsubsection", "Paragraph", "Subparagraph"}

func sectionMacros() []*Macro {
	return []*Macro{
		{Name: "hsection", Arity: Exactly(2), Params: newIDParams, Enter: enterSection(true), Up: renderSection},
		{Name: "hsection*", Arity: Exactly(2), Params: newIDParams, Enter: enterSection(false), Up: renderSection},
		{Name: "chapternav", Arity: Exactly(0), Up: chapterNav},
	}
}

// enterSection counts, registers and pushes the section before its title
// and body are expanded.
func enterSection(numbered bool) EnterFunc {
	return func(x *Expander, c *markup.Call) (func(), error) {
		_, leave, err := x.st.EnterSection(numbered)
		if err != nil {
			return nil, fail(err, c, "", nil)
		}
		id := paramsOf[IDParams](c).ID
		if id != "" {
			if err := x.registerID(c, id, registry.KindSection); err != nil {
				leave()
				return nil, err
			}
		}
		nav := x.st.Registry.Nav()
		nav.Push(id)
		return func() {
			nav.Pop()
			leave()
		}, nil
	}
}

func renderSection(x *Expander, c *markup.Call, args []string) (string, error) {
	id := paramsOf[IDParams](c).ID
	depth := x.st.Depth()
	label := sectionLabels[depth-1]
	title, body := args[0], args[1]

	numbering := x.st.SectionNumbering()
	if id != "" {
		x.st.Registry.SetSection(id, registry.SectionInfo{Label: label, Title: title, Numbering: numbering})
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<section class="hsection level%d"`, depth)
	if id != "" {
		fmt.Fprintf(&b, ` id="%s"`, html.EscapeString(id))
	}
	fmt.Fprintf(&b, `><h%d>`, depth)
	switch {
	case numbering == "":
	case depth == 1:
		fmt.Fprintf(&b, `<div class="hsection_number">%s %s</div>`, label, numbering)
	case depth == 2:
		fmt.Fprintf(&b, `<span class="hsection_number">%s: </span>`, numbering)
	}
	if id != "" {
		fmt.Fprintf(&b, `<a class="hsection_link" href="#%s">%s</a>`, html.EscapeString(id), title)
	} else {
		b.WriteString(title)
	}
	fmt.Fprintf(&b, `</h%d>%s</section>`, depth, body)
	return b.String(), nil
}

// chapterNav links to the previous and next sibling of the open section, as
// found by the previous pass.
func chapterNav(x *Expander, _ *markup.Call, _ []string) (string, error) {
	if !x.st.Emitting() {
		return "", nil
	}
	prev, next := x.st.Registry.Nav().Siblings()
	if prev == "" && next == "" {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(`<nav class="chapternav">`)
	if prev != "" {
		fmt.Fprintf(&b, `<a class="previous" href="%s">%s</a>`, x.st.URL(prev), x.sectionTitle(prev))
	}
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">%s</a>`, x.st.URL(next), x.sectionTitle(next))
	}
	b.WriteString(`</nav>`)
	return b.String(), nil
}

func (x *Expander) sectionTitle(id string) string {
	s, ok := x.st.Registry.Section(id)
	if !ok {
		return id
	}
	if s.Numbering == "" {
		return s.Title
	}
	return s.Label + " " + s.Numbering + ": " + s.Title
}
