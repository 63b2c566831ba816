package expand

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func referenceMacros() []*Macro {
	return []*Macro{
		{Name: "define", Arity: Exactly(1), Params: newTermParams, Up: define(true)},
		{Name: "definex", Arity: Exactly(0), Params: newTermParams, Up: define(false)},
		{Name: "r", Arity: AtMost(1), Params: newTermParams, Up: referenceTerm(false, false)},
		{Name: "R", Arity: AtMost(1), Params: newTermParams, Up: referenceTerm(true, false)},
		{Name: "rs", Arity: AtMost(1), Params: newTermParams, Up: referenceTerm(false, true)},
		{Name: "Rs", Arity: AtMost(1), Params: newTermParams, Up: referenceTerm(true, true)},
		{Name: "cref", Arity: AtMost(1), Params: newIDParams, Up: crossReference},
	}
}

// anchorFor derives the anchor of a definition made outside of any box.
func anchorFor(term string) string {
	var b strings.Builder
	b.WriteString("def_")
	for _, r := range strings.ToLower(term) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// define registers a term. Inside a box the term links to the box; outside
// it gets its own anchor, previewed by the enclosing paragraph.
func define(render bool) UpFunc {
	return func(x *Expander, c *markup.Call, args []string) (string, error) {
		p := paramsOf[TermParams](c)
		if p.Term == "" {
			return "", fail(ErrEmptyID, c, "", nil)
		}
		singular, plural := p.Singular, p.Plural
		if singular == "" {
			singular = p.Term
		}
		if plural == "" {
			plural = singular + "s"
		}

		target := x.st.Box()
		anchor := ""
		if target == "" {
			anchor = anchorFor(p.Term)
			target = anchor
			if err := x.registerID(c, anchor, registry.KindDefinitionAnchor); err != nil {
				return "", duplicateTerm(err, p.Term)
			}
			if !x.st.AddBoxless(anchor) && x.st.Emitting() {
				x.logger.Warn("definition outside of a paragraph has no preview", "term", p.Term, "file", x.st.SourceName(x.st.File()))
			}
		}
		info := registry.TermInfo{
			Href:     x.st.URL(target),
			Preview:  x.st.PreviewURL(target),
			Singular: singular,
			Plural:   plural,
			Trace:    c.Trace(),
		}
		if err := x.st.Registry.DefineTerm(p.Term, info); err != nil {
			return "", duplicate(err, ErrDuplicateDefine, c)
		}

		if !render {
			return "", nil
		}
		if anchor == "" {
			return `<dfn>` + args[0] + `</dfn>`, nil
		}
		return fmt.Sprintf(`<dfn id="%s">%s</dfn>`, html.EscapeString(anchor), args[0]), nil
	}
}

// duplicateTerm reports a clashing definition anchor as a duplicate
// definition of the term.
func duplicateTerm(err error, term string) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrDuplicateID {
		e.Kind = ErrDuplicateDefine
		e.Name = term
	}
	return err
}

var upper = cases.Upper(language.English)

// capitalize upper-cases the first letter only.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(string(r)) + s[size:]
}

// referenceTerm links to a defined term, using the registered singular or
// plural form unless an explicit link text is given.
func referenceTerm(capital, plural bool) UpFunc {
	return func(x *Expander, c *markup.Call, args []string) (string, error) {
		if !x.st.Emitting() {
			return "", nil
		}
		term := paramsOf[TermParams](c).Term
		info, ok := x.st.Registry.Term(term)
		if !ok {
			return "", fail(ErrUnknownDefine, c, term, nil)
		}

		text := info.Singular
		if plural {
			text = info.Plural
		}
		if len(args) == 1 {
			text = args[0]
		}
		if capital {
			text = capitalize(text)
		}
		return x.link("defined", info.Href, info.Preview, text), nil
	}
}

// crossReference links to a registered identifier, labelled with its
// numbering.
func crossReference(x *Expander, c *markup.Call, args []string) (string, error) {
	if !x.st.Emitting() {
		return "", nil
	}
	id := paramsOf[IDParams](c).ID
	info, ok := x.st.Registry.ID(id)
	if !ok {
		return "", fail(ErrUnknownID, c, id, nil)
	}

	var text, preview string
	switch info.Kind {
	case registry.KindSection:
		s, _ := x.st.Registry.Section(id)
		text = s.Title
		if s.Numbering != "" {
			text = s.Label + " " + s.Numbering
		}
	case registry.KindBox:
		b, _ := x.st.Registry.Box(id)
		text = strings.TrimSpace(b.Label + " " + b.Numbering)
		preview = x.st.PreviewURL(id)
	case registry.KindCase:
		n, _ := x.st.Registry.Case(id)
		text = "Case " + n
	default:
		return "", fail(ErrNoLinkTarget, c, id, fmt.Errorf("%s anchors have no numbering", info.Kind))
	}
	if len(args) == 1 {
		text = args[0]
	}
	return x.link("cref", x.st.URL(id), preview, text), nil
}

// link renders a reference as HTML, or as TeX inside math.
func (x *Expander) link(class, href, preview, text string) string {
	if x.st.InMath() {
		inner := `\href{` + href + `}{\text{` + text + `}}`
		if preview == "" {
			return inner
		}
		return `\htmlData{preview=` + preview + `}{` + inner + `}`
	}
	out := `<a class="` + class + `" href="` + html.EscapeString(href) + `"`
	if preview != "" {
		out += ` data-preview="` + html.EscapeString(preview) + `"`
	}
	return out + `>` + text + `</a>`
}
