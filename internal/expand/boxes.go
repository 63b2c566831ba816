package expand

import (
	"fmt"
	"html"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
)

// boxKind is one kind of numbered box.
type boxKind struct {
	name     string
	label    string
	classes  string
	exercise bool // numbered with the exercise counter
}

var boxKinds = []boxKind{
	{name: "definition", label: "Definition", classes: "definition"},
	{name: "example", label: "Example", classes: "example"},
	{name: "figure", label: "Figure", classes: "example figure"},
	{name: "exercise", label: "Exercise", classes: "exercise", exercise: true},
	{name: "statement", label: "Statement", classes: "fact statement"},
	{name: "observation", label: "Observation", classes: "fact observation"},
	{name: "theorem", label: "Theorem", classes: "fact theorem"},
	{name: "lemma", label: "Lemma", classes: "fact lemma"},
	{name: "corollary", label: "Corollary", classes: "fact corollary"},
	{name: "conjecture", label: "Conjecture", classes: "fact conjecture"},
	{name: "falsehood", label: "Falsehood", classes: "fact falsehood"},
}

func boxMacros() []*Macro {
	var ms []*Macro
	for _, k := range boxKinds {
		// The starred variant is unnumbered.
		for _, numbered := range []bool{true, false} {
			name := k.name
			if !numbered {
				name += "*"
			}
			ms = append(ms, &Macro{
				Name:   name,
				Arity:  Between(1, 2),
				Params: newIDParams,
				Enter:  enterBox(k, numbered),
				Up:     renderBox(k),
			})
		}
	}
	ms = append(ms,
		&Macro{Name: "cases", Arity: Exactly(1), Enter: func(x *Expander, _ *markup.Call) (func(), error) {
			return x.st.EnterCases(), nil
		}, Up: func(_ *Expander, _ *markup.Call, args []string) (string, error) {
			return `<div class="cases">` + args[0] + `</div>`, nil
		}},
		&Macro{Name: "case", Arity: Exactly(1), Params: newIDParams, Up: renderCase},
	)
	return ms
}

// enterBox numbers and registers a box before its content is expanded, so
// that definitions inside it can link to it.
func enterBox(k boxKind, numbered bool) EnterFunc {
	return func(x *Expander, c *markup.Call) (func(), error) {
		numbering := ""
		if numbered {
			numbering = x.st.NextBox(k.exercise)
		}
		id := paramsOf[IDParams](c).ID
		if id != "" {
			if err := x.registerID(c, id, registry.KindBox); err != nil {
				return nil, err
			}
			x.st.Registry.SetBox(id, registry.BoxInfo{Label: k.label, Numbering: numbering, Classes: k.classes})
		}
		return x.st.EnterBox(id, numbering), nil
	}
}

func renderBox(k boxKind) UpFunc {
	return func(x *Expander, c *markup.Call, args []string) (string, error) {
		id := x.st.Box()
		title, body := "", args[0]
		if len(args) == 2 {
			title, body = args[0], args[1]
		}

		head := k.label
		if n := x.st.BoxNumbering(); n != "" {
			head += " " + n
		}
		if id != "" {
			head = fmt.Sprintf(`<a href="%s">%s</a>`, x.st.URL(id), head)
		}

		var b strings.Builder
		fmt.Fprintf(&b, `<div class="box %s"`, k.classes)
		if id != "" {
			fmt.Fprintf(&b, ` id="%s"`, html.EscapeString(id))
		}
		fmt.Fprintf(&b, `><div class="box_title"><span class="box_label">%s</span>`, head)
		if title != "" {
			fmt.Fprintf(&b, ` <span class="box_name">(%s)</span>`, title)
		}
		fmt.Fprintf(&b, `</div><div class="box_content">%s</div></div>`, body)
		out := b.String()

		if id != "" {
			for _, shared := range append([]string{id}, x.st.BoxPreviews()...) {
				if err := x.writePreview(c, shared, out); err != nil {
					return "", err
				}
			}
		}
		return out, nil
	}
}

// renderCase numbers a case within the innermost cases.
func renderCase(x *Expander, c *markup.Call, args []string) (string, error) {
	n, err := x.st.NextCase()
	if err != nil {
		return "", fail(err, c, "", nil)
	}
	id := paramsOf[IDParams](c).ID

	var b strings.Builder
	b.WriteString(`<div class="case"`)
	if id != "" {
		if err := x.registerID(c, id, registry.KindCase); err != nil {
			return "", err
		}
		x.st.Registry.SetCase(id, n)
		x.st.SharePreview(id)
		fmt.Fprintf(&b, ` id="%s"`, html.EscapeString(id))
	}
	fmt.Fprintf(&b, `><span class="case_label">Case %s:</span> %s</div>`, n, args[0])
	return b.String(), nil
}
