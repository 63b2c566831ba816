package expand

import (
	"bytes"
	"html"
	"sort"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
)

var htmlTags = []string{
	"a", "abbr", "article", "aside", "blockquote", "code", "dd", "details", "div", "dl", "dt",
	"em", "figcaption", "footer", "h1", "h2", "h3", "h4", "h5", "h6", "header",
	"img", "li", "nav", "ol", "p", "pre", "section", "small", "span", "strong", "sub",
	"summary", "sup", "table", "tbody", "td", "th", "thead", "tr", "ul",
}

func htmlMacros() []*Macro {
	var ms []*Macro
	for _, tag := range htmlTags {
		m := &Macro{Name: tag, Arity: Between(1, 3), Params: newAttrs, Down: tagTemplate(tag)}
		if tag == "p" {
			m.Enter = enterParagraph
			m.Post = flushBoxlessPreviews
		}
		ms = append(ms, m)
	}

	ms = append(ms,
		constant("hr", "<hr>"),
		constant("br", "<br>"),
		constant("qed", `<span class="qed">∎</span>`),
		enclose("verbatim", "code", "verbatim"),
		enclose("nobr", "span", "nobr"),
		&Macro{Name: "link", Arity: Exactly(1), Params: newURLParams, Down: linkTemplate},
		&Macro{Name: "captioned", Arity: Exactly(2), Down: func(*Expander, *markup.Call) (markup.Node, error) {
			// "figure" names the numbered box, so the element is written out.
			return markup.Seq(
				markup.NewText(`<figure class="captioned">`),
				markup.Arg(0),
				markup.Invoke("figcaption", nil, markup.Arg(1)),
				markup.NewText(`</figure>`),
			), nil
		}},
		&Macro{Name: "proof", Arity: Exactly(1), Down: func(*Expander, *markup.Call) (markup.Node, error) {
			return markup.Invoke("div", &Attrs{"class": "proof"}, markup.Seq(
				markup.NewText(`<span class="proof_label">Proof</span>`),
				markup.Arg(0),
				markup.Invoke("qed", nil),
			)), nil
		}},
		&Macro{Name: "proof_part", Arity: Exactly(2), Down: func(*Expander, *markup.Call) (markup.Node, error) {
			return markup.Invoke("div", &Attrs{"class": "proof_part"}, markup.Seq(
				markup.Invoke("span", &Attrs{"class": "proof_part_title"}, markup.Arg(0)),
				markup.Arg(1),
			)), nil
		}},
		toggled("solution", "Show a possible solution", "Hide the solution"),
		toggled("proof_as_exercise", "Show a proof", "Hide the proof"),
		&Macro{Name: "drop", Arity: AtLeast(0), Up: func(*Expander, *markup.Call, []string) (string, error) {
			return "", nil
		}},
		&Macro{Name: "markdown", Arity: Exactly(1), Up: renderMarkdown},
	)
	return ms
}

// writeAttrs writes attributes in name order, skipping the given names.
func writeAttrs(b *strings.Builder, attrs *Attrs, skip ...string) {
	if attrs == nil {
		return
	}
	names := make([]string, 0, len(*attrs))
	for name := range *attrs {
		names = append(names, name)
	}
	sort.Strings(names)

outer:
	for _, name := range names {
		for _, s := range skip {
			if name == s {
				continue outer
			}
		}
		b.WriteString(" " + name + `="` + html.EscapeString((*attrs)[name]) + `"`)
	}
}

// tagTemplate wraps content in an element. With two arguments the first is
// the class; with three the first two are id and class.
func tagTemplate(tag string) DownFunc {
	return func(_ *Expander, c *markup.Call) (markup.Node, error) {
		attrs := paramsOf[Attrs](c)
		closing := markup.NewText("</" + tag + ">")

		var open strings.Builder
		open.WriteString("<" + tag)
		switch len(c.Args) {
		case 1:
			writeAttrs(&open, attrs)
			open.WriteString(">")
			return markup.Seq(markup.NewText(open.String()), markup.Arg(0), closing), nil
		case 2:
			writeAttrs(&open, attrs, "class")
			open.WriteString(` class="`)
			return markup.Seq(
				markup.NewText(open.String()), markup.Arg(0),
				markup.NewText(`">`), markup.Arg(1), closing,
			), nil
		default:
			writeAttrs(&open, attrs, "class", "id")
			open.WriteString(` id="`)
			return markup.Seq(
				markup.NewText(open.String()), markup.Arg(0),
				markup.NewText(`" class="`), markup.Arg(1),
				markup.NewText(`">`), markup.Arg(2), closing,
			), nil
		}
	}
}

func constant(name, text string) *Macro {
	return &Macro{Name: name, Arity: Exactly(0), Down: func(*Expander, *markup.Call) (markup.Node, error) {
		return markup.NewText(text), nil
	}}
}

func enclose(name, tag, class string) *Macro {
	return &Macro{Name: name, Arity: Exactly(1), Down: func(*Expander, *markup.Call) (markup.Node, error) {
		return markup.Invoke(tag, &Attrs{"class": class}, markup.Arg(0)), nil
	}}
}

func toggled(name, show, hide string) *Macro {
	return &Macro{Name: name, Arity: Exactly(1), Down: func(*Expander, *markup.Call) (markup.Node, error) {
		summary := `<summary data-show="` + show + `" data-hide="` + hide + `">` + show + `</summary>`
		return markup.Invoke("details", &Attrs{"class": "toggled " + name},
			markup.Seq(markup.NewText(summary), markup.Arg(0))), nil
	}}
}

func linkTemplate(_ *Expander, c *markup.Call) (markup.Node, error) {
	p := paramsOf[URLParams](c)
	return markup.Invoke("a", &Attrs{"href": p.URL}, markup.Arg(0)), nil
}

func enterParagraph(x *Expander, _ *markup.Call) (func(), error) {
	return x.st.EnterParagraph(), nil
}

// flushBoxlessPreviews gives every definition made inside a paragraph, and
// outside any box, the paragraph as its preview.
func flushBoxlessPreviews(x *Expander, c *markup.Call, out string) (string, error) {
	for _, id := range x.st.TakeBoxless() {
		if err := x.writePreview(c, id, out); err != nil {
			return "", err
		}
	}
	return out, nil
}

func renderMarkdown(x *Expander, c *markup.Call, args []string) (string, error) {
	var buf bytes.Buffer
	if err := x.md.Convert([]byte(args[0]), &buf); err != nil {
		return "", fail(ErrMarkdown, c, "", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
