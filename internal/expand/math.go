package expand

import (
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/tex"
)

// mathOperators join their arguments with an infix operator. Without
// arguments they produce the bare operator.
var mathOperators = map[string]string{
	"$eq":           "=",
	"$neq":          `\neq`,
	"$lt":           "<",
	"$leq":          `\leq`,
	"$gt":           ">",
	"$geq":          `\geq`,
	"$in":           `\in`,
	"$notin":        `\notin`,
	"$subset":       `\subset`,
	"$subseteq":     `\subseteq`,
	"$union":        `\cup`,
	"$intersection": `\cap`,
	"$setminus":     `\setminus`,
	"$and":          `\land`,
	"$or":           `\lor`,
	"$implies":      `\implies`,
	"$iff":          `\iff`,
}

func mathMacros() []*Macro {
	ms := []*Macro{
		{Name: "$", Arity: Exactly(1), Enter: enterMath, Up: renderMath(false, "", "")},
		{Name: "$$", Arity: Exactly(1), Enter: enterMath, Up: renderMath(true, "", "")},
		{Name: "$$align*", Arity: Exactly(1), Enter: enterMath, Up: renderMath(true, `\begin{align*}`, `\end{align*}`)},
		{Name: "fleqn", Arity: Exactly(1), Enter: func(x *Expander, _ *markup.Call) (func(), error) {
			return x.st.EnterFleqn(), nil
		}, Up: func(_ *Expander, _ *markup.Call, args []string) (string, error) {
			return args[0], nil
		}},
		{Name: "set_math_id", Arity: Exactly(1), Params: newSymbolParams, Up: setMathID},
		{Name: "$ref", Arity: Exactly(1), Params: newIDParams, Up: mathReference},

		mathEnclosure("$set", AtLeast(0), `\{`, ", ", `\}`),
		mathEnclosure("$set_builder", Exactly(2), `\{`, ` \mid `, `\}`),
		mathEnclosure("$p", Exactly(1), `\left(`, "", `\right)`),
		mathEnclosure("$text", Exactly(1), `\text{`, "", `}`),
		mathEnclosure("$value", Exactly(1), `\llbracket `, "", ` \rrbracket`),
		mathEnclosure("$cancel", Exactly(1), `\cancel{`, "", `}`),
		{Name: "$class", Arity: Exactly(1), Params: newClassParams, Down: func(_ *Expander, c *markup.Call) (markup.Node, error) {
			return markup.Seq(markup.NewText(`\htmlClass{`+paramsOf[ClassParams](c).Class+`}{`), markup.Arg(0), markup.NewText(`}`)), nil
		}},
		constant("$mid", `\mid `),
		constant("$ldots", `\ldots `),
	}
	for name, op := range mathOperators {
		ms = append(ms, mathEnclosure(name, AtLeast(0), "", " "+op+" ", ""))
	}
	return ms
}

func enterMath(x *Expander, c *markup.Call) (func(), error) {
	leave, err := x.st.EnterMath()
	if err != nil {
		return nil, fail(err, c, "", nil)
	}
	return leave, nil
}

// renderMath renders TeX. The discovery pass returns the source unrendered.
func renderMath(display bool, begin, end string) UpFunc {
	return func(x *Expander, c *markup.Call, args []string) (string, error) {
		src := begin + args[0] + end
		if !x.st.Emitting() {
			return src, nil
		}
		out, err := x.math.Render(x.ctx, src, tex.Options{Display: display, Fleqn: x.st.Fleqn()})
		if err != nil {
			return "", fail(ErrMath, c, "", err)
		}
		return out, nil
	}
}

// mathEnclosure joins all arguments with sep between open and close. With
// no arguments and no delimiters it yields sep alone, trimmed.
func mathEnclosure(name string, arity Arity, open, sep, closing string) *Macro {
	return &Macro{Name: name, Arity: arity, Down: func(_ *Expander, c *markup.Call) (markup.Node, error) {
		if len(c.Args) == 0 && open == "" && closing == "" {
			return markup.NewText(strings.TrimSpace(sep)), nil
		}
		nodes := []markup.Node{markup.NewText(open)}
		for i := range c.Args {
			if i > 0 {
				nodes = append(nodes, markup.NewText(sep))
			}
			nodes = append(nodes, markup.Arg(i))
		}
		nodes = append(nodes, markup.NewText(closing))
		return markup.Seq(nodes...), nil
	}}
}

func setMathID(x *Expander, c *markup.Call, args []string) (string, error) {
	p := paramsOf[SymbolParams](c)
	if p.Symbol == "" || p.Target == "" {
		return "", fail(ErrEmptyID, c, "", nil)
	}
	err := x.st.Registry.SetMathSymbol(p.Symbol, registry.SymbolInfo{Target: p.Target, Trace: c.Trace()})
	if err != nil {
		return "", duplicate(err, ErrDuplicateMathSymbol, c)
	}
	return args[0], nil
}

// mathReference links a symbol occurrence to the identifier that introduced
// it.
func mathReference(x *Expander, c *markup.Call, args []string) (string, error) {
	if !x.st.Emitting() {
		return args[0], nil
	}
	symbol := paramsOf[IDParams](c).ID
	info, ok := x.st.Registry.MathSymbol(symbol)
	if !ok {
		return "", fail(ErrUnknownMathSymbol, c, symbol, nil)
	}
	if _, ok := x.st.Registry.ID(info.Target); !ok {
		return "", fail(ErrUnknownID, c, info.Target, nil)
	}
	return `\href{` + x.st.URL(info.Target) + `}{` + args[0] + `}`, nil
}
