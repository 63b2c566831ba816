package expand

import (
	"context"
	"errors"
	"testing"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/document"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/tex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMath_Rendering(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"inline", "§$(x)", `<span class="math inline">\(x\)</span>`},
		{"display", "§$$(x)", `<div class="math display">\[x\]</div>`},
		{"fleqn", "§fleqn(§$$(x))", `<div class="math display fleqn">\[x\]</div>`},
		{"align", "§$$align*(a &= b)", `<div class="math display">\[\begin{align*}a &amp;= b\end{align*}\]</div>`},
		{"operator", "§$(x §$eq(a)(b))", `<span class="math inline">\(x a = b\)</span>`},
		{"bare operator", "§$(§$in)", `<span class="math inline">\(\in\)</span>`},
		{"set", "§$(§$set(a)(b)(c))", `<span class="math inline">\(\{a, b, c\}\)</span>`},
		{"empty set", "§$(§$set)", `<span class="math inline">\(\{\}\)</span>`},
		{"set builder", "§$(§$set_builder(x)(p))", `<span class="math inline">\(\{x \mid p\}\)</span>`},
		{"class", "§$(§$class[hl](x))", `<span class="math inline">\(\htmlClass{hl}{x}\)</span>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandDoc(t, tt.doc))
		})
	}
}

func TestMath_DiscoveryPassReturnsSource(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "§$(x §$leq y)"})
	out, err := h.pass(registry.PassDiscovery)
	require.NoError(t, err)
	assert.Equal(t, `x \leq y`, out)
}

func TestMath_Reentrant(t *testing.T) {
	e := expandErr(t, "§$(a §$$(b))")
	assert.ErrorIs(t, e, ErrMathReentrant)
	assert.Equal(t, "$$", e.Macro)
}

func TestMath_ModeRestored(t *testing.T) {
	out := expandDoc(t, "§$(a)§$(b)")
	assert.Equal(t, `<span class="math inline">\(a\)</span><span class="math inline">\(b\)</span>`, out)
}

func TestMath_SymbolReference(t *testing.T) {
	out := expandDoc(t, `§$(§$ref[phi](\varphi))§theorem[t](§set_math_id[phi, t](\varphi))`)
	assert.Contains(t, out, `\(\href{https://example.org/#t}{\varphi}\)`)
}

func TestMath_SymbolErrors(t *testing.T) {
	e := expandErr(t, "§$(§$ref[nope](x))")
	assert.ErrorIs(t, e, ErrUnknownMathSymbol)

	e = expandErr(t, "§set_math_id[phi, missing](x)§$(§$ref[phi](x))")
	assert.ErrorIs(t, e, ErrUnknownID)

	e = expandErr(t, "§set_math_id[phi, a](x)§set_math_id[phi, b](x)")
	assert.ErrorIs(t, e, ErrDuplicateMathSymbol)
}

func TestMath_ReferenceInsideMath(t *testing.T) {
	out := expandDoc(t, "§hsection[s](S)()§$(§cref[s])")
	assert.Contains(t, out, `\href{https://example.org/#s}{\text{Chapter 1}}`)
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string, tex.Options) (string, error) {
	return "", errors.New("parse error")
}

func TestMath_RendererFailure(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "text §$(x)"})
	h.reg.BeginPass(registry.PassEmit)
	h.st = document.New(h.config(), h.reg, h.srcs)
	x := New(context.Background(), h.st, Options{Math: failingRenderer{}})
	_, err := x.IncludeFile(entry, source.Trace{})

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, e, ErrMath)
	assert.Equal(t, "§$(x)", h.srcs.Text(e.Trace))
}
