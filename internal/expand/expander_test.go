package expand

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/document"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	entry    = "/proj/main.txt"
	buildDir = "/proj/build"
)

// harness runs documents through both passes over an in-memory filesystem.
type harness struct {
	t    *testing.T
	fs   *testutil.MemFS
	reg  *registry.Registry
	srcs *source.Map
	st   *document.State
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	return &harness{
		t:    t,
		fs:   testutil.NewMemFS(files),
		reg:  registry.New(),
		srcs: source.NewMap(),
	}
}

func (h *harness) config() document.Config {
	return document.Config{
		Entrypoint: entry,
		BuildDir:   buildDir,
		Domain:     "https://example.org/",
		BoxLevel:   1,
		FS:         h.fs,
	}
}

// pass runs a single pass over the entrypoint.
func (h *harness) pass(p registry.Pass) (string, error) {
	h.reg.BeginPass(p)
	h.st = document.New(h.config(), h.reg, h.srcs)
	x := New(context.Background(), h.st, Options{Logger: testutil.NewTestLogger(h.t)})
	return x.IncludeFile(entry, source.Trace{})
}

// build runs both passes and returns the output of the second.
func (h *harness) build() (string, error) {
	if _, err := h.pass(registry.PassDiscovery); err != nil {
		return "", err
	}
	return h.pass(registry.PassEmit)
}

func expandDoc(t *testing.T, doc string) string {
	t.Helper()
	out, err := newHarness(t, map[string]string{entry: doc}).build()
	require.NoError(t, err)
	return out
}

func expandErr(t *testing.T, doc string) *Error {
	t.Helper()
	_, err := newHarness(t, map[string]string{entry: doc}).build()
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	return e
}

func TestDefaultTable_WellFormed(t *testing.T) {
	tbl := Default()
	for _, name := range tbl.Names() {
		m, ok := tbl.Get(name)
		require.True(t, ok)
		assert.NoError(t, m.validate(), name)
	}
	for _, name := range []string{"p", "hsection", "hsection*", "define", "r", "cref", "$", "$$", "output", "input", "theorem*", "case"} {
		_, ok := tbl.Get(name)
		assert.True(t, ok, "missing %s", name)
	}
}

func TestDefaultTable_NamesAreUnique(t *testing.T) {
	_, err := NewTable(htmlMacros(), ioMacros(), sectionMacros(), boxMacros(), referenceMacros(), mathMacros())
	require.NoError(t, err)

	fig, ok := Default().Get("figure")
	require.True(t, ok)
	assert.NotNil(t, fig.Enter, "figure is the numbered box")
}

func TestNewTable_RejectsMalformed(t *testing.T) {
	up := func(*Expander, *markup.Call, []string) (string, error) { return "", nil }
	down := func(*Expander, *markup.Call) (markup.Node, error) { return markup.NewText(""), nil }
	post := func(_ *Expander, _ *markup.Call, s string) (string, error) { return s, nil }
	enter := func(*Expander, *markup.Call) (func(), error) { return func() {}, nil }

	tests := []struct {
		name  string
		macro *Macro
	}{
		{"no behavior", &Macro{Name: "a"}},
		{"both behaviors", &Macro{Name: "a", Down: down, Up: up}},
		{"post without down", &Macro{Name: "a", Up: up, Post: post}},
		{"enter without up or post", &Macro{Name: "a", Down: down, Enter: enter}},
		{"bad arity", &Macro{Name: "a", Up: up, Arity: Between(2, 1)}},
		{"no name", &Macro{Up: up}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable([]*Macro{tt.macro})
			assert.Error(t, err)
		})
	}

	_, err := NewTable([]*Macro{{Name: "a", Up: up}}, []*Macro{{Name: "a", Up: up}})
	assert.Error(t, err, "duplicate names")
}

func TestArity(t *testing.T) {
	assert.True(t, Exactly(2).Accepts(2))
	assert.False(t, Exactly(2).Accepts(3))
	assert.True(t, AtLeast(0).Accepts(10))
	assert.False(t, AtMost(1).Accepts(2))
	assert.True(t, Between(1, 3).Accepts(3))
	assert.Equal(t, "exactly 1", Exactly(1).String())
	assert.Equal(t, "at least 2", AtLeast(2).String())
	assert.Equal(t, "at most 1", AtMost(1).String())
	assert.Equal(t, "1 to 3", Between(1, 3).String())
}

func TestExpand_HTMLTags(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"one argument", "§em(hi)", "<em>hi</em>"},
		{"class", "§span(c)(hi)", `<span class="c">hi</span>`},
		{"id and class", "§div(i)(c)(hi)", `<div id="i" class="c">hi</div>`},
		{"attributes", `§a{href: "x.html", title: "t"}(hi)`, `<a href="x.html" title="t">hi</a>`},
		{"nested", "§ul(§li(a)§li(b))", "<ul><li>a</li><li>b</li></ul>"},
		{"escapes", "§em(f§(x§) §§)", "<em>f(x) §</em>"},
		{"constant", "a§br b", "a<br> b"},
		{"verbatim", "§verbatim(x)", `<code class="verbatim">x</code>`},
		{"link", `§link["https://x.org"](there)`, `<a href="https://x.org">there</a>`},
		{"drop", "a§drop(b)(c)d", "ad"},
		{"captioned", "§captioned(img)(cap)", `<figure class="captioned">img<figcaption>cap</figcaption></figure>`},
		{"empty macro", "a§ b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandDoc(t, tt.doc))
		})
	}
}

func TestExpand_ArgumentNumber(t *testing.T) {
	e := expandErr(t, "§em(a)(b)(c)(d)")
	assert.ErrorIs(t, e, ErrArgumentNumber)
	assert.Equal(t, "em", e.Macro)
	assert.False(t, e.Trace.IsZero())
}

func TestExpand_TemplateErrorsLocated(t *testing.T) {
	tbl, err := NewTable([]*Macro{{
		Name:  "broken",
		Arity: Exactly(0),
		Down: func(*Expander, *markup.Call) (markup.Node, error) {
			return markup.Invoke("nope", nil), nil
		},
	}})
	require.NoError(t, err)

	h := newHarness(t, map[string]string{entry: "x §broken"})
	h.reg.BeginPass(registry.PassDiscovery)
	h.st = document.New(h.config(), h.reg, h.srcs)
	x := New(context.Background(), h.st, Options{Table: tbl})
	_, err = x.IncludeFile(entry, source.Trace{})

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, e, ErrUndefinedMacro)
	assert.Equal(t, "nope", e.Name)
	assert.Equal(t, "§broken", h.srcs.Text(e.Trace))
}

func TestExpand_TemplateArgumentIndex(t *testing.T) {
	tbl, err := NewTable([]*Macro{{
		Name:  "greedy",
		Arity: AtLeast(0),
		Down: func(*Expander, *markup.Call) (markup.Node, error) {
			return markup.Arg(2), nil
		},
	}})
	require.NoError(t, err)

	h := newHarness(t, map[string]string{entry: "§greedy(a)"})
	h.reg.BeginPass(registry.PassDiscovery)
	h.st = document.New(h.config(), h.reg, h.srcs)
	x := New(context.Background(), h.st, Options{Table: tbl})
	_, err = x.IncludeFile(entry, source.Trace{})
	assert.ErrorIs(t, err, ErrArgumentIndex)
}

func TestExpand_InputAndCwd(t *testing.T) {
	h := newHarness(t, map[string]string{
		entry:                    "a §input[chapters/one.txt] §input[/chapters/two.txt] §cwd",
		"/proj/chapters/one.txt": "one §cwd §input[two.txt]",
		"/proj/chapters/two.txt": "two",
	})
	out, err := h.build()
	require.NoError(t, err)
	assert.Equal(t, "a one chapters two two .", out)
}

func TestExpand_InputMissing(t *testing.T) {
	e := expandErr(t, "§input[missing.txt]")
	assert.ErrorIs(t, e, ErrInputIO)
	assert.Equal(t, filepath.FromSlash("/proj/missing.txt"), e.Name)
}

func TestExpand_InputCycle(t *testing.T) {
	h := newHarness(t, map[string]string{
		entry:           "§input[a.txt]",
		"/proj/a.txt":   "a §input[sub/b.txt]",
		"/proj/sub/b.txt": "b §input[/a.txt]",
	})
	_, err := h.build()
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, err, ErrInputCycle)
	assert.Equal(t, "a.txt", e.Name)
	assert.Equal(t, "§input[/a.txt]", h.srcs.Text(e.Trace))

	var ce *inputs.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"sub/b.txt", "a.txt", "sub/b.txt"}, ce.Path)
}

func TestExpand_InputGraph(t *testing.T) {
	h := newHarness(t, map[string]string{
		entry:         "§input[a.txt]§input[b.txt]",
		"/proj/a.txt": "§input[b.txt]",
		"/proj/b.txt": "b",
	})
	_, err := h.pass(registry.PassDiscovery)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.txt", "a.txt", "b.txt"}, h.st.Inputs.Files())
}

func TestExpand_OutputOnlyStagedInEmitPass(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "§output[index.html](§p(hi))§output_tee[/sub/a.html](tee)"})

	out, err := h.pass(registry.PassDiscovery)
	require.NoError(t, err)
	assert.Equal(t, "tee", out)
	assert.Zero(t, h.st.Outbox.Len())

	out, err = h.pass(registry.PassEmit)
	require.NoError(t, err)
	assert.Equal(t, "tee", out)

	ops := h.st.Outbox.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, filepath.Join(buildDir, "index.html"), ops[0].Path)
	assert.Equal(t, "<p>hi</p>", string(ops[0].Content))
	assert.Equal(t, filepath.Join(buildDir, "sub", "a.html"), ops[1].Path)

	// Nothing reaches the filesystem until the outbox is committed.
	assert.NotContains(t, h.fs.Files, filepath.Join(buildDir, "index.html"))
}

func TestExpand_OutputOutsideBuild(t *testing.T) {
	e := expandErr(t, "§output[../escape.html](x)")
	assert.ErrorIs(t, e, ErrOutputIO)
}

func TestExpand_Copy(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "§copy[assets, static]"})
	_, err := h.build()
	require.NoError(t, err)
	ops := h.st.Outbox.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, filepath.FromSlash("/proj/assets"), ops[0].CopyFrom)
	assert.Equal(t, filepath.Join(buildDir, "static"), ops[0].Path)
}

func TestExpand_SetDomain(t *testing.T) {
	out := expandDoc(t, `§set_domain["https://other.net"]§output[a.html](§hsection[intro](Intro)())§cref[intro]`)
	assert.Contains(t, out, `href="https://other.net/a.html#intro"`)
}

func TestExpand_Markdown(t *testing.T) {
	assert.Equal(t, "<p><em>hi</em></p>", expandDoc(t, "§markdown(*hi*)"))
}
