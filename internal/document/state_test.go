package document

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T, pass registry.Pass) *State {
	t.Helper()
	reg := registry.New()
	reg.BeginPass(pass)
	return New(Config{
		Entrypoint:    "/proj/src/main.atm",
		ProjectRoot:   "/proj",
		BuildDir:      "/proj/build",
		Domain:        "http://localhost:8080/",
		BoxLevel:      1,
		ExerciseLevel: 1,
	}, reg, source.NewMap())
}

func TestState_SectionNumbering(t *testing.T) {
	s := newState(t, registry.PassDiscovery)

	n1, leave1, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "1", n1)

	n11, leave11, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "1.1", n11)
	leave11()

	n12, leave12, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "1.2", n12)
	leave12()
	leave1()

	n2, leave2, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "2", n2)

	n21, leave21, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "2.1", n21, "child counters restart under a new parent")
	leave21()
	leave2()
	assert.Equal(t, 0, s.Depth())
}

func TestState_SixLevelsThenError(t *testing.T) {
	s := newState(t, registry.PassDiscovery)

	var leaves []func()
	want := []string{"1", "1.1", "1.1.1", "1.1.1.1", "1.1.1.1.1", "1.1.1.1.1.1"}
	for _, w := range want {
		n, leave, err := s.EnterSection(true)
		require.NoError(t, err)
		assert.Equal(t, w, n)
		leaves = append(leaves, leave)
	}

	_, _, err := s.EnterSection(true)
	assert.ErrorIs(t, err, ErrTooManyLevels)

	for i := len(leaves) - 1; i >= 0; i-- {
		leaves[i]()
	}
	assert.Equal(t, 0, s.Depth())
}

func TestState_UnnumberedSection(t *testing.T) {
	s := newState(t, registry.PassDiscovery)
	n, leave, err := s.EnterSection(false)
	require.NoError(t, err)
	assert.Empty(t, n)
	assert.Equal(t, 1, s.Depth())
	leave()

	n, leave, err = s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "1", n)
	leave()
}

func TestState_UnnumberedSubtree(t *testing.T) {
	s := newState(t, registry.PassDiscovery)

	n, leave, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "1", n)
	leave()

	n, leaveStar, err := s.EnterSection(false)
	require.NoError(t, err)
	assert.Empty(t, n)
	assert.Empty(t, s.SectionNumbering())

	n, leaveInner, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.Empty(t, n, "a numbered section below an unnumbered one is unnumbered")
	assert.Empty(t, s.SectionNumbering())
	leaveInner()
	leaveStar()

	n, leave, err = s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "2", n)
	n, leaveInner, err = s.EnterSection(true)
	require.NoError(t, err)
	assert.Equal(t, "2.1", n, "numbering resumes once the unnumbered section closes")
	assert.Equal(t, "2.1", s.SectionNumbering())
	leaveInner()
	leave()
}

func TestState_BoxNumberingWithoutChapter(t *testing.T) {
	s := newState(t, registry.PassDiscovery)
	assert.Equal(t, "1", s.NextBox(false))
	assert.Equal(t, "2", s.NextBox(false))

	_, leave, _ := s.EnterSection(true)
	assert.Equal(t, "1.1", s.NextBox(false))
	leave()
}

func TestState_BoxNumberingBelowChapterLevel(t *testing.T) {
	reg := registry.New()
	reg.BeginPass(registry.PassDiscovery)
	s := New(Config{Entrypoint: "/p/main.atm", BoxLevel: 2}, reg, source.NewMap())

	_, leave, _ := s.EnterSection(true)
	assert.Equal(t, "1.1", s.NextBox(false), "no section of the chapter is numbered yet")

	_, leaveSub, _ := s.EnterSection(true)
	assert.Equal(t, "1.1.1", s.NextBox(false))
	leaveSub()
	assert.Equal(t, "1.1.2", s.NextBox(false))
	leave()
}

func TestState_BoxNumbering(t *testing.T) {
	s := newState(t, registry.PassDiscovery)

	_, leave, _ := s.EnterSection(true)
	assert.Equal(t, "1.1", s.NextBox(false))
	assert.Equal(t, "1.2", s.NextBox(false))
	assert.Equal(t, "1.1", s.NextBox(true), "exercises count separately")

	_, leaveSub, _ := s.EnterSection(true)
	assert.Equal(t, "1.3", s.NextBox(false), "sections below the owning level keep counting")
	leaveSub()
	leave()

	_, leave, _ = s.EnterSection(true)
	assert.Equal(t, "2.1", s.NextBox(false), "a new chapter restarts the count")
	leave()
}

func TestState_GlobalBoxNumbering(t *testing.T) {
	reg := registry.New()
	reg.BeginPass(registry.PassDiscovery)
	s := New(Config{Entrypoint: "/p/main.atm"}, reg, source.NewMap())

	_, leave, _ := s.EnterSection(true)
	assert.Equal(t, "1", s.NextBox(false))
	leave()
	_, leave, _ = s.EnterSection(true)
	assert.Equal(t, "2", s.NextBox(false))
	leave()
}

func TestState_ScopedResources(t *testing.T) {
	s := newState(t, registry.PassDiscovery)

	restore := s.EnterFile("/proj/src/ch/one.atm")
	assert.Equal(t, "src/ch", s.Cwd())
	assert.Equal(t, filepath.Join("/proj/src/ch", "two.atm"), s.ResolveInput("two.atm"))
	assert.Equal(t, filepath.Join("/proj", "top.atm"), s.ResolveInput("/top.atm"))
	restore()
	assert.Equal(t, "/proj/src/main.atm", s.File())

	restoreOut := s.EnterOutput("book/index.html")
	assert.Equal(t, "book/ch1.html", s.ResolveOutput("ch1.html"))
	assert.Equal(t, "root.html", s.ResolveOutput("/root.html"))
	restoreOut()
	assert.Empty(t, s.Output())

	leaveMath, err := s.EnterMath()
	require.NoError(t, err)
	_, err = s.EnterMath()
	assert.ErrorIs(t, err, ErrMathReentrant)
	leaveMath()
	assert.False(t, s.InMath())

	_, err = s.NextCase()
	assert.ErrorIs(t, err, ErrCaseOutsideCases)
	leaveCases := s.EnterCases()
	c1, _ := s.NextCase()
	inner := s.EnterCases()
	n, _ := s.NextCase()
	assert.Equal(t, "1", n)
	inner()
	c2, _ := s.NextCase()
	leaveCases()
	assert.Equal(t, []string{"1", "2"}, []string{c1, c2})
}

func TestState_BoxPreviews(t *testing.T) {
	s := newState(t, registry.PassDiscovery)
	assert.False(t, s.SharePreview("x"))

	leave := s.EnterBox("thm", "1.2")
	assert.Equal(t, "1.2", s.BoxNumbering())
	assert.True(t, s.SharePreview("case1"))
	assert.Equal(t, []string{"case1"}, s.BoxPreviews())
	leave()
	assert.Empty(t, s.Box())
	assert.Empty(t, s.BoxPreviews())

	assert.False(t, s.AddBoxless("def_loose"), "no paragraph is open")
	leaveP := s.EnterParagraph()
	assert.True(t, s.AddBoxless("def_a"))
	assert.Equal(t, []string{"def_a"}, s.TakeBoxless())
	assert.Empty(t, s.TakeBoxless())
	leaveP()
}

func TestState_BoxlessScopes(t *testing.T) {
	s := newState(t, registry.PassDiscovery)

	leaveP := s.EnterParagraph()
	require.True(t, s.AddBoxless("def_outer"))

	_, leaveSec, err := s.EnterSection(true)
	require.NoError(t, err)
	assert.False(t, s.AddBoxless("def_in_section"), "the paragraph does not reach into the section")
	assert.Empty(t, s.TakeBoxless())
	leaveSec()

	leaveOut := s.EnterOutput("other.html")
	assert.False(t, s.AddBoxless("def_in_output"))
	leaveOut()

	assert.Equal(t, []string{"def_outer"}, s.TakeBoxless())
	leaveP()
	assert.False(t, s.AddBoxless("def_after"))
}

func TestState_URLs(t *testing.T) {
	s := newState(t, registry.PassDiscovery)
	require.NoError(t, s.Registry.RegisterID("intro", registry.IDInfo{File: "index.html", Kind: registry.KindSection}))

	assert.Equal(t, "http://localhost:8080/index.html#intro", s.URL("intro"))
	assert.Equal(t, "http://localhost:8080/previews/thm.html", s.PreviewURL("thm"))

	s.SetDomain("https://example.org")
	assert.Equal(t, "https://example.org/index.html#intro", s.URL("intro"))
}

func TestOutbox_CommitInOrder(t *testing.T) {
	fs := testutil.NewMemFS(map[string]string{"/proj/assets/a.css": "a"})
	o := NewOutbox()
	o.Write("/proj/build/index.html", "<p>hi</p>", source.Trace{})
	o.Copy("/proj/assets", "/proj/build/assets", source.Trace{})
	o.Write("/proj/build/index.html", "<p>again</p>", source.Trace{})

	assert.Equal(t, 2, o.WriteCount("/proj/build/index.html"))
	require.NoError(t, o.Commit(context.Background(), fs, testutil.NewTestLogger(t)))

	assert.Equal(t, "<p>again</p>", fs.Files["/proj/build/index.html"])
	assert.Equal(t, "a", fs.Files["/proj/build/assets/a.css"])
}

func TestOutbox_CommitStopsOnError(t *testing.T) {
	fs := testutil.NewMemFS(nil)
	o := NewOutbox()
	o.Copy("/missing", "/build/x", source.At(3, 9))
	o.Write("/build/after.html", "x", source.Trace{})

	err := o.Commit(context.Background(), fs, nil)
	var cerr *CommitError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, source.At(3, 9), cerr.Op.Trace)
	_, written := fs.Files["/build/after.html"]
	assert.False(t, written)
}

func TestState_IncludeRecordsGraph(t *testing.T) {
	s := newState(t, registry.PassDiscovery)
	entry := filepath.FromSlash("/proj/src/main.atm")
	chapter := filepath.FromSlash("/proj/src/ch/one.atm")

	assert.Equal(t, "src/main.atm", s.SourceName(entry))
	require.NoError(t, s.Include(entry))

	leave := s.EnterFile(entry)
	require.NoError(t, s.Include(chapter))
	restore := s.EnterFile(chapter)
	assert.ErrorIs(t, s.Include(entry), inputs.ErrCycle)
	restore()
	leave()

	assert.Equal(t, []string{"src/main.atm", "src/ch/one.atm"}, s.Inputs.Files())
}
