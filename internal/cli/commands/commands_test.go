package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	clitest "github.com/AljoschaMeyer/atm-htmlgen/internal/cli/testutil"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/engine"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildCommand(t *testing.T) {
	cmd := NewBuildCommand()

	assert.Equal(t, "build <entry>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"out", "index", "minify"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "o", cmd.Flags().Lookup("out").Shorthand)
}

func TestNewRefsCommand(t *testing.T) {
	cmd := NewRefsCommand()

	assert.Equal(t, "refs <entry>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	for _, flag := range []string{"kind", "terms", "outline", "inputs"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve <entry>", cmd.Use)
	for _, flag := range []string{"addr", "debounce", "minify"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewIndexCommand(t *testing.T) {
	cmd := NewIndexCommand()

	assert.Equal(t, "index", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("index"))
	names := []string{}
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"show", "prune"}, names)
}

// discover runs the discovery pass over an in-memory document.
func discover(t *testing.T, doc string) *engine.Result {
	t.Helper()
	fs := testutil.NewMemFS(map[string]string{"/proj/main.txt": doc})
	e, err := engine.New(engine.Config{
		Entrypoint: "/proj/main.txt",
		BuildDir:   "/proj/build",
		Domain:     "https://example.org/",
		BoxLevel:   1,
		FS:         fs,
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	res, err := e.Discover(context.Background())
	require.NoError(t, err)
	return res
}

const refsDoc = `§output[index.html](§hsection[intro](Intro)(§hsection[basics](Basics)(` +
	`§theorem[thm](§definex[group]true))))`

func TestCollectRefs(t *testing.T) {
	res := discover(t, refsDoc)

	out := collectRefs(res.Registry, res.Domain, &RefsOptions{Terms: true, Outline: true})
	require.Len(t, out.Identifiers, 3)
	assert.Equal(t, "basics", out.Identifiers[0].ID)
	assert.Equal(t, "Section", out.Identifiers[0].Label)
	assert.Equal(t, "1.1", out.Identifiers[0].Numbering)
	assert.Equal(t, "https://example.org/index.html#basics", out.Identifiers[0].URL)

	require.Len(t, out.Terms, 1)
	assert.Equal(t, "group", out.Terms[0].Term)
	assert.Equal(t, "groups", out.Terms[0].Plural)

	assert.Equal(t, []OutlineEntry{
		{ID: "intro", Depth: 0, Title: "1 Intro"},
		{ID: "basics", Depth: 1, Title: "1.1 Basics"},
	}, out.Outline)

	boxes := collectRefs(res.Registry, res.Domain, &RefsOptions{Kind: registry.KindBox.String()})
	require.Len(t, boxes.Identifiers, 1)
	assert.Equal(t, "thm", boxes.Identifiers[0].ID)
	assert.Empty(t, boxes.Terms)
	assert.Empty(t, boxes.Outline)
}

func TestCollectInputs(t *testing.T) {
	g := inputs.New()
	g.AddFile("main.txt")
	require.NoError(t, g.AddInclude("main.txt", "ch1.txt"))
	require.NoError(t, g.AddInclude("ch1.txt", "macros.txt"))
	require.NoError(t, g.AddInclude("main.txt", "macros.txt"))

	assert.Equal(t, []InputEntry{
		{File: "main.txt", Depth: 0},
		{File: "ch1.txt", Depth: 1},
		{File: "macros.txt", Depth: 2},
		{File: "macros.txt", Depth: 1},
	}, collectInputs(g))
	assert.Nil(t, collectInputs(inputs.New()))
}

func TestRenderRefs_Text(t *testing.T) {
	res := discover(t, refsDoc)
	opts := &RefsOptions{Terms: true, Outline: true}
	tr := clitest.NewTestRenderer(output.ModeAuto, false)

	require.NoError(t, renderRefs(tr.Renderer, collectRefs(res.Registry, res.Domain, opts), opts))

	text := tr.Output()
	clitest.AssertNoANSI(t, text)
	assert.Contains(t, text, "Theorem 1.1")
	assert.Contains(t, text, "Terms")
	assert.Contains(t, text, "  1.1 Basics (basics)\n")
}

func TestRenderRefs_JSON(t *testing.T) {
	res := discover(t, refsDoc)
	opts := &RefsOptions{}
	tr := clitest.NewTestRenderer(output.ModeJSON, true)

	require.NoError(t, renderRefs(tr.Renderer, collectRefs(res.Registry, res.Domain, opts), opts))

	var got RefsOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Len(t, got.Identifiers, 3)
	assert.Nil(t, got.Terms)
	clitest.AssertNoANSI(t, tr.Output())
}

func TestReportedError(t *testing.T) {
	cause := errors.New("boom")
	tr := clitest.NewTestRenderer(output.ModeText, false)
	cc := &CommandContext{Renderer: tr.Renderer}

	err := cc.Report(cause, nil)
	var reported *ReportedError
	require.ErrorAs(t, err, &reported)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "error: boom\n", tr.ErrorOutput())
}

func TestRelativeTo(t *testing.T) {
	assert.Equal(t, "sub/a.html", relativeTo("/b", "/b/sub/a.html"))
	assert.Equal(t, "/elsewhere/x.html", relativeTo("/b", "/elsewhere/x.html"))
}
