package expand

import (
	"path/filepath"
	"testing"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefine_InsideBox(t *testing.T) {
	out := expandDoc(t, "§definition[d](§define[group](group) and §r[group])")
	assert.Contains(t, out,
		`<dfn>group</dfn> and <a class="defined" href="https://example.org/#d" data-preview="https://example.org/previews/d.html">group</a>`)
}

func TestDefine_OutsideBox(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "§p(A §define[Group Action](group action) is nice.)§p(§R[Group Action] again.)"})
	out, err := h.build()
	require.NoError(t, err)

	assert.Equal(t,
		`<p>A <dfn id="def_group_action">group action</dfn> is nice.</p>`+
			`<p><a class="defined" href="https://example.org/#def_group_action" data-preview="https://example.org/previews/def_group_action.html">Group Action</a> again.</p>`,
		out)

	preview := filepath.Join(buildDir, "previews", "def_group_action.html")
	require.Equal(t, 1, h.st.Outbox.WriteCount(preview))
	for _, op := range h.st.Outbox.Operations() {
		if op.Path == preview {
			assert.Equal(t, `<p>A <dfn>group action</dfn> is nice.</p>`, string(op.Content))
		}
	}
}

func TestDefine_OutsideParagraph(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "§hsection(A)(§define[loose](loose))§p(unrelated §r[loose])"})
	out, err := h.build()
	require.NoError(t, err)
	assert.Contains(t, out, `<dfn id="def_loose">loose</dfn>`)

	for _, op := range h.st.Outbox.Operations() {
		assert.NotContains(t, string(op.Content), "unrelated", "the later paragraph is no preview of %s", op.Path)
	}
	assert.Zero(t, h.st.Outbox.WriteCount(filepath.Join(buildDir, "previews", "def_loose.html")))
}

func TestReferences_Forms(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"singular", "§r[vertex]", ">vertex</a>"},
		{"capital", "§R[vertex]", ">Vertex</a>"},
		{"plural", "§rs[vertex]", ">vertices</a>"},
		{"capital plural", "§Rs[vertex]", ">Vertices</a>"},
		{"explicit text", "§r[vertex](that node)", ">that node</a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := expandDoc(t, tt.ref+"§definition[d](§definex[vertex, vertices])")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestReferences_DefaultPlural(t *testing.T) {
	out := expandDoc(t, "§example[e](§definex[edge])§rs[edge]")
	assert.Contains(t, out, ">edges</a>")
}

func TestReferences_ForwardOnlyResolvedInEmitPass(t *testing.T) {
	h := newHarness(t, map[string]string{entry: "§r[later]§definition[d](§definex[later])"})

	out, err := h.pass(registry.PassDiscovery)
	require.NoError(t, err)
	assert.NotContains(t, out, "<a class=\"defined\"")

	out, err = h.pass(registry.PassEmit)
	require.NoError(t, err)
	assert.Contains(t, out, `<a class="defined" href="https://example.org/#d"`)
}

func TestReferences_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind error
	}{
		{"unknown term", "§r[nope]", ErrUnknownDefine},
		{"duplicate term in boxes", "§definition(§definex[a])§definition(§definex[a])", ErrDuplicateDefine},
		{"duplicate term outside boxes", "§definex[a]§definex[a]", ErrDuplicateDefine},
		{"empty term", "§definex", ErrEmptyID},
		{"unknown id", "§cref[nope]", ErrUnknownID},
		{"anchor is no cref target", "§definex[a]§cref[def_a]", ErrNoLinkTarget},
		{"duplicate box id", "§theorem[x](a)§lemma[x](b)", ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := expandErr(t, tt.doc)
			assert.ErrorIs(t, e, tt.kind)
			assert.False(t, e.Trace.IsZero())
		})
	}
}

func TestCrossReference_Box(t *testing.T) {
	out := expandDoc(t, "§hsection(C)(§lemma[l](x))§cref[l] §cref[l](this)")
	assert.Contains(t, out, `<a class="cref" href="https://example.org/#l" data-preview="https://example.org/previews/l.html">Lemma 1.1</a>`)
	assert.Contains(t, out, `data-preview="https://example.org/previews/l.html">this</a>`)
}

func TestCrossReference_AcrossOutputs(t *testing.T) {
	out := expandDoc(t, "§output[a.html](§theorem[t](x))§output_tee[b/index.html](§cref[t])")
	assert.Contains(t, out, `href="https://example.org/a.html#t"`)
}

func TestAnchorFor(t *testing.T) {
	assert.Equal(t, "def_group", anchorFor("group"))
	assert.Equal(t, "def_group_action", anchorFor("Group Action"))
	assert.Equal(t, "def_x_y", anchorFor("x-y"))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Group", capitalize("group"))
	assert.Equal(t, "Élan", capitalize("élan"))
	assert.Equal(t, "", capitalize(""))
}

func TestStripIDs(t *testing.T) {
	got, err := stripIDs(`<div id="a" class="c"><span id="b">x</span></div>`)
	require.NoError(t, err)
	assert.Equal(t, `<div class="c"><span>x</span></div>`, got)
}
