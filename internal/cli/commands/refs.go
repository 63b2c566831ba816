package commands

import (
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/index"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/spf13/cobra"
)

// RefsOptions holds options for the refs command.
type RefsOptions struct {
	Kind    string
	Terms   bool
	Outline bool
	Inputs  bool
}

// RefsOutput is the JSON result of the refs command.
type RefsOutput struct {
	Identifiers []index.Identifier `json:"identifiers"`
	Terms       []index.Term       `json:"terms,omitempty"`
	Outline     []OutlineEntry     `json:"outline,omitempty"`
	Inputs      []InputEntry       `json:"inputs,omitempty"`
}

// OutlineEntry is one heading of the outline.
type OutlineEntry struct {
	ID    string `json:"id"`
	Depth int    `json:"depth"`
	Title string `json:"title"`
}

// InputEntry is one include in the input tree. A file included from several
// places appears under each of them.
type InputEntry struct {
	File  string `json:"file"`
	Depth int    `json:"depth"`
}

// NewRefsCommand creates the refs command.
func NewRefsCommand() *cobra.Command {
	opts := &RefsOptions{}

	cmd := &cobra.Command{
		Use:   "refs <entry>",
		Short: "List the identifiers a document defines",
		Long: `Run the discovery pass and list every identifier with its kind, label,
number and output file. Nothing is written.`,
		Example: `  # All identifiers
  htmlgen refs main.txt

  # Only boxes, plus the defined terms
  htmlgen refs main.txt --kind box --terms

  # Table of contents
  htmlgen refs main.txt --outline

  # Which files the document reads
  htmlgen refs main.txt --inputs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefs(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Only list identifiers of this kind (section, box, case, definition)")
	cmd.Flags().BoolVar(&opts.Terms, "terms", false, "Also list defined terms")
	cmd.Flags().BoolVar(&opts.Outline, "outline", false, "Also print the section outline")
	cmd.Flags().BoolVar(&opts.Inputs, "inputs", false, "Also print the tree of included files")

	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"section", "box", "case", "definition"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRefs(cmd *cobra.Command, entry string, opts *RefsOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	eng, err := createEngine(cc.Cfg, entry, "", cc.Logger)
	if err != nil {
		return err
	}

	res, err := eng.Discover(cmd.Context())
	if err != nil {
		return cc.Report(err, res)
	}

	out := collectRefs(res.Registry, res.Domain, opts)
	if opts.Inputs {
		out.Inputs = collectInputs(res.Inputs)
	}
	return renderRefs(cc.Renderer, out, opts)
}

func renderRefs(r *output.Renderer, out RefsOutput, opts *RefsOptions) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	styles := r.Styles()
	rows := make([][]string, len(out.Identifiers))
	for i, id := range out.Identifiers {
		rows[i] = []string{id.ID, id.Kind, strings.TrimSpace(id.Label + " " + id.Numbering), id.Title, id.File}
	}
	r.Table([]string{"ID", "Kind", "Label", "Title", "File"}, rows)

	if opts.Terms {
		r.Println("")
		r.Println(styles.Header.Render("Terms"))
		rows = make([][]string, len(out.Terms))
		for i, t := range out.Terms {
			rows[i] = []string{t.Term, t.Singular, t.Plural, t.Href}
		}
		r.Table([]string{"Term", "Singular", "Plural", "Link"}, rows)
	}

	if opts.Outline {
		r.Println("")
		r.Println(styles.Header.Render("Outline"))
		for _, e := range out.Outline {
			r.Printf("%s%s %s\n", strings.Repeat("  ", e.Depth), e.Title, styles.Muted.Render("("+e.ID+")"))
		}
	}
	if opts.Inputs {
		r.Println("")
		r.Println(styles.Header.Render("Inputs"))
		for _, e := range out.Inputs {
			r.Println(strings.Repeat("  ", e.Depth) + styles.Path.Render(e.File))
		}
	}
	return nil
}

// collectInputs flattens the include graph into a tree rooted at the
// entrypoint.
func collectInputs(g *inputs.Graph) []InputEntry {
	files := g.Files()
	if len(files) == 0 {
		return nil
	}
	var out []InputEntry
	var walk func(file string, depth int)
	walk = func(file string, depth int) {
		out = append(out, InputEntry{File: file, Depth: depth})
		for _, child := range g.Includes(file) {
			walk(child, depth+1)
		}
	}
	walk(files[0], 0)
	return out
}

// collectRefs flattens a discovery registry for display.
func collectRefs(reg *registry.Registry, domain string, opts *RefsOptions) RefsOutput {
	out := RefsOutput{Identifiers: []index.Identifier{}}
	for _, id := range reg.IDs() {
		row := index.Describe(reg, domain, id)
		if opts.Kind != "" && row.Kind != opts.Kind {
			continue
		}
		out.Identifiers = append(out.Identifiers, row)
	}

	if opts.Terms {
		for _, term := range reg.Terms() {
			info, _ := reg.Term(term)
			out.Terms = append(out.Terms, index.Term{
				Term:     term,
				Singular: info.Singular,
				Plural:   info.Plural,
				Href:     info.Href,
			})
		}
	}

	if opts.Outline {
		for _, e := range reg.Nav().Outline() {
			title := e.ID
			if s, ok := reg.Section(e.ID); ok {
				title = strings.TrimSpace(s.Numbering + " " + s.Title)
			}
			out.Outline = append(out.Outline, OutlineEntry{ID: e.ID, Depth: e.Depth, Title: title})
		}
	}
	return out
}
