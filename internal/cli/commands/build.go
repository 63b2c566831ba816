package commands

import (
	"fmt"
	"time"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Out string
}

// BuildOutput is the JSON result of a build.
type BuildOutput struct {
	BuildID    string   `json:"build_id"`
	BuildDir   string   `json:"build_dir"`
	Files      []string `json:"files"`
	Inputs     []string `json:"inputs"`
	DurationMS int64    `json:"duration_ms"`
	Index      string   `json:"index,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build <entry>",
		Short: "Build the document",
		Long: `Expand the document twice and write every output file.

The first pass registers identifiers, terms and headings; the second pass
resolves references against them and produces the output. Nothing is written
unless both passes succeed.`,
		Example: `  # Build into ./build
  htmlgen build main.txt

  # Also write the expansion of main.txt itself
  htmlgen build main.txt -o build/index.html

  # Export the cross-reference index
  htmlgen build main.txt --index .htmlgen/index.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Write the expansion of the entry file to this path")
	cmd.Flags().String("index", "", "Export identifiers and terms to this SQLite file")
	cmd.Flags().Bool("minify", false, "Minify copied .js and .css files")

	return cmd
}

func runBuild(cmd *cobra.Command, entry string, opts *BuildOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	eng, err := createEngine(cc.Cfg, entry, opts.Out, cc.Logger)
	if err != nil {
		return err
	}

	res, err := eng.Build(cmd.Context())
	if err != nil {
		return cc.Report(err, res)
	}

	files := make([]string, len(res.Written))
	for i, path := range res.Written {
		files[i] = relativeTo(cc.Cfg.BuildDir, path)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(BuildOutput{
			BuildID:    res.BuildID,
			BuildDir:   cc.Cfg.BuildDir,
			Files:      files,
			Inputs:     res.Inputs.Files(),
			DurationMS: res.Duration.Milliseconds(),
			Index:      cc.Cfg.Index,
		})
	}

	styles := r.Styles()
	for _, f := range files {
		r.Println("  " + styles.Path.Render(f))
	}
	r.Success(fmt.Sprintf("built %d files from %d inputs in %s", len(files), res.Inputs.Len(), res.Duration.Round(time.Millisecond)))
	return nil
}
