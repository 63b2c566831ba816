package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/index"
	"github.com/spf13/cobra"
)

// IndexOutput is the JSON result of index show.
type IndexOutput struct {
	Build       *index.Build       `json:"build"`
	Identifiers []index.Identifier `json:"identifiers"`
}

// NewIndexCommand creates the index command group.
func NewIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Query the cross-reference index",
		Long: `Inspect the SQLite index written by 'htmlgen build --index'. The index
path comes from the index setting or the --index flag.`,
	}
	cmd.PersistentFlags().String("index", "", "Path to the SQLite index")

	cmd.AddCommand(newIndexShowCommand(), newIndexPruneCommand())
	return cmd
}

func newIndexShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id...]",
		Short: "Show the identifiers of the latest build",
		Example: `  # Everything from the latest build
  htmlgen index show --index .htmlgen/index.db

  # Where do these identifiers live?
  htmlgen index show intro thm_main`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, err := openIndex(cmd, cc)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			latest, err := store.Latest(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := store.Identifiers(cmd.Context(), latest.ID)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				ids = slices.DeleteFunc(ids, func(id index.Identifier) bool {
					return !slices.Contains(args, id.ID)
				})
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(IndexOutput{Build: latest, Identifiers: ids})
			}
			r.Println(r.Styles().Muted.Render(fmt.Sprintf("build %s, %s", latest.ID, latest.StartedAt.Format("2006-01-02 15:04:05"))))
			rows := make([][]string, len(ids))
			for i, id := range ids {
				rows[i] = []string{id.ID, id.Kind, strings.TrimSpace(id.Label + " " + id.Numbering), id.URL}
			}
			r.Table([]string{"ID", "Kind", "Label", "URL"}, rows)
			return nil
		},
	}
}

func newIndexPruneCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, err := openIndex(cmd, cc)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("pruned %d builds", n))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "Number of builds to keep")
	return cmd
}

func openIndex(cmd *cobra.Command, cc *CommandContext) (*index.Store, error) {
	if cc.Cfg.Index == "" {
		return nil, errors.New("no index configured; set index in htmlgen.yaml or pass --index")
	}
	return index.Open(cmd.Context(), cc.Cfg.Index, cc.Logger)
}
