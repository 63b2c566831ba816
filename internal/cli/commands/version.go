package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command. The values are stamped in
// at link time.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the htmlgen version",
		Long:  `Print the htmlgen version, the commit it was built from and the Go toolchain that built it.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			if short {
				_, _ = fmt.Fprintln(w, version)
				return
			}
			_, _ = fmt.Fprintf(w, "htmlgen v%s\n", version)
			_, _ = fmt.Fprintf(w, "commit %s, built %s with %s\n", commit, date, runtime.Version())
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
