// Package cli provides the command-line interface for htmlgen.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/commands"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/config"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "htmlgen",
		Short: "htmlgen - macro document compiler",
		Long: `htmlgen compiles documents written in a § macro language into
cross-referenced HTML with numbered sections, theorem boxes, defined terms,
hover previews and math.

Every build expands the document twice: once to discover identifiers, once
to emit output that references them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help and completion commands
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			entry := ""
			if len(args) > 0 && cmd.Name() != "show" {
				entry = args[0]
			}
			cfg, err := config.LoadConfig(cfgFile, entry, cmd.Flags())
			if err != nil {
				return err
			}
			if verbose {
				cfg.LogLevel = "debug"
			}

			logger := config.NewLogger(cfg, cmd.ErrOrStderr())
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if used := config.GetConfigFileUsed(); used != "" {
				logger.Debug("using config file", "path", used)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: htmlgen.yaml next to the entry file or above)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output (same as --log-level debug)")
	flags.String("build-dir", "", "Output directory (default build)")
	flags.String("previews-dir", "", "Preview directory inside the build directory (default previews)")
	flags.String("domain", "", "URL prefix of every generated link")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.String("log-format", "", "Log format (text|json)")
	flags.String("format", "", "Output format (auto|text|json)")
	flags.String("math", "", "Math renderer (passthrough|katex)")
	flags.String("katex", "", "Path of the katex executable")
	flags.Int("box-level", 0, "Heading level that restarts box numbering")
	flags.Int("exercise-level", 0, "Heading level that restarts exercise numbering")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("math", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.RendererPassthrough, config.RendererKaTeX}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewRefsCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewIndexCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command. Diagnostics are printed by the failing
// command; other errors are printed here.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var reported *commands.ReportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for htmlgen.

Bash:
  $ source <(htmlgen completion bash)

Zsh:
  $ htmlgen completion zsh > "${fpath[1]}/_htmlgen"

Fish:
  $ htmlgen completion fish | source

PowerShell:
  PS> htmlgen completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
