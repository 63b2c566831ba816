package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/devserver"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <entry>",
		Short: "Build, serve and rebuild on change",
		Long: `Build the document, serve the build directory and rebuild whenever a file
below the project root changes. Open pages reload after every rebuild. A failed
build replaces every page with its diagnostic until the next successful one.`,
		Example: `  # Serve on the configured address
  htmlgen serve main.txt

  # Custom address and debounce
  htmlgen serve main.txt --addr 127.0.0.1:3000 --debounce 300ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args[0])
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().Duration("debounce", 0, "Delay rebuilds until changes settle (default 100ms)")
	cmd.Flags().Bool("minify", false, "Minify copied .js and .css files")

	return cmd
}

func runServe(cmd *cobra.Command, entry string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	eng, err := createEngine(cc.Cfg, entry, "", cc.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devserver.New(devserver.Config{
		Builder:  eng,
		BuildDir: cc.Cfg.BuildDir,
		WatchDir: cc.Cfg.ProjectRoot,
		Addr:     cc.Cfg.Serve.Addr,
		Debounce: cc.Cfg.Serve.Debounce,
		Logger:   cc.Logger,
	})

	cc.Renderer.Success("serving " + cc.Cfg.BuildDir + " on " + cc.Cfg.Serve.Addr)
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
