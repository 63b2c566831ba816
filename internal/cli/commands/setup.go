// Package commands implements the htmlgen subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/assets"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/config"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/engine"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/tex"
	"github.com/spf13/cobra"
)

// ReportedError is an error whose diagnostic has already been printed.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// CommandContext holds common dependencies for command execution.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the configuration, logger and renderer the root
// command stored for cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// Report prints the diagnostic for err and marks it as reported.
func (c *CommandContext) Report(err error, res *engine.Result) error {
	d := engine.Diagnose(err, nil)
	if res != nil {
		d = engine.Diagnose(err, res.Sources)
	}
	c.Renderer.Diagnostic(d)
	return &ReportedError{Err: err}
}

// getConfig returns the configuration loaded by the root command, loading
// defaults when a command runs on its own.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", "", nil)
}

// newRenderer builds the TeX renderer the configuration selects.
func newRenderer(cfg *config.Config, logger *slog.Logger) tex.Renderer {
	if cfg.Math.Renderer == config.RendererKaTeX {
		return tex.NewKaTeX(cfg.Math.Command, cfg.Math.Macros, logger)
	}
	return tex.Passthrough{}
}

// createEngine creates an engine for entry. outputPath may be empty.
func createEngine(cfg *config.Config, entry, outputPath string, logger *slog.Logger) (*engine.Engine, error) {
	if entry == "" {
		return nil, fmt.Errorf("no entry file given")
	}
	if outputPath != "" {
		abs, err := filepath.Abs(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output path: %w", err)
		}
		outputPath = abs
	}

	return engine.New(engine.Config{
		Entrypoint:    entry,
		ProjectRoot:   cfg.ProjectRoot,
		BuildDir:      cfg.BuildDir,
		PreviewsDir:   cfg.PreviewsDir,
		Domain:        cfg.Domain,
		BoxLevel:      cfg.Numbering.BoxLevel,
		ExerciseLevel: cfg.Numbering.ExerciseLevel,
		OutputPath:    outputPath,
		IndexPath:     cfg.Index,
		FS:            assets.NewDisk(assets.Options{Minify: cfg.Assets.Minify, Logger: logger}),
		Math:          newRenderer(cfg, logger),
		Logger:        logger,
	})
}

// relativeTo shortens path for display when it lies below dir.
func relativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
