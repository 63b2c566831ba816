// Package engine drives the two expansion passes over a document.
// The discovery pass registers every identifier, term and heading; the emit
// pass re-expands the document from scratch against the registry the first
// pass filled, resolves references and stages all writes, which are only
// committed once the whole run has succeeded.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/assets"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/document"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/expand"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/index"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/tex"
	"github.com/yuin/goldmark"
)

// ErrNondeterministic is returned when the two passes register different
// names, which would make pass-two references unreliable.
var ErrNondeterministic = errors.New("passes registered different names")

// Engine runs builds of one document.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Entrypoint is the root input file.
	Entrypoint string
	// ProjectRoot anchors "/"-prefixed input paths (default: entrypoint's directory).
	ProjectRoot string
	// BuildDir receives all output.
	BuildDir string
	// PreviewsDir is relative to BuildDir (default "previews").
	PreviewsDir string
	// Domain prefixes every generated URL.
	Domain string
	// BoxLevel and ExerciseLevel are the heading depths restarting box and
	// exercise numbering.
	BoxLevel      int
	ExerciseLevel int

	// OutputPath, if set, receives the expansion of the entrypoint itself.
	OutputPath string
	// IndexPath, if set, receives a SQLite export of the registry.
	IndexPath string

	// FS defaults to the real filesystem.
	FS document.FileSystem
	// Math defaults to tex.Passthrough.
	Math tex.Renderer
	// Markdown defaults to goldmark.New().
	Markdown goldmark.Markdown
	// Table defaults to expand.Default().
	Table *expand.Table
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Result describes a finished run.
type Result struct {
	BuildID  string
	Registry *registry.Registry
	Sources  *source.Map
	// Inputs is the include graph of the last pass.
	Inputs *inputs.Graph
	// Output is the expansion of the entrypoint in the last pass.
	Output string
	// Written lists committed files in commit order; copies list their
	// destination.
	Written  []string
	Domain   string
	Started  time.Time
	Duration time.Duration
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Entrypoint == "" {
		return nil, errors.New("no entrypoint given")
	}
	if cfg.BuildDir == "" {
		return nil, errors.New("no build directory given")
	}

	entry, err := filepath.Abs(cfg.Entrypoint)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entrypoint: %w", err)
	}
	cfg.Entrypoint = entry
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = filepath.Dir(entry)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.FS == nil {
		cfg.FS = assets.NewDisk(assets.Options{Logger: logger})
	}
	if cfg.Table == nil {
		cfg.Table = expand.Default()
	}

	logger.Debug("initializing engine", "entrypoint", cfg.Entrypoint, "build_dir", cfg.BuildDir)
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) documentConfig() document.Config {
	return document.Config{
		Entrypoint:    e.cfg.Entrypoint,
		ProjectRoot:   e.cfg.ProjectRoot,
		BuildDir:      e.cfg.BuildDir,
		PreviewsDir:   e.cfg.PreviewsDir,
		Domain:        e.cfg.Domain,
		BoxLevel:      e.cfg.BoxLevel,
		ExerciseLevel: e.cfg.ExerciseLevel,
		FS:            e.cfg.FS,
	}
}

// pass runs one complete parse and expansion of the document with a fresh
// state attached to reg.
func (e *Engine) pass(ctx context.Context, p registry.Pass, reg *registry.Registry, srcs *source.Map) (string, *document.State, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	reg.BeginPass(p)
	st := document.New(e.documentConfig(), reg, srcs)
	x := expand.New(ctx, st, expand.Options{
		Table:    e.cfg.Table,
		Math:     e.cfg.Math,
		Markdown: e.cfg.Markdown,
		Logger:   e.logger,
	})

	start := time.Now()
	e.logger.Debug("pass started", "pass", p)
	out, err := x.IncludeFile(e.cfg.Entrypoint, source.Trace{})
	if err != nil {
		return "", nil, &PassError{Pass: p, Err: err}
	}
	e.logger.Debug("pass finished", "pass", p, "ids", len(reg.Keys(p)), "elapsed", time.Since(start))
	return out, st, nil
}

// Discover runs the discovery pass only. Nothing is written.
func (e *Engine) Discover(ctx context.Context) (*Result, error) {
	started := time.Now()
	reg, srcs := registry.New(), source.NewMap()

	out, st, err := e.pass(ctx, registry.PassDiscovery, reg, srcs)
	if err != nil {
		return &Result{Registry: reg, Sources: srcs}, err
	}
	// Finish the navigation tree so that outlines see this pass.
	reg.Nav().Reset()

	return &Result{
		Registry: reg,
		Sources:  srcs,
		Inputs:   st.Inputs,
		Output:   out,
		Domain:   st.Domain(),
		Started:  started,
		Duration: time.Since(started),
	}, nil
}

// Build runs both passes and commits the output. On any error nothing is
// written.
func (e *Engine) Build(ctx context.Context) (*Result, error) {
	res := &Result{
		BuildID:  index.NewBuildID(),
		Registry: registry.New(),
		Sources:  source.NewMap(),
		Started:  time.Now(),
	}
	e.logger.Info("starting build", "build_id", res.BuildID, "entrypoint", e.cfg.Entrypoint)

	if _, _, err := e.pass(ctx, registry.PassDiscovery, res.Registry, res.Sources); err != nil {
		return res, err
	}
	out, st, err := e.pass(ctx, registry.PassEmit, res.Registry, res.Sources)
	if err != nil {
		return res, err
	}
	res.Registry.Nav().Reset()
	res.Inputs = st.Inputs
	res.Output = out
	res.Domain = st.Domain()

	if onlyFirst, onlySecond := res.Registry.Diff(registry.PassDiscovery, registry.PassEmit); len(onlyFirst)+len(onlySecond) > 0 {
		return res, fmt.Errorf("%w: only in discovery %v, only in emit %v", ErrNondeterministic, onlyFirst, onlySecond)
	}

	if e.cfg.OutputPath != "" {
		st.Outbox.Write(e.cfg.OutputPath, out, source.Trace{})
	}
	if err := st.Outbox.Commit(ctx, e.cfg.FS, e.logger); err != nil {
		return res, commitError(err)
	}
	for _, op := range st.Outbox.Operations() {
		res.Written = append(res.Written, op.Path)
	}
	res.Duration = time.Since(res.Started)

	if e.cfg.IndexPath != "" {
		if err := e.exportIndex(ctx, res); err != nil {
			return res, err
		}
	}

	e.logger.Info("build completed", "build_id", res.BuildID, "files", len(res.Written), "elapsed", res.Duration)
	return res, nil
}

// commitError reports a failed commit as an expansion error located at the
// invocation that staged the operation.
func commitError(err error) error {
	var ce *document.CommitError
	if !errors.As(err, &ce) {
		return err
	}
	kind := expand.ErrOutputIO
	if ce.Op.CopyFrom != "" {
		kind = expand.ErrCopy
	}
	return &expand.Error{Kind: kind, Trace: ce.Op.Trace, Name: ce.Op.Path, Err: ce.Err}
}

func (e *Engine) exportIndex(ctx context.Context, res *Result) error {
	store, err := index.Open(ctx, e.cfg.IndexPath, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.Record(ctx, index.Build{
		ID:         res.BuildID,
		Entrypoint: e.cfg.Entrypoint,
		Domain:     res.Domain,
		StartedAt:  res.Started,
		Duration:   res.Duration,
	}, res.Registry)
}
