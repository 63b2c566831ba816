// Package tex renders TeX math to HTML.
package tex

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// Options control a single rendering.
type Options struct {
	Display bool // block rather than inline math
	Fleqn   bool // flush display math left
}

// Renderer turns TeX source into HTML.
type Renderer interface {
	Render(ctx context.Context, src string, opts Options) (string, error)
}

// Passthrough emits delimited TeX for rendering in the browser.
type Passthrough struct{}

// Render implements Renderer.
func (Passthrough) Render(_ context.Context, src string, opts Options) (string, error) {
	escaped := html.EscapeString(src)
	if !opts.Display {
		return `<span class="math inline">\(` + escaped + `\)</span>`, nil
	}
	class := "math display"
	if opts.Fleqn {
		class += " fleqn"
	}
	return `<div class="` + class + `">\[` + escaped + `\]</div>`, nil
}

// Error is a failed rendering.
type Error struct {
	Source string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("katex: %s", msg)
}

func (e *Error) Unwrap() error { return e.Err }

type cacheKey struct {
	src  string
	opts Options
}

// KaTeX renders through the katex command line tool, once per distinct
// input.
type KaTeX struct {
	Command string
	// Macros are passed as --macro name:expansion.
	Macros map[string]string

	logger *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey]string
}

// NewKaTeX creates a renderer running command.
func NewKaTeX(command string, macros map[string]string, logger *slog.Logger) *KaTeX {
	if command == "" {
		command = "katex"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &KaTeX{
		Command: command,
		Macros:  macros,
		logger:  logger,
		cache:   make(map[cacheKey]string),
	}
}

func (k *KaTeX) args(opts Options) []string {
	// htmlData, htmlClass and href need trust.
	args := []string{"--trust"}
	if opts.Display {
		args = append(args, "--display-mode")
	}
	if opts.Fleqn {
		args = append(args, "--fleqn")
	}
	names := make([]string, 0, len(k.Macros))
	for name := range k.Macros {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "--macro", name+":"+k.Macros[name])
	}
	return args
}

// Render implements Renderer.
func (k *KaTeX) Render(ctx context.Context, src string, opts Options) (string, error) {
	key := cacheKey{src: src, opts: opts}
	k.mu.Lock()
	out, ok := k.cache[key]
	k.mu.Unlock()
	if ok {
		return out, nil
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, k.Command, k.args(opts)...)
	cmd.Stdin = strings.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	k.logger.Debug("rendering math", "display", opts.Display, "bytes", len(src))
	if err := cmd.Run(); err != nil {
		return "", &Error{Source: src, Stderr: stderr.String(), Err: err}
	}

	out = strings.TrimSpace(stdout.String())
	k.mu.Lock()
	k.cache[key] = out
	k.mu.Unlock()
	return out, nil
}
