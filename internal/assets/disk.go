// Package assets provides the filesystem the build reads sources from and
// commits its outputs to, including recursive asset copies with optional
// minification of scripts and stylesheets.
package assets

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// loaders maps minifiable extensions to esbuild loaders.
var loaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".css": api.LoaderCSS,
}

// Options configure a Disk.
type Options struct {
	// Minify passes .js and .css files through esbuild while copying.
	Minify bool
	// Logger is optional.
	Logger *slog.Logger
}

// Disk is the real filesystem. It implements document.FileSystem.
type Disk struct {
	minify bool
	logger *slog.Logger
}

// NewDisk creates a Disk.
func NewDisk(opts Options) *Disk {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Disk{minify: opts.Minify, logger: logger}
}

// ReadFile reads a source file.
func (d *Disk) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name) //nolint:gosec // G304: input paths come from the document
}

// WriteFile writes a file, creating parent directories as needed.
func (d *Disk) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(name, data, 0o644) //nolint:gosec // G306: build output is public
}

// CopyAll copies a file or a directory tree from one path to another.
func (d *Disk) CopyAll(from, to string) error {
	info, err := os.Stat(from)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return d.copyFile(from, to)
	}

	n := 0
	err = filepath.WalkDir(from, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		target := filepath.Join(to, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		n++
		return d.copyFile(path, target)
	})
	if err != nil {
		return err
	}
	d.logger.Debug("copied tree", "from", from, "to", to, "files", n)
	return nil
}

func (d *Disk) copyFile(src, dst string) error {
	if loader, ok := loaders[strings.ToLower(filepath.Ext(src))]; ok && d.minify {
		return d.minifyFile(src, dst, loader)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	in, err := os.Open(src) //nolint:gosec // G304: src is from the document
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) //nolint:gosec // G304: dst lies in the build directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (d *Disk) minifyFile(src, dst string, loader api.Loader) error {
	data, err := os.ReadFile(src) //nolint:gosec // G304: src is from the document
	if err != nil {
		return err
	}
	code, err := Minify(string(data), loader)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	d.logger.Debug("minified", "file", src, "before", len(data), "after", len(code))
	return d.WriteFile(dst, []byte(code))
}

// Minify minifies a script or stylesheet.
func Minify(src string, loader api.Loader) (string, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader:            loader,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		var msg strings.Builder
		for _, e := range result.Errors {
			if e.Location != nil {
				fmt.Fprintf(&msg, "%d:%d: ", e.Location.Line, e.Location.Column)
			}
			msg.WriteString(e.Text + "\n")
		}
		return "", fmt.Errorf("esbuild errors:\n%s", strings.TrimRight(msg.String(), "\n"))
	}
	return string(result.Code), nil
}
