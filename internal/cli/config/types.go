// Package config loads htmlgen configuration from defaults, htmlgen.yaml,
// HTMLGEN_ environment variables and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the directory of the config file, or of the entry file
	// when there is none. Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`

	BuildDir     string          `koanf:"build_dir"`
	PreviewsDir  string          `koanf:"previews_dir"`
	Domain       string          `koanf:"domain"`
	LogLevel     string          `koanf:"log_level"`
	LogFormat    string          `koanf:"log_format"`
	OutputFormat string          `koanf:"output"`
	Math         MathConfig      `koanf:"math"`
	Numbering    NumberingConfig `koanf:"numbering"`
	Assets       AssetsConfig    `koanf:"assets"`
	// Index is the SQLite file receiving the registry; empty disables it.
	Index string      `koanf:"index"`
	Serve ServeConfig `koanf:"serve"`
}

// MathConfig selects the TeX renderer.
type MathConfig struct {
	Renderer string            `koanf:"renderer"`
	Command  string            `koanf:"command"`
	Macros   map[string]string `koanf:"macros"`
}

// NumberingConfig holds the heading depths that restart box numbering.
type NumberingConfig struct {
	BoxLevel      int `koanf:"box_level"`
	ExerciseLevel int `koanf:"exercise_level"`
}

// AssetsConfig controls copied assets.
type AssetsConfig struct {
	Minify bool `koanf:"minify"`
}

// ServeConfig holds dev server settings.
type ServeConfig struct {
	Addr     string        `koanf:"addr"`
	Debounce time.Duration `koanf:"debounce"`
}

// Math renderer names.
const (
	RendererPassthrough = "passthrough"
	RendererKaTeX       = "katex"
)

// Default configuration values.
const (
	DefaultBuildDir    = "build"
	DefaultPreviewsDir = "previews"
	DefaultDomain      = "http://localhost:8080/"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto"
	DefaultKaTeX       = "katex"
	DefaultAddr        = ":8080"
	DefaultDebounce    = 100 * time.Millisecond
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() map[string]any {
	return map[string]any{
		"build_dir":                DefaultBuildDir,
		"previews_dir":             DefaultPreviewsDir,
		"domain":                   DefaultDomain,
		"log_level":                DefaultLogLevel,
		"log_format":               DefaultLogFormat,
		"output":                   DefaultOutput,
		"math.renderer":            RendererPassthrough,
		"math.command":             DefaultKaTeX,
		"numbering.box_level":      1,
		"numbering.exercise_level": 1,
		"assets.minify":            false,
		"index":                    "",
		"serve.addr":               DefaultAddr,
		"serve.debounce":           DefaultDebounce.String(),
	}
}
