package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// maxLevel is the deepest heading level.
const maxLevel = 6

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BuildDir == "" {
		return fmt.Errorf("build_dir is required")
	}
	switch c.Math.Renderer {
	case RendererPassthrough, RendererKaTeX:
	default:
		return fmt.Errorf("unknown math renderer %q (want %s or %s)", c.Math.Renderer, RendererPassthrough, RendererKaTeX)
	}
	if c.Math.Renderer == RendererKaTeX && c.Math.Command == "" {
		return fmt.Errorf("math.command is required for the katex renderer")
	}
	if err := checkLevel("numbering.box_level", c.Numbering.BoxLevel); err != nil {
		return err
	}
	if err := checkLevel("numbering.exercise_level", c.Numbering.ExerciseLevel); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		return fmt.Errorf("unknown log_format %q (want text or json)", c.LogFormat)
	}
	if !slices.Contains([]string{"auto", "text", "json"}, c.OutputFormat) {
		return fmt.Errorf("unknown output %q (want auto, text or json)", c.OutputFormat)
	}
	if c.Serve.Debounce < 0 {
		return fmt.Errorf("serve.debounce must not be negative")
	}
	return nil
}

func checkLevel(key string, level int) error {
	if level < 0 || level > maxLevel {
		return fmt.Errorf("%s must be between 0 and %d, got %d", key, maxLevel, level)
	}
	return nil
}

// ParseLevel converts a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", name)
	}
	return level, nil
}
