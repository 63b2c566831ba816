// Package testutil captures what commands print.
package testutil

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli/output"
	"github.com/stretchr/testify/assert"
)

// TestRenderer is a Renderer writing into two buffers.
type TestRenderer struct {
	*output.Renderer
	Out    bytes.Buffer
	ErrOut bytes.Buffer
}

// NewTestRenderer creates a renderer in the given mode that believes it is
// (or is not) attached to a terminal.
func NewTestRenderer(mode output.Mode, tty bool) *TestRenderer {
	tr := &TestRenderer{}
	tr.Renderer = output.NewRendererWithTTY(&tr.Out, &tr.ErrOut, tty, mode)
	return tr
}

// Output returns what went to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns what went to stderr.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

var escape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// AssertNoANSI fails the test when s contains terminal escape sequences.
func AssertNoANSI(t testing.TB, s string) bool {
	t.Helper()
	return assert.False(t, escape.MatchString(s), "unexpected escape sequences in %q", s)
}
