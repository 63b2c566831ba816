// Package source holds the shared, multi-file source buffer that every parsed
// file is appended to, so that spans from different files live in one
// coordinate space.
package source

import (
	"fmt"
	"sort"
	"strings"
)

// Span is a half-open byte range [Start, End) into a Map.
type Span struct {
	Start int
	End   int
}

// Trace is optional source-span metadata attached to nodes. The zero value
// carries no span and is used for synthetic nodes built from templates.
type Trace struct {
	span  Span
	valid bool
}

// At returns a trace for the byte range [start, end).
func At(start, end int) Trace {
	return Trace{span: Span{Start: start, End: end}, valid: true}
}

// Span returns the span and whether the trace carries one.
func (t Trace) Span() (Span, bool) { return t.span, t.valid }

// IsZero reports whether the trace carries no span.
func (t Trace) IsZero() bool { return !t.valid }

// Position is a resolved, human-readable location.
type Position struct {
	File   string
	Line   int // 1-based
	Column int // 1-based, in runes
	Offset int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

type file struct {
	name       string
	start      int
	end        int
	lineStarts []int // absolute offsets
}

// Map is the shared source buffer.
type Map struct {
	buf   strings.Builder
	files []file
}

// NewMap returns an empty source buffer.
func NewMap() *Map {
	return &Map{}
}

// Add appends the contents of a file and returns the offset bias at which
// the file starts.
func (m *Map) Add(name, contents string) int {
	start := m.buf.Len()
	m.buf.WriteString(contents)

	f := file{name: name, start: start, end: start + len(contents), lineStarts: []int{start}}
	for i := 0; i < len(contents); i++ {
		if contents[i] == '\n' {
			f.lineStarts = append(f.lineStarts, start+i+1)
		}
	}
	m.files = append(m.files, f)
	return start
}

// Files returns the names of all added files in the order they were added.
// A file read in both passes appears twice.
func (m *Map) Files() []string {
	names := make([]string, len(m.files))
	for i, f := range m.files {
		names[i] = f.name
	}
	return names
}

// Len returns the total number of bytes held.
func (m *Map) Len() int { return m.buf.Len() }

func (m *Map) fileAt(offset int) (file, bool) {
	i := sort.Search(len(m.files), func(i int) bool { return m.files[i].end > offset })
	if i < len(m.files) && m.files[i].start <= offset {
		return m.files[i], true
	}
	// An offset one past the end of the last file (end of input).
	if n := len(m.files); n > 0 && offset == m.files[n-1].end {
		return m.files[n-1], true
	}
	return file{}, false
}

// Resolve maps an absolute offset to a file, line and column.
func (m *Map) Resolve(offset int) Position {
	f, ok := m.fileAt(offset)
	if !ok {
		return Position{Offset: offset}
	}
	line := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > offset }) - 1
	lineStart := f.lineStarts[line]
	col := len([]rune(m.buf.String()[lineStart:offset])) + 1
	return Position{File: f.name, Line: line + 1, Column: col, Offset: offset}
}

// Excerpt returns the full source line containing the start of the trace
// plus a caret line marking the traced range on that line.
func (m *Map) Excerpt(t Trace) string {
	sp, ok := t.Span()
	if !ok {
		return ""
	}
	f, ok := m.fileAt(sp.Start)
	if !ok {
		return ""
	}
	src := m.buf.String()
	line := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > sp.Start }) - 1
	lineStart := f.lineStarts[line]
	lineEnd := f.end
	if line+1 < len(f.lineStarts) {
		lineEnd = f.lineStarts[line+1] - 1
	}
	text := strings.TrimRight(src[lineStart:lineEnd], "\r")

	end := sp.End
	if end > lineEnd {
		end = lineEnd
	}
	pad := len([]rune(src[lineStart:sp.Start]))
	width := len([]rune(src[sp.Start:max(end, sp.Start)]))
	if width < 1 {
		width = 1
	}
	return text + "\n" + strings.Repeat(" ", pad) + strings.Repeat("^", width)
}

// Text returns the source text covered by the trace.
func (m *Map) Text(t Trace) string {
	sp, ok := t.Span()
	if !ok || sp.End > m.buf.Len() || sp.Start > sp.End {
		return ""
	}
	return m.buf.String()[sp.Start:sp.End]
}

// Located is implemented by errors that point at a place in the source.
type Located interface {
	error
	Where() Trace
}
