package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_AddReturnsBias(t *testing.T) {
	m := NewMap()
	assert.Equal(t, 0, m.Add("a.txt", "hello\n"))
	assert.Equal(t, 6, m.Add("b.txt", "world"))
	assert.Equal(t, 11, m.Len())
}

func TestMap_Resolve(t *testing.T) {
	m := NewMap()
	m.Add("main.atm", "first\nsecond line\n")
	bias := m.Add("other.atm", "x§y\nz")

	tests := []struct {
		name   string
		offset int
		want   Position
	}{
		{"start", 0, Position{File: "main.atm", Line: 1, Column: 1, Offset: 0}},
		{"second line", 9, Position{File: "main.atm", Line: 2, Column: 4, Offset: 9}},
		{"second file", bias, Position{File: "other.atm", Line: 1, Column: 1, Offset: bias}},
		{"after multibyte rune", bias + 3, Position{File: "other.atm", Line: 1, Column: 3, Offset: bias + 3}},
		{"last line", bias + 5, Position{File: "other.atm", Line: 2, Column: 1, Offset: bias + 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Resolve(tt.offset))
		})
	}
}

func TestMap_Excerpt(t *testing.T) {
	m := NewMap()
	m.Add("main.atm", "intro\nsee §cref[nope] here\n")

	excerpt := m.Excerpt(At(10, 22))
	require.NotEmpty(t, excerpt)
	assert.Equal(t, "see §cref[nope] here\n    ^^^^^^^^^^^", excerpt)
	assert.Equal(t, "§cref[nope]", m.Text(At(10, 22)))
}

func TestTrace_Zero(t *testing.T) {
	var tr Trace
	assert.True(t, tr.IsZero())
	assert.Empty(t, NewMap().Excerpt(tr))

	_, ok := At(1, 2).Span()
	assert.True(t, ok)
}

func TestMap_Files(t *testing.T) {
	m := NewMap()
	m.Add("main.txt", "a")
	m.Add("ch/one.txt", "b")
	assert.Equal(t, []string{"main.txt", "ch/one.txt"}, m.Files())
}
