package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_SubstitutesArguments(t *testing.T) {
	tmpl := Seq(NewText("<b>"), Arg(1), NewText("|"), Invoke("em", nil, Arg(0)), NewText("</b>"))
	args := []Node{NewText("first"), NewText("second")}

	bound, err := Bind(tmpl, args)
	require.NoError(t, err)

	many := bound.(*Many)
	require.Len(t, many.Nodes, 5)
	assert.Same(t, args[1], many.Nodes[1])
	call := many.Nodes[3].(*Call)
	assert.Same(t, args[0], call.Args[0])
	assert.True(t, call.Trace().IsZero())

	// The template itself is left untouched.
	_, isArg := tmpl.Nodes[1].(*Argument)
	assert.True(t, isArg)
}

func TestBind_OutOfRange(t *testing.T) {
	_, err := Bind(Seq(Arg(0), Arg(2)), []Node{NewText("only")})
	var idx *ArgumentIndexError
	require.ErrorAs(t, err, &idx)
	assert.Equal(t, 2, idx.Index)
	assert.Equal(t, 1, idx.Count)
}
