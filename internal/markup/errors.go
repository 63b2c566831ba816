package markup

import (
	"errors"
	"fmt"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
)

// Parse error kinds.
var (
	ErrUnexpectedEOF = errors.New("unexpected end of input")
	ErrParameters    = errors.New("malformed parameter literal")
	ErrUnknownMacro  = errors.New("unknown macro name")
)

// ParseError is a failure to turn markup into a call tree.
type ParseError struct {
	Kind  error
	Trace source.Trace
	Macro string
	Err   error // underlying decode error, if any
}

func newParseError(kind error, tr source.Trace, macro string, cause error) *ParseError {
	return &ParseError{Kind: kind, Trace: tr, Macro: macro, Err: cause}
}

// Where returns the span the error points at.
func (e *ParseError) Where() source.Trace { return e.Trace }

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Macro != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Macro)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ArgumentIndexError reports a template that refers to an argument the
// caller did not supply. It means the macro definition is wrong, not the
// document.
type ArgumentIndexError struct {
	Index int
	Count int
}

func (e *ArgumentIndexError) Error() string {
	return fmt.Sprintf("template refers to argument %d but only %d were supplied", e.Index, e.Count)
}

var errTakesNoParams = errors.New("macro takes no parameters")
