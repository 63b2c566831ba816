package expand

import (
	"errors"
	"fmt"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/document"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
)

// Expansion error kinds.
var (
	ErrArgumentNumber      = errors.New("wrong number of arguments")
	ErrArgumentIndex       = errors.New("macro template refers to a missing argument")
	ErrUndefinedMacro      = errors.New("macro template invokes an undefined macro")
	ErrInputIO             = errors.New("failed to read input file")
	ErrOutputIO            = errors.New("failed to write output file")
	ErrCopy                = errors.New("failed to copy files")
	ErrDuplicateID         = errors.New("duplicate identifier")
	ErrDuplicateDefine     = errors.New("duplicate definition")
	ErrDuplicateMathSymbol = errors.New("duplicate math symbol")
	ErrUnknownID           = errors.New("unknown identifier")
	ErrUnknownDefine       = errors.New("reference to undefined term")
	ErrUnknownMathSymbol   = errors.New("unknown math symbol")
	ErrNoLinkTarget        = errors.New("identifier cannot be cross-referenced")
	ErrEmptyID             = errors.New("empty identifier")
	ErrMath                = errors.New("failed to render math")
	ErrMarkdown            = errors.New("failed to render markdown")

	ErrInputCycle       = inputs.ErrCycle
	ErrTooManyLevels    = document.ErrTooManyLevels
	ErrMathReentrant    = document.ErrMathReentrant
	ErrCaseOutsideCases = document.ErrCaseOutsideCases
)

// Error is a failed expansion.
type Error struct {
	Kind    error
	Trace   source.Trace
	Related source.Trace // first registration, for duplicates
	Macro   string
	Name    string // identifier, term or path involved
	Err     error
}

// Where returns the span the error points at.
func (e *Error) Where() source.Trace { return e.Trace }

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Name != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Name)
	}
	if e.Macro != "" {
		msg = fmt.Sprintf("%s in §%s", msg, e.Macro)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
