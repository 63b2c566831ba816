package markup

import (
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
	"gopkg.in/yaml.v3"
)

// Sigil introduces macro syntax.
const Sigil = "§"

// Catalog tells the parser which macro names exist and what parameter
// record each one decodes its parameter literal into.
type Catalog interface {
	// Lookup reports whether name is a macro. newParams returns a fresh
	// pointer to decode a parameter literal into; it is nil for macros that
	// take no parameters.
	Lookup(name string) (newParams func() any, ok bool)
}

// Parser is a recursive-descent scanner over one file.
type Parser struct {
	src  string
	bias int
	pos  int
	cat  Catalog
}

// Parse parses the text of one file. Offsets in traces are shifted by bias
// so that they index the shared source buffer.
func Parse(src string, bias int, cat Catalog) (Node, error) {
	p := &Parser{src: src, bias: bias, cat: cat}
	start := p.pos
	items, err := p.parseGroup(false)
	if err != nil {
		return nil, err
	}
	return collapse(items, p.trace(start, p.pos)), nil
}

func (p *Parser) trace(start, end int) source.Trace {
	return source.At(p.bias+start, p.bias+end)
}

func (p *Parser) atSigil() bool {
	return strings.HasPrefix(p.src[p.pos:], Sigil)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipLeading skips whitespace and comments at the start of a group.
func (p *Parser) skipLeading() {
	for p.pos < len(p.src) {
		switch {
		case isSpace(p.src[p.pos]):
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], Sigil+"#"):
			p.skipComment()
		default:
			return
		}
	}
}

// skipComment skips from a §# up to and including the next newline.
func (p *Parser) skipComment() {
	nl := strings.IndexByte(p.src[p.pos:], '\n')
	if nl < 0 {
		p.pos = len(p.src)
		return
	}
	p.pos += nl + 1
}

// textRun accumulates literal text across escapes.
type textRun struct {
	b     strings.Builder
	start int
}

// parseGroup parses until the closing paren of an argument group or, at the
// top level, until end of input.
func (p *Parser) parseGroup(inArg bool) ([]Node, error) {
	open := p.pos - 1
	p.skipLeading()

	var items []Node
	run := textRun{start: p.pos}
	flush := func(trim bool) {
		text := run.b.String()
		if trim {
			text = strings.TrimRight(text, " \t\r\n")
		}
		if text != "" {
			items = append(items, &Text{nodeBase: nodeBase{trace: p.trace(run.start, p.pos)}, Value: text})
		}
		run.b.Reset()
	}

	depth := 0
	for {
		if p.pos >= len(p.src) {
			if inArg {
				return nil, newParseError(ErrUnexpectedEOF, p.trace(open, p.pos), "", nil)
			}
			flush(true)
			return items, nil
		}

		c := p.src[p.pos]
		switch {
		case c == '(':
			depth++
			run.b.WriteByte(c)
			p.pos++

		case c == ')':
			if depth > 0 {
				depth--
				run.b.WriteByte(c)
				p.pos++
				continue
			}
			if inArg {
				flush(true)
				p.pos++
				return items, nil
			}
			// Unbalanced at the top level: keep it as text.
			run.b.WriteByte(c)
			p.pos++

		case p.atSigil():
			if p.scanEscape(&run.b) {
				continue
			}
			flush(false)
			call, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			if call != nil {
				items = append(items, call)
			}
			run.start = p.pos

		default:
			run.b.WriteByte(c)
			p.pos++
		}
	}
}

// scanEscape handles §§, §(, §) and §# at the current position.
func (p *Parser) scanEscape(b *strings.Builder) bool {
	rest := p.src[p.pos+len(Sigil):]
	switch {
	case strings.HasPrefix(rest, Sigil):
		b.WriteString(Sigil)
		p.pos += 2 * len(Sigil)
	case strings.HasPrefix(rest, "("):
		b.WriteByte('(')
		p.pos += len(Sigil) + 1
	case strings.HasPrefix(rest, ")"):
		b.WriteByte(')')
		p.pos += len(Sigil) + 1
	case strings.HasPrefix(rest, "#"):
		p.skipComment()
	default:
		return false
	}
	return true
}

func (p *Parser) endOfName(i int) bool {
	if i >= len(p.src) {
		return true
	}
	switch c := p.src[i]; {
	case isSpace(c), c == '[', c == '{', c == '(', c == ')':
		return true
	}
	return strings.HasPrefix(p.src[i:], Sigil)
}

// parseCall parses a macro invocation starting at the sigil. It returns a
// nil node for the empty macro (a sigil followed by whitespace or end of
// input), which produces nothing and swallows one whitespace character.
func (p *Parser) parseCall() (Node, error) {
	start := p.pos
	nameStart := p.pos + len(Sigil)
	nameEnd := nameStart
	for !p.endOfName(nameEnd) {
		nameEnd++
	}
	name := p.src[nameStart:nameEnd]
	p.pos = nameEnd

	if name == "" && (p.pos >= len(p.src) || isSpace(p.src[p.pos])) {
		if p.pos < len(p.src) {
			p.pos++
		}
		return nil, nil
	}

	newParams, ok := p.cat.Lookup(name)
	if !ok {
		return nil, newParseError(ErrUnknownMacro, p.trace(start, nameEnd), name, nil)
	}

	call := &Call{Macro: name}
	if newParams != nil {
		call.Params = newParams()
	}

	if p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '{') {
		if err := p.parseParams(call, newParams, start); err != nil {
			return nil, err
		}
	}

	for p.pos < len(p.src) && p.src[p.pos] == '(' {
		argStart := p.pos
		p.pos++
		items, err := p.parseGroup(true)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, collapse(items, p.trace(argStart, p.pos)))
	}

	call.trace = p.trace(start, p.pos)
	return call, nil
}

func (p *Parser) parseParams(call *Call, newParams func() any, start int) error {
	end, ok := p.paramExtent(p.pos)
	if !ok {
		return newParseError(ErrUnexpectedEOF, p.trace(start, len(p.src)), call.Macro, nil)
	}
	literal := p.src[p.pos:end]
	p.pos = end

	tr := p.trace(start, end)
	if newParams == nil {
		return newParseError(ErrParameters, tr, call.Macro, errTakesNoParams)
	}
	if err := yaml.Unmarshal([]byte(literal), call.Params); err != nil {
		return newParseError(ErrParameters, tr, call.Macro, err)
	}
	return nil
}

// paramExtent finds the end (exclusive) of the bracketed literal at i,
// skipping over quoted strings.
func (p *Parser) paramExtent(i int) (int, bool) {
	depth := 0
	for i < len(p.src) {
		switch p.src[i] {
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		case '"':
			i++
			for i < len(p.src) && p.src[i] != '"' {
				if p.src[i] == '\\' {
					i++
				}
				i++
			}
		case '\'':
			i++
			for i < len(p.src) && p.src[i] != '\'' {
				i++
			}
		}
		i++
	}
	return 0, false
}
