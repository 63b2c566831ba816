package expand

import (
	"errors"
	"path"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/markup"
)

var (
	errEmptyPath      = errors.New("empty path")
	errOutsideOfBuild = errors.New("target lies outside the build directory")
)

func ioMacros() []*Macro {
	return []*Macro{
		{Name: "input", Arity: Exactly(0), Params: newPathParams, Up: input},
		{Name: "output", Arity: Exactly(1), Params: newPathParams, Enter: enterOutput, Up: output(false)},
		{Name: "output_tee", Arity: Exactly(1), Params: newPathParams, Enter: enterOutput, Up: output(true)},
		{Name: "copy", Arity: Exactly(0), Params: newCopyParams, Up: copyAll},
		{Name: "cwd", Arity: Exactly(0), Up: func(x *Expander, _ *markup.Call, _ []string) (string, error) {
			return x.st.Cwd(), nil
		}},
		{Name: "set_domain", Arity: Exactly(0), Params: newURLParams, Up: func(x *Expander, c *markup.Call, _ []string) (string, error) {
			x.st.SetDomain(paramsOf[URLParams](c).URL)
			return "", nil
		}},
	}
}

func input(x *Expander, c *markup.Call, _ []string) (string, error) {
	p := paramsOf[PathParams](c)
	if p.Path == "" {
		return "", fail(ErrInputIO, c, "", errEmptyPath)
	}
	return x.IncludeFile(x.st.ResolveInput(p.Path), c.Trace())
}

// buildRelative resolves an output target and rejects targets escaping the
// build directory.
func buildRelative(x *Expander, c *markup.Call, target string) (string, error) {
	if target == "" {
		return "", fail(ErrOutputIO, c, "", errEmptyPath)
	}
	rel := x.st.ResolveOutput(target)
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", fail(ErrOutputIO, c, target, errOutsideOfBuild)
	}
	return rel, nil
}

func enterOutput(x *Expander, c *markup.Call) (func(), error) {
	rel, err := buildRelative(x, c, paramsOf[PathParams](c).Path)
	if err != nil {
		return nil, err
	}
	return x.st.EnterOutput(rel), nil
}

// output writes its content to the current output. The discovery pass only
// expands the content for its registrations.
func output(tee bool) UpFunc {
	return func(x *Expander, c *markup.Call, args []string) (string, error) {
		if x.st.Emitting() {
			target := x.st.BuildPath(x.st.Output())
			x.logger.Debug("staging output", "path", target, "bytes", len(args[0]))
			x.st.Outbox.Write(target, args[0], c.Trace())
		}
		if tee {
			return args[0], nil
		}
		return "", nil
	}
}

func copyAll(x *Expander, c *markup.Call, _ []string) (string, error) {
	p := paramsOf[CopyParams](c)
	if p.From == "" || p.To == "" {
		return "", fail(ErrCopy, c, "", errEmptyPath)
	}
	to := path.Clean(strings.TrimPrefix(p.To, "/"))
	if to == ".." || strings.HasPrefix(to, "../") {
		return "", fail(ErrCopy, c, p.To, errOutsideOfBuild)
	}
	if x.st.Emitting() {
		x.st.Outbox.Copy(x.st.ProjectPath(p.From), x.st.BuildPath(to), c.Trace())
	}
	return "", nil
}
