// Package document holds the per-pass document state: the current input and
// output, section and box counters, and the mode flags that macros switch on
// and off while they expand their arguments.
//
// Every mutation that must be undone when a macro finishes is made through an
// Enter* method that returns the function restoring the previous value, so
// callers can defer it and unwind on error paths too.
package document

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/inputs"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/registry"
	"github.com/AljoschaMeyer/atm-htmlgen/internal/source"
)

// MaxDepth is the number of section levels.
const MaxDepth = 6

// Scoping errors.
var (
	ErrTooManyLevels    = errors.New("sections nested more than six levels deep")
	ErrMathReentrant    = errors.New("math mode entered while already in math mode")
	ErrCaseOutsideCases = errors.New("case used outside of cases")
)

// FileSystem is what the document needs from the disk.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	CopyAll(from, to string) error
}

// Config holds the settings a state starts from.
type Config struct {
	// Entrypoint is the absolute path of the root input file.
	Entrypoint string
	// ProjectRoot anchors absolute input paths. Defaults to the entrypoint's directory.
	ProjectRoot string
	// BuildDir anchors output paths.
	BuildDir string
	// PreviewsDir is relative to BuildDir.
	PreviewsDir string
	// Domain prefixes every generated URL.
	Domain string
	// BoxLevel and ExerciseLevel are the section depths (1 = chapter) whose
	// headings restart box and exercise numbering. 0 numbers globally.
	BoxLevel      int
	ExerciseLevel int
	// FS is used for reads and, after a successful build, for writes.
	FS FileSystem
}

// BoxCounter numbers one family of boxes.
type BoxCounter struct {
	Level int
	Count int
}

// State is the mutable context of one pass.
type State struct {
	cfg      Config
	Registry *registry.Registry
	Sources  *source.Map
	Outbox   *Outbox
	Inputs   *inputs.Graph

	file   string // absolute path of the current input file
	output string // current output, relative to the build dir
	domain string

	depth      int
	counters   [MaxDepth]int
	unnumbered bool // inside an unnumbered section

	exercises BoxCounter
	others    BoxCounter

	box         string   // id of the open box
	boxNumber   string
	boxPreviews []string // ids sharing the open box's preview
	paragraph   bool
	boxless     []string // definition anchors waiting for the open paragraph

	math  bool
	fleqn bool
	cases *int
}

// New creates the state for the pass the registry is in.
func New(cfg Config, reg *registry.Registry, srcs *source.Map) *State {
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = filepath.Dir(cfg.Entrypoint)
	}
	if cfg.PreviewsDir == "" {
		cfg.PreviewsDir = "previews"
	}
	return &State{
		cfg:       cfg,
		Registry:  reg,
		Sources:   srcs,
		Outbox:    NewOutbox(),
		Inputs:    inputs.New(),
		file:      cfg.Entrypoint,
		domain:    cfg.Domain,
		exercises: BoxCounter{Level: cfg.ExerciseLevel},
		others:    BoxCounter{Level: cfg.BoxLevel},
	}
}

// Config returns the configuration the state was created with.
func (s *State) Config() Config { return s.cfg }

// Pass returns the pass this state belongs to.
func (s *State) Pass() registry.Pass { return s.Registry.Pass() }

// Emitting reports whether this is the pass that produces output.
func (s *State) Emitting() bool { return s.Pass() == registry.PassEmit }

// FS returns the filesystem collaborator.
func (s *State) FS() FileSystem { return s.cfg.FS }

// File returns the absolute path of the current input file.
func (s *State) File() string { return s.file }

// EnterFile makes path the current input file.
func (s *State) EnterFile(path string) func() {
	prev := s.file
	s.file = path
	return func() { s.file = prev }
}

// SourceName returns path relative to the project root in slash form, the
// name a file goes by in diagnostics and in the include graph.
func (s *State) SourceName(path string) string {
	rel, err := filepath.Rel(s.cfg.ProjectRoot, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// Include records that the current file includes path. The first call
// records the entrypoint.
func (s *State) Include(path string) error {
	if s.Inputs.Len() == 0 {
		s.Inputs.AddFile(s.SourceName(path))
		return nil
	}
	return s.Inputs.AddInclude(s.SourceName(s.file), s.SourceName(path))
}

// ResolveInput resolves an input path: absolute paths are taken relative to
// the project root, relative ones to the directory of the current file.
func (s *State) ResolveInput(p string) string {
	if strings.HasPrefix(p, "/") {
		return filepath.Join(s.cfg.ProjectRoot, filepath.FromSlash(strings.TrimPrefix(p, "/")))
	}
	return filepath.Join(filepath.Dir(s.file), filepath.FromSlash(p))
}

// Cwd returns the directory of the current file relative to the project root.
func (s *State) Cwd() string {
	rel, err := filepath.Rel(s.cfg.ProjectRoot, filepath.Dir(s.file))
	if err != nil {
		return "."
	}
	return filepath.ToSlash(rel)
}

// Output returns the current output path relative to the build dir.
func (s *State) Output() string { return s.output }

// ResolveOutput resolves an output target relative to the build dir:
// absolute targets from its root, relative ones from the current output's
// directory.
func (s *State) ResolveOutput(p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(strings.TrimPrefix(p, "/"))
	}
	return path.Join(path.Dir(s.output), p)
}

// EnterOutput makes rel the current output. Paragraphs do not reach into
// it.
func (s *State) EnterOutput(rel string) func() {
	prev := s.output
	s.output = rel
	leaveScope := s.enterBoxlessScope(false)
	return func() {
		leaveScope()
		s.output = prev
	}
}

// BuildPath maps a build-relative path to the filesystem.
func (s *State) BuildPath(rel string) string {
	return filepath.Join(s.cfg.BuildDir, filepath.FromSlash(rel))
}

// ProjectPath maps a project-relative path to the filesystem.
func (s *State) ProjectPath(rel string) string {
	return filepath.Join(s.cfg.ProjectRoot, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
}

// Domain returns the URL prefix.
func (s *State) Domain() string { return s.domain }

// SetDomain replaces the URL prefix for the rest of the pass.
func (s *State) SetDomain(d string) {
	if d != "" && !strings.HasSuffix(d, "/") {
		d += "/"
	}
	s.domain = d
}

// URL returns the link to a registered identifier.
func (s *State) URL(id string) string {
	info, _ := s.Registry.ID(id)
	return s.domain + info.File + "#" + id
}

// PreviewPath returns the build-relative path of an id's preview snippet.
func (s *State) PreviewPath(id string) string {
	return path.Join(s.cfg.PreviewsDir, id+".html")
}

// PreviewURL returns the URL of an id's preview snippet.
func (s *State) PreviewURL(id string) string {
	return s.domain + s.PreviewPath(id)
}

// Depth returns the number of open sections.
func (s *State) Depth() int { return s.depth }

// SectionNumbering returns the numbering of the open section, empty when it
// or one of its ancestors is unnumbered.
func (s *State) SectionNumbering() string {
	if s.unnumbered || s.depth == 0 {
		return ""
	}
	return joinCounters(s.counters[:s.depth])
}

// EnterSection opens a section one level below the current one and returns
// its numbering. Unnumbered sections leave the counters alone, and so does
// every section nested inside one. Paragraphs do not reach into the section.
func (s *State) EnterSection(numbered bool) (string, func(), error) {
	if s.depth >= MaxDepth {
		return "", nil, ErrTooManyLevels
	}
	d := s.depth
	prevUnnumbered := s.unnumbered
	leaveScope := s.enterBoxlessScope(false)
	numbered = numbered && !s.unnumbered
	numbering := ""
	if numbered {
		s.counters[d]++
		for i := d + 1; i < MaxDepth; i++ {
			s.counters[i] = 0
		}
		if d < s.others.Level {
			s.others.Count = 0
		}
		if d < s.exercises.Level {
			s.exercises.Count = 0
		}
		numbering = joinCounters(s.counters[:d+1])
	}
	s.depth++
	s.unnumbered = !numbered

	return numbering, func() {
		for i := d + 1; i < MaxDepth; i++ {
			s.counters[i] = 0
		}
		s.depth = d
		s.unnumbered = prevUnnumbered
		leaveScope()
	}, nil
}

// NextBox increments a box counter and returns the new box's numbering. The
// prefix is the numbering of the enclosing sections down to the counter's
// level, without levels that have not been numbered yet; boxes before the
// first chapter are numbered plainly.
func (s *State) NextBox(exercise bool) string {
	c := &s.others
	if exercise {
		c = &s.exercises
	}
	c.Count++
	prefix := s.counters[:max(min(c.Level, MaxDepth), 0)]
	for len(prefix) > 0 && prefix[len(prefix)-1] == 0 {
		prefix = prefix[:len(prefix)-1]
	}
	if len(prefix) == 0 {
		return strconv.Itoa(c.Count)
	}
	return joinCounters(prefix) + "." + strconv.Itoa(c.Count)
}

func joinCounters(cs []int) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// Box returns the id of the open box, if any.
func (s *State) Box() string { return s.box }

// EnterBox opens a box. Ids passed to SharePreview while it is open reuse
// its preview.
func (s *State) EnterBox(id, numbering string) func() {
	prevBox, prevNumber, prevShared := s.box, s.boxNumber, s.boxPreviews
	s.box, s.boxNumber, s.boxPreviews = id, numbering, nil
	return func() { s.box, s.boxNumber, s.boxPreviews = prevBox, prevNumber, prevShared }
}

// BoxNumbering returns the numbering of the open box.
func (s *State) BoxNumbering() string { return s.boxNumber }

// SharePreview records that id should reuse the open box's preview.
func (s *State) SharePreview(id string) bool {
	if s.box == "" {
		return false
	}
	s.boxPreviews = append(s.boxPreviews, id)
	return true
}

// BoxPreviews returns the ids sharing the open box's preview.
func (s *State) BoxPreviews() []string { return s.boxPreviews }

// EnterParagraph opens a paragraph. Definition anchors made inside it are
// queued for its preview.
func (s *State) EnterParagraph() func() { return s.enterBoxlessScope(true) }

func (s *State) enterBoxlessScope(paragraph bool) func() {
	prevParagraph, prevBoxless := s.paragraph, s.boxless
	s.paragraph, s.boxless = paragraph, nil
	return func() { s.paragraph, s.boxless = prevParagraph, prevBoxless }
}

// AddBoxless queues a definition anchor for the enclosing paragraph. It
// reports false when no paragraph is open.
func (s *State) AddBoxless(id string) bool {
	if !s.paragraph {
		return false
	}
	s.boxless = append(s.boxless, id)
	return true
}

// TakeBoxless returns and clears the queued definition anchors.
func (s *State) TakeBoxless() []string {
	ids := s.boxless
	s.boxless = nil
	return ids
}

// InMath reports whether math mode is on.
func (s *State) InMath() bool { return s.math }

// EnterMath turns math mode on.
func (s *State) EnterMath() (func(), error) {
	if s.math {
		return nil, ErrMathReentrant
	}
	s.math = true
	return func() { s.math = false }, nil
}

// Fleqn reports whether display math is flush left.
func (s *State) Fleqn() bool { return s.fleqn }

// EnterFleqn makes display math flush left.
func (s *State) EnterFleqn() func() {
	prev := s.fleqn
	s.fleqn = true
	return func() { s.fleqn = prev }
}

// EnterCases starts a fresh case numbering.
func (s *State) EnterCases() func() {
	prev := s.cases
	s.cases = new(int)
	return func() { s.cases = prev }
}

// NextCase returns the numbering of the next case.
func (s *State) NextCase() (string, error) {
	if s.cases == nil {
		return "", ErrCaseOutsideCases
	}
	*s.cases++
	return strconv.Itoa(*s.cases), nil
}

func (s *State) String() string {
	return fmt.Sprintf("pass=%s file=%s output=%s depth=%d", s.Pass(), s.file, s.output, s.depth)
}
