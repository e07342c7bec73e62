package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"devt.de/krotik/common/cryptutil"
	"devt.de/krotik/common/stringutil"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/span"
	"betic-lang/internal/types"
)

// TypeEntry is a named user type.
type TypeEntry struct {
	Name   string
	Fields []types.Field
}

// importEdge pairs an imported module instance with the id generated for it.
type importEdge struct {
	id     string
	module *Module
}

// Module is one initialized program unit: a frame stack, a flat type table
// and the ordered list of direct imports.
type Module struct {
	Path string // identifying path used in diagnostics
	Name string // file name shown in call stacks

	session *Session
	program *ast.Program
	lines   []string

	frames  *FrameStack
	typedef map[string]*TypeEntry
	imports []importEdge

	entry       bool // the module a run started from
	foundation  bool // the implicitly imported foundational module
	initialized bool
}

func newModule(s *Session, path, source string, prog *ast.Program) *Module {
	if prog == nil {
		prog = &ast.Program{}
	}
	m := &Module{
		Path:    path,
		Name:    filepath.Base(path),
		session: s,
		program: prog,
		frames:  NewFrameStack(),
		typedef: make(map[string]*TypeEntry),
	}
	if source != "" {
		m.SetSource(source)
	}
	for _, base := range types.Builtins {
		m.typedef[base] = &TypeEntry{Name: base}
	}
	return m
}

// ---- Initialization ----

// Init installs the foundational port, imports the foundational module
// unless this module is it, and resolves the module's own imports in order.
// Each imported module is fully initialized and run before the next one.
func (m *Module) Init(ctx context.Context) error {
	if m.initialized {
		return nil
	}
	m.initialized = true

	if p, ok := m.session.ports[FoundationPort]; ok {
		m.installPort(p)
	}

	if !m.foundation && m.session.foundation != "" {
		if ok, _ := pathExists(m.session.foundation); ok {
			f, err := m.session.load(ctx, m.session.foundation, m, span.Unknown)
			if err != nil {
				return err
			}
			m.addImport(f)
		} else {
			m.session.log.Debug("No foundational module at ", m.session.foundation)
		}
	}

	return m.Import(ctx, m.program.Imports)
}

// Import resolves import declarations in order.
func (m *Module) Import(ctx context.Context, imports []*ast.Import) error {
	for _, imp := range imports {
		if err := m.resolveImport(ctx, imp); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) resolveImport(ctx context.Context, imp *ast.Import) error {
	source := imp.Source

	switch ext := filepath.Ext(source); ext {
	case ".port":
		name := strings.TrimSuffix(filepath.Base(source), ext)
		p, ok := m.session.ports[name]
		if !ok {
			return m.errorf(diag.CannotOpenFile, imp.Pos, "Cannot open port %s", name)
		}
		m.installPort(p)
		return nil

	case "", ".btc", ".json", ".yaml", ".yml":
		child, err := m.session.load(ctx, m.importPath(source), m, imp.Pos)
		if err != nil {
			return err
		}
		m.addImport(child)
		return nil

	default:
		return m.errorf(diag.CannotOpenFile, imp.Pos, "Cannot open file at destination %s", source)
	}
}

// importPath maps an import source to a file: absolute paths as is, paths
// starting with a dot relative to this module and bare names into the library.
func (m *Module) importPath(source string) string {
	switch {
	case filepath.IsAbs(source):
		return source
	case strings.HasPrefix(source, "."):
		return filepath.Join(filepath.Dir(m.Path), source)
	default:
		name := source
		if filepath.Ext(name) == "" {
			name += ".btc"
		}
		return filepath.Join(m.session.libDir, name)
	}
}

func (m *Module) addImport(child *Module) {
	id := fmt.Sprintf("%x", cryptutil.GenerateUUID())
	m.imports = append(m.imports, importEdge{id: id, module: child})
	m.session.log.Debug("Module ", m.Path, " imported ", child.Path, " as ", id)
}

func (m *Module) installPort(p *Port) {
	for name, ref := range p.Bindings() {
		m.frames.Define(name, ref)
	}
	m.session.log.Debug("Installed port ", p.Name, " into ", m.Path)
}

// start runs the top-level statements under an init call.
func (m *Module) start(ctx context.Context) error {
	m.session.calls.Push(diag.Call{Kind: diag.InitCall, Name: m.Name, Module: m.Path, Entry: m.entry})
	defer m.session.calls.Pop()

	if err := m.Init(ctx); err != nil {
		return err
	}
	return m.execStmts(ctx, m.program.Statements)
}

// Exec runs statements against the module's current frame. The REPL uses it
// to feed one entry at a time into a long-lived module.
func (m *Module) Exec(ctx context.Context, stmts []ast.Stmt) error {
	return m.execStmts(ctx, stmts)
}

// SetSource replaces the source text diagnostics quote from.
func (m *Module) SetSource(source string) {
	m.lines = strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
}

// Lookup resolves name the way a reference expression would.
func (m *Module) Lookup(name string) (*Value, bool) {
	ref, ok := m.resolve(name)
	return ref.Value, ok
}

// ---- Name and type resolution ----

// resolve finds name in the current frame, then asks each direct import in
// order. Imports never consult their own imports; the last import that
// knows the name wins.
func (m *Module) resolve(name string) (Ref, bool) {
	if ref, ok := m.frames.Lookup(name); ok {
		return m.relative(ref), true
	}

	var found Ref
	ok := false
	for _, im := range m.imports {
		if ref, hit := im.module.probe(name); hit {
			found, ok = m.relative(ref), true
		}
	}
	return found, ok
}

// probe is the foreign lookup used by importers. A miss is not an error.
func (m *Module) probe(name string) (Ref, bool) {
	ref, ok := m.frames.Lookup(name)
	if !ok {
		return Ref{}, false
	}
	return m.absolute(ref), true
}

// resolveRef is resolve for reference expressions: a miss is fatal.
func (m *Module) resolveRef(name string, pos span.Position) (Ref, error) {
	if ref, ok := m.resolve(name); ok {
		return ref, nil
	}
	return Ref{}, m.withHint(
		m.errorf(diag.UninitializedValue, pos, "Variable '%s' cannot be found", name),
		name, m.visibleNames())
}

// resolveType finds a type by base name with the same one-hop protocol.
// The returned module is the one whose table defines the type.
func (m *Module) resolveType(base string) (*TypeEntry, *Module, bool) {
	if entry, ok := m.typedef[base]; ok {
		return entry, m, true
	}

	var (
		found *TypeEntry
		owner *Module
	)
	for _, im := range m.imports {
		if entry, ok := im.module.typedef[base]; ok {
			found, owner = entry, im.module
		}
	}
	return found, owner, found != nil
}

// checkType verifies that t and all its element types are known.
func (m *Module) checkType(t types.Type, pos span.Position) error {
	for cur := &t; cur != nil; cur = cur.Of {
		if _, _, ok := m.resolveType(cur.Base); !ok {
			return m.withHint(
				m.errorf(diag.UninitializedValue, pos, "Type %s cannot be found", cur.Base),
				cur.Base, m.visibleTypes())
		}
	}
	return nil
}

// relative drops the owner when it is m itself.
func (m *Module) relative(ref Ref) Ref {
	if ref.Owner == m {
		ref.Owner = nil
	}
	return ref
}

// absolute names m as owner of a locally owned ref.
func (m *Module) absolute(ref Ref) Ref {
	if ref.Owner == nil {
		ref.Owner = m
	}
	return ref
}

// ---- Diagnostics ----

func (m *Module) errorf(kind diag.Kind, pos span.Position, format string, args ...interface{}) error {
	e := diag.Errorf(kind, pos, format, args...)
	e.Module = m.Path
	e.Line = m.line(pos.Line)
	e.Stack = m.session.calls.Snapshot()
	return e
}

func (m *Module) line(n int) string {
	if n < 1 || n > len(m.lines) {
		return ""
	}
	return m.lines[n-1]
}

func (m *Module) visibleNames() []string {
	names := m.frames.Names()
	for _, im := range m.imports {
		names = append(names, im.module.frames.Names()...)
	}
	return names
}

func (m *Module) visibleTypes() []string {
	var names []string
	for name := range m.typedef {
		names = append(names, name)
	}
	for _, im := range m.imports {
		for name := range im.module.typedef {
			names = append(names, name)
		}
	}
	return names
}

// withHint attaches a "did you mean" hint for the closest candidate.
func (m *Module) withHint(err error, name string, candidates []string) error {
	best, bestDist := "", 3
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := stringutil.LevenshteinDistance(name, c); d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	if best != "" && bestDist < len(name) {
		if e, ok := err.(*diag.Error); ok {
			e.Hint = fmt.Sprintf("did you mean '%s'?", best)
		}
	}
	return err
}
