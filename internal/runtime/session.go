package runtime

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/logutil"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/frontend"
	"betic-lang/internal/span"
)

// FoundationPort is the port installed into the root frame of every module.
const FoundationPort = "system"

// Options configures a Session.
type Options struct {
	Stdout     io.Writer
	Stdin      io.Reader
	Frontend   frontend.Frontend // turns module files into program trees
	LibDir     string            // directory searched for bare imports
	Foundation string            // foundational module file name inside LibDir, "" for none
	Ports      map[string]*Port
	Sink       diag.Sink // receives the fatal error of a run
	Logger     logutil.Logger
}

// Host is what native callbacks see of the running session.
type Host struct {
	Stdout io.Writer
	Stdin  *bufio.Reader
	Log    logutil.Logger
}

// Session holds everything the module instances of one run share: the
// loader, the call stack, the native ports and the diagnostic sink.
type Session struct {
	host       *Host
	front      frontend.Frontend
	libDir     string
	foundation string
	ports      map[string]*Port
	sink       diag.Sink
	log        logutil.Logger

	calls   diag.CallStack
	modules map[string]*Module
}

// NewSession creates a session.
func NewSession(opts Options) *Session {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	log := opts.Logger
	if log == nil {
		log = logutil.GetLogger("betic.runtime")
	}
	front := opts.Frontend
	if front == nil {
		front = &frontend.Files{}
	}
	libDir := opts.LibDir
	if abs, err := filepath.Abs(libDir); err == nil {
		libDir = abs
	}
	var foundation string
	if opts.Foundation != "" {
		foundation = filepath.Join(libDir, opts.Foundation)
	}
	ports := opts.Ports
	if ports == nil {
		ports = map[string]*Port{}
	}

	return &Session{
		host:       &Host{Stdout: stdout, Stdin: bufio.NewReader(stdin), Log: log},
		front:      front,
		libDir:     libDir,
		foundation: foundation,
		ports:      ports,
		sink:       opts.Sink,
		log:        log,
		modules:    make(map[string]*Module),
	}
}

// Run loads the module at path, initializes it and runs its top-level
// statements. The first fatal error stops the run; it is reported to the
// sink and returned.
func (s *Session) Run(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	_, err := s.loadEntry(ctx, path)
	return s.report(err)
}

// RunProgram runs an already decoded program tree as the entry module.
func (s *Session) RunProgram(ctx context.Context, name, source string, prog *ast.Program) error {
	m := s.NewModule(name, source, prog)
	return s.report(m.start(ctx))
}

// NewModule creates an entry module for a decoded program tree without
// running it.
func (s *Session) NewModule(name, source string, prog *ast.Program) *Module {
	m := newModule(s, name, source, prog)
	m.entry = true
	m.foundation = name == s.foundation
	s.modules[name] = m
	return m
}

func (s *Session) loadEntry(ctx context.Context, path string) (*Module, error) {
	if ok, _ := pathExists(path); !ok {
		e := diag.Errorf(diag.CannotOpenFile, span.Unknown, "Cannot open file at destination %s", path)
		e.Module = path
		return nil, e
	}
	unit, err := s.parse(ctx, path)
	if err != nil {
		return nil, err
	}
	m := s.NewModule(path, unit.Source, unit.Program)
	s.log.Info("Running ", path)
	return m, m.start(ctx)
}

// load returns the module instance for path, creating, initializing and
// running it on first use. A module that is still initializing further up
// the import chain is returned as is.
func (s *Session) load(ctx context.Context, path string, importer *Module, pos span.Position) (*Module, error) {
	if m, ok := s.modules[path]; ok {
		return m, nil
	}
	if ok, _ := pathExists(path); !ok {
		return nil, importer.errorf(diag.CannotOpenFile, pos, "Cannot open file at destination %s", path)
	}
	unit, err := s.parse(ctx, path)
	if err != nil {
		return nil, err
	}

	m := newModule(s, path, unit.Source, unit.Program)
	m.foundation = path == s.foundation
	s.modules[path] = m
	s.log.Debug("Loading module ", path)

	if err := m.start(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Session) parse(ctx context.Context, path string) (*frontend.Unit, error) {
	unit, err := s.front.Load(ctx, path)
	if err == nil {
		return unit, nil
	}
	var d *diag.Error
	if !errors.As(err, &d) {
		d = diag.Errorf(diag.SyntaxError, span.Unknown, "%v", err)
	}
	if d.Module == "" {
		d.Module = path
	}
	d.Stack = s.calls.Snapshot()
	return nil, d
}

func (s *Session) report(err error) error {
	if err == nil {
		return nil
	}
	var d *diag.Error
	if errors.As(err, &d) {
		s.log.Debug("Run failed: ", d.Error())
		if s.sink != nil {
			s.sink.Report(d)
		}
	}
	return err
}

// Host returns the host view handed to native callbacks.
func (s *Session) Host() *Host {
	return s.host
}

func pathExists(path string) (bool, error) {
	return fileutil.PathExists(path)
}
