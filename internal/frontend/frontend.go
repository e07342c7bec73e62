// Package frontend turns Betic module files into program trees. Source files
// go through an external parser executable; pre-parsed trees in JSON or YAML
// are decoded directly.
package frontend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/span"
)

// Unit is a parsed module: its program tree and, when known, the source
// text diagnostics quote from.
type Unit struct {
	Program *ast.Program
	Source  string
}

// Frontend loads the module stored at path.
type Frontend interface {
	Load(ctx context.Context, path string) (*Unit, error)
}

// IsTree reports whether path names a pre-parsed program tree.
func IsTree(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// ============================================================
// Tree files
// ============================================================

// Files decodes program tree files. A source file with the same stem and
// the .btc extension next to the tree, if any, supplies the source text.
type Files struct{}

func (Files) Load(ctx context.Context, path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cannotOpen(path, err)
	}

	var prog *ast.Program
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		prog, err = ast.DecodeYAML(data)
	default:
		prog, err = ast.DecodeJSON(data)
	}
	if err != nil {
		return nil, syntaxError(path, err)
	}

	unit := &Unit{Program: prog}
	sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".btc"
	if src, err := os.ReadFile(sibling); err == nil {
		unit.Source = string(src)
	}
	return unit, nil
}

// ============================================================
// External parser
// ============================================================

// Command runs an external parser as `<Path> <Args...> <source text>`. The
// parser prints the program tree as JSON on stdout and a diagnostic on
// stderr when the source does not parse.
type Command struct {
	Path string
	Args []string
}

// Load parses a source file, or decodes it directly when it is a tree file.
func (c *Command) Load(ctx context.Context, path string) (*Unit, error) {
	if IsTree(path) {
		return Files{}.Load(ctx, path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, cannotOpen(path, err)
	}
	unit, err := c.Parse(ctx, string(src))
	if err != nil {
		var d *diag.Error
		if errors.As(err, &d) {
			d.Module = path
			d.Line = sourceLine(string(src), d.Pos.Line)
		}
		return nil, err
	}
	return unit, nil
}

// Parse runs the parser on source text.
func (c *Command) Parse(ctx context.Context, source string) (*Unit, error) {
	args := append(append([]string{}, c.Args...), source)
	cmd := exec.CommandContext(ctx, c.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exit *exec.ExitError
		if !errors.As(err, &exit) {
			return nil, diag.Errorf(diag.CannotOpenFile, span.Unknown, "Cannot run parser %s: %v", c.Path, err)
		}
		return nil, parserFailure(stderr.String())
	}
	if strings.TrimSpace(stderr.String()) != "" && stdout.Len() == 0 {
		return nil, parserFailure(stderr.String())
	}

	prog, err := ast.DecodeJSON(stdout.Bytes())
	if err != nil {
		return nil, syntaxError("", err)
	}
	return &Unit{Program: prog, Source: source}, nil
}

var (
	lineRe = regexp.MustCompile(`line (\d+)`)
	colRe  = regexp.MustCompile(`col (\d+)`)
)

// parserFailure turns parser diagnostic text into a SyntaxError, recovering
// the position from "line N" and "col M" when present.
func parserFailure(text string) error {
	pos := span.Unknown
	if m := lineRe.FindStringSubmatch(text); m != nil {
		pos.Line, _ = strconv.Atoi(m[1])
	}
	if m := colRe.FindStringSubmatch(text); m != nil {
		pos.Column, _ = strconv.Atoi(m[1])
	}
	if pos.Line > 0 && pos.Column == 0 {
		pos.Column = 1
	}

	e := diag.Errorf(diag.SyntaxError, pos, "Program has a syntax error")
	if detail := firstLine(text); detail != "" {
		e.Hint = detail
	}
	return e
}

func syntaxError(path string, err error) error {
	e := diag.Errorf(diag.SyntaxError, span.Unknown, "Program has a syntax error: %v", err)
	var de *ast.DecodeError
	if errors.As(err, &de) {
		e = diag.Errorf(diag.SyntaxError, de.Pos, "Malformed program tree: %s", de.Message)
	}
	e.Module = path
	return e
}

func cannotOpen(path string, err error) error {
	e := diag.Errorf(diag.CannotOpenFile, span.Unknown, "Cannot open file at destination %s", path)
	e.Module = path
	e.Hint = fmt.Sprint(err)
	return e
}

func sourceLine(src string, n int) string {
	lines := strings.Split(src, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n-1], "\r")
}

func firstLine(text string) string {
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
