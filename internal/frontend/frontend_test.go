package frontend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	goruntime "runtime"
	"testing"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
)

const jsonTree = `{
  "imports": [{"source": {"value": "./lib.btc"}, "position": {"line": 1, "col": 1}}],
  "program": [
    {"operation": "variable_definition", "name": "x", "position": {"line": 2, "col": 1},
     "value": {"operation": "primitive", "type": {"base": "Int"}, "value": 1}}
  ]
}`

const yamlTree = `
imports: []
program:
  - operation: function_call
    position: {line: 1, col: 1}
    name: {operation: reference, value: write}
    arguments: [{operation: reference, value: x}]
`

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFilesLoad(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "main.json", jsonTree, 0644)
	writeFile(t, dir, "main.btc", "use \"./lib.btc\"\nvar x = 1\n", 0644)
	yamlPath := writeFile(t, dir, "other.yml", yamlTree, 0644)

	unit, err := Files{}.Load(context.Background(), jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(unit.Program.Imports) != 1 || unit.Program.Imports[0].Source != "./lib.btc" {
		t.Errorf("unexpected imports: %v", unit.Program.Imports)
	}
	if def, ok := unit.Program.Statements[0].(*ast.VarDefStmt); !ok || def.Name != "x" {
		t.Errorf("unexpected statement: %#v", unit.Program.Statements[0])
	}
	if unit.Source != "use \"./lib.btc\"\nvar x = 1\n" {
		t.Errorf("sibling source not picked up: %q", unit.Source)
	}

	unit, err = Files{}.Load(context.Background(), yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := unit.Program.Statements[0].(*ast.ExprStmt); !ok || unit.Source != "" {
		t.Errorf("unexpected unit: %#v", unit)
	}
}

func TestFilesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Files{}.Load(context.Background(), filepath.Join(dir, "missing.json"))
	if !diag.Is(err, diag.CannotOpenFile) {
		t.Errorf("expected CannotOpenFile, got %v", err)
	}

	bad := writeFile(t, dir, "bad.json", `{"program": [{"operation": "nope", "position": {"line": 3, "col": 4}}]}`, 0644)
	_, err = Files{}.Load(context.Background(), bad)
	var d *diag.Error
	if !errors.As(err, &d) || d.Kind != diag.SyntaxError {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if d.Module != bad || d.Pos.Line != 3 || d.Pos.Column != 4 {
		t.Errorf("unexpected diagnostic: %+v", d)
	}

	broken := writeFile(t, dir, "broken.yaml", "program: [", 0644)
	if _, err = (Files{}).Load(context.Background(), broken); !diag.Is(err, diag.SyntaxError) {
		t.Errorf("expected SyntaxError, got %v", err)
	}
}

func TestIsTree(t *testing.T) {
	for path, want := range map[string]bool{
		"a.json": true, "a.YAML": true, "a.yml": true, "a.btc": false, "a": false,
	} {
		if IsTree(path) != want {
			t.Errorf("IsTree(%q) should be %v", path, want)
		}
	}
}

func TestParserFailure(t *testing.T) {
	tests := []struct {
		text      string
		line, col int
		hint      string
	}{
		{"error: unexpected '}' at line 4 col 9\n", 4, 9, "error: unexpected '}' at line 4 col 9"},
		{"\n  expected expression on line 2\nmore", 2, 1, "expected expression on line 2"},
		{"parser crashed", 0, 0, "parser crashed"},
	}
	for _, tt := range tests {
		var d *diag.Error
		if !errors.As(parserFailure(tt.text), &d) {
			t.Fatalf("expected a diagnostic for %q", tt.text)
		}
		if d.Kind != diag.SyntaxError || d.Pos.Line != tt.line || d.Pos.Column != tt.col || d.Hint != tt.hint {
			t.Errorf("unexpected diagnostic for %q: %+v", tt.text, d)
		}
	}
}

func TestCommand(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()

	parser := writeFile(t, dir, "parser.sh", `#!/bin/sh
case "$1" in
  *broken*) echo "unexpected token at line 2 col 3" >&2; exit 1 ;;
  *) echo '{"imports": [], "program": []}' ;;
esac
`, 0755)
	cmd := &Command{Path: parser}

	good := writeFile(t, dir, "good.btc", "var x = 1\n", 0644)
	unit, err := cmd.Load(context.Background(), good)
	if err != nil {
		t.Fatal(err)
	}
	if unit.Source != "var x = 1\n" || len(unit.Program.Statements) != 0 {
		t.Errorf("unexpected unit: %#v", unit)
	}

	bad := writeFile(t, dir, "bad.btc", "var x = 1\nbroken here\n", 0644)
	_, err = cmd.Load(context.Background(), bad)
	var d *diag.Error
	if !errors.As(err, &d) || d.Kind != diag.SyntaxError {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if d.Module != bad || d.Line != "broken here" || d.Pos.Column != 3 {
		t.Errorf("unexpected diagnostic: %+v", d)
	}

	// Tree files skip the parser.
	tree := writeFile(t, dir, "tree.json", jsonTree, 0644)
	if _, err := (&Command{Path: "/nonexistent/parser"}).Load(context.Background(), tree); err != nil {
		t.Errorf("tree files should not need the parser: %v", err)
	}

	_, err = (&Command{Path: filepath.Join(dir, "missing-parser")}).Parse(context.Background(), "x")
	if !diag.Is(err, diag.CannotOpenFile) {
		t.Errorf("expected CannotOpenFile for a missing parser, got %v", err)
	}
}
