package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"betic-lang/internal/diag"
)

// ---- YAML tree snippets ----

func refY(name string) string {
	return fmt.Sprintf("{operation: reference, value: %s}", name)
}

func strY(s string) string {
	return fmt.Sprintf("{operation: primitive, type: {base: String}, value: %q}", s)
}

func intY(n int) string {
	return fmt.Sprintf("{operation: primitive, type: {base: Int}, value: %d}", n)
}

func callY(callee string, args ...string) string {
	return fmt.Sprintf("{operation: function_call, name: %s, arguments: [%s]}", callee, strings.Join(args, ", "))
}

func writeY(args ...string) string { return callY(refY("write"), args...) }

func varY(name, value string) string {
	return fmt.Sprintf("{operation: variable_definition, name: %s, value: %s}", name, value)
}

func funcY(name, ret, provides string, body ...string) string {
	p := ""
	if provides != "" {
		p = fmt.Sprintf(", provides: {body: %s}", provides)
	}
	return fmt.Sprintf("{operation: function_definition, name: %s, type: {base: %s}, arguments: [], body: {block: [%s]%s}}",
		name, ret, strings.Join(body, ", "), p)
}

// tree renders a program tree document. Import i sits on line i+1.
func tree(imports []string, stmts ...string) string {
	var b strings.Builder
	b.WriteString("imports:\n")
	for i, im := range imports {
		fmt.Fprintf(&b, "  - {source: %q, position: {line: %d, col: 1}}\n", im, i+1)
	}
	b.WriteString("program:\n")
	for _, s := range stmts {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	return b.String()
}

func writeTree(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runFile runs the module at path. Stdout, LibDir and Ports default to a
// buffer, an empty temporary directory and the test ports.
func runFile(t *testing.T, path string, opts Options) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	opts.Stdout = &buf
	if opts.LibDir == "" {
		opts.LibDir = t.TempDir()
	}
	if opts.Ports == nil {
		opts.Ports = testPorts()
	}
	err := NewSession(opts).Run(context.Background(), path)
	return buf.String(), err
}

func expectFileOutput(t *testing.T, path, want string) {
	t.Helper()
	got, err := runFile(t, path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(got) != strings.TrimSpace(want) {
		t.Errorf("output mismatch\nexpected: %q\ngot:      %q", want, got)
	}
}

func expectFileError(t *testing.T, path string, kind diag.Kind) *diag.Error {
	t.Helper()
	_, err := runFile(t, path, Options{})
	var d *diag.Error
	if !errors.As(err, &d) || d.Kind != kind {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	return d
}

// ============================================================
// Cross-module resolution
// ============================================================

func greeterModule(t *testing.T, dir string) {
	writeTree(t, dir, "b.yaml", tree(nil,
		varY("greeting", strY("hello from b")),
		funcY("greet", "String", refY("greeting")),
	))
}

func TestImportedFunctionRunsInOwner(t *testing.T) {
	dir := t.TempDir()
	greeterModule(t, dir)
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"},
		writeY(callY(refY("greet"))),
	))
	expectFileOutput(t, a, "hello from b")
}

func TestLocalShadowsImport(t *testing.T) {
	dir := t.TempDir()
	greeterModule(t, dir)
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"},
		varY("greeting", strY("hello from a")),
		writeY(refY("greeting")),
		writeY(callY(refY("greet"))),
	))
	expectFileOutput(t, a, "hello from a\nhello from b")
}

func TestImportsAreNotTransitive(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "c.yaml", tree(nil, varY("secret", intY(1))))
	writeTree(t, dir, "b.yaml", tree([]string{"./c.yaml"}, writeY(refY("secret"))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"}, writeY(refY("secret"))))

	d := expectFileError(t, a, diag.UninitializedValue)
	if d.Module != a {
		t.Errorf("error should be reported against %s, got %s", a, d.Module)
	}
}

func TestLastImportWins(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", tree(nil, varY("name", strY("b"))))
	writeTree(t, dir, "c.yaml", tree(nil, varY("name", strY("c"))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml", "./c.yaml"}, writeY(refY("name"))))
	expectFileOutput(t, a, "c")
}

func TestImportOrder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", tree(nil, writeY(strY("b"))))
	writeTree(t, dir, "c.yaml", tree([]string{"./b.yaml"}, writeY(strY("c"))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml", "./c.yaml"}, writeY(strY("a"))))

	// b runs once although both a and c import it.
	expectFileOutput(t, a, "b\nc\na")
}

func TestImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", tree([]string{"./a.yaml"}, writeY(strY("b"))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"}, writeY(strY("a"))))
	expectFileOutput(t, a, "b\na")
}

func TestForeignMutation(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", tree(nil,
		varY("counter", intY(0)),
		funcY("bump", "Void", "", "{operation: quantity_modifier, type: increment, statement: "+refY("counter")+"}"),
	))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"},
		callY(refY("bump")),
		callY(refY("bump")),
		writeY(refY("counter")),
	))
	expectFileOutput(t, a, "2")
}

func TestImportedType(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", tree(nil,
		"{operation: type_definition, name: Point, body: [{type: {base: Int}, value: x}, {type: {base: Int}, value: y, optional: true}]}",
	))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"},
		varY("p", "{operation: primitive, type: {base: Point}, value: [{key: x, value: "+intY(4)+"}]}"),
		writeY("{operation: map_value_getter, left: "+refY("p")+", right: "+refY("x")+"}"),
	))
	expectFileOutput(t, a, "4")
}

func TestBareImportFromLibrary(t *testing.T) {
	dir, lib := t.TempDir(), t.TempDir()
	writeTree(t, lib, "util.yaml", tree(nil, varY("version", intY(3))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"util.yaml"}, writeY(refY("version"))))

	got, err := runFile(t, a, Options{LibDir: lib})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != "3" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestFoundationModule(t *testing.T) {
	dir, lib := t.TempDir(), t.TempDir()
	writeTree(t, lib, "system.yaml", tree(nil,
		funcY("motto", "String", strY("batteries included")),
	))
	writeTree(t, dir, "b.yaml", tree(nil, varY("fromB", callY(refY("motto")))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"},
		writeY(callY(refY("motto"))),
		writeY(refY("fromB")),
	))

	got, err := runFile(t, a, Options{LibDir: lib, Foundation: "system.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != "batteries included\nbatteries included" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestMissingFoundationIsIgnored(t *testing.T) {
	dir := t.TempDir()
	a := writeTree(t, dir, "a.yaml", tree(nil, writeY(strY("ok"))))
	got, err := runFile(t, a, Options{Foundation: "system.yaml"})
	if err != nil || strings.TrimSpace(got) != "ok" {
		t.Errorf("unexpected result: %q %v", got, err)
	}
}

// ============================================================
// Ports and files
// ============================================================

func TestPortImport(t *testing.T) {
	dir := t.TempDir()
	a := writeTree(t, dir, "a.yaml", tree([]string{"extra.port"}, writeY(callY(refY("answer")))))
	expectFileOutput(t, a, "42")

	b := writeTree(t, dir, "b.yaml", tree([]string{"nope.port"}))
	d := expectFileError(t, b, diag.CannotOpenFile)
	if d.Message != "Cannot open port nope" || d.Pos.Line != 1 {
		t.Errorf("unexpected diagnostic: %v", d)
	}
}

func TestMissingImport(t *testing.T) {
	dir := t.TempDir()
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml", "./missing.yaml"}))
	writeTree(t, dir, "b.yaml", tree(nil))

	d := expectFileError(t, a, diag.CannotOpenFile)
	if d.Pos.Line != 2 || d.Module != a {
		t.Errorf("expected error at the import statement, got %v in %s", d.Pos, d.Module)
	}
}

func TestUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "notes.txt", "hello")
	a := writeTree(t, dir, "a.yaml", tree([]string{"./notes.txt"}))
	expectFileError(t, a, diag.CannotOpenFile)
}

func TestMissingEntry(t *testing.T) {
	_, err := runFile(t, filepath.Join(t.TempDir(), "nothing.yaml"), Options{})
	var d *diag.Error
	if !errors.As(err, &d) || d.Kind != diag.CannotOpenFile {
		t.Fatalf("expected CannotOpenFile, got %v", err)
	}
	if d.Pos.Known() {
		t.Errorf("entry file errors carry no position, got %v", d.Pos)
	}
}

func TestMalformedTree(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", "program:\n  - {operation: teleport}\n")
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"}))

	d := expectFileError(t, a, diag.SyntaxError)
	if !strings.HasSuffix(d.Module, "b.yaml") {
		t.Errorf("error should name the broken module, got %s", d.Module)
	}
}

func TestSourceLineFromSibling(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "a.btc", "write(missing)\n")
	a := writeTree(t, dir, "a.yaml", tree(nil,
		"{operation: function_call, name: "+refY("write")+", arguments: [{operation: reference, value: missing, position: {line: 1, col: 7}}]}",
	))

	d := expectFileError(t, a, diag.UninitializedValue)
	if d.Line != "write(missing)" || d.Pos.Column != 7 {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
}

// ============================================================
// Call stack
// ============================================================

func TestTraceAcrossModules(t *testing.T) {
	dir := t.TempDir()
	b := writeTree(t, dir, "b.yaml", tree(nil,
		funcY("boom", "Void", "", writeY(refY("nowhere"))),
	))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"}, callY(refY("boom"))))

	d := expectFileError(t, a, diag.UninitializedValue)
	if d.Module != b {
		t.Errorf("error should come from %s, got %s", b, d.Module)
	}
	trace := diag.Trace(d.Stack)
	if len(trace) != 2 || trace[0].Name != "boom" || trace[0].Module != b || trace[1].Kind != diag.InitCall {
		t.Errorf("unexpected trace: %v", trace)
	}
}

func TestTraceDropsForeignInit(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "b.yaml", tree(nil, writeY(refY("nowhere"))))
	a := writeTree(t, dir, "a.yaml", tree([]string{"./b.yaml"}))

	d := expectFileError(t, a, diag.UninitializedValue)
	if len(d.Stack) != 2 {
		t.Fatalf("expected two init calls, got %v", d.Stack)
	}
	trace := diag.Trace(d.Stack)
	if len(trace) != 1 || trace[0].Module != a {
		t.Errorf("only the entry init should remain, got %v", trace)
	}
}
