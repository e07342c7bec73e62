package port

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devt.de/krotik/common/logutil"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/runtime"
	"betic-lang/internal/types"
)

func TestMain(m *testing.M) {
	logutil.GetLogger("betic").AddLogSink(logutil.Debug, logutil.SimpleFormatter(), io.Discard)
	os.Exit(m.Run())
}

func testHost(out io.Writer, in string) *runtime.Host {
	return &runtime.Host{
		Stdout: out,
		Stdin:  bufio.NewReader(strings.NewReader(in)),
		Log:    logutil.GetLogger("betic.port"),
	}
}

// invoke calls the named native of the system or os port directly.
func invoke(t *testing.T, host *runtime.Host, group, name string, args ...*runtime.Value) (*runtime.Value, error) {
	t.Helper()
	for _, p := range Registry() {
		for _, m := range p.Members {
			members := []runtime.Member{m}
			if m.Name == group {
				members = m.Group
			}
			for _, mm := range members {
				if mm.Name == name && mm.New != nil {
					return mm.New().Impl(context.Background(), host, args)
				}
			}
		}
	}
	t.Fatalf("no native %s.%s", group, name)
	return nil, nil
}

func TestMake(t *testing.T) {
	host := testHost(io.Discard, "")

	v, err := invoke(t, host, "make", "int", runtime.NewString(" 42 "))
	if err != nil || !v.Type.Is(types.Int) || v.Int != 42 {
		t.Errorf("make.int: unexpected result %v %v", v, err)
	}
	v, err = invoke(t, host, "make", "int", runtime.NewString("3.9"))
	if err != nil || v.Int != 3 {
		t.Errorf("make.int should truncate: %v %v", v, err)
	}
	if _, err = invoke(t, host, "make", "int", runtime.NewString("abc")); err == nil || err.Error() != "type cast failed" {
		t.Errorf("expected cast failure, got %v", err)
	}

	v, err = invoke(t, host, "make", "double", runtime.NewInt(2))
	if err != nil || !v.Type.Is(types.Double) || v.String() != "2.0" {
		t.Errorf("make.double: unexpected result %v %v", v, err)
	}

	v, err = invoke(t, host, "make", "string", runtime.NewInt(7))
	if err != nil || v.Str != "7" {
		t.Errorf("make.string: unexpected result %v %v", v, err)
	}
	v, err = invoke(t, host, "make", "string", BytesList(types.Named(types.Byte), []byte("héllo")))
	if err != nil || v.Str != "héllo" {
		t.Errorf("make.string from bytes: unexpected result %v %v", v, err)
	}

	v, err = invoke(t, host, "make", "byte_array", runtime.NewString("AB"))
	if err != nil || v.String() != "[ 65, 66 ]" {
		t.Errorf("make.byte_array: unexpected result %v %v", v, err)
	}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	host := testHost(&out, "  typed answer \nsecond\n")

	if _, err := invoke(t, host, "console", "write", runtime.NewString("a"), runtime.NewInt(1), runtime.None()); err != nil {
		t.Fatal(err)
	}
	v, err := invoke(t, host, "console", "read", runtime.NewString("name?"))
	if err != nil {
		t.Fatal(err)
	}
	if v.Str != "typed answer" {
		t.Errorf("unexpected input: %q", v.Str)
	}
	if out.String() != "a 1 none\nname?\n" {
		t.Errorf("unexpected output: %q", out.String())
	}

	// End of input reads an empty string.
	invoke(t, host, "console", "read")
	if v, err = invoke(t, host, "console", "read"); err != nil || v.Str != "" {
		t.Errorf("unexpected result at EOF: %v %v", v, err)
	}
}

func TestJSONKeepsKeyOrder(t *testing.T) {
	host := testHost(io.Discard, "")

	v, err := invoke(t, host, "json", "parse", runtime.NewString(`{"z": 1, "a": [true, null, "s"], "m": {"x": 1.5}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  z: 1,\n  a: [ true, none, s ],\n  m: {\n  x: 1.5\n}\n}"
	if v.String() != want {
		t.Errorf("unexpected value:\n%s", v)
	}

	v, err = invoke(t, host, "json", "parse_bytes", BytesList(types.Named(types.Byte), []byte(`[1, 2]`)))
	if err != nil || v.String() != "[ 1, 2 ]" {
		t.Errorf("unexpected value: %v %v", v, err)
	}

	for _, bad := range []string{`{"a":`, `[1] [2]`, ``} {
		if _, err := invoke(t, host, "json", "parse", runtime.NewString(bad)); err == nil {
			t.Errorf("expected an error for %q", bad)
		}
	}
}

func TestInspection(t *testing.T) {
	host := testHost(io.Discard, "")

	tests := []struct {
		name string
		arg  *runtime.Value
		want string
	}{
		{"typeof", runtime.NewList(types.Named(types.String), nil), "[]String"},
		{"typeof", runtime.NewMap(types.Named(types.Int), nil), "Map<Int>"},
		{"len", runtime.NewList(types.Named(types.Int), []*runtime.Value{runtime.NewInt(1), runtime.NewInt(2)}), "2"},
		{"len", runtime.NewString("héllo"), "5"},
		{"len", runtime.NewMap(types.Named(types.Int), []runtime.Pair{{Key: "a", Value: runtime.NewInt(1)}}), "1"},
		{"split_str", runtime.NewString("abc"), "[ a, b, c ]"},
	}
	for _, tt := range tests {
		v, err := invoke(t, host, "", tt.name, tt.arg)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if v.String() != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, v.String())
		}
	}

	if _, err := invoke(t, host, "", "len", runtime.NewInt(1)); err == nil {
		t.Error("len of an Int should fail")
	}
}

func TestFiles(t *testing.T) {
	host := testHost(io.Discard, "")
	path := filepath.Join(t.TempDir(), "data.txt")

	if _, err := invoke(t, host, "os", "write_file", runtime.NewString(path), runtime.NewString("hi")); err != nil {
		t.Fatal(err)
	}
	v, err := invoke(t, host, "os", "read_file", runtime.NewString(path))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Type.Elem().Is(types.Byte) || v.String() != "[ 104, 105 ]" {
		t.Errorf("unexpected content: %s %s", v.Type, v)
	}

	// Byte lists round trip.
	if _, err := invoke(t, host, "os", "write_file", runtime.NewString(path), v); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); string(data) != "hi" {
		t.Errorf("unexpected file content: %q", data)
	}

	if _, err := invoke(t, host, "os", "read_file", runtime.NewString("relative.txt")); err == nil ||
		err.Error() != "path must be an absolute path" {
		t.Errorf("expected absolute path error, got %v", err)
	}
	if _, err := invoke(t, host, "os", "write_file", runtime.NewString(path), runtime.NewInt(1)); err == nil {
		t.Error("writing an Int should fail")
	}
}

// ---- through the evaluator ----

func run(t *testing.T, tree string) (string, error) {
	t.Helper()
	prog, err := ast.DecodeYAML([]byte(tree))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	s := runtime.NewSession(runtime.Options{
		Stdout: &out,
		Stdin:  strings.NewReader(""),
		LibDir: t.TempDir(),
		Ports:  Registry(),
	})
	err = s.RunProgram(context.Background(), "/test/main.btc", "", prog)
	return out.String(), err
}

func TestPortsInProgram(t *testing.T) {
	out, err := run(t, `
imports: [{source: os.port}]
program:
  - operation: function_call
    name:
      operation: map_value_getter
      left: {operation: reference, value: console}
      right: {operation: reference, value: write}
    arguments:
      - operation: function_call
        name:
          operation: map_value_getter
          left: {operation: reference, value: make}
          right: {operation: reference, value: int}
        arguments: [{operation: primitive, type: {base: String}, value: "12"}]
      - operation: function_call
        name: {operation: reference, value: typeof}
        arguments:
          - operation: map_value_getter
            left: {operation: reference, value: os}
            right: {operation: reference, value: read_file}
`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "12 Function<[]Byte>" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNativeFaultInProgram(t *testing.T) {
	_, err := run(t, `
program:
  - operation: function_call
    position: {line: 1, col: 1}
    name:
      operation: map_value_getter
      left: {operation: reference, value: make}
      right: {operation: reference, value: int}
    arguments: [{operation: primitive, type: {base: String}, value: "twelve"}]
`)
	if !diag.Is(err, diag.RuntimeError) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "type cast failed") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestPortBindingsAreConstant(t *testing.T) {
	_, err := run(t, `
program:
  - operation: assign_statement
    left: {operation: reference, value: typeof}
    right: {operation: reference, value: len}
`)
	if !diag.Is(err, diag.ImmutableValue) {
		t.Fatalf("expected ImmutableValue, got %v", err)
	}
}
