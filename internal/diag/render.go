package diag

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Style decorates the parts of a rendered diagnostic.
type Style interface {
	Title(s string) string    // error heading
	Location(s string) string // file name and position
	Source(s string) string   // offending source line
	Muted(s string) string    // secondary headings
}

type plainStyle struct{}

func (plainStyle) Title(s string) string    { return s }
func (plainStyle) Location(s string) string { return s }
func (plainStyle) Source(s string) string   { return s }
func (plainStyle) Muted(s string) string    { return s }

// Plain renders without decoration.
var Plain Style = plainStyle{}

// Render writes e in the full report format: heading, message, location,
// source line with a caret under the offending column, and the call stack.
func Render(w io.Writer, e *Error, style Style) {
	if style == nil {
		style = Plain
	}
	module := e.Module
	if module == "" {
		module = "anonymous"
	}
	file := filepath.Base(module)

	fmt.Fprintf(w, "%s in %s\n\n", style.Title("["+e.Kind.Title()+"]"), module)
	fmt.Fprintln(w, e.Message)
	if e.Hint != "" {
		fmt.Fprintf(w, "hint: %s\n", e.Hint)
	}

	switch {
	case !e.Pos.Known():
		fmt.Fprintf(w, "Error occurred at anonymous position thrown from %s\n\n", style.Location(file))
	default:
		fmt.Fprintf(w, "Error occurred at %s %s\n\n", style.Location(file), style.Location(e.Pos.String()))
		if e.Line != "" {
			fmt.Fprintln(w, style.Source(e.Line))
			fmt.Fprintln(w, Caret(e.Line, e.Pos.Column))
		}
	}

	trace := Trace(e.Stack)
	if len(trace) > 0 {
		fmt.Fprintln(w, style.Muted("Callstack:"))
		for _, c := range trace {
			fmt.Fprintf(w, "\t%s\n", c)
		}
	}
}

// Caret returns a marker line pointing at the 1-based column of line.
// Tabs before the column are kept so the caret lines up with the source.
func Caret(line string, column int) string {
	var b strings.Builder
	for i, r := range []rune(line) {
		if i >= column-1 {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
	}
	for i := len([]rune(line)); i < column-1; i++ {
		b.WriteRune(' ')
	}
	b.WriteRune('^')
	return b.String()
}

// WriterSink renders every reported error to W.
type WriterSink struct {
	W     io.Writer
	Style Style
}

func (s *WriterSink) Report(err *Error) {
	Render(s.W, err, s.Style)
}
