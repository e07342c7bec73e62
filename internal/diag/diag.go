// Package diag provides the fatal error taxonomy and diagnostic reporting of the runtime.
package diag

import (
	"errors"
	"fmt"

	"betic-lang/internal/span"
)

// Kind classifies a fatal error.
type Kind int

const (
	SyntaxError Kind = iota
	TypeMismatch
	UninitializedValue
	UnindexibleReference
	ImmutableValue
	InvalidValue
	AlreadyExists
	DuplicateKeys
	MissingArgument
	MissingProperty
	CannotOpenFile
	RuntimeError // host fault raised inside a native callback
)

var kindNames = [...]string{
	SyntaxError:          "SyntaxError",
	TypeMismatch:         "TypeMismatch",
	UninitializedValue:   "UninitializedValue",
	UnindexibleReference: "UnindexibleReference",
	ImmutableValue:       "ImmutableValue",
	InvalidValue:         "InvalidValue",
	AlreadyExists:        "AlreadyExists",
	DuplicateKeys:        "DuplicateKeys",
	MissingArgument:      "MissingArgument",
	MissingProperty:      "MissingProperty",
	CannotOpenFile:       "CannotOpenFile",
	RuntimeError:         "RuntimeError",
}

var kindTitles = [...]string{
	SyntaxError:          "Syntax Error",
	TypeMismatch:         "Type Mismatch",
	UninitializedValue:   "Uninitialized Value",
	UnindexibleReference: "Unindexible Reference",
	ImmutableValue:       "Immutable Value",
	InvalidValue:         "Invalid Value",
	AlreadyExists:        "Already Exists",
	DuplicateKeys:        "Duplicate Keys",
	MissingArgument:      "Missing Argument",
	MissingProperty:      "Missing Property",
	CannotOpenFile:       "Cannot Open File",
	RuntimeError:         "Runtime Error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Title is the human-readable heading used when rendering.
func (k Kind) Title() string {
	if int(k) < len(kindTitles) {
		return kindTitles[k]
	}
	return "Unknown Error"
}

// Error is a fatal diagnostic. Evaluation stops at the first one.
type Error struct {
	Kind    Kind
	Message string
	Pos     span.Position // span.Unknown when no concrete position exists
	Module  string        // identifying path of the originating module
	Line    string        // offending source line, empty when unavailable
	Hint    string        // optional hint
	Stack   []Call        // call stack at detection, oldest first
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind.Title(), e.Message)
	if e.Pos.Known() {
		msg = fmt.Sprintf("[%s] %s: %s", e.Kind.Title(), e.Pos, e.Message)
	}
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

// Errorf creates an error of the given kind at pos.
func Errorf(kind Kind, pos span.Position, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// KindOf extracts the kind of a diagnostic error.
func KindOf(err error) (Kind, bool) {
	var d *Error
	if errors.As(err, &d) {
		return d.Kind, true
	}
	return 0, false
}

// Is reports whether err is a diagnostic of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Sink receives fatal diagnostics.
type Sink interface {
	Report(err *Error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(err *Error)

func (f SinkFunc) Report(err *Error) { f(err) }

// Collector is a Sink that keeps every reported error.
type Collector struct {
	Errors []*Error
}

func (c *Collector) Report(err *Error) {
	c.Errors = append(c.Errors, err)
}
