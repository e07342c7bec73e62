// Package types defines the structural type descriptors used by the Betic runtime.
package types

import (
	"fmt"
	"strings"
)

// Built-in base names.
const (
	Int      = "Int"
	Byte     = "Byte"
	Double   = "Double"
	Boolean  = "Boolean"
	String   = "String"
	None     = "None"
	List     = "List"
	Map      = "Map"
	Function = "Function"
	Micro    = "Micro"
	Macro    = "Macro"
	Occult   = "Occult" // accepted by and accepting every type
	Void     = "Void"   // callable return annotation only
)

// Builtins lists the bases every module's type table is seeded with.
var Builtins = []string{
	Int, Byte, Double, Boolean, String, Map, List,
	Function, Micro, Macro, Occult, None, Void,
}

// Type is a recursive type descriptor: List<of: Int>, Map<of: List<of: String>>, ...
type Type struct {
	Base string `json:"base" yaml:"base"`
	Of   *Type  `json:"of,omitempty" yaml:"of,omitempty"`
}

// Named returns a descriptor without an element type.
func Named(base string) Type {
	return Type{Base: base}
}

// Of returns base<of>.
func Of(base string, of Type) Type {
	return Type{Base: base, Of: &of}
}

// Is reports whether t has the given base.
func (t Type) Is(base string) bool {
	return t.Base == base
}

// IsNumeric reports whether t is Int or Double.
func (t Type) IsNumeric() bool {
	return t.Base == Int || t.Base == Double
}

// Elem returns the element type, Occult when t has none.
func (t Type) Elem() Type {
	if t.Of == nil {
		return Named(Occult)
	}
	return *t.Of
}

// Clone returns a deep copy of t.
func (t Type) Clone() Type {
	c := Type{Base: t.Base}
	if t.Of != nil {
		of := t.Of.Clone()
		c.Of = &of
	}
	return c
}

// String renders t the way diagnostics show it: []T for lists, Base<T> otherwise.
func (t Type) String() string {
	if t.Of == nil {
		return t.Base
	}
	if t.Base == List {
		return "[]" + t.Of.String()
	}
	return fmt.Sprintf("%s<%s>", t.Base, t.Of.String())
}

// Compatible reports whether a value of type a may stand where b is expected.
// Occult on either side always matches; otherwise bases must be equal and both
// sides must either lack an element type or carry compatible ones.
func Compatible(a, b Type) bool {
	if a.Base == Occult || b.Base == Occult {
		return true
	}
	if a.Base != b.Base {
		return false
	}
	switch {
	case a.Of == nil && b.Of == nil:
		return true
	case a.Of != nil && b.Of != nil:
		return Compatible(*a.Of, *b.Of)
	default:
		return false
	}
}

// Field is a named, typed slot: a struct field or a callable parameter.
type Field struct {
	Type     Type   `json:"type" yaml:"type"`
	Name     string `json:"value" yaml:"value"`
	Optional bool   `json:"optional" yaml:"optional"`
}

func (f Field) String() string {
	s := f.Type.String() + " " + f.Name
	if f.Optional {
		s += "?"
	}
	return s
}

// FieldsString joins fields for signatures: "Int a, String b?".
func FieldsString(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
