// Package runtime implements the Betic evaluator: values, frames, module
// instances, statement and expression evaluation and the calling conventions.
package runtime

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"betic-lang/internal/ast"
	"betic-lang/internal/types"
)

// Value is one storage cell. Bindings, list items and map/struct fields all
// point at cells; assignment overwrites a cell's payload in place so every
// holder of the pointer observes the change.
type Value struct {
	Type     types.Type
	Constant bool
	Expected bool
	Name     string

	// Payload; which fields are meaningful depends on Type.Base.
	Int    int64     // Int, Byte
	Double float64   // Double
	Bool   bool      // Boolean
	Str    string    // String
	Items  []*Value  // List
	Pairs  []Pair    // Map and struct values, in declaration order
	Fn     *Callable // Function, Micro and native functions
}

// Pair is a key/value entry of a map or struct value.
type Pair struct {
	Key   string
	Value *Value
}

// Callable is the payload shared by Function, Micro and native function values.
type Callable struct {
	Params    []types.Field // Function and native parameters
	Prototype types.Field   // the single Micro parameter
	Return    types.Type
	Body      *ast.Block // nil for native functions
	Native    NativeFunc // nil for interpreted callables
}

// NativeFunc is a host callback. It may block on host I/O; evaluation of the
// calling path resumes with its result. A returned error is a host fault.
type NativeFunc func(ctx context.Context, host *Host, args []*Value) (*Value, error)

// ---- Constructors ----

// NewInt returns an Int value.
func NewInt(n int64) *Value { return &Value{Type: types.Named(types.Int), Int: n} }

// NewByte returns a Byte value.
func NewByte(b byte) *Value { return &Value{Type: types.Named(types.Byte), Int: int64(b)} }

// NewDouble returns a Double value.
func NewDouble(f float64) *Value { return &Value{Type: types.Named(types.Double), Double: f} }

// NewBool returns a Boolean value.
func NewBool(b bool) *Value { return &Value{Type: types.Named(types.Boolean), Bool: b} }

// NewString returns a String value.
func NewString(s string) *Value { return &Value{Type: types.Named(types.String), Str: s} }

// None returns a fresh none value.
func None() *Value { return &Value{Type: types.Named(types.None)} }

// NewList returns a List<elem> value.
func NewList(elem types.Type, items []*Value) *Value {
	return &Value{Type: types.Of(types.List, elem), Items: items}
}

// NewMap returns a Map<elem> value.
func NewMap(elem types.Type, pairs []Pair) *Value {
	return &Value{Type: types.Of(types.Map, elem), Pairs: pairs}
}

// NewNative returns a Function value backed by a host callback.
func NewNative(fn NativeFunc, params []types.Field, ret types.Type) *Value {
	return &Value{
		Type: types.Of(types.Function, ret),
		Fn:   &Callable{Params: params, Return: ret, Native: fn},
	}
}

// NewNumber types an arithmetic result: whole numbers in Int range become
// Int, anything else Double.
func NewNumber(f float64) *Value {
	if isWhole(f) && f >= -(1<<63) && f < 1<<63 {
		return NewInt(int64(f))
	}
	return NewDouble(f)
}

func isWhole(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

// ---- Classification ----

// IsStruct reports whether v is a value of a user-defined type.
func (v *Value) IsStruct() bool {
	switch v.Type.Base {
	case types.Int, types.Byte, types.Double, types.Boolean, types.String, types.None,
		types.List, types.Map, types.Function, types.Micro, types.Macro, types.Occult, types.Void:
		return false
	}
	return true
}

// IsNative reports whether v is a host-implemented function.
func (v *Value) IsNative() bool {
	return v.Fn != nil && v.Fn.Native != nil
}

// Number returns the numeric payload of an Int, Byte or Double value.
func (v *Value) Number() (float64, bool) {
	switch v.Type.Base {
	case types.Int, types.Byte:
		return float64(v.Int), true
	case types.Double:
		return v.Double, true
	}
	return 0, false
}

// Field returns the named field of a map or struct value.
func (v *Value) Field(key string) (*Value, bool) {
	for _, p := range v.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// ---- Mutation ----

// assign overwrites the payload of v with the payload of src. The declared
// type and flags of v stay untouched.
func (v *Value) assign(src *Value) {
	v.Int = src.Int
	v.Double = src.Double
	v.Bool = src.Bool
	v.Str = src.Str
	v.Items = src.Items
	v.Pairs = src.Pairs
	v.Fn = src.Fn
}

// Copy returns fresh storage holding the same data. Lists, maps and structs
// are copied element by element; callables share their immutable payload.
func (v *Value) Copy() *Value {
	c := *v
	c.Type = v.Type.Clone()
	if v.Items != nil {
		c.Items = make([]*Value, len(v.Items))
		for i, item := range v.Items {
			c.Items[i] = item.Copy()
		}
	}
	if v.Pairs != nil {
		c.Pairs = make([]Pair, len(v.Pairs))
		for i, p := range v.Pairs {
			c.Pairs[i] = Pair{Key: p.Key, Value: p.Value.Copy()}
		}
	}
	return &c
}

// ---- Equality ----

// Equal compares two values by value. Int, Byte and Double compare numerically.
func Equal(a, b *Value) bool {
	if an, ok := a.Number(); ok {
		bn, ok := b.Number()
		return ok && an == bn
	}
	if a.Type.Base != b.Type.Base {
		return false
	}
	switch a.Type.Base {
	case types.Boolean:
		return a.Bool == b.Bool
	case types.String:
		return a.Str == b.Str
	case types.None:
		return true
	case types.List:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case types.Function, types.Micro:
		return a.Fn == b.Fn
	default:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if a.Pairs[i].Key != b.Pairs[i].Key || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	}
}

// ---- Rendering ----

// String renders v the way console output shows it.
func (v *Value) String() string {
	switch v.Type.Base {
	case types.None:
		return "none"
	case types.Int, types.Byte:
		return strconv.FormatInt(v.Int, 10)
	case types.Double:
		s := strconv.FormatFloat(v.Double, 'f', -1, 64)
		if isWhole(v.Double) {
			s += ".0"
		}
		return s
	case types.String:
		return v.Str
	case types.Boolean:
		return strconv.FormatBool(v.Bool)
	case types.List:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	case types.Map:
		return "{\n" + pairsString(v.Pairs) + "\n}"
	case types.Function:
		return fmt.Sprintf("function -> %s (%s) { ... }", v.Fn.Return, types.FieldsString(v.Fn.Params))
	case types.Micro:
		return fmt.Sprintf("micro -> %s { ... }", v.Fn.Return)
	default:
		return v.Type.String() + " {\n" + pairsString(v.Pairs) + "\n}"
	}
}

func pairsString(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("  %s: %s", p.Key, p.Value.String())
	}
	return strings.Join(parts, ",\n")
}

// ValuesString formats a slice of values with a separator.
func ValuesString(vals []*Value, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, sep)
}
