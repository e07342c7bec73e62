package runtime

import (
	"context"
	"math"
	"strconv"
	"strings"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/span"
	"betic-lang/internal/types"
)

// ============================================================
// Expression evaluation
// ============================================================

func (m *Module) evalExpr(ctx context.Context, expr ast.Expr) (Ref, error) {
	switch e := expr.(type) {
	case *ast.RefExpr:
		return m.resolveRef(e.Name, e.Pos)
	case *ast.ArithmeticExpr:
		return m.evalArithmetic(ctx, e)
	case *ast.ConditionExpr:
		return m.evalConditionExpr(ctx, e)
	case *ast.MapGetterExpr:
		return m.evalMapGetter(ctx, e)
	case *ast.ListGetterExpr:
		return m.evalListGetter(ctx, e)
	case *ast.CallExpr:
		return m.evalCall(ctx, e)
	case *ast.MicroCallExpr:
		return m.evalMicroCall(ctx, e)
	case *ast.ScalarLiteral:
		return m.evalScalar(e)
	case *ast.ListLiteral:
		return m.evalList(ctx, e)
	case *ast.MapLiteral:
		return m.evalMap(ctx, e)
	case *ast.StructLiteral:
		return m.evalStruct(ctx, e)
	case *ast.FuncLiteral:
		return m.evalFunc(e)
	case *ast.MicroLiteral:
		return m.evalMicro(e)
	case *ast.ReservedExpr:
		m.session.log.Debug("Reserved expression ", e.Operation, " evaluates to none at ", e.Pos)
		return Ref{Value: None()}, nil
	case nil:
		return Ref{}, m.errorf(diag.SyntaxError, span.Unknown, "Missing expression")
	default:
		return Ref{}, m.errorf(diag.SyntaxError, expr.GetPos(), "Unexpected expression %T", expr)
	}
}

// ---- Arithmetic ----

func (m *Module) evalArithmetic(ctx context.Context, e *ast.ArithmeticExpr) (Ref, error) {
	left, err := m.evalExpr(ctx, e.Left)
	if err != nil {
		return Ref{}, err
	}
	right, err := m.evalExpr(ctx, e.Right)
	if err != nil {
		return Ref{}, err
	}
	l, r := left.Value, right.Value

	switch {
	case e.Op == ast.Add && l.Type.Is(types.String) && r.Type.Is(types.String):
		return Ref{Value: NewString(l.Str + r.Str)}, nil

	case l.Type.Is(types.Int) && r.Type.Is(types.Int):
		v, err := m.intArithmetic(e, l.Int, r.Int)
		return Ref{Value: v}, err

	case l.Type.Is(types.Double) && r.Type.Is(types.Double):
		return Ref{Value: NewDouble(floatArithmetic(e.Op, l.Double, r.Double))}, nil
	}

	return Ref{}, m.errorf(diag.TypeMismatch, e.Pos,
		"Cannot apply %s to types %s and %s", e.Op, l.Type, r.Type)
}

// intArithmetic keeps Int results exact where it can; the result is an Int
// whenever the outcome is a whole number that fits an Int.
func (m *Module) intArithmetic(e *ast.ArithmeticExpr, a, b int64) (*Value, error) {
	switch e.Op {
	case ast.Add, ast.Subtract, ast.Multiply:
		return intResult(e.Op, a, b), nil
	case ast.Divide, ast.Modulus:
		if b == 0 {
			return nil, m.errorf(diag.InvalidValue, e.Right.GetPos(), "Division by zero")
		}
		return intQuotient(e.Op, a, b), nil
	}
	return NewNumber(floatArithmetic(e.Op, float64(a), float64(b))), nil
}

// intResult applies +, - or * to two Ints. A result that overflows an Int
// becomes a Double.
func intResult(op ast.ArithOp, a, b int64) *Value {
	if r, ok := checkedInt(op, a, b); ok {
		return NewInt(r)
	}
	return NewDouble(floatArithmetic(op, float64(a), float64(b)))
}

func checkedInt(op ast.ArithOp, a, b int64) (int64, bool) {
	switch op {
	case ast.Add:
		r := a + b
		return r, (b >= 0) == (r >= a)
	case ast.Subtract:
		r := a - b
		return r, (b >= 0) == (r <= a)
	case ast.Multiply:
		if a == 0 || b == 0 {
			return 0, true
		}
		if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, false
		}
		r := a * b
		return r, r/b == a
	}
	return 0, false
}

// intQuotient divides or takes the modulus of two Ints; b must not be zero.
func intQuotient(op ast.ArithOp, a, b int64) *Value {
	if op == ast.Modulus {
		return NewInt(a % b)
	}
	if a%b == 0 && !(a == math.MinInt64 && b == -1) {
		return NewInt(a / b)
	}
	return NewNumber(float64(a) / float64(b))
}

func floatArithmetic(op ast.ArithOp, a, b float64) float64 {
	switch op {
	case ast.Add:
		return a + b
	case ast.Subtract:
		return a - b
	case ast.Multiply:
		return a * b
	case ast.Divide:
		return a / b
	case ast.Modulus:
		return math.Mod(a, b)
	case ast.Exponent:
		return math.Pow(a, b)
	case ast.Root:
		return math.Pow(a, 1/b)
	}
	return math.NaN()
}

// ---- Conditions ----

func (m *Module) evalConditionExpr(ctx context.Context, e *ast.ConditionExpr) (Ref, error) {
	left, err := m.evalExpr(ctx, e.Left)
	if err != nil {
		return Ref{}, err
	}
	right, err := m.evalExpr(ctx, e.Right)
	if err != nil {
		return Ref{}, err
	}
	l, r := left.Value, right.Value

	switch e.Op {
	case ast.And, ast.Or, ast.Nand, ast.Nor:
		if !l.Type.Is(types.Boolean) || !r.Type.Is(types.Boolean) {
			return Ref{}, m.errorf(diag.InvalidValue, e.Pos,
				"Operator %s expects Boolean operands, got %s and %s", e.Op, l.Type, r.Type)
		}
		var res bool
		switch e.Op {
		case ast.And:
			res = l.Bool && r.Bool
		case ast.Or:
			res = l.Bool || r.Bool
		case ast.Nand:
			res = !(l.Bool && r.Bool)
		default:
			res = !(l.Bool || r.Bool)
		}
		return Ref{Value: NewBool(res)}, nil

	case ast.Equals:
		return Ref{Value: NewBool(Equal(l, r))}, nil

	case ast.NotEquals:
		return Ref{Value: NewBool(!Equal(l, r))}, nil
	}

	if !l.Type.IsNumeric() || !r.Type.IsNumeric() {
		return Ref{}, m.errorf(diag.InvalidValue, e.Pos,
			"Operator %s expects numeric operands, got %s and %s", e.Op, l.Type, r.Type)
	}
	a, _ := l.Number()
	b, _ := r.Number()

	var res bool
	switch e.Op {
	case ast.LessThan, ast.NotGreaterThanEquals:
		res = a < b
	case ast.GreaterThan, ast.NotLessThanEquals:
		res = a > b
	case ast.LessThanEquals, ast.NotGreaterThan:
		res = a <= b
	case ast.GreaterThanEquals, ast.NotLessThan:
		res = a >= b
	default:
		return Ref{}, m.errorf(diag.SyntaxError, e.Pos, "Unknown condition operator %s", e.Op)
	}
	return Ref{Value: NewBool(res)}, nil
}

// ---- Getters ----

// evalMapGetter reads a field of the left-hand map or struct. A bare name
// is looked up among the fields only; any other right-hand side is
// evaluated in a frame extended with the fields.
func (m *Module) evalMapGetter(ctx context.Context, e *ast.MapGetterExpr) (Ref, error) {
	left, err := m.evalExpr(ctx, e.Left)
	if err != nil {
		return Ref{}, err
	}
	src := left.Value
	if !src.Type.Is(types.Map) && !src.IsStruct() {
		return Ref{}, m.errorf(diag.UnindexibleReference, e.Left.GetPos(),
			"Value of type %s cannot be indexed", src.Type)
	}

	if name, ok := e.Right.(*ast.RefExpr); ok {
		v, found := src.Field(name.Name)
		if !found {
			keys := make([]string, len(src.Pairs))
			for i, p := range src.Pairs {
				keys[i] = p.Key
			}
			return Ref{}, m.withHint(
				m.errorf(diag.UninitializedValue, name.Pos, "Property '%s' cannot be found in value of type %s",
					name.Name, src.Type),
				name.Name, keys)
		}
		return Ref{Value: v, Owner: left.Owner}, nil
	}

	bindings := make(Frame, len(src.Pairs))
	for _, p := range src.Pairs {
		bindings[p.Key] = Ref{Value: p.Value, Owner: left.Owner}
	}

	m.frames.Push(bindings)
	res, err := m.evalExpr(ctx, e.Right)
	m.frames.Pop()
	if err != nil {
		return Ref{}, err
	}

	if left.Owner != nil {
		res.Owner = left.Owner
	}
	return res, nil
}

func (m *Module) evalListGetter(ctx context.Context, e *ast.ListGetterExpr) (Ref, error) {
	source, err := m.evalExpr(ctx, e.Source)
	if err != nil {
		return Ref{}, err
	}
	src := source.Value

	switch src.Type.Base {
	case types.Map, types.List, types.String:
	default:
		return Ref{}, m.errorf(diag.UnindexibleReference, e.Source.GetPos(),
			"Value of type %s cannot be indexed", src.Type)
	}

	index, err := m.evalExpr(ctx, e.Index)
	if err != nil {
		return Ref{}, err
	}
	idx := index.Value

	if src.Type.Is(types.Map) {
		if !idx.Type.Is(types.String) {
			return Ref{}, m.errorf(diag.InvalidValue, e.Index.GetPos(),
				"Map index must be of type String, got %s", idx.Type)
		}
		v, ok := src.Field(idx.Str)
		if !ok {
			return Ref{}, m.errorf(diag.InvalidValue, e.Index.GetPos(), "Key '%s' does not exist in map", idx.Str)
		}
		return Ref{Value: v, Owner: source.Owner}, nil
	}

	if !idx.Type.Is(types.Int) {
		return Ref{}, m.errorf(diag.InvalidValue, e.Index.GetPos(),
			"%s index must be of type Int, got %s", src.Type.Base, idx.Type)
	}

	if src.Type.Is(types.String) {
		runes := []rune(src.Str)
		if idx.Int < 0 || idx.Int >= int64(len(runes)) {
			return Ref{}, m.errorf(diag.InvalidValue, e.Index.GetPos(),
				"Index value %d is out of bounds of source", idx.Int)
		}
		return Ref{Value: NewString(string(runes[idx.Int])), Owner: source.Owner}, nil
	}

	if idx.Int < 0 || idx.Int >= int64(len(src.Items)) {
		return Ref{}, m.errorf(diag.InvalidValue, e.Index.GetPos(),
			"Index value %d is out of bounds of source", idx.Int)
	}
	return Ref{Value: src.Items[idx.Int], Owner: source.Owner}, nil
}

// ---- Literals ----

func (m *Module) evalScalar(e *ast.ScalarLiteral) (Ref, error) {
	raw := strings.TrimSpace(e.Raw)

	switch e.Type.Base {
	case types.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Ref{}, m.errorf(diag.InvalidValue, e.Pos, "Invalid Int literal %q", e.Raw)
		}
		return Ref{Value: NewInt(n)}, nil

	case types.Byte:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 || n > 255 {
			return Ref{}, m.errorf(diag.InvalidValue, e.Pos, "Invalid Byte literal %q", e.Raw)
		}
		return Ref{Value: NewByte(byte(n))}, nil

	case types.Double:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Ref{}, m.errorf(diag.InvalidValue, e.Pos, "Invalid Double literal %q", e.Raw)
		}
		return Ref{Value: NewDouble(f)}, nil

	case types.Boolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Ref{}, m.errorf(diag.InvalidValue, e.Pos, "Invalid Boolean literal %q", e.Raw)
		}
		return Ref{Value: NewBool(b)}, nil

	case types.String:
		return Ref{Value: NewString(e.Raw)}, nil

	case types.None:
		return Ref{Value: None()}, nil
	}

	return Ref{}, m.errorf(diag.InvalidValue, e.Pos, "Unknown literal type %s", e.Type)
}

func (m *Module) evalList(ctx context.Context, e *ast.ListLiteral) (Ref, error) {
	elem := e.Type.Elem()
	items := make([]*Value, 0, len(e.Elements))

	for _, el := range e.Elements {
		ref, err := m.evalExpr(ctx, el)
		if err != nil {
			return Ref{}, err
		}
		if !types.Compatible(ref.Value.Type, elem) {
			return Ref{}, m.errorf(diag.TypeMismatch, el.GetPos(),
				"List of type %s cannot hold a value of type %s", e.Type, ref.Value.Type)
		}
		items = append(items, ref.Value.Copy())
	}
	return Ref{Value: NewList(elem, items)}, nil
}

func (m *Module) evalMap(ctx context.Context, e *ast.MapLiteral) (Ref, error) {
	elem := e.Type.Elem()
	pairs := make([]Pair, 0, len(e.Entries))

	for _, entry := range e.Entries {
		ref, err := m.evalExpr(ctx, entry.Value)
		if err != nil {
			return Ref{}, err
		}
		if !types.Compatible(ref.Value.Type, elem) {
			return Ref{}, m.errorf(diag.TypeMismatch, entry.Pos,
				"Map of type %s cannot hold a value of type %s", e.Type, ref.Value.Type)
		}
		pairs = append(pairs, Pair{Key: entry.Key, Value: ref.Value.Copy()})
	}

	seen := make(map[string]bool, len(pairs))
	for i, p := range pairs {
		if seen[p.Key] {
			return Ref{}, m.errorf(diag.DuplicateKeys, e.Entries[i].Pos, "Map includes duplicate key '%s'", p.Key)
		}
		seen[p.Key] = true
	}
	return Ref{Value: NewMap(elem, pairs)}, nil
}

// evalStruct builds a value of a user type. Field types are checked against
// the module that defines the type.
func (m *Module) evalStruct(ctx context.Context, e *ast.StructLiteral) (Ref, error) {
	entry, owner, ok := m.resolveType(e.Type.Base)
	if !ok {
		return Ref{}, m.withHint(
			m.errorf(diag.UninitializedValue, e.Pos, "Type %s cannot be found", e.Type.Base),
			e.Type.Base, m.visibleTypes())
	}

	supplied := make(map[string]ast.Entry, len(e.Entries))
	for _, en := range e.Entries {
		supplied[en.Key] = en
	}

	pairs := make([]Pair, 0, len(entry.Fields))
	for _, field := range entry.Fields {
		en, ok := supplied[field.Name]
		if !ok {
			if field.Optional {
				continue
			}
			return Ref{}, m.errorf(diag.MissingProperty, e.Pos,
				"Type %s requires property '%s'", entry.Name, field.Name)
		}
		if err := owner.checkType(field.Type, en.Pos); err != nil {
			return Ref{}, err
		}

		ref, err := m.evalExpr(ctx, en.Value)
		if err != nil {
			return Ref{}, err
		}
		if !types.Compatible(ref.Value.Type, field.Type) {
			return Ref{}, m.errorf(diag.TypeMismatch, en.Pos,
				"Property '%s' of type %s cannot hold a value of type %s", field.Name, field.Type, ref.Value.Type)
		}
		pairs = append(pairs, Pair{Key: field.Name, Value: ref.Value.Copy()})
	}

	return Ref{Value: &Value{Type: e.Type.Clone(), Pairs: pairs}}, nil
}

// checkBody enforces the return contract: Void bodies provide nothing,
// every other return type must provide a value.
func (m *Module) checkBody(ret types.Type, body *ast.Block, pos ast.Node) error {
	if err := m.checkType(ret, pos.GetPos()); err != nil {
		return err
	}
	switch {
	case ret.Is(types.Void) && body.Provides != nil:
		return m.errorf(diag.TypeMismatch, body.Provides.Pos, "A Void body cannot provide a value")
	case !ret.Is(types.Void) && body.Provides == nil:
		return m.errorf(diag.TypeMismatch, pos.GetPos(), "Body must provide a value of type %s", ret)
	}
	return nil
}

func (m *Module) evalFunc(e *ast.FuncLiteral) (Ref, error) {
	if err := m.checkBody(e.Return, e.Body, e); err != nil {
		return Ref{}, err
	}
	for _, p := range e.Params {
		if err := m.checkType(p.Type, e.Pos); err != nil {
			return Ref{}, err
		}
	}
	return Ref{Value: &Value{
		Type: types.Of(types.Function, e.Return),
		Fn:   &Callable{Params: e.Params, Return: e.Return, Body: e.Body},
	}}, nil
}

func (m *Module) evalMicro(e *ast.MicroLiteral) (Ref, error) {
	if err := m.checkBody(e.Return, e.Body, e); err != nil {
		return Ref{}, err
	}
	if err := m.checkType(e.Prototype.Type, e.Pos); err != nil {
		return Ref{}, err
	}
	return Ref{Value: &Value{
		Type: types.Of(types.Micro, e.Return),
		Fn:   &Callable{Prototype: e.Prototype, Return: e.Return, Body: e.Body},
	}}, nil
}
