package runtime

import (
	"context"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/types"
)

// ============================================================
// Statement execution
// ============================================================

func (m *Module) execStmts(ctx context.Context, stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.execStmt(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) execStmt(ctx context.Context, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarDefStmt:
		return m.execVarDef(ctx, s)

	case *ast.TypeDefStmt:
		m.typedef[s.Name] = &TypeEntry{Name: s.Name, Fields: s.Fields}
		return nil

	case *ast.ForStmt:
		return m.execFor(ctx, s)

	case *ast.IfStmt:
		return m.execIf(ctx, s)

	case *ast.AssignStmt:
		return m.execAssign(ctx, s)

	case *ast.ModifierStmt:
		return m.execModifier(ctx, s)

	case *ast.ExprStmt:
		_, err := m.evalExpr(ctx, s.Expr)
		return err

	case *ast.ReservedStmt:
		m.session.log.Debug("Skipping reserved statement ", s.Operation, " at ", s.Pos)
		return nil

	default:
		return m.errorf(diag.SyntaxError, stmt.GetPos(), "Unexpected statement %T", stmt)
	}
}

func (m *Module) execVarDef(ctx context.Context, s *ast.VarDefStmt) error {
	ref, err := m.evalExpr(ctx, s.Value)
	if err != nil {
		return err
	}
	if _, exists := m.frames.Lookup(s.Name); exists {
		return m.errorf(diag.AlreadyExists, s.Pos, "Variable '%s' already exists and cannot be reinitialized", s.Name)
	}

	v := ref.Value.Copy()
	v.Constant = s.Constant
	v.Expected = s.Expected
	v.Name = s.Name

	m.frames.Define(s.Name, Ref{Value: v, Owner: ref.Owner})
	return nil
}

func (m *Module) execFor(ctx context.Context, s *ast.ForStmt) error {
	rng, err := m.evalExpr(ctx, s.Range)
	if err != nil {
		return err
	}
	if !rng.Value.Type.Is(types.Int) {
		return m.errorf(diag.TypeMismatch, s.Range.GetPos(),
			"Cannot iterate over type %s, expected Int", rng.Value.Type)
	}

	for i := int64(0); i < rng.Value.Int; i++ {
		if err := m.execScoped(ctx, Frame{s.Placeholder: {Value: NewInt(i)}}, s.Body.Stmts); err != nil {
			return err
		}
	}
	return nil
}

// execScoped runs stmts in a pushed frame.
func (m *Module) execScoped(ctx context.Context, bindings Frame, stmts []ast.Stmt) error {
	m.frames.Push(bindings)
	defer m.frames.Pop()
	return m.execStmts(ctx, stmts)
}

func (m *Module) execIf(ctx context.Context, s *ast.IfStmt) error {
	ok, err := m.evalCondition(ctx, s.Condition)
	if err != nil {
		return err
	}
	if ok {
		return m.execStmts(ctx, s.Body.Stmts)
	}

	for _, elif := range s.Elifs {
		ok, err := m.evalCondition(ctx, elif.Condition)
		if err != nil {
			return err
		}
		if ok {
			return m.execStmts(ctx, elif.Body.Stmts)
		}
	}

	if s.Else != nil {
		return m.execStmts(ctx, s.Else.Stmts)
	}
	return nil
}

func (m *Module) evalCondition(ctx context.Context, expr ast.Expr) (bool, error) {
	ref, err := m.evalExpr(ctx, expr)
	if err != nil {
		return false, err
	}
	if !ref.Value.Type.Is(types.Boolean) {
		return false, m.errorf(diag.InvalidValue, expr.GetPos(),
			"Condition must be of type Boolean, got %s", ref.Value.Type)
	}
	return ref.Value.Bool, nil
}

func (m *Module) execAssign(ctx context.Context, s *ast.AssignStmt) error {
	left, err := m.evalExpr(ctx, s.Left)
	if err != nil {
		return err
	}
	if left.Value.Constant {
		return m.errorf(diag.ImmutableValue, s.Left.GetPos(), "Cannot assign to constant value %s", describe(left.Value))
	}

	right, err := m.evalExpr(ctx, s.Right)
	if err != nil {
		return err
	}
	if !types.Compatible(left.Value.Type, right.Value.Type) {
		return m.errorf(diag.TypeMismatch, s.Right.GetPos(),
			"Cannot assign type %s to type %s", right.Value.Type, left.Value.Type)
	}

	left.Value.assign(right.Value)
	return nil
}

func (m *Module) execModifier(ctx context.Context, s *ast.ModifierStmt) error {
	target, err := m.evalExpr(ctx, s.Target)
	if err != nil {
		return err
	}
	cell := target.Value
	if cell.Constant {
		return m.errorf(diag.ImmutableValue, s.Target.GetPos(), "Cannot modify constant value %s", describe(cell))
	}
	if !cell.Type.IsNumeric() {
		return m.errorf(diag.InvalidValue, s.Target.GetPos(),
			"Cannot modify value of type %s, expected Int or Double", cell.Type)
	}

	operand := NewInt(1)
	if s.Right != nil {
		right, err := m.evalExpr(ctx, s.Right)
		if err != nil {
			return err
		}
		if !right.Value.Type.IsNumeric() {
			return m.errorf(diag.InvalidValue, s.Right.GetPos(),
				"Cannot modify by value of type %s, expected Int or Double", right.Value.Type)
		}
		operand = right.Value
	}

	result, err := m.modify(s, cell, operand)
	if err != nil {
		return err
	}

	if cell.Type.Is(types.Double) {
		cell.Double, _ = result.Number()
		return nil
	}
	if !result.Type.Is(types.Int) {
		return m.errorf(diag.TypeMismatch, s.Pos, "Cannot assign type %s to type Int", result.Type)
	}
	cell.Int = result.Int
	return nil
}

// modify computes the new value of a quantity modifier target. Int targets
// with Int operands never go through float arithmetic.
func (m *Module) modify(s *ast.ModifierStmt, cell, operand *Value) (*Value, error) {
	var op ast.ArithOp
	switch s.Op {
	case ast.Increment, ast.AddTo:
		op = ast.Add
	case ast.Decrement, ast.SubFrom:
		op = ast.Subtract
	case ast.MulBy:
		op = ast.Multiply
	case ast.DivBy:
		op = ast.Divide
	default:
		return nil, m.errorf(diag.SyntaxError, s.Pos, "Unknown quantity modifier %s", s.Op)
	}

	if cell.Type.Is(types.Int) && operand.Type.Is(types.Int) {
		if op != ast.Divide {
			return intResult(op, cell.Int, operand.Int), nil
		}
		if operand.Int == 0 {
			return nil, m.errorf(diag.InvalidValue, s.Right.GetPos(), "Division by zero")
		}
		return intQuotient(op, cell.Int, operand.Int), nil
	}

	a, _ := cell.Number()
	b, _ := operand.Number()
	return NewNumber(floatArithmetic(op, a, b)), nil
}

// describe names a value in diagnostics.
func describe(v *Value) string {
	if v.Name != "" {
		return "'" + v.Name + "'"
	}
	return "of type " + v.Type.String()
}
