package runtime

import (
	"context"
	"fmt"

	"betic-lang/internal/ast"
	"betic-lang/internal/diag"
	"betic-lang/internal/span"
	"betic-lang/internal/types"
)

// ============================================================
// Calling conventions
// ============================================================

func (m *Module) evalCall(ctx context.Context, e *ast.CallExpr) (Ref, error) {
	callee, err := m.evalExpr(ctx, e.Callee)
	if err != nil {
		return Ref{}, err
	}
	fn := callee.Value
	if !fn.Type.Is(types.Function) || fn.Fn == nil {
		return Ref{}, m.errorf(diag.InvalidValue, e.Callee.GetPos(),
			"Value of type %s cannot be called as a function", fn.Type)
	}

	args := make([]Ref, 0, len(e.Args))
	for _, a := range e.Args {
		ref, err := m.evalExpr(ctx, a)
		if err != nil {
			return Ref{}, err
		}
		args = append(args, ref)
	}

	bindings, err := m.bindParams(fn.Fn.Params, args, e.Pos)
	if err != nil {
		return Ref{}, err
	}

	name := callName(e.Callee, fn)
	if fn.IsNative() {
		return m.callNative(ctx, name, fn.Fn, args, e.Pos)
	}

	target := m.routeTo(callee)
	res, err := target.invoke(ctx, diag.FunctionCall, name, fn.Fn, bindings)
	if err != nil {
		return Ref{}, err
	}
	return m.relative(target.absolute(res)), nil
}

func (m *Module) evalMicroCall(ctx context.Context, e *ast.MicroCallExpr) (Ref, error) {
	callee, err := m.evalExpr(ctx, e.Callee)
	if err != nil {
		return Ref{}, err
	}
	micro := callee.Value
	if !micro.Type.Is(types.Micro) || micro.Fn == nil {
		return Ref{}, m.errorf(diag.InvalidValue, e.Callee.GetPos(),
			"Value of type %s cannot be called as a micro", micro.Type)
	}

	arg, err := m.evalExpr(ctx, e.Arg)
	if err != nil {
		return Ref{}, err
	}
	proto := micro.Fn.Prototype
	if !types.Compatible(arg.Value.Type, proto.Type) {
		return Ref{}, m.errorf(diag.TypeMismatch, e.Arg.GetPos(),
			"Argument '%s' expects type %s, got %s", proto.Name, proto.Type, arg.Value.Type)
	}

	target := m.routeTo(callee)
	bindings := Frame{proto.Name: m.absolute(arg)}
	res, err := target.invoke(ctx, diag.MicroCall, callName(e.Callee, micro), micro.Fn, bindings)
	if err != nil {
		return Ref{}, err
	}
	return m.relative(target.absolute(res)), nil
}

// routeTo returns the module a callee executes in: the module owning it.
func (m *Module) routeTo(callee Ref) *Module {
	if callee.Owner != nil {
		return callee.Owner
	}
	return m
}

// bindParams validates arguments against declared parameters and builds the
// call frame. Owners in the frame are absolute so the callee may run in
// another module. Omitted optional parameters are bound to none; surplus
// arguments are left to natives.
func (m *Module) bindParams(params []types.Field, args []Ref, pos span.Position) (Frame, error) {
	bindings := make(Frame, len(params))
	for i, p := range params {
		if i >= len(args) {
			if !p.Optional {
				return nil, m.errorf(diag.MissingArgument, pos, "Missing argument '%s' of type %s", p.Name, p.Type)
			}
			bindings[p.Name] = Ref{Value: None()}
			continue
		}
		if !types.Compatible(args[i].Value.Type, p.Type) {
			return nil, m.errorf(diag.TypeMismatch, pos,
				"Argument '%s' expects type %s, got %s", p.Name, p.Type, args[i].Value.Type)
		}
		bindings[p.Name] = m.absolute(args[i])
	}
	return bindings, nil
}

// invoke runs an interpreted body in m: one frame layered over m's current
// frame, the body statements, then the provides expression before the frame
// is popped.
func (m *Module) invoke(ctx context.Context, kind diag.CallKind, name string, fn *Callable, bindings Frame) (Ref, error) {
	m.session.calls.Push(diag.Call{Kind: kind, Name: name, Module: m.Path, Entry: m.entry})
	defer m.session.calls.Pop()

	m.frames.Push(bindings)
	defer m.frames.Pop()

	if err := m.execStmts(ctx, fn.Body.Stmts); err != nil {
		return Ref{}, err
	}
	if fn.Body.Provides == nil {
		return Ref{Value: None()}, nil
	}

	res, err := m.evalExpr(ctx, fn.Body.Provides.Value)
	if err != nil {
		return Ref{}, err
	}
	if !types.Compatible(res.Value.Type, fn.Return) {
		return Ref{}, m.errorf(diag.TypeMismatch, fn.Body.Provides.Pos,
			"Cannot provide type %s from a body returning %s", res.Value.Type, fn.Return)
	}
	return res, nil
}

// callNative hands the evaluated arguments to a host callback. Faults,
// returned or panicked, surface as RuntimeError at the call site.
func (m *Module) callNative(ctx context.Context, name string, fn *Callable, args []Ref, pos span.Position) (res Ref, err error) {
	m.session.calls.Push(diag.Call{Kind: diag.FunctionCall, Name: name, Module: m.Path, Entry: m.entry})
	defer m.session.calls.Pop()

	defer func() {
		if r := recover(); r != nil {
			m.session.log.Warning("Native function ", name, " panicked: ", r)
			res, err = Ref{}, m.errorf(diag.RuntimeError, pos, "%v", r)
		}
	}()

	vals := make([]*Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}

	out, ferr := fn.Native(ctx, m.session.host, vals)
	if ferr != nil {
		if _, ok := ferr.(*diag.Error); ok {
			return Ref{}, ferr
		}
		m.session.log.Debug("Native function ", name, " failed: ", ferr)
		return Ref{}, m.errorf(diag.RuntimeError, pos, "%v", ferr)
	}
	if out == nil {
		out = None()
	}
	return Ref{Value: out}, nil
}

// callName is the name a call shows in the call stack.
func callName(callee ast.Expr, v *Value) string {
	switch c := callee.(type) {
	case *ast.RefExpr:
		return c.Name
	case *ast.MapGetterExpr:
		return fmt.Sprintf("%s.%s", callName(c.Left, &Value{}), callName(c.Right, v))
	}
	if v.Name != "" {
		return v.Name
	}
	return "anonymous"
}
