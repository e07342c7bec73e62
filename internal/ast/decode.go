package ast

import (
	"encoding/json"
	"fmt"
	"strconv"

	"betic-lang/internal/span"
	"betic-lang/internal/types"

	"gopkg.in/yaml.v3"
)

// DecodeError reports a program tree that does not follow the front-end contract.
type DecodeError struct {
	Pos     span.Position
	Message string
}

func (e *DecodeError) Error() string {
	if e.Pos.Known() {
		return fmt.Sprintf("malformed program tree at %s: %s", e.Pos, e.Message)
	}
	return "malformed program tree: " + e.Message
}

// DecodeJSON decodes a program tree from its JSON wire form.
func DecodeJSON(data []byte) (*Program, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	return FromMap(raw)
}

// DecodeYAML decodes a program tree written as YAML (same shape as the JSON form).
func DecodeYAML(data []byte) (*Program, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	return FromMap(raw)
}

// FromMap builds a Program from a generic decoded document.
func FromMap(raw interface{}) (*Program, error) {
	d := &decoder{}
	prog := d.program(raw)
	if d.err != nil {
		return nil, d.err
	}
	return prog, nil
}

// decoder keeps the first error; later calls become no-ops returning zero values.
type decoder struct {
	err *DecodeError
}

func (d *decoder) fail(pos span.Position, format string, args ...interface{}) {
	if d.err == nil {
		d.err = &DecodeError{Pos: pos, Message: fmt.Sprintf(format, args...)}
	}
}

func (d *decoder) program(raw interface{}) *Program {
	m := d.object(raw, span.Unknown, "program")
	if m == nil {
		return nil
	}
	prog := &Program{}
	for _, item := range d.list(m["imports"]) {
		im := d.object(item, span.Unknown, "import")
		if im == nil {
			return nil
		}
		pos := d.pos(im)
		src := d.source(im["source"], pos)
		prog.Imports = append(prog.Imports, &Import{Pos: pos, Source: src})
	}
	prog.Statements = d.stmts(m["program"])
	return prog
}

func (d *decoder) source(v interface{}, pos span.Position) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		d.fail(pos, "import without source")
		return ""
	default:
		m := d.object(v, pos, "import source")
		if m == nil {
			return ""
		}
		return d.str(m, "value", pos)
	}
}

func (d *decoder) stmts(v interface{}) []Stmt {
	items := d.list(v)
	out := make([]Stmt, 0, len(items))
	for _, item := range items {
		s := d.stmt(item)
		if d.err != nil {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) stmt(v interface{}) Stmt {
	m := d.object(v, span.Unknown, "statement")
	if m == nil {
		return nil
	}
	pos := d.pos(m)
	op := d.str(m, "operation", pos)
	base := StmtBase{NodeBase{Pos: pos}}

	switch op {
	case "variable_definition":
		return &VarDefStmt{
			StmtBase: base,
			Name:     d.str(m, "name", pos),
			Constant: d.boolean(m, "constant"),
			Expected: d.boolean(m, "expected"),
			Value:    d.expr(m["value"]),
		}
	case "type_definition":
		return &TypeDefStmt{
			StmtBase: base,
			Name:     d.str(m, "name", pos),
			Fields:   d.fields(m["body"], pos),
		}
	case "function_definition":
		return FuncDef(pos, d.str(m, "name", pos), d.typ(m["type"], pos),
			d.fields(m["arguments"], pos), d.block(m["body"], pos))
	case "micro_definition":
		return MicroDef(pos, d.str(m, "name", pos), d.typ(m["type"], pos),
			d.field(m["prototype"], pos), d.block(m["body"], pos))
	case "for_statement":
		return &ForStmt{
			StmtBase:    base,
			Placeholder: d.str(m, "placeholder", pos),
			Range:       d.expr(m["statement"]),
			Body:        d.block(m["body"], pos),
		}
	case "if_statement":
		s := &IfStmt{
			StmtBase:  base,
			Condition: d.expr(m["condition"]),
			Body:      d.block(m["body"], pos),
		}
		for _, item := range d.list(m["elifs"]) {
			em := d.object(item, pos, "elif")
			if em == nil {
				return nil
			}
			epos := d.pos(em)
			s.Elifs = append(s.Elifs, ElifClause{
				Pos:       epos,
				Condition: d.expr(em["condition"]),
				Body:      d.block(em["body"], epos),
			})
		}
		if m["else"] != nil {
			s.Else = d.block(m["else"], pos)
		}
		return s
	case "assign_statement":
		return &AssignStmt{StmtBase: base, Left: d.expr(m["left"]), Right: d.expr(m["right"])}
	case "quantity_modifier":
		s := &ModifierStmt{
			StmtBase: base,
			Op:       ModifierOp(d.str(m, "type", pos)),
			Target:   d.expr(m["statement"]),
		}
		switch s.Op {
		case Increment, Decrement:
		case AddTo, SubFrom, MulBy, DivBy:
			s.Right = d.expr(m["right"])
		default:
			d.fail(pos, "unknown quantity modifier %q", s.Op)
		}
		return s
	case "macro_definition", "switch_statement", "try_catch_block", "comment":
		return &ReservedStmt{StmtBase: base, Operation: op}
	default:
		return &ExprStmt{StmtBase: base, Expr: d.exprFrom(m, pos, op)}
	}
}

func (d *decoder) expr(v interface{}) Expr {
	m := d.object(v, span.Unknown, "expression")
	if m == nil {
		return nil
	}
	pos := d.pos(m)
	return d.exprFrom(m, pos, d.str(m, "operation", pos))
}

func (d *decoder) exprs(v interface{}) []Expr {
	items := d.list(v)
	out := make([]Expr, 0, len(items))
	for _, item := range items {
		out = append(out, d.expr(item))
	}
	return out
}

func (d *decoder) exprFrom(m map[string]interface{}, pos span.Position, op string) Expr {
	if d.err != nil {
		return nil
	}
	base := ExprBase{NodeBase{Pos: pos}}

	switch op {
	case "arithmetic":
		e := &ArithmeticExpr{ExprBase: base, Op: ArithOp(d.str(m, "type", pos)), Left: d.expr(m["left"]), Right: d.expr(m["right"])}
		switch e.Op {
		case Add, Subtract, Multiply, Divide, Modulus, Exponent, Root:
		default:
			d.fail(pos, "unknown arithmetic operator %q", e.Op)
		}
		return e
	case "condition":
		e := &ConditionExpr{ExprBase: base, Op: CondOp(d.str(m, "type", pos)), Left: d.expr(m["left"]), Right: d.expr(m["right"])}
		switch e.Op {
		case And, Or, Nand, Nor, Equals, NotEquals, LessThan, GreaterThan, LessThanEquals,
			GreaterThanEquals, NotLessThan, NotGreaterThan, NotLessThanEquals, NotGreaterThanEquals:
		default:
			d.fail(pos, "unknown condition operator %q", e.Op)
		}
		return e
	case "map_value_getter":
		return &MapGetterExpr{ExprBase: base, Left: d.expr(m["left"]), Right: d.expr(m["right"])}
	case "list_value_getter":
		return &ListGetterExpr{ExprBase: base, Source: d.expr(m["source"]), Index: d.expr(m["index"])}
	case "function_call":
		return &CallExpr{ExprBase: base, Callee: d.expr(m["name"]), Args: d.exprs(m["arguments"])}
	case "micro_call":
		args := d.exprs(m["arguments"])
		if len(args) != 1 {
			d.fail(pos, "micro call takes exactly one argument, got %d", len(args))
			return nil
		}
		return &MicroCallExpr{ExprBase: base, Callee: d.expr(m["name"]), Arg: args[0]}
	case "reference":
		return &RefExpr{ExprBase: base, Name: d.str(m, "value", pos)}
	case "macro_call", "manuel_cast":
		return &ReservedExpr{ExprBase: base, Operation: op}
	case "primitive":
		return d.primitive(m, base)
	default:
		d.fail(pos, "unknown operation %q", op)
		return nil
	}
}

func (d *decoder) primitive(m map[string]interface{}, base ExprBase) Expr {
	pos := base.Pos
	t := d.typ(m["type"], pos)

	switch t.Base {
	case types.Int, types.Byte, types.Double, types.Boolean, types.String:
		return &ScalarLiteral{ExprBase: base, Type: t, Raw: d.scalar(m["value"], pos)}
	case types.None:
		return &ScalarLiteral{ExprBase: base, Type: t, Raw: "none"}
	case types.List:
		return &ListLiteral{ExprBase: base, Type: t, Elements: d.exprs(m["value"])}
	case types.Map:
		return &MapLiteral{ExprBase: base, Type: t, Entries: d.entries(m["value"], pos)}
	case types.Function:
		return &FuncLiteral{
			ExprBase: base,
			Return:   t.Elem(),
			Params:   d.fields(m["arguments"], pos),
			Body:     d.block(m["body"], pos),
		}
	case types.Micro:
		return &MicroLiteral{
			ExprBase:  base,
			Return:    t.Elem(),
			Prototype: d.field(m["prototype"], pos),
			Body:      d.block(m["body"], pos),
		}
	default:
		return &StructLiteral{ExprBase: base, Type: t, Entries: d.entries(m["value"], pos)}
	}
}

func (d *decoder) entries(v interface{}, pos span.Position) []Entry {
	items := d.list(v)
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		em := d.object(item, pos, "entry")
		if em == nil {
			return nil
		}
		epos := d.pos(em)
		if !epos.Known() {
			epos = pos
		}
		out = append(out, Entry{Pos: epos, Key: d.str(em, "key", epos), Value: d.expr(em["value"])})
	}
	return out
}

func (d *decoder) block(v interface{}, pos span.Position) *Block {
	m := d.object(v, pos, "block")
	if m == nil {
		return &Block{}
	}
	b := &Block{Stmts: d.stmts(m["block"])}
	if pm, ok := asMap(m["provides"]); ok {
		ppos := d.pos(pm)
		if !ppos.Known() {
			ppos = pos
		}
		b.Provides = &Provides{Pos: ppos, Value: d.expr(pm["body"])}
	}
	return b
}

func (d *decoder) typ(v interface{}, pos span.Position) types.Type {
	m := d.object(v, pos, "type")
	if m == nil {
		return types.Type{}
	}
	t := types.Type{Base: d.str(m, "base", pos)}
	if m["of"] != nil {
		of := d.typ(m["of"], pos)
		t.Of = &of
	}
	return t
}

func (d *decoder) field(v interface{}, pos span.Position) types.Field {
	m := d.object(v, pos, "field")
	if m == nil {
		return types.Field{}
	}
	return types.Field{
		Type:     d.typ(m["type"], pos),
		Name:     d.str(m, "value", pos),
		Optional: d.boolean(m, "optional"),
	}
}

func (d *decoder) fields(v interface{}, pos span.Position) []types.Field {
	items := d.list(v)
	out := make([]types.Field, 0, len(items))
	for _, item := range items {
		out = append(out, d.field(item, pos))
	}
	return out
}

// ---- generic document helpers ----

func (d *decoder) object(v interface{}, pos span.Position, what string) map[string]interface{} {
	if d.err != nil {
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		d.fail(pos, "expected %s object, got %T", what, v)
		return nil
	}
	return m
}

func (d *decoder) list(v interface{}) []interface{} {
	if l, ok := v.([]interface{}); ok {
		return l
	}
	return nil
}

func (d *decoder) str(m map[string]interface{}, key string, pos span.Position) string {
	s, ok := m[key].(string)
	if !ok {
		d.fail(pos, "missing string field %q", key)
	}
	return s
}

func (d *decoder) boolean(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func (d *decoder) scalar(v interface{}, pos span.Position) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		d.fail(pos, "unsupported literal value %v", v)
		return ""
	}
}

func (d *decoder) pos(m map[string]interface{}) span.Position {
	pm, ok := asMap(m["position"])
	if !ok {
		return span.Unknown
	}
	return span.Position{Line: asInt(pm["line"]), Column: asInt(pm["col"])}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
