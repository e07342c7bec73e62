package ast

import (
	"betic-lang/internal/span"
	"betic-lang/internal/types"
)

// ProgramToMap converts a program to its wire form (the shape FromMap accepts).
func ProgramToMap(p *Program) map[string]interface{} {
	imports := make([]interface{}, len(p.Imports))
	for i, im := range p.Imports {
		imports[i] = map[string]interface{}{
			"source":   map[string]interface{}{"value": im.Source},
			"position": posToMap(im.Pos),
		}
	}
	return map[string]interface{}{
		"imports": imports,
		"program": stmtSlice(p.Statements),
	}
}

// NodeToMap converts a node to a map suitable for JSON serialization.
// Every node carries an "operation" tag and a "position".
// Function and micro definitions come out in their desugared form.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	// ---- Statements ----
	case *VarDefStmt:
		return m("variable_definition", n.Pos,
			"name", n.Name,
			"constant", n.Constant,
			"expected", n.Expected,
			"value", NodeToMap(n.Value))
	case *TypeDefStmt:
		return m("type_definition", n.Pos, "name", n.Name, "body", fieldSlice(n.Fields))
	case *ForStmt:
		return m("for_statement", n.Pos,
			"placeholder", n.Placeholder,
			"statement", NodeToMap(n.Range),
			"body", blockToMap(n.Body))
	case *IfStmt:
		elifs := make([]interface{}, len(n.Elifs))
		for i, ei := range n.Elifs {
			elifs[i] = map[string]interface{}{
				"position":  posToMap(ei.Pos),
				"condition": NodeToMap(ei.Condition),
				"body":      blockToMap(ei.Body),
			}
		}
		result := m("if_statement", n.Pos,
			"condition", NodeToMap(n.Condition),
			"body", blockToMap(n.Body),
			"elifs", elifs)
		if n.Else != nil {
			result["else"] = blockToMap(n.Else)
		} else {
			result["else"] = nil
		}
		return result
	case *AssignStmt:
		return m("assign_statement", n.Pos, "left", NodeToMap(n.Left), "right", NodeToMap(n.Right))
	case *ModifierStmt:
		result := m("quantity_modifier", n.Pos, "type", string(n.Op), "statement", NodeToMap(n.Target))
		if n.Right != nil {
			result["right"] = NodeToMap(n.Right)
		}
		return result
	case *ReservedStmt:
		return m(n.Operation, n.Pos)
	case *ExprStmt:
		return NodeToMap(n.Expr)

	// ---- Expressions ----
	case *ArithmeticExpr:
		return m("arithmetic", n.Pos, "type", string(n.Op), "left", NodeToMap(n.Left), "right", NodeToMap(n.Right))
	case *ConditionExpr:
		return m("condition", n.Pos, "type", string(n.Op), "left", NodeToMap(n.Left), "right", NodeToMap(n.Right))
	case *MapGetterExpr:
		return m("map_value_getter", n.Pos, "left", NodeToMap(n.Left), "right", NodeToMap(n.Right))
	case *ListGetterExpr:
		return m("list_value_getter", n.Pos, "source", NodeToMap(n.Source), "index", NodeToMap(n.Index))
	case *CallExpr:
		return m("function_call", n.Pos, "name", NodeToMap(n.Callee), "arguments", exprSlice(n.Args))
	case *MicroCallExpr:
		return m("micro_call", n.Pos, "name", NodeToMap(n.Callee), "arguments", exprSlice([]Expr{n.Arg}))
	case *RefExpr:
		return m("reference", n.Pos, "value", n.Name)
	case *ReservedExpr:
		return m(n.Operation, n.Pos)
	case *ScalarLiteral:
		return m("primitive", n.Pos, "type", typeToMap(n.Type), "value", n.Raw)
	case *ListLiteral:
		return m("primitive", n.Pos, "type", typeToMap(n.Type), "value", exprSlice(n.Elements))
	case *MapLiteral:
		return m("primitive", n.Pos, "type", typeToMap(n.Type), "value", entrySlice(n.Entries))
	case *StructLiteral:
		return m("primitive", n.Pos, "type", typeToMap(n.Type), "value", entrySlice(n.Entries))
	case *FuncLiteral:
		return m("primitive", n.Pos,
			"type", typeToMap(types.Of(types.Function, n.Return)),
			"arguments", fieldSlice(n.Params),
			"body", blockToMap(n.Body))
	case *MicroLiteral:
		return m("primitive", n.Pos,
			"type", typeToMap(types.Of(types.Micro, n.Return)),
			"prototype", fieldToMap(n.Prototype),
			"body", blockToMap(n.Body))

	default:
		return map[string]interface{}{"operation": "unknown"}
	}
}

// ---- helpers ----

// m builds a map with operation, position, and extra key-value pairs.
func m(operation string, p span.Position, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"operation": operation,
		"position":  posToMap(p),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func posToMap(p span.Position) map[string]interface{} {
	return map[string]interface{}{"line": p.Line, "col": p.Column}
}

func typeToMap(t types.Type) map[string]interface{} {
	result := map[string]interface{}{"base": t.Base}
	if t.Of != nil {
		result["of"] = typeToMap(*t.Of)
	}
	return result
}

func fieldToMap(f types.Field) map[string]interface{} {
	return map[string]interface{}{
		"type":     typeToMap(f.Type),
		"value":    f.Name,
		"optional": f.Optional,
	}
}

func fieldSlice(fields []types.Field) []interface{} {
	result := make([]interface{}, len(fields))
	for i, f := range fields {
		result[i] = fieldToMap(f)
	}
	return result
}

func blockToMap(b *Block) map[string]interface{} {
	if b == nil {
		return nil
	}
	result := map[string]interface{}{"block": stmtSlice(b.Stmts), "provides": nil}
	if b.Provides != nil {
		result["provides"] = map[string]interface{}{
			"body":     NodeToMap(b.Provides.Value),
			"position": posToMap(b.Provides.Pos),
		}
	}
	return result
}

func entrySlice(entries []Entry) []interface{} {
	result := make([]interface{}, len(entries))
	for i, e := range entries {
		result[i] = map[string]interface{}{
			"key":      e.Key,
			"value":    NodeToMap(e.Value),
			"position": posToMap(e.Pos),
		}
	}
	return result
}

func stmtSlice(stmts []Stmt) []interface{} {
	result := make([]interface{}, len(stmts))
	for i, s := range stmts {
		result[i] = NodeToMap(s)
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}
