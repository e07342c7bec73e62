// Package ast defines the program tree the Betic evaluator consumes.
//
// Trees are produced by an external front end. Every statement and
// expression carries the source position it was parsed from.
package ast

import (
	"betic-lang/internal/span"
	"betic-lang/internal/types"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all tree nodes.
type Node interface {
	nodeNode()
	GetPos() span.Position
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Pos field for all nodes.
type NodeBase struct {
	Pos span.Position
}

func (n NodeBase) nodeNode()             {}
func (n NodeBase) GetPos() span.Position { return n.Pos }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Program (tree root)
// ============================================================

// Program is one parsed program unit.
type Program struct {
	Imports    []*Import
	Statements []Stmt
}

// Import is an import declaration: `use "source"`.
type Import struct {
	Pos    span.Position
	Source string
}

// Block is a statement list with an optional provides (return) expression.
type Block struct {
	Stmts    []Stmt
	Provides *Provides // nil when the block provides nothing
}

// Provides is a callable's declared return-value expression.
type Provides struct {
	Pos   span.Position
	Value Expr
}

// ============================================================
// Statements
// ============================================================

// VarDefStmt binds a new name in the current frame.
// Function and micro definitions are desugared into this node.
type VarDefStmt struct {
	StmtBase
	Name     string
	Constant bool
	Expected bool
	Value    Expr
}

// TypeDefStmt registers a named struct type.
type TypeDefStmt struct {
	StmtBase
	Name   string
	Fields []types.Field
}

// ForStmt iterates Placeholder over 0..Range-1.
type ForStmt struct {
	StmtBase
	Placeholder string
	Range       Expr
	Body        *Block
}

// IfStmt represents an if/elif/else chain.
type IfStmt struct {
	StmtBase
	Condition Expr
	Body      *Block
	Elifs     []ElifClause
	Else      *Block // may be nil
}

// ElifClause is a single elif branch.
type ElifClause struct {
	Pos       span.Position
	Condition Expr
	Body      *Block
}

// AssignStmt overwrites an existing value in place: left = right.
type AssignStmt struct {
	StmtBase
	Left  Expr
	Right Expr
}

// ModifierOp names a quantity modifier.
type ModifierOp string

const (
	Increment ModifierOp = "increment"
	Decrement ModifierOp = "decrement"
	AddTo     ModifierOp = "add"
	SubFrom   ModifierOp = "subtract"
	MulBy     ModifierOp = "multiply"
	DivBy     ModifierOp = "divide"
)

// ModifierStmt is ++, --, +=, -=, *= or /=.
type ModifierStmt struct {
	StmtBase
	Op     ModifierOp
	Target Expr
	Right  Expr // nil for ++ and --
}

// ReservedStmt is a recognized statement form the evaluator executes as a
// no-op: comments, macro definitions, switch statements and try/catch blocks.
type ReservedStmt struct {
	StmtBase
	Operation string
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// ============================================================
// Expressions
// ============================================================

// ArithOp names an arithmetic operator.
type ArithOp string

const (
	Add      ArithOp = "addition"
	Subtract ArithOp = "subtraction"
	Multiply ArithOp = "multiplication"
	Divide   ArithOp = "division"
	Modulus  ArithOp = "modulus"
	Exponent ArithOp = "exponent"
	Root     ArithOp = "root"
)

// ArithmeticExpr is a binary arithmetic operation.
type ArithmeticExpr struct {
	ExprBase
	Op    ArithOp
	Left  Expr
	Right Expr
}

// CondOp names a condition operator.
type CondOp string

const (
	And                  CondOp = "and"
	Or                   CondOp = "or"
	Nand                 CondOp = "nand"
	Nor                  CondOp = "nor"
	Equals               CondOp = "equals"
	NotEquals            CondOp = "not_equals"
	LessThan             CondOp = "less_than"
	GreaterThan          CondOp = "greater_than"
	LessThanEquals       CondOp = "less_than_equals"
	GreaterThanEquals    CondOp = "greater_than_equals"
	NotLessThan          CondOp = "not_less_than"
	NotGreaterThan       CondOp = "not_greater_than"
	NotLessThanEquals    CondOp = "not_less_than_equals"
	NotGreaterThanEquals CondOp = "not_greater_than_equals"
)

// ConditionExpr is a boolean connective, equality or relational comparison.
type ConditionExpr struct {
	ExprBase
	Op    CondOp
	Left  Expr
	Right Expr
}

// MapGetterExpr evaluates Right inside the fields of the struct or map Left: a.b
type MapGetterExpr struct {
	ExprBase
	Left  Expr
	Right Expr
}

// ListGetterExpr indexes a list, map or string by a computed index: a[i]
type ListGetterExpr struct {
	ExprBase
	Source Expr
	Index  Expr
}

// CallExpr calls a Function value: f(a, b).
type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []Expr
}

// MicroCallExpr calls a Micro value with its single argument.
type MicroCallExpr struct {
	ExprBase
	Callee Expr
	Arg    Expr
}

// RefExpr is a name reference.
type RefExpr struct {
	ExprBase
	Name string
}

// ReservedExpr is a recognized expression form that evaluates to none
// (macro calls and manual casts).
type ReservedExpr struct {
	ExprBase
	Operation string
}

// ScalarLiteral is an Int, Byte, Double, Boolean, String or None literal.
// Raw holds the literal text as delivered by the front end.
type ScalarLiteral struct {
	ExprBase
	Type types.Type
	Raw  string
}

// ListLiteral is a typed list literal.
type ListLiteral struct {
	ExprBase
	Type     types.Type
	Elements []Expr
}

// Entry is a key/value pair in a map or struct literal.
type Entry struct {
	Pos   span.Position
	Key   string
	Value Expr
}

// MapLiteral is a typed map literal.
type MapLiteral struct {
	ExprBase
	Type    types.Type
	Entries []Entry
}

// StructLiteral constructs a value of a user-defined type.
type StructLiteral struct {
	ExprBase
	Type    types.Type
	Entries []Entry
}

// FuncLiteral is a Function closure literal.
type FuncLiteral struct {
	ExprBase
	Return types.Type
	Params []types.Field
	Body   *Block
}

// MicroLiteral is a Micro closure literal with exactly one parameter.
type MicroLiteral struct {
	ExprBase
	Return    types.Type
	Prototype types.Field
	Body      *Block
}

// ============================================================
// Desugaring constructors
// ============================================================

// FuncDef builds the variable definition a function definition stands for.
func FuncDef(pos span.Position, name string, ret types.Type, params []types.Field, body *Block) *VarDefStmt {
	lit := &FuncLiteral{Return: ret, Params: params, Body: body}
	lit.Pos = pos
	def := &VarDefStmt{Name: name, Value: lit}
	def.Pos = pos
	return def
}

// MicroDef builds the variable definition a micro definition stands for.
func MicroDef(pos span.Position, name string, ret types.Type, proto types.Field, body *Block) *VarDefStmt {
	lit := &MicroLiteral{Return: ret, Prototype: proto, Body: body}
	lit.Pos = pos
	def := &VarDefStmt{Name: name, Value: lit}
	def.Pos = pos
	return def
}
