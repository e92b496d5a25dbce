// Package ast defines K's abstract syntax tree.
//
// Design: a closed sum type over expression variants, each carrying its
// own source location for debug info, in the shape of the teacher's
// frontend AST (a Node marker interface with per-kind marker methods)
// generalized from Typthon's statement/expression split to K's
// expression-only grammar (spec.md §3).
package ast

import "github.com/kale-lang/kalec/pkg/token"

// Expr is the closed set of K expression variants. The marker method is
// unexported so no type outside this package can implement Expr,
// keeping the type switch in pkg/codegen exhaustive.
type Expr interface {
	Location() token.Location
	exprNode()
}

// base carries the source location shared by every Expr variant.
type base struct {
	Loc token.Location
}

func (b base) Location() token.Location { return b.Loc }

// Number is a floating-point literal.
type Number struct {
	base
	Value float64
}

func (Number) exprNode() {}

// NewNumber constructs a Number expression at loc.
func NewNumber(loc token.Location, value float64) *Number {
	return &Number{base: base{Loc: loc}, Value: value}
}

// Variable references a named binding.
type Variable struct {
	base
	Name string
}

func (Variable) exprNode() {}

func NewVariable(loc token.Location, name string) *Variable {
	return &Variable{base: base{Loc: loc}, Name: name}
}

// Unary applies a user-defined prefix operator to Operand.
type Unary struct {
	base
	Op      byte
	Operand Expr
}

func (Unary) exprNode() {}

func NewUnary(loc token.Location, op byte, operand Expr) *Unary {
	return &Unary{base: base{Loc: loc}, Op: op, Operand: operand}
}

// Binary applies a (possibly user-defined) infix operator.
type Binary struct {
	base
	Op       byte
	LHS, RHS Expr
}

func (Binary) exprNode() {}

func NewBinary(loc token.Location, op byte, lhs, rhs Expr) *Binary {
	return &Binary{base: base{Loc: loc}, Op: op, LHS: lhs, RHS: rhs}
}

// Call invokes a named function with an ordered argument list.
type Call struct {
	base
	Callee string
	Args   []Expr
}

func (Call) exprNode() {}

func NewCall(loc token.Location, callee string, args []Expr) *Call {
	return &Call{base: base{Loc: loc}, Callee: callee, Args: args}
}

// If evaluates Cond, then Then or Else depending on whether Cond != 0.
type If struct {
	base
	Cond, Then, Else Expr
}

func (If) exprNode() {}

func NewIf(loc token.Location, cond, then, els Expr) *If {
	return &If{base: base{Loc: loc}, Cond: cond, Then: then, Else: els}
}

// For is a counted loop: VarName ranges from Start to End (exclusive of
// the terminating condition failing), advancing by Step (default 1.0)
// each iteration, evaluating Body at least once (do-while semantics —
// spec.md §9).
type For struct {
	base
	VarName    string
	Start, End Expr
	Step       Expr // nil when omitted; codegen supplies the constant 1.0
	Body       Expr
}

func (For) exprNode() {}

func NewFor(loc token.Location, varName string, start, end, step, body Expr) *For {
	return &For{base: base{Loc: loc}, VarName: varName, Start: start, End: end, Step: step, Body: body}
}

// VarDecl is one binding introduced by a Var expression.
type VarDecl struct {
	Name string
	Init Expr // never nil: defaults to Number(0.0) at the decl's location when '=' is omitted
}

// Var opens a new lexical scope, binds each Decl in order, evaluates
// Body within that scope, and yields Body's value.
type Var struct {
	base
	Decls []VarDecl
	Body  Expr
}

func (Var) exprNode() {}

func NewVar(loc token.Location, decls []VarDecl, body Expr) *Var {
	return &Var{base: base{Loc: loc}, Decls: decls, Body: body}
}

// PrototypeKind distinguishes an ordinary function from a user-defined
// unary or binary operator.
type PrototypeKind int

const (
	KindFunction PrototypeKind = iota
	UnaryOp
	BinaryOp
)

// Prototype is a function's name, argument names, and (for operators)
// arity and precedence; it carries no body.
type Prototype struct {
	Loc        token.Location
	Name       string
	ArgNames   []string
	Kind       PrototypeKind
	OpChar     byte // valid when Kind != KindFunction: the operator character
	Precedence int  // valid when Kind == BinaryOp
}

// OperatorName returns the parser-visible name for a unary/binary
// operator prototype ("unary" + op or "binary" + op), matching
// spec.md §3's naming rule.
func (p *Prototype) OperatorName() string {
	switch p.Kind {
	case UnaryOp:
		return "unary" + string(p.OpChar)
	case BinaryOp:
		return "binary" + string(p.OpChar)
	default:
		return p.Name
	}
}

// Arity is the number of arguments the prototype's kind requires.
func (p *Prototype) Arity() int {
	switch p.Kind {
	case UnaryOp:
		return 1
	case BinaryOp:
		return 2
	default:
		return len(p.ArgNames)
	}
}

// Function is a top-level definition: a Prototype plus its body.
type Function struct {
	Proto *Prototype
	Body  Expr
}

// AnonExprName is the sentinel name synthesized for a bare top-level
// expression wrapped as a Function, per spec.md §4.2.
const AnonExprName = "__anon_expr"
