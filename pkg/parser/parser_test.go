package parser

import (
	"strings"
	"testing"

	"github.com/kale-lang/kalec/pkg/ast"
	"github.com/kale-lang/kalec/pkg/kerr"
	"github.com/kale-lang/kalec/pkg/lexer"
)

func newParser(src string) *Parser {
	return New(lexer.New(strings.NewReader(src)))
}

func TestParseTopLevelExprAnonName(t *testing.T) {
	p := newParser("1 + 2*3")
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Proto.Name != ast.AnonExprName {
		t.Errorf("got name %q, want %q", fn.Proto.Name, ast.AnonExprName)
	}
	bin, ok := fn.Body.(*ast.Binary)
	if !ok || bin.Op != '+' {
		t.Fatalf("got %#v, want top-level '+'", fn.Body)
	}
	rhs, ok := bin.RHS.(*ast.Binary)
	if !ok || rhs.Op != '*' {
		t.Fatalf("expected '*' to bind tighter than '+', got %#v", bin.RHS)
	}
}

func TestParseDefinitionSimpleFunction(t *testing.T) {
	p := newParser("def foo(a b) a+b")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Proto.Name != "foo" || len(fn.Proto.ArgNames) != 2 {
		t.Fatalf("got proto %#v", fn.Proto)
	}
}

func TestParseExternPrototype(t *testing.T) {
	p := newParser("extern sin(x)")
	proto, err := p.ParseExtern()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proto.Name != "sin" || len(proto.ArgNames) != 1 {
		t.Fatalf("got proto %#v", proto)
	}
}

func TestParseBinaryOperatorPrototype(t *testing.T) {
	p := newParser("def binary| 5 (LHS RHS) LHS")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Proto.Kind != ast.BinaryOp || fn.Proto.OpChar != '|' || fn.Proto.Precedence != 5 {
		t.Fatalf("got proto %#v", fn.Proto)
	}
	if fn.Proto.OperatorName() != "binary|" {
		t.Errorf("got operator name %q", fn.Proto.OperatorName())
	}
}

func TestParseBinaryOperatorDefaultPrecedence(t *testing.T) {
	p := newParser("def binary> (a b) a")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Proto.Precedence != 30 {
		t.Errorf("got precedence %d, want default 30", fn.Proto.Precedence)
	}
}

func TestParseUnaryOperatorPrototype(t *testing.T) {
	p := newParser("def unary!(v) 0")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn.Proto.Kind != ast.UnaryOp || fn.Proto.Arity() != 1 {
		t.Fatalf("got proto %#v", fn.Proto)
	}
}

func TestOperatorArityMismatch(t *testing.T) {
	p := newParser("def binary| 5 (a) a")
	_, err := p.ParseDefinition()
	assertParseError(t, err, "Invalid number of operands for operator")
}

func TestUserDefinedOperatorParsesAsBinaryAfterRegistration(t *testing.T) {
	p := newParser("1 | 2")
	// Simulate the code generator having registered '|' after a prior
	// definition compiled successfully.
	p.RegisterOperator('|', 5)
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := fn.Body.(*ast.Binary)
	if !ok || bin.Op != '|' {
		t.Fatalf("got %#v, want binary '|'", fn.Body)
	}
}

func TestUnaryOperatorRule(t *testing.T) {
	p := newParser("!1")
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := fn.Body.(*ast.Unary)
	if !ok || u.Op != '!' {
		t.Fatalf("got %#v, want unary '!'", fn.Body)
	}
}

func TestParseCallExpression(t *testing.T) {
	p := newParser("foo(1, 2, x)")
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, ok := fn.Body.(*ast.Call)
	if !ok || call.Callee != "foo" || len(call.Args) != 3 {
		t.Fatalf("got %#v", fn.Body)
	}
}

func TestParseIfExpression(t *testing.T) {
	p := newParser("if x then 1 else 2")
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fn.Body.(*ast.If); !ok {
		t.Fatalf("got %#v", fn.Body)
	}
}

func TestParseForExpressionWithAndWithoutStep(t *testing.T) {
	p := newParser("for i = 1, i < 10 in i")
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forExpr, ok := fn.Body.(*ast.For)
	if !ok || forExpr.Step != nil {
		t.Fatalf("got %#v, want nil step", fn.Body)
	}

	p2 := newParser("for i = 1, i < 10, 2 in i")
	fn2, err := p2.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forExpr2, ok := fn2.Body.(*ast.For)
	if !ok || forExpr2.Step == nil {
		t.Fatalf("got %#v, want explicit step", fn2.Body)
	}
}

func TestParseVarExpressionDefaultsToZero(t *testing.T) {
	p := newParser("var a, b = 5 in a+b")
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := fn.Body.(*ast.Var)
	if !ok || len(v.Decls) != 2 {
		t.Fatalf("got %#v", fn.Body)
	}
	num, ok := v.Decls[0].Init.(*ast.Number)
	if !ok || num.Value != 0.0 {
		t.Fatalf("got default init %#v, want Number(0.0)", v.Decls[0].Init)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(1", "expected ')'"},
		{"foo(1 2)", "Expected ')' or ',' in argument list"},
		{"if 1 1 else 2", "expected then"},
		{"if 1 then 1 2", "expected else"},
		{"for = 1, 2 in 0", "expected identifier after for"},
		{"for i 1, 2 in 0", "expected = after for"},
		{"for i = 1 2 in 0", "expected ',' after for start value"},
		{"for i = 1, 2 0", "expected 'in' after for"},
		{"var in 0", "Expected identifier list after 'var'"},
		{"var a 0", "expected 'in' keyword after 'var'"},
		{"def (a) a", "Expected identifier, 'unary', or 'binary' in ParsePrototype"},
		{"def foo a) a", "Expected '(' in prototype"},
		{"def foo(a a", "Expected ')' in prototype"},
		{")", "unknown token when expecting an expression"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := newParser(tt.src)
			var err error
			if strings.HasPrefix(tt.src, "def ") {
				_, err = p.ParseDefinition()
			} else {
				_, err = p.ParseTopLevelExpr()
			}
			assertParseError(t, err, tt.want)
		})
	}
}

func TestRecoverAdvancesPastOffendingToken(t *testing.T) {
	p := newParser("then 1")
	_, err := p.ParseTopLevelExpr()
	if err == nil {
		t.Fatal("expected an error")
	}
	p.Recover()
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if num, ok := fn.Body.(*ast.Number); !ok || num.Value != 1 {
		t.Fatalf("got %#v, want Number(1)", fn.Body)
	}
}

func assertParseError(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a ParseError %q, got nil", want)
	}
	pe, ok := err.(*kerr.ParseError)
	if !ok {
		t.Fatalf("got error type %T, want *kerr.ParseError", err)
	}
	if pe.Msg != want {
		t.Errorf("got message %q, want %q", pe.Msg, want)
	}
	if !strings.HasPrefix(pe.Error(), "Parse error: ") {
		t.Errorf("got %q, want \"Parse error: \" prefix", pe.Error())
	}
}
