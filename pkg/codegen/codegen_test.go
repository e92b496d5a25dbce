package codegen

import (
	"strings"
	"testing"

	"github.com/kale-lang/kalec/pkg/kerr"
	"github.com/kale-lang/kalec/pkg/lexer"
	"github.com/kale-lang/kalec/pkg/parser"
	"github.com/kale-lang/kalec/pkg/ssair"
)

func newPipeline(src string) (*parser.Parser, *Generator) {
	p := parser.New(lexer.New(strings.NewReader(src)))
	return p, New(p, "test")
}

func genTopLevel(t *testing.T, src string) (*ssair.Function, *Generator, error) {
	t.Helper()
	p, g := newPipeline(src)
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	irFn, err := g.GenFunction(fn)
	return irFn, g, err
}

func TestGenNumberLiteral(t *testing.T) {
	irFn, _, err := genTopLevel(t, "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ret, ok := irFn.Entry().Term.(*ssair.Ret)
	if !ok {
		t.Fatalf("got terminator %#v, want *ssair.Ret", irFn.Entry().Term)
	}
	c, ok := ret.Value.(*ssair.Const)
	if !ok || c.F != 42 {
		t.Fatalf("got %#v, want Const(42)", ret.Value)
	}
}

func TestGenUnknownVariable(t *testing.T) {
	_, _, err := genTopLevel(t, "x")
	assertCodegenError(t, err, "Unknown variable x")
}

func TestGenBinaryArithmeticLowersToFAdd(t *testing.T) {
	irFn, _, err := genTopLevel(t, "1+2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ret := irFn.Entry().Term.(*ssair.Ret)
	bin, ok := ret.Value.(*ssair.BinOp)
	if !ok || bin.Op != ssair.OpFAdd {
		t.Fatalf("got %#v, want FAdd", ret.Value)
	}
}

func TestGenLessThanLowersToCompareAndConvert(t *testing.T) {
	irFn, _, err := genTopLevel(t, "1<2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ret := irFn.Entry().Term.(*ssair.Ret)
	conv, ok := ret.Value.(*ssair.BinOp)
	if !ok || conv.Op != ssair.OpUIToFP {
		t.Fatalf("got %#v, want UIToFP", ret.Value)
	}
	cmp, ok := conv.L.(*ssair.BinOp)
	if !ok || cmp.Op != ssair.OpFCmpULT {
		t.Fatalf("got %#v, want FCmpULT feeding UIToFP", conv.L)
	}
}

func TestGenCallUnknownFunction(t *testing.T) {
	_, _, err := genTopLevel(t, "foo(1)")
	assertCodegenError(t, err, "Unknown function referenced: foo")
}

func TestGenCallArityMismatch(t *testing.T) {
	p, g := newPipeline("extern foo(a b)\nfoo(1)")
	externProto, err := p.ParseExtern()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := g.GenExtern(externProto); err != nil {
		t.Fatalf("unexpected extern error: %v", err)
	}

	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = g.GenFunction(fn)
	assertCodegenError(t, err, "Incorrect # arguments passed")
}

func TestGenIfBuildsFourBlocksWithPhi(t *testing.T) {
	irFn, _, err := genTopLevel(t, "if 1 then 2 else 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(irFn.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4 (entry, then, else, ifcont)", len(irFn.Blocks))
	}
	contBlk := irFn.Blocks[3]
	if len(contBlk.Preds) != 2 {
		t.Errorf("got %d preds on ifcont, want 2", len(contBlk.Preds))
	}
	ret, ok := contBlk.Term.(*ssair.Ret)
	if !ok {
		t.Fatalf("got %#v, want *ssair.Ret", contBlk.Term)
	}
	if _, ok := ret.Value.(*ssair.Phi); !ok {
		t.Errorf("got %#v, want a phi feeding the return", ret.Value)
	}
}

func TestGenForProducesLoopAndAfterloopBlocks(t *testing.T) {
	irFn, _, err := genTopLevel(t, "for i = 1, i < 10 in i")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawLoop, sawAfter bool
	for _, b := range irFn.Blocks {
		if b.Label == "loop" {
			sawLoop = true
		}
		if b.Label == "afterloop" {
			sawAfter = true
		}
	}
	if !sawLoop || !sawAfter {
		t.Fatalf("got blocks %v, want loop and afterloop", blockLabels(irFn))
	}
	ret := irFn.Blocks[len(irFn.Blocks)-1].Term.(*ssair.Ret)
	c, ok := ret.Value.(*ssair.Const)
	if !ok || c.F != 0 {
		t.Fatalf("got %#v, want Const(0.0)", ret.Value)
	}
}

func TestGenVarDefaultsAndSequentialVisibility(t *testing.T) {
	irFn, _, err := genTopLevel(t, "var a, b = a in b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// b's initializer references 'a' from the same var block: this must
	// resolve rather than fail as an unknown variable.
	if irFn.Entry().Term == nil {
		t.Fatal("expected a terminator")
	}
}

func TestGenVarDuplicateNameFails(t *testing.T) {
	_, _, err := genTopLevel(t, "var a, a = 1 in a")
	assertCodegenError(t, err, "redefined variable 'a' in var block")
}

func TestGenAssignRequiresVariableLHS(t *testing.T) {
	_, _, err := genTopLevel(t, "var a in 1 = a")
	assertCodegenError(t, err, "destination of '=' must be a variable")
}

func TestUserDefinedBinaryOperatorRegistersOnSuccess(t *testing.T) {
	p, g := newPipeline("def binary| 5 (a b) a")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := g.GenFunction(fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prec, ok := p.Precedence('|'); !ok || prec != 5 {
		t.Errorf("got (%d, %v), want (5, true)", prec, ok)
	}
}

func TestUserDefinedBinaryOperatorRollsBackOnFailure(t *testing.T) {
	p, g := newPipeline("def binary| 5 (a b) unbound")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	before := len(g.Module().Functions)
	_, err = g.GenFunction(fn)
	assertCodegenError(t, err, "Unknown variable unbound")
	if _, ok := p.Precedence('|'); ok {
		t.Error("expected '|' to be rolled back out of the operator table")
	}
	if len(g.Module().Functions) != before {
		t.Errorf("got %d functions after rollback, want %d (unchanged)", len(g.Module().Functions), before)
	}
}

func TestUserDefinedBinaryOperatorRollbackRestoresPriorPrecedence(t *testing.T) {
	p, g := newPipeline("def binary+ 5 (a b) unbound")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = g.GenFunction(fn)
	assertCodegenError(t, err, "Unknown variable unbound")
	if prec, ok := p.Precedence('+'); !ok || prec != 20 {
		t.Errorf("got (%d, %v), want (20, true): rollback must restore '+' rather than erase it", prec, ok)
	}
}

func TestGetFunctionResolvesAcrossModuleRotation(t *testing.T) {
	p, g := newPipeline("def foo(a) a\nfoo(3)")
	fn, err := p.ParseDefinition()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := g.GenFunction(fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.StealModule() // rotate: 'foo' no longer lives in the active module

	call, err := p.ParseTopLevelExpr()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	irFn, err := g.GenFunction(call)
	if err != nil {
		t.Fatalf("unexpected error resolving foo across rotation: %v", err)
	}
	ret := irFn.Entry().Term.(*ssair.Ret)
	if _, ok := ret.Value.(*ssair.Call); !ok {
		t.Fatalf("got %#v, want a call to the re-materialized foo", ret.Value)
	}
	if !g.Module().Declared["foo"] {
		t.Error("expected foo to be re-declared in the rotated module")
	}
}

func blockLabels(fn *ssair.Function) []string {
	labels := make([]string, len(fn.Blocks))
	for i, b := range fn.Blocks {
		labels[i] = b.Label
	}
	return labels
}

func assertCodegenError(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a CodeGenerationError %q, got nil", want)
	}
	ce, ok := err.(*kerr.CodeGenerationError)
	if !ok {
		t.Fatalf("got error type %T, want *kerr.CodeGenerationError", err)
	}
	if ce.Msg != want {
		t.Errorf("got message %q, want %q", ce.Msg, want)
	}
}
