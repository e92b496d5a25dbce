// Package codegen lowers K's AST to pkg/ssair, per spec.md §4.3.
//
// Design: a Builder-shaped visitor holding currentFn/currentBl-style
// state (the teacher's pkg/ir.Builder pattern), generalized from
// Typthon's statement-oriented three-address lowering to K's
// expression-oriented SSA lowering — every construct here returns a
// value, including control flow (`if` and `for` yield a value, matching
// spec.md §4.3's contract that CodeGenerator is "a visitor over Expr
// that returns an SSA value handle per expression").
package codegen

import (
	"github.com/kale-lang/kalec/pkg/ast"
	"github.com/kale-lang/kalec/pkg/debuginfo"
	"github.com/kale-lang/kalec/pkg/kerr"
	"github.com/kale-lang/kalec/pkg/klog"
	"github.com/kale-lang/kalec/pkg/parser"
	"github.com/kale-lang/kalec/pkg/scope"
	"github.com/kale-lang/kalec/pkg/ssair"
	"github.com/kale-lang/kalec/pkg/token"
)

// Generator owns the single active IR module, its builder, its debug
// info, the active scope pointer, and the FunctionProtos table —
// exactly the state spec.md §3's "CodeGenerator state" names. One
// Generator drives one Parser for the lifetime of a compilation
// session, since RegisterOperator/RestoreOperator calls must reach the
// same operator table the parser reads from.
type Generator struct {
	p          *parser.Parser
	moduleName string

	module  *ssair.Module
	builder *ssair.Builder
	debug   *debuginfo.Info
	scopes  scope.Stack[*ssair.Alloca]

	// protos is spec.md's FunctionProtos: name -> Prototype, persisting
	// across module rotations so a re-materialized module can still
	// resolve calls to functions defined in an earlier module.
	protos map[string]*ast.Prototype
}

// New creates a Generator whose emitted operator registrations and
// rollbacks are applied to p, and whose first module is named
// moduleName.
func New(p *parser.Parser, moduleName string) *Generator {
	g := &Generator{p: p, moduleName: moduleName, protos: make(map[string]*ast.Prototype)}
	g.rotate()
	return g
}

func (g *Generator) rotate() {
	g.module = ssair.NewModule(g.moduleName)
	g.builder = ssair.NewBuilder()
	g.debug = debuginfo.New(g.moduleName)
}

// Module returns the currently active module without transferring
// ownership (tests and callers that only need to inspect the in-flight
// module use this; StealModule is for rotation).
func (g *Generator) Module() *ssair.Module { return g.module }

// StealModule finalizes the current module's debug info and hands it to
// the caller, installing a fresh empty module/builder/debug-info triple
// so subsequent generation starts clean. FunctionProtos and the
// parser's operator table persist across the rotation, per spec.md
// §4.3's finalizeModule/stealModule contract.
func (g *Generator) StealModule() *ssair.Module {
	g.debug.Finalize()
	mod := g.module
	g.rotate()
	klog.ModuleRotated(mod.Name)
	return mod
}

// declareInModule materializes proto as a parameter-only (bodyless)
// function declaration in the active module.
func (g *Generator) declareInModule(proto *ast.Prototype) *ssair.Function {
	name := proto.OperatorName()
	fn := &ssair.Function{Name: name, ParamNames: append([]string(nil), proto.ArgNames...)}
	g.module.Functions = append(g.module.Functions, fn)
	g.module.Declared[name] = true
	return fn
}

// resolveFunction returns the function named name in the active
// module, materializing it from FunctionProtos if it was defined in an
// earlier (already-rotated) module, or nil if name is unknown
// altogether. This is what lets a JIT driver rotate modules after each
// definition while references to earlier definitions keep resolving
// (spec.md §4.3).
func (g *Generator) resolveFunction(name string) *ssair.Function {
	if fn := g.module.FindFunction(name); fn != nil {
		return fn
	}
	if proto, ok := g.protos[name]; ok {
		return g.declareInModule(proto)
	}
	return nil
}

// getFunction is resolveFunction with spec.md §4.3's msgTemplate
// ("%s" filled with name) failure contract, used by Call lowering.
func (g *Generator) getFunction(name string, msgTemplate string, loc token.Location) (*ssair.Function, error) {
	if fn := g.resolveFunction(name); fn != nil {
		return fn, nil
	}
	return nil, kerr.NewCodegenf(loc, msgTemplate, name)
}

func (g *Generator) eraseFunction(fn *ssair.Function) {
	fns := g.module.Functions
	for i, f := range fns {
		if f == fn {
			g.module.Functions = append(fns[:i], fns[i+1:]...)
			return
		}
	}
}

// GenExtern lowers an `extern` prototype: registers it in FunctionProtos
// for later re-materialization and declares it in the active module.
func (g *Generator) GenExtern(proto *ast.Prototype) (*ssair.Function, error) {
	name := proto.OperatorName()
	if _, exists := g.protos[name]; exists {
		klog.Warn("redeclaring existing prototype", "name", name)
	}
	g.protos[name] = proto
	klog.Codegen(name, 0)
	return g.declareInModule(proto), nil
}

// GenFunction lowers a full `def` — prototype plus body — per spec.md
// §4.3's Function contract, including the operator-table
// register/rollback dance for user-defined binary operators.
func (g *Generator) GenFunction(fn *ast.Function) (*ssair.Function, error) {
	proto := fn.Proto
	name := proto.OperatorName()
	if _, exists := g.protos[name]; exists && name != g.p.AnonExprName {
		klog.Warn("redefining existing function", "name", name)
	}
	g.protos[name] = proto

	irFn := &ssair.Function{Name: name, ParamNames: append([]string(nil), proto.ArgNames...)}
	g.module.Functions = append(g.module.Functions, irFn)

	var prevPrec int
	var hadPrevPrec bool
	if proto.Kind == ast.BinaryOp {
		prevPrec, hadPrevPrec = g.p.RegisterOperator(proto.OpChar, proto.Precedence)
	}

	fail := func(err error) (*ssair.Function, error) {
		if proto.Kind == ast.BinaryOp {
			g.p.RestoreOperator(proto.OpChar, prevPrec, hadPrevPrec)
		}
		g.eraseFunction(irFn)
		return nil, err
	}

	g.builder.SetFunction(irFn)
	entry := g.builder.NewBlock("entry")
	g.builder.SetInsertPoint(entry)

	dbgGuard := g.debug.EnterFunction(irFn, proto)
	defer dbgGuard.Close()

	scopeGuard := g.scopes.Push()
	defer scopeGuard.Close()

	for i, argName := range proto.ArgNames {
		slot := g.builder.Alloca(argName)
		g.builder.Store(slot, &ssair.Param{Name: argName})
		g.scopes.Active().TryDeclare(argName, slot)
		g.debug.DeclareParameter(slot, argName, i, proto.Loc)
	}

	g.debug.EmitLocation(fn.Body.Location())
	bodyVal, err := g.genExpr(fn.Body)
	if err != nil {
		return fail(err)
	}
	g.builder.Ret(bodyVal)

	klog.Codegen(name, len(irFn.Blocks))
	return irFn, nil
}

// genExpr is the type-switch visitor at the heart of code generation:
// every Expr variant lowers to exactly one ssair.Value.
func (g *Generator) genExpr(e ast.Expr) (ssair.Value, error) {
	switch expr := e.(type) {
	case *ast.Number:
		return ssair.ConstF64(expr.Value), nil
	case *ast.Variable:
		return g.genVariable(expr)
	case *ast.Unary:
		return g.genUnary(expr)
	case *ast.Binary:
		return g.genBinary(expr)
	case *ast.Call:
		return g.genCall(expr)
	case *ast.If:
		return g.genIf(expr)
	case *ast.For:
		return g.genFor(expr)
	case *ast.Var:
		return g.genVar(expr)
	default:
		return nil, kerr.NewCodegenf(e.Location(), "unhandled expression kind %T", e)
	}
}

func (g *Generator) genVariable(e *ast.Variable) (ssair.Value, error) {
	slot, ok := g.scopes.Active().TryLookup(e.Name)
	if !ok {
		return nil, kerr.NewCodegenf(e.Loc, "Unknown variable %s", e.Name)
	}
	return g.builder.Load(slot), nil
}

func (g *Generator) genUnary(e *ast.Unary) (ssair.Value, error) {
	operand, err := g.genExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	name := "unary" + string(e.Op)
	fn := g.resolveFunction(name)
	if fn == nil {
		return nil, kerr.NewCodegenf(e.Loc, "Unknown unary operator %c", e.Op)
	}
	return g.builder.Call(fn.Name, []ssair.Value{operand}), nil
}

func (g *Generator) genBinary(e *ast.Binary) (ssair.Value, error) {
	if e.Op == '=' {
		return g.genAssign(e)
	}

	lhs, err := g.genExpr(e.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := g.genExpr(e.RHS)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case '+':
		return g.builder.FAdd(lhs, rhs), nil
	case '-':
		return g.builder.FSub(lhs, rhs), nil
	case '*':
		return g.builder.FMul(lhs, rhs), nil
	case '/':
		return g.builder.FDiv(lhs, rhs), nil
	case '<':
		cmp := g.builder.FCmpULT(lhs, rhs)
		return g.builder.UIToFP(cmp), nil
	default:
		name := "binary" + string(e.Op)
		fn := g.resolveFunction(name)
		if fn == nil {
			return nil, kerr.NewCodegenf(e.Loc, "binary operator %c not found!", e.Op)
		}
		return g.builder.Call(fn.Name, []ssair.Value{lhs, rhs}), nil
	}
}

func (g *Generator) genAssign(e *ast.Binary) (ssair.Value, error) {
	v, ok := e.LHS.(*ast.Variable)
	if !ok {
		return nil, kerr.NewCodegen(e.Loc, "destination of '=' must be a variable")
	}
	slot, ok := g.scopes.Active().TryLookup(v.Name)
	if !ok {
		return nil, kerr.NewCodegenf(e.Loc, "Unknown variable %s", v.Name)
	}
	rhs, err := g.genExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	g.builder.Store(slot, rhs)
	return rhs, nil
}

func (g *Generator) genCall(e *ast.Call) (ssair.Value, error) {
	fn, err := g.getFunction(e.Callee, "Unknown function referenced: %s", e.Loc)
	if err != nil {
		return nil, err
	}
	if len(fn.ParamNames) != len(e.Args) {
		return nil, kerr.NewCodegen(e.Loc, "Incorrect # arguments passed")
	}

	args := make([]ssair.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := g.genExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return g.builder.Call(fn.Name, args), nil
}

func (g *Generator) genIf(e *ast.If) (ssair.Value, error) {
	condVal, err := g.genExpr(e.Cond)
	if err != nil {
		return nil, err
	}
	cond := g.builder.FCmpONE(condVal, ssair.ConstF64(0))

	thenBlk := g.builder.NewBlock("then")
	elseBlk := g.builder.NewBlock("else")
	contBlk := g.builder.NewBlock("ifcont")
	g.builder.CondBr(cond, thenBlk, elseBlk)

	g.builder.SetInsertPoint(thenBlk)
	thenVal, err := g.genExpr(e.Then)
	if err != nil {
		return nil, err
	}
	g.builder.Br(contBlk)
	thenEnd := g.builder.InsertBlock()

	g.builder.SetInsertPoint(elseBlk)
	elseVal, err := g.genExpr(e.Else)
	if err != nil {
		return nil, err
	}
	g.builder.Br(contBlk)
	elseEnd := g.builder.InsertBlock()

	g.builder.SetInsertPoint(contBlk)
	phi := g.builder.Phi()
	phi.AddEdge(thenVal, thenEnd)
	phi.AddEdge(elseVal, elseEnd)
	return phi, nil
}

func (g *Generator) genFor(e *ast.For) (ssair.Value, error) {
	startVal, err := g.genExpr(e.Start)
	if err != nil {
		return nil, err
	}

	slot := g.builder.AllocaAt(g.builder.Function().Entry(), e.VarName)
	g.builder.Store(slot, startVal)

	loopBlk := g.builder.NewBlock("loop")
	g.builder.Br(loopBlk)
	g.builder.SetInsertPoint(loopBlk)

	guard := g.scopes.Push()
	defer guard.Close()
	g.scopes.Active().TryDeclare(e.VarName, slot)

	if _, err := g.genExpr(e.Body); err != nil {
		return nil, err
	}

	var stepVal ssair.Value
	if e.Step != nil {
		stepVal, err = g.genExpr(e.Step)
		if err != nil {
			return nil, err
		}
	} else {
		stepVal = ssair.ConstF64(1.0)
	}
	cur := g.builder.Load(slot)
	next := g.builder.FAdd(cur, stepVal)
	g.builder.Store(slot, next)

	endVal, err := g.genExpr(e.End)
	if err != nil {
		return nil, err
	}
	cond := g.builder.FCmpONE(endVal, ssair.ConstF64(0))

	afterBlk := g.builder.NewBlock("afterloop")
	g.builder.CondBr(cond, loopBlk, afterBlk)
	g.builder.SetInsertPoint(afterBlk)

	return ssair.ConstF64(0.0), nil
}

func (g *Generator) genVar(e *ast.Var) (ssair.Value, error) {
	guard := g.scopes.Push()
	defer guard.Close()

	for _, decl := range e.Decls {
		initVal, err := g.genExpr(decl.Init)
		if err != nil {
			return nil, err
		}
		slot := g.builder.AllocaAt(g.builder.Function().Entry(), decl.Name)
		g.builder.Store(slot, initVal)
		if !g.scopes.Active().TryDeclare(decl.Name, slot) {
			return nil, kerr.NewCodegenf(e.Loc, "redefined variable '%s' in var block", decl.Name)
		}
	}

	return g.genExpr(e.Body)
}
