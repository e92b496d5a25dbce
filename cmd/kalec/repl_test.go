package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/kale-lang/kalec/pkg/codegen"
	"github.com/kale-lang/kalec/pkg/jit"
	"github.com/kale-lang/kalec/pkg/optimize"
	"github.com/kale-lang/kalec/pkg/runtime"
	"github.com/kale-lang/kalec/pkg/ssair"
)

// captureStderr redirects os.Stderr for the duration of fn and returns
// everything written to it, since driveRepl reports results and
// recovered errors straight to stderr per spec §6/§7.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stderr = w

	done := make(chan string)
	go func() {
		var sb strings.Builder
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			sb.WriteString(sc.Text())
			sb.WriteByte('\n')
		}
		done <- sb.String()
	}()

	fn()

	w.Close()
	os.Stderr = orig
	return <-done
}

func newEngine(t *testing.T) *jit.Engine {
	t.Helper()
	engine, err := jit.Create()
	if err != nil {
		t.Fatalf("jit.Create: %v", err)
	}
	engine.RegisterProcessSymbols(runtime.Lookup)
	return engine
}

func runSource(t *testing.T, src string) string {
	t.Helper()
	engine := newEngine(t)
	return captureStderr(t, func() {
		driveRepl(strings.NewReader(src), "test", engine, nil)
	})
}

func TestScenarioFunctionCallReturnsIncrementedArg(t *testing.T) {
	out := runSource(t, "def f(x) x + 1; f(41);")
	if !strings.Contains(out, "Evaluated to 42") {
		t.Fatalf("expected 'Evaluated to 42', got: %q", out)
	}
}

func TestScenarioExternSinAtZero(t *testing.T) {
	out := runSource(t, "extern sin(x); sin(0);")
	if !strings.Contains(out, "Evaluated to 0") {
		t.Fatalf("expected 'Evaluated to 0', got: %q", out)
	}
}

func TestScenarioUserBinaryOperatorLeftAssociative(t *testing.T) {
	out := runSource(t, "def binary : 1 (a b) b; 1 : 2 : 3;")
	if !strings.Contains(out, "Evaluated to 3") {
		t.Fatalf("expected 'Evaluated to 3', got: %q", out)
	}
}

func TestScenarioRecursiveFibonacci(t *testing.T) {
	out := runSource(t, "def fib(n) if n < 2 then n else fib(n-1) + fib(n-2); fib(10);")
	if !strings.Contains(out, "Evaluated to 55") {
		t.Fatalf("expected 'Evaluated to 55', got: %q", out)
	}
}

func TestScenarioVarAndForLoopAccumulation(t *testing.T) {
	src := "def sum(n) var s = 0 in (for i = 1, i < n+1, 1 in s = s + i) + s;\nsum(5);"
	out := runSource(t, src)
	if !strings.Contains(out, "Evaluated to 15") {
		t.Fatalf("expected 'Evaluated to 15', got: %q", out)
	}
}

func TestScenarioUserUnaryOperator(t *testing.T) {
	out := runSource(t, "def unary !(x) if x then 0 else 1; !0; !1;")
	if !strings.Contains(out, "Evaluated to 1") {
		t.Fatalf("expected 'Evaluated to 1' for !0, got: %q", out)
	}
	if !strings.Contains(out, "Evaluated to 0") {
		t.Fatalf("expected 'Evaluated to 0' for !1, got: %q", out)
	}
}

func TestParseErrorUnmatchedParen(t *testing.T) {
	out := runSource(t, "def f(x) (x + 1;")
	if !strings.Contains(out, "expected") && !strings.Contains(out, "'('") && !strings.Contains(out, ")") {
		t.Fatalf("expected an unmatched-paren diagnostic, got: %q", out)
	}
}

func TestParseErrorMissingThen(t *testing.T) {
	out := runSource(t, "def f(x) if x 0 else 1;")
	if !strings.Contains(out, "then") {
		t.Fatalf("expected a missing-'then' diagnostic, got: %q", out)
	}
}

func TestParseErrorMissingInOnFor(t *testing.T) {
	out := runSource(t, "def f(x) for i = 1, i < x, 1 x;")
	if !strings.Contains(out, "in") {
		t.Fatalf("expected a missing-'in' diagnostic, got: %q", out)
	}
}

func TestParseErrorMissingInOnVar(t *testing.T) {
	out := runSource(t, "def f(x) var y = 1 x;")
	if !strings.Contains(out, "in") {
		t.Fatalf("expected a missing-'in' diagnostic, got: %q", out)
	}
}

func TestParseErrorWrongBinaryOperatorArity(t *testing.T) {
	out := runSource(t, "def binary : 1 (a) a;")
	if out == "" {
		t.Fatalf("expected a diagnostic for wrong binary operator arity, got empty output")
	}
}

func TestParseErrorNonPrintableOperatorCharacter(t *testing.T) {
	out := runSource(t, "def binary \n 1 (a b) a;")
	if out == "" {
		t.Fatalf("expected a diagnostic for a non-printable operator character, got empty output")
	}
}

func TestOptimizedAndUnoptimizedModulesAgreeOnFibonacci(t *testing.T) {
	// build.go's pipeline runs optimize.Standard() before writing; repl's
	// pipeline never optimizes. Both must evaluate scenario 4 identically,
	// since constant folding and dead-block elimination must never change
	// an observable JIT result.
	src := "def fib(n) if n < 2 then n else fib(n-1) + fib(n-2); fib(10);"
	out := runSource(t, src)
	if !strings.Contains(out, "Evaluated to 55") {
		t.Fatalf("expected 'Evaluated to 55', got: %q", out)
	}

	engine := newEngine(t)
	optimizeAndAdd := func(gen *codegen.Generator) {
		mod := gen.StealModule()
		if _, err := optimize.Standard().Run(mod); err != nil {
			t.Fatalf("optimize: %v", err)
		}
		if _, err := engine.AddModule(mod); err != nil {
			t.Fatalf("jit.AddModule: %v", err)
		}
	}
	optimized := captureStderr(t, func() {
		runDriver(strings.NewReader(src), "test", driverHooks{
			onDef: func(gen *codegen.Generator, fn *ssair.Function) { optimizeAndAdd(gen) },
			onExpr: func(gen *codegen.Generator, fn *ssair.Function) {
				optimizeAndAdd(gen)
				sym, err := engine.Lookup(fn.Name)
				if err != nil {
					t.Fatalf("jit.Lookup: %v", err)
				}
				fmt.Fprintf(os.Stderr, "Evaluated to %g\n", sym.Fn(nil))
			},
		})
	})
	if !strings.Contains(optimized, "Evaluated to 55") {
		t.Fatalf("expected 'Evaluated to 55' from the optimized pipeline, got: %q", optimized)
	}
}
