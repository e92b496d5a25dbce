package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kale-lang/kalec/pkg/codegen"
	"github.com/kale-lang/kalec/pkg/kerr"
	"github.com/kale-lang/kalec/pkg/klog"
	"github.com/kale-lang/kalec/pkg/lexer"
	"github.com/kale-lang/kalec/pkg/parser"
	"github.com/kale-lang/kalec/pkg/ssair"
	"github.com/kale-lang/kalec/pkg/token"
)

// driverHooks lets kalec build and kalec repl share the top-level
// driver loop while differing only in what happens once a construct
// has been code-generated: build accumulates everything into one
// module and emits it at EOF; repl rotates a fresh module out after
// every construct and hands it straight to the JIT.
type driverHooks struct {
	onDef    func(gen *codegen.Generator, fn *ssair.Function)
	onExtern func(gen *codegen.Generator, fn *ssair.Function)
	onExpr   func(gen *codegen.Generator, fn *ssair.Function)
	onEOF    func(gen *codegen.Generator)
	prompt   func()
}

// runDriver implements the top-level driver loop of spec §6: prime the
// parser, then repeatedly inspect the current token and dispatch on
// def/extern/';'/expression, recovering from a ParseError or
// CodeGenerationError by printing it and advancing one token, exactly
// as spec §7 requires.
func runDriver(r io.Reader, moduleName string, hooks driverHooks) {
	klog.Phase("driver")
	p := parser.New(lexer.New(r))
	gen := codegen.New(p, moduleName)

	for {
		if hooks.prompt != nil {
			hooks.prompt()
		}
		cur := p.Current()
		tokensBefore := p.TokenCount()
		switch {
		case p.AtEOF():
			if hooks.onEOF != nil {
				hooks.onEOF(gen)
			}
			return

		case cur.Kind == token.KeywordTok && cur.KeywordVal == token.KwDef:
			fn, err := p.ParseDefinition()
			if err != nil {
				reportError(err)
				p.Recover()
				continue
			}
			klog.Lexed(p.TokenCount() - tokensBefore)
			klog.Parsed("def", fn.Proto.Name)
			irFn, err := gen.GenFunction(fn)
			if err != nil {
				reportError(err)
				p.Recover()
				continue
			}
			if hooks.onDef != nil {
				hooks.onDef(gen, irFn)
			}

		case cur.Kind == token.KeywordTok && cur.KeywordVal == token.KwExtern:
			proto, err := p.ParseExtern()
			if err != nil {
				reportError(err)
				p.Recover()
				continue
			}
			klog.Lexed(p.TokenCount() - tokensBefore)
			klog.Parsed("extern", proto.Name)
			irFn, err := gen.GenExtern(proto)
			if err != nil {
				reportError(err)
				p.Recover()
				continue
			}
			if hooks.onExtern != nil {
				hooks.onExtern(gen, irFn)
			}

		case cur.Kind == token.Char && cur.Ch == ';':
			p.Recover()

		default:
			fn, err := p.ParseTopLevelExpr()
			if err != nil {
				reportError(err)
				p.Recover()
				continue
			}
			klog.Lexed(p.TokenCount() - tokensBefore)
			klog.Parsed("expr", fn.Proto.Name)
			irFn, err := gen.GenFunction(fn)
			if err != nil {
				reportError(err)
				p.Recover()
				continue
			}
			if hooks.onExpr != nil {
				hooks.onExpr(gen, irFn)
			}
		}
	}
}

// reportError prints a recovered ParseError or CodeGenerationError to
// stderr, styled red when errStyle is non-nil (the repl subcommand
// wires it up; build leaves it nil for plain output).
var errStyle func(string) string

func reportError(err error) {
	switch e := err.(type) {
	case *kerr.ParseError:
		klog.ParseFailed(e.Loc.String(), e.Msg)
	case *kerr.CodeGenerationError:
		klog.CodegenFailed(e.Loc.String(), e.Msg)
	}

	msg := err.Error()
	if errStyle != nil {
		msg = errStyle(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
}
