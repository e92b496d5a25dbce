// Package debuginfo emits per-module debug metadata for K: a lexical
// scope stack, parameter declarations, and source location annotations
// (spec.md §4.5). It never rewrites executable ssair instructions —
// debug info is side-channel metadata, the same way LLVM's !dbg
// attachments don't change what a program computes.
package debuginfo

import (
	"github.com/kale-lang/kalec/pkg/ast"
	"github.com/kale-lang/kalec/pkg/ssair"
	"github.com/kale-lang/kalec/pkg/token"
)

// Subprogram is one function's debug-info record: its declaration site
// and the parameters declared inside it.
type Subprogram struct {
	Name   string
	Loc    token.Location
	Params []ParamDecl
}

// ParamDecl records where a function parameter was declared, for
// source-level debuggers to present alongside its stack slot.
type ParamDecl struct {
	Name  string
	Index int
	Loc   token.Location
}

// Info owns one module's debug metadata: a compile unit, a default
// source file, and the currently-open lexical block stack.
type Info struct {
	ModuleName string
	FileName   string

	stack          []*Subprogram
	allSubprograms []*Subprogram
	currentLoc     *token.Location // nil while suppressed (e.g. during a prologue)
	finalized      bool
}

// New creates debug info for a module named moduleName, deriving a
// default source file name from it (falling back to a fixed name when
// moduleName is empty).
func New(moduleName string) *Info {
	file := moduleName
	if file == "" {
		file = "<kale-input>"
	}
	return &Info{ModuleName: moduleName, FileName: file}
}

// current returns the innermost open subprogram, or nil at module scope.
func (d *Info) current() *Subprogram {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

// Guard is the RAII-style handle returned by EnterFunction; callers
// must `defer guard.Close()` so the lexical block is popped on every
// exit path, including code generation failure.
type Guard struct {
	info *Info
}

// Close pops the lexical block pushed by the matching EnterFunction.
func (g *Guard) Close() {
	g.info.stack = g.info.stack[:len(g.info.stack)-1]
}

// EnterFunction pushes a subprogram record for proto and attaches it
// to fn (by name — this package keeps its own registry rather than
// mutating ssair.Function, since ssair has no debug-info fields).
// Location emission is cleared while inside the prologue, per
// spec.md §4.5.
func (d *Info) EnterFunction(fn *ssair.Function, proto *ast.Prototype) *Guard {
	sp := &Subprogram{Name: proto.Name, Loc: proto.Loc}
	d.stack = append(d.stack, sp)
	d.allSubprograms = append(d.allSubprograms, sp)
	d.currentLoc = nil
	return &Guard{info: d}
}

// ExitScope pops the innermost lexical block. Prefer Guard.Close via
// EnterFunction's deferred guard; ExitScope exists for callers that
// manage the stack manually (e.g. tests).
func (d *Info) ExitScope() {
	if len(d.stack) == 0 {
		return
	}
	d.stack = d.stack[:len(d.stack)-1]
}

// DeclareParameter records a parameter variable declared at loc and
// bound to slot's stack cell. In a real LLVM-backed implementation
// this inserts an @llvm.dbg.declare intrinsic at the current insertion
// point; here it appends to the active subprogram's Params, which
// carries the same information without perturbing ssair's instruction
// stream.
func (d *Info) DeclareParameter(slot *ssair.Alloca, name string, index int, loc token.Location) {
	sp := d.current()
	if sp == nil {
		return
	}
	sp.Params = append(sp.Params, ParamDecl{Name: name, Index: index, Loc: loc})
}

// EmitLocation sets the current debug location, attributed to the
// topmost open lexical block.
func (d *Info) EmitLocation(loc token.Location) {
	l := loc
	d.currentLoc = &l
}

// ClearLocation suppresses location emission (used during a function's
// prologue, before any user code has executed).
func (d *Info) ClearLocation() {
	d.currentLoc = nil
}

// CurrentLocation returns the most recently emitted location, or false
// if location emission is currently suppressed.
func (d *Info) CurrentLocation() (token.Location, bool) {
	if d.currentLoc == nil {
		return token.Location{}, false
	}
	return *d.currentLoc, true
}

// Subprograms returns every subprogram this module has recorded so
// far, in declaration order. Intended for tests and for a real object
// writer to consume when emitting a debug section.
func (d *Info) Subprograms() []*Subprogram {
	return append([]*Subprogram(nil), d.allSubprograms...)
}

// Finalize seals the module's debug metadata. Called at module
// rotation (spec.md §4.3's finalizeModule); after Finalize, further
// mutation is a caller bug, but Finalize itself is idempotent.
func (d *Info) Finalize() {
	d.finalized = true
}

// Finalized reports whether Finalize has been called.
func (d *Info) Finalized() bool { return d.finalized }
