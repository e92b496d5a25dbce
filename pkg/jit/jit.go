// Package jit is K's stand-in for the "JIT that links and runs
// compiled modules" spec.md §4.6 leaves as an external collaborator.
// Without a real assembler or cgo dependency, "compile to native code
// and call it" becomes "walk the SSA IR directly": Engine registers
// ssair.Modules and resolves names to callable Symbols the way a real
// JIT resolves them to machine addresses, but a Symbol's body is an
// evaluator function instead of a code pointer.
//
// Shape grounded on the host-function registration pattern in
// agenthands-npython's pkg/vm.Machine (HostFunction, a Go func
// registered under a name and invoked by the interpreter loop) and
// the VM-holds-program-state struct shape of daios-ai-msg's vm.go,
// adapted from bytecode dispatch to a basic-block walk over
// pkg/ssair.
package jit

import (
	"fmt"

	"github.com/kale-lang/kalec/pkg/ssair"
)

// Symbol is a resolved, callable name: for K this is always a
// float64-variadic Go function, whether it came from a compiled K
// function, a runtime intrinsic, or a process symbol.
type Symbol struct {
	Name string
	Fn   func(args []float64) float64
}

// ResourceTracker is returned by AddModule the way a real ORC JIT
// returns one: a handle that Engine.Remove takes to unlink the module
// it was issued for (the REPL driver does this for each evaluated
// anonymous expression), and that names that module.
type ResourceTracker struct {
	ModuleName string
	mod        *ssair.Module
}

// ProcessSymbolLookup resolves a name against symbols outside any
// added module, such as pkg/runtime's putchard/printd. It mirrors ORC
// JIT's DynamicLibrarySearchGenerator contract: return ok=false to let
// the engine keep looking (there is nowhere else to look here, so a
// miss becomes an unresolved-symbol error).
type ProcessSymbolLookup func(name string) (func(args []float64) float64, bool)

// Dylib is a named symbol table an Engine resolves lookups against
// before falling back to process symbols, mirroring MainDylib in a
// real ORC JIT.
type Dylib struct {
	name    string
	symbols map[string]Symbol
}

// Define installs fn under name in the dylib.
func (d *Dylib) Define(name string, fn func(args []float64) float64) {
	d.symbols[name] = Symbol{Name: name, Fn: fn}
}

// Engine owns the modules currently linked in and resolves names
// against them, newest module first — this is what gives K's REPL its
// "redefinition shadows the previous definition" behavior across
// finalizeModule/stealModule rotations.
type Engine struct {
	main     *Dylib
	modules  []*ssair.Module
	fallback ProcessSymbolLookup
}

// Create builds an Engine with an empty main dylib. Create can fail in
// a real JIT (target machine detection, ORC session setup); it never
// does for K, but the signature matches the contract spec.md's §4.6
// leaves for a real backend.
func Create() (*Engine, error) {
	return &Engine{main: &Dylib{name: "main", symbols: make(map[string]Symbol)}}, nil
}

// MainDylib returns the engine's process-wide symbol table.
func (e *Engine) MainDylib() *Dylib { return e.main }

// RegisterProcessSymbols installs the fallback searched after every
// added module and the main dylib come up empty.
func (e *Engine) RegisterProcessSymbols(lookup ProcessSymbolLookup) {
	e.fallback = lookup
}

// AddModule links mod's functions into the engine and returns a
// tracker for it. Later-added modules shadow earlier ones on name
// collision, matching K's finalizeModule/stealModule rotation: each
// anonymous top-level expression lives in its own tiny module stacked
// on top of the ones before it.
func (e *Engine) AddModule(mod *ssair.Module) (*ResourceTracker, error) {
	e.modules = append(e.modules, mod)
	return &ResourceTracker{ModuleName: mod.Name, mod: mod}, nil
}

// Remove drops the module tracker names from the engine, freeing its
// symbols the way a real ORC JIT's ResourceTracker.Remove releases
// native code — used by the REPL driver to discard a one-shot
// anonymous top-level expression's module once it has been evaluated.
func (e *Engine) Remove(tracker *ResourceTracker) {
	if tracker == nil {
		return
	}
	for i, mod := range e.modules {
		if mod == tracker.mod {
			e.modules = append(e.modules[:i], e.modules[i+1:]...)
			return
		}
	}
}

// Lookup resolves name to a callable Symbol: first against modules
// (most recently added first), then the main dylib, then the process
// symbol fallback.
func (e *Engine) Lookup(name string) (Symbol, error) {
	for i := len(e.modules) - 1; i >= 0; i-- {
		mod := e.modules[i]
		fn := mod.FindFunction(name)
		if fn == nil || len(fn.Blocks) == 0 {
			continue
		}
		return Symbol{Name: name, Fn: func(args []float64) float64 {
			return newEvaluator(e).call(fn, args)
		}}, nil
	}
	if sym, ok := e.main.symbols[name]; ok {
		return sym, nil
	}
	if e.fallback != nil {
		if fn, ok := e.fallback(name); ok {
			return Symbol{Name: name, Fn: fn}, nil
		}
	}
	return Symbol{}, fmt.Errorf("jit: symbol not found: %s", name)
}
