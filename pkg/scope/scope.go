// Package scope implements K's lexically nested symbol tables.
//
// Design: a lightweight parent-chain structure in the shape of the
// teacher's small-struct-with-explicit-state style (pkg/ir.Builder's
// currentFn/currentBl fields), generalized to a generic slot type since
// spec.md §3 describes the slot as "an opaque reference to a
// stack-allocated cell" the scope package itself has no business
// knowing the shape of.
package scope

// Table is one lexical scope layer: a local name -> slot mapping plus
// an optional link to its enclosing scope. T is the opaque slot handle
// type (pkg/codegen instantiates it with *ssair.Alloca).
type Table[T any] struct {
	parent   *Table[T]
	bindings map[string]T
}

// newTable creates a scope layer nested inside parent (nil for the
// outermost/global scope).
func newTable[T any](parent *Table[T]) *Table[T] {
	return &Table[T]{parent: parent, bindings: make(map[string]T)}
}

// TryLookup walks the parent chain, returning the first binding found
// for name and whether one exists.
func (t *Table[T]) TryLookup(name string) (T, bool) {
	for s := t; s != nil; s = s.parent {
		if v, ok := s.bindings[name]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// TryDeclare inserts name -> slot into this scope's local bindings iff
// name is not already locally bound (shadowing a parent-scope binding
// is permitted; redeclaring within the same scope is not). Returns
// whether the insertion happened.
func (t *Table[T]) TryDeclare(name string, slot T) bool {
	if _, exists := t.bindings[name]; exists {
		return false
	}
	t.bindings[name] = slot
	return true
}

// Stack tracks the single mutable "currently active scope" pointer
// spec.md §3/§4.4 describes. Zero value is ready to use, with a nil
// (global) scope active.
type Stack[T any] struct {
	active *Table[T]
}

// Active returns the currently active scope layer, or nil if none has
// been pushed (the global scope).
func (s *Stack[T]) Active() *Table[T] {
	return s.active
}

// Push opens a new scope layer nested inside the currently active one
// and returns a Guard whose Close method restores the previous active
// scope. Callers must `defer guard.Close()` immediately so the
// previous scope is restored on every exit path, including error
// returns (spec.md §4.4/§9's scoped-acquisition contract).
func (s *Stack[T]) Push() *Guard[T] {
	prev := s.active
	s.active = newTable[T](prev)
	return &Guard[T]{stack: s, prev: prev}
}

// Guard is the RAII-style handle returned by Stack.Push.
type Guard[T any] struct {
	stack *Stack[T]
	prev  *Table[T]
}

// Close restores the scope that was active before the corresponding Push.
func (g *Guard[T]) Close() {
	g.stack.active = g.prev
}
