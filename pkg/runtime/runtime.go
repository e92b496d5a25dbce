// Package runtime provides the two runtime intrinsics K programs can
// call once they declare them with extern: putchard and printd. Both have
// the signature spec.md §4.6 gives every foreign function, double ->
// double, so they slot into pkg/jit's process-symbol search exactly
// like a compiled K function would.
//
// Grounded on the teacher's pkg/interop, whose whole job is marshaling
// values across an FFI boundary — repurposed here because K has one
// runtime type, so the marshaling is always float64 -> float64.
package runtime

import (
	"fmt"
	"os"
)

// Putchard writes the ASCII character whose code point is int(x) to
// standard error and returns 0.
func Putchard(x float64) float64 {
	fmt.Fprintf(os.Stderr, "%c", byte(x))
	return 0
}

// Printd writes x followed by a newline to standard error and returns 0.
func Printd(x float64) float64 {
	fmt.Fprintf(os.Stderr, "%f\n", x)
	return 0
}

// Symbols returns the process-symbol table pkg/jit's
// RegisterProcessSymbols expects: a lookup from an intrinsic's name to
// its single-argument implementation.
func Symbols() map[string]func(args []float64) float64 {
	return map[string]func(args []float64) float64{
		"putchard": func(args []float64) float64 {
			if len(args) == 0 {
				return 0
			}
			return Putchard(args[0])
		},
		"printd": func(args []float64) float64 {
			if len(args) == 0 {
				return 0
			}
			return Printd(args[0])
		},
	}
}

// Lookup adapts Symbols into the jit.ProcessSymbolLookup shape without
// pkg/runtime importing pkg/jit — the driver wires the two together.
func Lookup(name string) (func(args []float64) float64, bool) {
	fn, ok := Symbols()[name]
	return fn, ok
}
