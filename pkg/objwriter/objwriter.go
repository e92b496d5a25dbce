// Package objwriter is K's stand-in for the "object-code writer"
// spec.md §4.6 leaves as an external collaborator. The real wire
// format (ELF/Mach-O/COFF) is explicitly out of scope for a
// float64-only teaching language, so Writer serializes a module to a
// deterministic textual object-record stream instead: one line per
// symbol, one block per section, in the module's own order — the same
// "configure once, then emit sequentially" shape as the teacher's
// pkg/linker.Linker (New(target, output, runtime), then Link walks its
// object list in the order AddObject received them).
package objwriter

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kale-lang/kalec/pkg/ssair"
)

// RelocModel mirrors the handful of relocation models a real backend
// would pick between; K's textual format records the choice without
// acting on it.
type RelocModel int

const (
	RelocDefault RelocModel = iota
	RelocStatic
	RelocPIC
)

func (r RelocModel) String() string {
	switch r {
	case RelocStatic:
		return "static"
	case RelocPIC:
		return "pic"
	default:
		return "default"
	}
}

// Writer holds the target configuration a real backend would need to
// pick an instruction encoding; K only ever prints it into the record
// header, but keeping the fields makes the interface a believable
// stand-in for a real object emitter.
type Writer struct {
	TargetTriple string
	CPU          string
	Features     string
	Reloc        RelocModel
}

// New builds a Writer for the given target configuration.
func New(targetTriple, cpu, features string, reloc RelocModel) *Writer {
	return &Writer{TargetTriple: targetTriple, CPU: cpu, Features: features, Reloc: reloc}
}

// DataLayout returns the (fixed) data layout string K's single scalar
// type needs: little-endian, 8-byte-aligned f64, no other types to
// describe.
func (w *Writer) DataLayout() string {
	return "e-f64:64:64-n64-S64"
}

// WriteObject serializes mod as an ordered, deterministic textual
// object-record stream: a header naming the target, then one record
// per function in module order, each listing its parameters and its
// blocks' instructions and terminator. Declared-only functions (see
// ssair.Module.Declared) emit a header line and nothing else, matching
// how an extern shows up in a real object file as an undefined symbol.
func (w *Writer) WriteObject(out io.Writer, mod *ssair.Module) error {
	bw := bufio.NewWriter(out)

	fmt.Fprintf(bw, "; kalec object stream\n")
	fmt.Fprintf(bw, "target triple = %q\n", w.TargetTriple)
	fmt.Fprintf(bw, "target cpu = %q\n", w.CPU)
	fmt.Fprintf(bw, "target features = %q\n", w.Features)
	fmt.Fprintf(bw, "target reloc = %s\n", w.Reloc)
	fmt.Fprintf(bw, "target datalayout = %q\n", w.DataLayout())
	fmt.Fprintf(bw, "module %q\n\n", mod.Name)

	for _, fn := range mod.Functions {
		if err := writeFunction(bw, mod, fn); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFunction(bw *bufio.Writer, mod *ssair.Module, fn *ssair.Function) error {
	fmt.Fprintf(bw, "define f64 @%s(", fn.Name)
	for i, p := range fn.ParamNames {
		if i > 0 {
			fmt.Fprint(bw, ", ")
		}
		fmt.Fprintf(bw, "f64 %%arg.%s", p)
	}
	fmt.Fprint(bw, ")")

	if mod.Declared[fn.Name] && len(fn.Blocks) == 0 {
		fmt.Fprint(bw, " ; declared\n\n")
		return nil
	}
	fmt.Fprint(bw, " {\n")

	n := newNamer()
	for _, blk := range fn.Blocks {
		fmt.Fprintf(bw, "%s:\n", blk.Label)
		for _, inst := range blk.Insts {
			if err := writeInst(bw, n, inst); err != nil {
				return err
			}
		}
		if err := writeTerm(bw, n, blk.Term); err != nil {
			return err
		}
	}
	fmt.Fprint(bw, "}\n\n")
	return nil
}

// namer assigns deterministic, order-of-first-use temp names to
// instruction results so the emitted stream never depends on Go
// pointer values.
type namer struct {
	ids  map[ssair.Inst]int
	next int
}

func newNamer() *namer { return &namer{ids: make(map[ssair.Inst]int)} }

func (n *namer) name(inst ssair.Inst) string {
	id, ok := n.ids[inst]
	if !ok {
		id = n.next
		n.next++
		n.ids[inst] = id
	}
	return fmt.Sprintf("%%%d", id)
}

func (n *namer) value(v ssair.Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case *ssair.Const:
		return formatConst(val)
	case *ssair.Param:
		return "%arg." + val.Name
	case ssair.Inst:
		return n.name(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatConst(c *ssair.Const) string {
	if c.T == ssair.I1 {
		return fmt.Sprintf("i1 %d", int(c.F))
	}
	return fmt.Sprintf("f64 %g", c.F)
}

func writeInst(bw *bufio.Writer, n *namer, inst ssair.Inst) error {
	switch v := inst.(type) {
	case *ssair.Alloca:
		fmt.Fprintf(bw, "  %s = alloca f64 ; %s\n", n.name(inst), v.Name)
	case *ssair.Load:
		fmt.Fprintf(bw, "  %s = load %s\n", n.name(inst), n.name(v.Src))
	case *ssair.Store:
		fmt.Fprintf(bw, "  store %s -> %s\n", n.value(v.Src), n.name(v.Dst))
	case *ssair.BinOp:
		if v.Op == ssair.OpUIToFP {
			fmt.Fprintf(bw, "  %s = %s %s\n", n.name(inst), opName(v.Op), n.value(v.L))
		} else {
			fmt.Fprintf(bw, "  %s = %s %s, %s\n", n.name(inst), opName(v.Op), n.value(v.L), n.value(v.R))
		}
	case *ssair.Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = n.value(a)
		}
		fmt.Fprintf(bw, "  %s = call @%s(%s)\n", n.name(inst), v.Callee, joinArgs(args))
	case *ssair.Phi:
		fmt.Fprintf(bw, "  %s = phi", n.name(inst))
		for i, e := range v.Edges {
			if i > 0 {
				fmt.Fprint(bw, ",")
			}
			fmt.Fprintf(bw, " [%s, %%%s]", n.value(e.Value), e.Block.Label)
		}
		fmt.Fprint(bw, "\n")
	default:
		return fmt.Errorf("objwriter: unknown instruction %T", inst)
	}
	return nil
}

func writeTerm(bw *bufio.Writer, n *namer, term ssair.Terminator) error {
	switch t := term.(type) {
	case *ssair.Ret:
		fmt.Fprintf(bw, "  ret %s\n", n.value(t.Value))
	case *ssair.Br:
		fmt.Fprintf(bw, "  br label %%%s\n", t.Target.Label)
	case *ssair.CondBr:
		fmt.Fprintf(bw, "  condbr %s, label %%%s, label %%%s\n", n.value(t.Cond), t.True.Label, t.False.Label)
	default:
		return fmt.Errorf("objwriter: block missing terminator")
	}
	return nil
}

func opName(op ssair.Op) string {
	switch op {
	case ssair.OpFAdd:
		return "fadd"
	case ssair.OpFSub:
		return "fsub"
	case ssair.OpFMul:
		return "fmul"
	case ssair.OpFDiv:
		return "fdiv"
	case ssair.OpFCmpULT:
		return "fcmp.ult"
	case ssair.OpFCmpONE:
		return "fcmp.one"
	case ssair.OpUIToFP:
		return "uitofp"
	default:
		return "unknown"
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
