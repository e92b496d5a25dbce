package jit

import "github.com/kale-lang/kalec/pkg/ssair"

// evaluator walks one function call's basic blocks, executing
// instructions and following terminators, the way a bytecode VM's
// dispatch loop walks instructions — except here the "instructions"
// are pkg/ssair's blocks and there is no compiled machine code
// underneath at all.
type evaluator struct {
	engine *Engine
	params map[string]float64
	slots  map[*ssair.Alloca]float64
	values map[ssair.Inst]float64
	prev   *ssair.Block
}

func newEvaluator(e *Engine) *evaluator {
	return &evaluator{
		engine: e,
		params: make(map[string]float64),
		slots:  make(map[*ssair.Alloca]float64),
		values: make(map[ssair.Inst]float64),
	}
}

// call binds fn's parameters to args and walks blocks from the entry
// block until a Ret terminator produces a result.
func (ev *evaluator) call(fn *ssair.Function, args []float64) float64 {
	for i, name := range fn.ParamNames {
		if i < len(args) {
			ev.params[name] = args[i]
		}
	}

	blk := fn.Entry()
	for {
		for _, inst := range blk.Insts {
			ev.exec(inst)
		}
		switch t := blk.Term.(type) {
		case *ssair.Ret:
			return ev.value(t.Value)
		case *ssair.Br:
			ev.prev, blk = blk, t.Target
		case *ssair.CondBr:
			next := t.False
			if ev.value(t.Cond) != 0 {
				next = t.True
			}
			ev.prev, blk = blk, next
		default:
			return 0
		}
	}
}

func (ev *evaluator) exec(inst ssair.Inst) {
	switch v := inst.(type) {
	case *ssair.Alloca:
		// Slot storage is lazily zero-valued in ev.slots; nothing to do
		// until the first Store.
	case *ssair.Load:
		ev.values[inst] = ev.slots[v.Src]
	case *ssair.Store:
		ev.slots[v.Dst] = ev.value(v.Src)
	case *ssair.BinOp:
		ev.values[inst] = ev.binOp(v)
	case *ssair.Call:
		args := make([]float64, len(v.Args))
		for i, a := range v.Args {
			args[i] = ev.value(a)
		}
		sym, err := ev.engine.Lookup(v.Callee)
		if err != nil {
			// Codegen only checked that a prototype for the callee
			// exists. A miss here means no added module defines it and
			// neither the main dylib nor the process symbols provide it
			// (e.g. an extern such as sin, which pkg/runtime does not
			// supply); the call then evaluates to zero.
			ev.values[inst] = 0
			return
		}
		ev.values[inst] = sym.Fn(args)
	case *ssair.Phi:
		for _, e := range v.Edges {
			if e.Block == ev.prev {
				ev.values[inst] = ev.value(e.Value)
				return
			}
		}
	}
}

func (ev *evaluator) binOp(v *ssair.BinOp) float64 {
	l := ev.value(v.L)
	switch v.Op {
	case ssair.OpUIToFP:
		return l
	}
	r := ev.value(v.R)
	switch v.Op {
	case ssair.OpFAdd:
		return l + r
	case ssair.OpFSub:
		return l - r
	case ssair.OpFMul:
		return l * r
	case ssair.OpFDiv:
		return l / r
	case ssair.OpFCmpULT:
		return boolF64(l < r)
	case ssair.OpFCmpONE:
		return boolF64(l != r)
	default:
		return 0
	}
}

func boolF64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (ev *evaluator) value(v ssair.Value) float64 {
	switch val := v.(type) {
	case *ssair.Const:
		return val.F
	case *ssair.Param:
		return ev.params[val.Name]
	case ssair.Inst:
		return ev.values[val]
	default:
		return 0
	}
}
