package optimize

import (
	"github.com/kale-lang/kalec/pkg/klog"
	"github.com/kale-lang/kalec/pkg/ssair"
)

// ConstFold evaluates arithmetic and comparison instructions whose
// operands are already ssair.Const values, and simplifies a CondBr
// whose condition folds to a constant into an unconditional Br. It
// never touches Load, Store, Call, or Alloca: those either have side
// effects or read state this pass has no model of.
type ConstFold struct{}

// Run walks every function once, folding what it can. It reports the
// number of instructions folded plus the number of branches
// simplified.
func (ConstFold) Run(m *ssair.Module) (int, error) {
	total := 0
	for _, fn := range m.Functions {
		total += foldFunction(fn)
	}
	if total > 0 {
		klog.Optimized("const-fold", total)
	}
	return total, nil
}

func foldFunction(fn *ssair.Function) int {
	rewrite := map[ssair.Inst]*ssair.Const{}
	folded := map[ssair.Inst]bool{}

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			bin, ok := inst.(*ssair.BinOp)
			if !ok {
				continue
			}
			if c, ok := foldBinOp(rewrite, bin); ok {
				rewrite[inst] = c
				folded[inst] = true
			}
		}
	}

	changed := len(rewrite)
	if changed > 0 {
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Insts {
				rewireOperands(inst, rewrite)
			}
			rewireTerminator(blk.Term, rewrite)
		}
		dropFolded(fn, folded)
	}

	changed += foldBranches(fn)
	return changed
}

// foldBinOp evaluates bin if its operand(s) are already known constant,
// following prior folds recorded in rewrite so a chain of foldable
// arithmetic in the same block collapses in one pass.
func foldBinOp(rewrite map[ssair.Inst]*ssair.Const, bin *ssair.BinOp) (*ssair.Const, bool) {
	lc, ok := constOperand(rewrite, bin.L)
	if !ok {
		return nil, false
	}
	if bin.Op == ssair.OpUIToFP {
		return ssair.ConstF64(lc.F), true
	}
	rc, ok := constOperand(rewrite, bin.R)
	if !ok {
		return nil, false
	}
	switch bin.Op {
	case ssair.OpFAdd:
		return ssair.ConstF64(lc.F + rc.F), true
	case ssair.OpFSub:
		return ssair.ConstF64(lc.F - rc.F), true
	case ssair.OpFMul:
		return ssair.ConstF64(lc.F * rc.F), true
	case ssair.OpFDiv:
		if rc.F == 0 {
			// Division by zero is a runtime concern (K has no NaN/Inf
			// literals to fold to); leave it for the JIT to evaluate.
			return nil, false
		}
		return ssair.ConstF64(lc.F / rc.F), true
	case ssair.OpFCmpULT:
		return ssair.ConstI1(lc.F < rc.F), true
	case ssair.OpFCmpONE:
		return ssair.ConstI1(lc.F != rc.F), true
	default:
		return nil, false
	}
}

func constOperand(rewrite map[ssair.Inst]*ssair.Const, v ssair.Value) (*ssair.Const, bool) {
	if c, ok := v.(*ssair.Const); ok {
		return c, true
	}
	if inst, ok := v.(ssair.Inst); ok {
		if c, ok := rewrite[inst]; ok {
			return c, true
		}
	}
	return nil, false
}

func resolveValue(v ssair.Value, rewrite map[ssair.Inst]*ssair.Const) ssair.Value {
	if inst, ok := v.(ssair.Inst); ok {
		if c, ok := rewrite[inst]; ok {
			return c
		}
	}
	return v
}

// rewireOperands redirects any operand of inst that names a folded
// instruction at its replacement constant.
func rewireOperands(inst ssair.Inst, rewrite map[ssair.Inst]*ssair.Const) {
	switch v := inst.(type) {
	case *ssair.BinOp:
		v.L = resolveValue(v.L, rewrite)
		if v.R != nil {
			v.R = resolveValue(v.R, rewrite)
		}
	case *ssair.Store:
		v.Src = resolveValue(v.Src, rewrite)
	case *ssair.Call:
		for i, a := range v.Args {
			v.Args[i] = resolveValue(a, rewrite)
		}
	case *ssair.Phi:
		for i, e := range v.Edges {
			v.Edges[i].Value = resolveValue(e.Value, rewrite)
		}
	}
}

func rewireTerminator(term ssair.Terminator, rewrite map[ssair.Inst]*ssair.Const) {
	switch t := term.(type) {
	case *ssair.Ret:
		t.Value = resolveValue(t.Value, rewrite)
	case *ssair.CondBr:
		t.Cond = resolveValue(t.Cond, rewrite)
	}
}

// dropFolded removes folded instructions from their blocks; they have
// no side effects and, once rewired, no remaining readers.
func dropFolded(fn *ssair.Function, folded map[ssair.Inst]bool) {
	for _, blk := range fn.Blocks {
		kept := blk.Insts[:0]
		for _, inst := range blk.Insts {
			if !folded[inst] {
				kept = append(kept, inst)
			}
		}
		blk.Insts = kept
	}
}

// foldBranches replaces a CondBr whose condition is a compile-time
// constant with an unconditional Br to the taken target, dropping the
// block's predecessor edge into whichever side is never reached. This
// is what hands DeadBlockElim a block with zero predecessors.
func foldBranches(fn *ssair.Function) int {
	changed := 0
	for _, blk := range fn.Blocks {
		cb, ok := blk.Term.(*ssair.CondBr)
		if !ok {
			continue
		}
		c, ok := cb.Cond.(*ssair.Const)
		if !ok {
			continue
		}
		taken, untaken := cb.True, cb.False
		if c.F == 0 {
			taken, untaken = cb.False, cb.True
		}
		untaken.Preds = removeBlock(untaken.Preds, blk)
		blk.Term = &ssair.Br{Target: taken}
		changed++
	}
	return changed
}

func removeBlock(preds []*ssair.Block, target *ssair.Block) []*ssair.Block {
	kept := preds[:0]
	for _, p := range preds {
		if p != target {
			kept = append(kept, p)
		}
	}
	return kept
}
