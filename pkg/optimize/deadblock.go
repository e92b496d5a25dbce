package optimize

import (
	"github.com/kale-lang/kalec/pkg/klog"
	"github.com/kale-lang/kalec/pkg/ssair"
)

// DeadBlockElim drops blocks unreachable from the entry block, most
// often blocks ConstFold's branch folding stranded. It never rewrites
// an instruction; it only shrinks a function's block list.
type DeadBlockElim struct{}

// Run walks each function's control-flow graph from its entry block
// and discards anything reachability never touches.
func (DeadBlockElim) Run(m *ssair.Module) (int, error) {
	total := 0
	for _, fn := range m.Functions {
		total += pruneFunction(fn)
	}
	if total > 0 {
		klog.Optimized("dead-block-elim", total)
	}
	return total, nil
}

func pruneFunction(fn *ssair.Function) int {
	if len(fn.Blocks) == 0 {
		return 0
	}
	reachable := map[*ssair.Block]bool{fn.Blocks[0]: true}
	for progress := true; progress; {
		progress = false
		for _, b := range fn.Blocks {
			if !reachable[b] {
				continue
			}
			for _, s := range successors(b) {
				if !reachable[s] {
					reachable[s] = true
					progress = true
				}
			}
		}
	}

	kept := fn.Blocks[:0]
	removed := 0
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		} else {
			removed++
		}
	}
	fn.Blocks = kept
	if removed == 0 {
		return 0
	}

	for _, b := range kept {
		preds := b.Preds[:0]
		for _, p := range b.Preds {
			if reachable[p] {
				preds = append(preds, p)
			}
		}
		b.Preds = preds
	}
	return removed
}

func successors(b *ssair.Block) []*ssair.Block {
	switch t := b.Term.(type) {
	case *ssair.Br:
		return []*ssair.Block{t.Target}
	case *ssair.CondBr:
		return []*ssair.Block{t.True, t.False}
	default:
		return nil
	}
}
