// Package optimize is K's optimizer pass pipeline: the concrete stand-in
// spec.md §4.6 leaves as an external "optimizer" contract. Passes take a
// whole ssair.Module, rewrite it in place, and report how many rewrites
// they made, the same shape as the teacher's peephole optimizer
// (iterate instructions, rewrite in place, return a change count).
package optimize

import "github.com/kale-lang/kalec/pkg/ssair"

// Optimizer runs one rewrite over a module. Run reports how many
// rewrites it made so callers (and Standard's fixpoint loop) can tell
// whether another round is worth attempting.
type Optimizer interface {
	Run(m *ssair.Module) (changed int, err error)
}

// Standard composes the two passes K ships: constant folding, then
// dead-block elimination, iterated to a fixpoint. Folding a branch
// condition can strand a block that dead-block elimination then
// removes; passes run round after round until a whole round makes no
// change. Neither pass folds phi nodes.
func Standard() Optimizer {
	return sequence{ConstFold{}, DeadBlockElim{}}
}

type sequence []Optimizer

func (s sequence) Run(m *ssair.Module) (int, error) {
	total := 0
	for {
		round := 0
		for _, pass := range s {
			n, err := pass.Run(m)
			if err != nil {
				return total, err
			}
			round += n
		}
		total += round
		if round == 0 {
			return total, nil
		}
	}
}
