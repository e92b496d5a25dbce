package ssair

// Builder emits instructions into a single Function/Block at a time,
// tracking the current insertion point the way a real IR builder
// (LLVM's IRBuilder, or the teacher's pkg/ir.Builder) does.
type Builder struct {
	fn *Function
	bb *Block
}

// NewBuilder creates a Builder with no active function.
func NewBuilder() *Builder { return &Builder{} }

// SetFunction makes fn the active function; the caller is expected to
// call SetInsertPoint next.
func (b *Builder) SetFunction(fn *Function) { b.fn = fn }

// Function returns the active function.
func (b *Builder) Function() *Function { return b.fn }

// NewBlock appends a fresh, empty block to the active function and
// returns it. It does not change the insertion point.
func (b *Builder) NewBlock(label string) *Block {
	blk := &Block{Label: label}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// SetInsertPoint moves the insertion point to blk.
func (b *Builder) SetInsertPoint(blk *Block) { b.bb = blk }

// InsertBlock returns the block instructions are currently appended to.
func (b *Builder) InsertBlock() *Block { return b.bb }

func (b *Builder) emit(inst Inst) Inst {
	b.bb.Insts = append(b.bb.Insts, inst)
	return inst
}

// Alloca reserves a stack slot named name in the current block (callers
// lower slots in the function's entry block per spec.md's "entry-block
// allocation" design note by calling this with the entry block active).
func (b *Builder) Alloca(name string) *Alloca {
	a := &Alloca{instBase: instBase{t: F64}, Name: name}
	b.emit(a)
	return a
}

// AllocaAt reserves a stack slot named name in blk directly, without
// disturbing the builder's current insertion point. `for` and `var`
// lowering need this: the slot itself must live in the entry block
// (mem2reg-friendly) while the initializing store executes wherever
// control flow currently is, which may be a nested block.
func (b *Builder) AllocaAt(blk *Block, name string) *Alloca {
	a := &Alloca{instBase: instBase{t: F64}, Name: name}
	blk.Insts = append(blk.Insts, a)
	return a
}

// Load reads src's current value.
func (b *Builder) Load(src *Alloca) *Load {
	l := &Load{instBase: instBase{t: F64}, Src: src}
	b.emit(l)
	return l
}

// Store writes val into dst.
func (b *Builder) Store(dst *Alloca, val Value) *Store {
	s := &Store{instBase: instBase{t: F64}, Dst: dst, Src: val}
	b.emit(s)
	return s
}

// FAdd, FSub, FMul, FDiv are the four primitive float arithmetic ops.
func (b *Builder) FAdd(l, r Value) *BinOp { return b.binOp(OpFAdd, l, r, F64) }
func (b *Builder) FSub(l, r Value) *BinOp { return b.binOp(OpFSub, l, r, F64) }
func (b *Builder) FMul(l, r Value) *BinOp { return b.binOp(OpFMul, l, r, F64) }
func (b *Builder) FDiv(l, r Value) *BinOp { return b.binOp(OpFDiv, l, r, F64) }

// FCmpULT is unordered-less-than, used for K's builtin "<" operator.
func (b *Builder) FCmpULT(l, r Value) *BinOp { return b.binOp(OpFCmpULT, l, r, I1) }

// FCmpONE is ordered-not-equal, used to convert a K value into an i1
// branch condition (spec.md §4.3's if/for condition lowering).
func (b *Builder) FCmpONE(l, r Value) *BinOp { return b.binOp(OpFCmpONE, l, r, I1) }

// UIToFP widens an i1 value to f64 (0.0 or 1.0), used to materialize
// "<"'s boolean result as a K value.
func (b *Builder) UIToFP(v Value) *BinOp {
	return b.binOp(OpUIToFP, v, nil, F64)
}

func (b *Builder) binOp(op Op, l, r Value, t Type) *BinOp {
	bo := &BinOp{instBase: instBase{t: t}, Op: op, L: l, R: r}
	b.emit(bo)
	return bo
}

// Call invokes callee with args, per spec.md §4.3's left-to-right
// argument evaluation contract (callers must lower args before calling
// this method, in order).
func (b *Builder) Call(callee string, args []Value) *Call {
	c := &Call{instBase: instBase{t: F64}, Callee: callee, Args: args}
	b.emit(c)
	return c
}

// Phi inserts a fresh, edge-less phi node at the current insertion
// point; callers add edges with Phi.AddEdge once both incoming values
// are known.
func (b *Builder) Phi() *Phi {
	p := &Phi{instBase: instBase{t: F64}}
	b.emit(p)
	return p
}

// Ret sets the current block's terminator to a return of val.
func (b *Builder) Ret(val Value) { b.bb.Term = &Ret{Value: val} }

// Br sets the current block's terminator to an unconditional jump.
func (b *Builder) Br(target *Block) {
	b.bb.Term = &Br{Target: target}
	target.Preds = append(target.Preds, b.bb)
}

// CondBr sets the current block's terminator to a conditional branch.
func (b *Builder) CondBr(cond Value, then, els *Block) {
	b.bb.Term = &CondBr{Cond: cond, True: then, False: els}
	then.Preds = append(then.Preds, b.bb)
	els.Preds = append(els.Preds, b.bb)
}
