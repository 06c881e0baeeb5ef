package ir

// Builder appends instructions at an insert point, one block at a
// time, the way lowering walks the AST.
type Builder struct {
	fn    *Func
	block *Block
}

func NewBuilder() *Builder {
	return &Builder{}
}

// SetInsertPoint makes b append to block, which must belong to fn.
func (b *Builder) SetInsertPoint(fn *Func, block *Block) {
	b.fn = fn
	b.block = block
}

// GetInsertBlock returns the block instructions are currently
// appended to. Lowering reads this after emitting a branch arm to
// learn which block the arm actually ended in.
func (b *Builder) GetInsertBlock() *Block {
	return b.block
}

func (b *Builder) append(instr Instr) {
	if b.block.Term != nil {
		panic("ir: emitting into a terminated block")
	}
	b.block.Instrs = append(b.block.Instrs, instr)
}

func (b *Builder) terminate(t Term) {
	if b.block.Term != nil {
		panic("ir: block already has a terminator")
	}
	b.block.Term = t
}

// CreateBinOp emits op over x and y, naming the result after base.
func (b *Builder) CreateBinOp(op Op, x, y Value, base string) Value {
	instr := &BinOp{Op: op, X: x, Y: y, name: b.fn.uniqueName(base)}
	b.append(instr)
	return instr
}

// CreateCall emits a call to callee.
func (b *Builder) CreateCall(callee string, args []Value, base string) Value {
	instr := &CallInstr{Callee: callee, Args: args, name: b.fn.uniqueName(base)}
	b.append(instr)
	return instr
}

// CreatePhi emits an empty merge-value record; the caller wires
// incomings as it wires the predecessor edges.
func (b *Builder) CreatePhi(base string) *Phi {
	instr := &Phi{name: b.fn.uniqueName(base)}
	b.append(instr)
	return instr
}

// CreateBr terminates the current block with an unconditional branch.
func (b *Builder) CreateBr(target *Block) {
	b.terminate(&Br{Target: target})
}

// CreateCondBr terminates the current block, transferring to then
// when cond is non-zero.
func (b *Builder) CreateCondBr(cond Value, then, els *Block) {
	b.terminate(&CondBr{Cond: cond, Then: then, Else: els})
}

// CreateRet terminates the current block with a return.
func (b *Builder) CreateRet(val Value) {
	b.terminate(&Ret{Val: val})
}
