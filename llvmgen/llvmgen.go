// Package llvmgen translates compilation units into LLVM IR. It is
// the artifact path of the toolchain: units are rendered to .ll text
// for linking and native compilation by external tools. Execution is
// the interpreter engine's job; Lookup here is an error by contract.
package llvmgen

import (
	"fmt"

	"github.com/thiremani/mica/compiler"
	"github.com/thiremani/mica/ir"
	"tinygo.org/x/go-llvm"
)

// Backend implements compiler.Backend for emission. Each generated
// unit is rendered and passed to WriteUnit when set.
type Backend struct {
	// WriteUnit receives the rendered IR of every generated unit.
	WriteUnit func(name, text string) error
}

func (b *Backend) Generate(unit *ir.Module) error {
	text, err := EmitText(unit)
	if err != nil {
		return err
	}
	if b.WriteUnit != nil {
		return b.WriteUnit(unit.Name, text)
	}
	return nil
}

func (b *Backend) Lookup(name string) (compiler.Callable, error) {
	return nil, fmt.Errorf("the LLVM emitter cannot execute %s; use the interpreter engine", name)
}

var _ compiler.Backend = (*Backend)(nil)

// EmitText renders one unit as verified LLVM IR text.
func EmitText(unit *ir.Module) (string, error) {
	ctx := llvm.NewContext()
	t := &translator{
		ctx:     ctx,
		module:  ctx.NewModule(unit.Name),
		builder: ctx.NewBuilder(),
	}
	defer t.dispose()

	if err := t.emitUnit(unit); err != nil {
		return "", err
	}
	if err := llvm.VerifyModule(t.module, llvm.ReturnStatusAction); err != nil {
		return "", fmt.Errorf("verify %s: %w", unit.Name, err)
	}
	return t.module.String(), nil
}

type translator struct {
	ctx     llvm.Context
	module  llvm.Module
	builder llvm.Builder
}

func (t *translator) dispose() {
	t.builder.Dispose()
	t.ctx.Dispose()
}

func (t *translator) f64() llvm.Type {
	return t.ctx.DoubleType()
}

// fnType builds the uniform signature: every function takes and
// returns the one value type.
func (t *translator) fnType(arity int) llvm.Type {
	params := make([]llvm.Type, arity)
	for i := range params {
		params[i] = t.f64()
	}
	return llvm.FunctionType(t.f64(), params, false)
}

func (t *translator) declare(name string, params []string) llvm.Value {
	if fn := t.module.NamedFunction(name); !fn.IsNil() {
		return fn
	}
	fn := llvm.AddFunction(t.module, name, t.fnType(len(params)))
	for i, p := range params {
		fn.Param(i).SetName(p)
	}
	return fn
}

func (t *translator) emitUnit(unit *ir.Module) error {
	for _, e := range unit.Externs {
		t.declare(e.Name, e.Params)
	}
	for _, f := range unit.Funcs {
		params := make([]string, len(f.Params))
		for i, p := range f.Params {
			params[i] = p.Name
		}
		t.declare(f.Name, params)
	}
	for _, f := range unit.Funcs {
		if err := t.emitFunc(f); err != nil {
			return err
		}
	}
	return nil
}

// emitFunc fills in one function body. Phi incomings may reference
// values emitted later (the loop latch), so phi wiring is deferred
// until every instruction exists.
func (t *translator) emitFunc(f *ir.Func) error {
	fn := t.module.NamedFunction(f.Name)

	blocks := make(map[*ir.Block]llvm.BasicBlock, len(f.Blocks))
	for _, b := range f.Blocks {
		blocks[b] = t.ctx.AddBasicBlock(fn, b.Name)
	}

	vals := make(map[ir.Value]llvm.Value)
	operand := func(v ir.Value) llvm.Value {
		switch x := v.(type) {
		case *ir.Const:
			return llvm.ConstFloat(t.f64(), x.Val)
		case *ir.Param:
			return fn.Param(x.Index)
		default:
			return vals[v]
		}
	}

	var phis []*ir.Phi

	for _, b := range f.Blocks {
		t.builder.SetInsertPointAtEnd(blocks[b])
		for _, instr := range b.Instrs {
			switch i := instr.(type) {
			case *ir.BinOp:
				vals[i] = t.emitBinOp(i, operand)
			case *ir.CallInstr:
				callee := t.module.NamedFunction(i.Callee)
				if callee.IsNil() {
					return fmt.Errorf("function %s: call to undeclared function %s", f.Name, i.Callee)
				}
				args := make([]llvm.Value, len(i.Args))
				for k, a := range i.Args {
					args[k] = operand(a)
				}
				vals[i] = t.builder.CreateCall(t.fnType(len(args)), callee, args, "calltmp")
			case *ir.Phi:
				vals[i] = t.builder.CreatePHI(t.f64(), "phitmp")
				phis = append(phis, i)
			default:
				return fmt.Errorf("function %s: unhandled instruction %T", f.Name, instr)
			}
		}

		switch term := b.Term.(type) {
		case *ir.Br:
			t.builder.CreateBr(blocks[term.Target])
		case *ir.CondBr:
			// Branch conditions carry the value type; test non-zero
			// to recover the boolean.
			cond := t.builder.CreateFCmp(llvm.FloatONE, operand(term.Cond), llvm.ConstFloat(t.f64(), 0), "brcond")
			t.builder.CreateCondBr(cond, blocks[term.Then], blocks[term.Else])
		case *ir.Ret:
			t.builder.CreateRet(operand(term.Val))
		default:
			return fmt.Errorf("function %s: block %s has no terminator", f.Name, b.Name)
		}
	}

	for _, p := range phis {
		incoming := make([]llvm.Value, len(p.Incomings))
		incomingBlocks := make([]llvm.BasicBlock, len(p.Incomings))
		for k, in := range p.Incomings {
			incoming[k] = operand(in.Val)
			incomingBlocks[k] = blocks[in.Block]
		}
		vals[p].AddIncoming(incoming, incomingBlocks)
	}

	return nil
}

func (t *translator) emitBinOp(i *ir.BinOp, operand func(ir.Value) llvm.Value) llvm.Value {
	x, y := operand(i.X), operand(i.Y)
	switch i.Op {
	case ir.Add:
		return t.builder.CreateFAdd(x, y, "addtmp")
	case ir.Sub:
		return t.builder.CreateFSub(x, y, "subtmp")
	case ir.Mul:
		return t.builder.CreateFMul(x, y, "multmp")
	case ir.ULT:
		cmp := t.builder.CreateFCmp(llvm.FloatULT, x, y, "cmptmp")
		return t.builder.CreateUIToFP(cmp, t.f64(), "booltmp")
	case ir.ONE:
		cmp := t.builder.CreateFCmp(llvm.FloatONE, x, y, "cmptmp")
		return t.builder.CreateUIToFP(cmp, t.f64(), "booltmp")
	default:
		panic(fmt.Sprintf("unhandled op %v", i.Op))
	}
}
