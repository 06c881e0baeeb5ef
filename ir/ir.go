// Package ir defines the control-flow graph a compilation unit is
// lowered into: functions made of single-entry basic blocks, each
// ending in exactly one terminator, with phi records reconciling
// values across predecessor edges. Every value is the language's one
// numeric type, a 64-bit float, so the IR carries no type annotations.
package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Value is anything an instruction can consume: a constant, a function
// parameter, or the result of an earlier instruction.
type Value interface {
	// Ref is how the value is written when used as an operand.
	Ref() string
}

// Const is a floating point constant.
type Const struct {
	Val float64
}

func (c *Const) Ref() string {
	return strconv.FormatFloat(c.Val, 'g', -1, 64)
}

// Param is a function parameter.
type Param struct {
	Name  string
	Index int
}

func (p *Param) Ref() string { return "%" + p.Name }

// Op enumerates the arithmetic and comparison instructions. The two
// comparisons produce 0 or 1 widened to the value type, matching the
// language's single-type semantics.
type Op int

const (
	Add Op = iota // fadd
	Sub           // fsub
	Mul           // fmul
	ULT           // unordered less-than, widened to 0/1
	ONE           // ordered not-equal, widened to 0/1
)

var opNames = [...]string{
	Add: "fadd",
	Sub: "fsub",
	Mul: "fmul",
	ULT: "ult",
	ONE: "one",
}

func (op Op) String() string { return opNames[op] }

// Instr is an instruction appended to a basic block. All instructions
// produce a value.
type Instr interface {
	Value
	String() string
}

// BinOp applies Op to two operands.
type BinOp struct {
	Op   Op
	X, Y Value
	name string
}

func (b *BinOp) Ref() string { return "%" + b.name }
func (b *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Ref(), b.Op, b.X.Ref(), b.Y.Ref())
}

// CallInstr calls a function by name. The callee may live in the same
// unit, in an earlier unit (regenerated or declared on demand), or in
// the backend's host table.
type CallInstr struct {
	Callee string
	Args   []Value
	name   string
}

func (c *CallInstr) Ref() string { return "%" + c.name }
func (c *CallInstr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Ref()
	}
	return fmt.Sprintf("%s = call @%s(%s)", c.Ref(), c.Callee, strings.Join(args, ", "))
}

// Incoming is one (predecessor block, value) pair of a phi record.
type Incoming struct {
	Val   Value
	Block *Block
}

// Phi is the merge-value record at a control-flow join: it evaluates
// to the value contributed by whichever predecessor actually
// transferred control here. Entries are added in the order the
// predecessor edges are wired, one per edge.
type Phi struct {
	Incomings []Incoming
	name      string
}

func (p *Phi) Ref() string { return "%" + p.name }
func (p *Phi) String() string {
	parts := make([]string, len(p.Incomings))
	for i, in := range p.Incomings {
		parts[i] = fmt.Sprintf("[ %s, %s ]", in.Val.Ref(), in.Block.Name)
	}
	return fmt.Sprintf("%s = phi %s", p.Ref(), strings.Join(parts, ", "))
}

// AddIncoming appends a predecessor entry.
func (p *Phi) AddIncoming(val Value, block *Block) {
	p.Incomings = append(p.Incomings, Incoming{Val: val, Block: block})
}

// Term is the single control transfer that ends a basic block.
type Term interface {
	String() string
	termNode()
}

// Br branches unconditionally.
type Br struct {
	Target *Block
}

func (b *Br) termNode() {}
func (b *Br) String() string {
	return fmt.Sprintf("br %s", b.Target.Name)
}

// CondBr transfers to Then when Cond is non-zero and to Else
// otherwise.
type CondBr struct {
	Cond Value
	Then *Block
	Else *Block
}

func (b *CondBr) termNode() {}
func (b *CondBr) String() string {
	return fmt.Sprintf("condbr %s, %s, %s", b.Cond.Ref(), b.Then.Name, b.Else.Name)
}

// Ret returns Val from the enclosing function.
type Ret struct {
	Val Value
}

func (r *Ret) termNode() {}
func (r *Ret) String() string {
	return fmt.Sprintf("ret %s", r.Val.Ref())
}

// Block is a straight-line instruction sequence with one terminator.
type Block struct {
	Name   string
	Instrs []Instr
	Term   Term
}

// Func is one lowered function body: its blocks in creation order,
// entered at the first.
type Func struct {
	Name   string
	Params []*Param
	Blocks []*Block

	names map[string]int
}

// NewFunc creates an empty function with one parameter per name.
// Parameter names are reserved so later instructions never collide
// with them.
func NewFunc(name string, params []string) *Func {
	f := &Func{Name: name, names: make(map[string]int)}
	for i, p := range params {
		f.Params = append(f.Params, &Param{Name: p, Index: i})
		f.names[p] = 1
	}
	return f
}

// Entry returns the entry block, or nil before AddBlock.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AddBlock appends a new block, uniquifying base against names already
// used in this function.
func (f *Func) AddBlock(base string) *Block {
	b := &Block{Name: f.uniqueName(base)}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *Func) uniqueName(base string) string {
	n := f.names[base]
	f.names[base] = n + 1
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}

func (f *Func) String() string {
	var out bytes.Buffer

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Ref()
	}
	fmt.Fprintf(&out, "define @%s(%s) {\n", f.Name, strings.Join(params, ", "))
	for _, b := range f.Blocks {
		fmt.Fprintf(&out, "%s:\n", b.Name)
		for _, instr := range b.Instrs {
			fmt.Fprintf(&out, "  %s\n", instr)
		}
		if b.Term != nil {
			fmt.Fprintf(&out, "  %s\n", b.Term)
		}
	}
	out.WriteString("}\n")

	return out.String()
}

// Extern is a prototype referenced by the unit but not defined in it.
type Extern struct {
	Name   string
	Params []string
}

func (e *Extern) String() string {
	params := make([]string, len(e.Params))
	for i, p := range e.Params {
		params[i] = "%" + p
	}
	return fmt.Sprintf("declare @%s(%s)", e.Name, strings.Join(params, ", "))
}

// Module is one compilation unit: the function bodies lowered from a
// single top-level submission plus the external prototypes they
// reference. It is finalized, handed to a backend, and discarded.
type Module struct {
	Name    string
	Funcs   []*Func
	Externs []*Extern
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunc appends f to the unit.
func (m *Module) AddFunc(f *Func) {
	m.Funcs = append(m.Funcs, f)
}

// RemoveFunc discards a partially built function after a lowering
// failure, so no trace of it is handed to the backend.
func (m *Module) RemoveFunc(f *Func) {
	for i, g := range m.Funcs {
		if g == f {
			m.Funcs = append(m.Funcs[:i], m.Funcs[i+1:]...)
			return
		}
	}
}

// NamedFunc returns the function called name in this unit, if any.
func (m *Module) NamedFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// DeclareExtern records an external prototype, once per name.
func (m *Module) DeclareExtern(name string, params []string) *Extern {
	for _, e := range m.Externs {
		if e.Name == name {
			return e
		}
	}
	e := &Extern{Name: name, Params: params}
	m.Externs = append(m.Externs, e)
	return e
}

func (m *Module) String() string {
	var out bytes.Buffer
	for _, e := range m.Externs {
		fmt.Fprintf(&out, "%s\n", e)
	}
	for i, f := range m.Funcs {
		if i > 0 || len(m.Externs) > 0 {
			out.WriteString("\n")
		}
		out.WriteString(f.String())
	}
	return out.String()
}
