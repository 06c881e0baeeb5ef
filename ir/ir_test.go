package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniqueNames(t *testing.T) {
	fn := NewFunc("f", nil)
	require.Equal(t, "entry", fn.AddBlock("entry").Name)
	require.Equal(t, "then", fn.AddBlock("then").Name)
	require.Equal(t, "then1", fn.AddBlock("then").Name)
	require.Equal(t, "then2", fn.AddBlock("then").Name)
	require.Equal(t, "entry1", fn.AddBlock("entry").Name)
}

func TestFuncDump(t *testing.T) {
	fn := NewFunc("add", []string{"a", "b"})
	b := NewBuilder()
	b.SetInsertPoint(fn, fn.AddBlock("entry"))
	sum := b.CreateBinOp(Add, fn.Params[0], fn.Params[1], "addtmp")
	b.CreateRet(sum)

	expected := `define @add(%a, %b) {
entry:
  %addtmp = fadd %a, %b
  ret %addtmp
}
`
	require.Equal(t, expected, fn.String())
}

func TestPhiDump(t *testing.T) {
	fn := NewFunc("f", nil)
	b := NewBuilder()

	entry := fn.AddBlock("entry")
	then := fn.AddBlock("then")
	merge := fn.AddBlock("merge")

	b.SetInsertPoint(fn, entry)
	b.CreateCondBr(&Const{Val: 1}, then, merge)

	b.SetInsertPoint(fn, then)
	b.CreateBr(merge)

	b.SetInsertPoint(fn, merge)
	phi := b.CreatePhi("iftmp")
	phi.AddIncoming(&Const{Val: 1}, then)
	phi.AddIncoming(&Const{Val: 0.5}, entry)
	b.CreateRet(phi)

	require.Equal(t, "%iftmp = phi [ 1, then ], [ 0.5, entry ]", phi.String())
	require.Equal(t, "condbr 1, then, merge", entry.Term.String())
}

func TestTerminatedBlockPanics(t *testing.T) {
	fn := NewFunc("f", nil)
	b := NewBuilder()
	b.SetInsertPoint(fn, fn.AddBlock("entry"))
	b.CreateRet(&Const{Val: 0})

	require.Panics(t, func() {
		b.CreateRet(&Const{Val: 1})
	})
	require.Panics(t, func() {
		b.CreateBinOp(Add, &Const{Val: 1}, &Const{Val: 2}, "addtmp")
	})
}

func TestModuleDump(t *testing.T) {
	m := NewModule("unit0")
	m.DeclareExtern("sin", []string{"x"})
	m.DeclareExtern("sin", []string{"x"}) // idempotent

	fn := NewFunc("f", []string{"x"})
	b := NewBuilder()
	b.SetInsertPoint(fn, fn.AddBlock("entry"))
	call := b.CreateCall("sin", []Value{fn.Params[0]}, "calltmp")
	b.CreateRet(call)
	m.AddFunc(fn)

	expected := `declare @sin(%x)

define @f(%x) {
entry:
  %calltmp = call @sin(%x)
  ret %calltmp
}
`
	require.Equal(t, expected, m.String())
	require.Len(t, m.Externs, 1)
}

func TestRemoveFunc(t *testing.T) {
	m := NewModule("unit0")
	f := NewFunc("f", nil)
	g := NewFunc("g", nil)
	m.AddFunc(f)
	m.AddFunc(g)

	m.RemoveFunc(f)
	require.Nil(t, m.NamedFunc("f"))
	require.Same(t, g, m.NamedFunc("g"))
}
