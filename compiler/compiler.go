package compiler

import (
	"fmt"

	"github.com/thiremani/mica/ast"
	"github.com/thiremani/mica/ir"
	"github.com/thiremani/mica/token"
)

// Compiler lowers AST nodes into the basic-block graph of one
// compilation unit. It consults the persistent environment for
// prototypes and earlier definitions but writes only into its own
// unit; a fresh Compiler is made per top-level submission.
type Compiler struct {
	Env    *ast.Env
	Module *ir.Module
	Errors []*token.CompileError

	builder *ir.Builder
	fn      *ir.Func
	Scopes  []Scope[ir.Value]
}

func NewCompiler(env *ast.Env, module *ir.Module) *Compiler {
	return &Compiler{
		Env:     env,
		Module:  module,
		Errors:  []*token.CompileError{},
		builder: ir.NewBuilder(),
		Scopes:  []Scope[ir.Value]{NewScope[ir.Value](FuncScope)},
	}
}

func (c *Compiler) addError(tok token.Token, msg string) {
	c.Errors = append(c.Errors, &token.CompileError{Token: tok, Msg: msg})
}

// CompileFunc lowers one function definition into the current unit and
// returns its body graph, or nil after recording diagnostics. On any
// failure the partially built function is removed from the unit.
func (c *Compiler) CompileFunc(fd *ast.FuncDef) *ir.Func {
	name := fd.Proto.Name
	if c.Env.Defined(name) {
		c.addError(fd.Proto.Token, fmt.Sprintf("function %s has already been defined", name))
		return nil
	}
	// A declaration-only prototype is filled in by its first
	// definition; the definition's prototype wins from here on.
	c.Env.Declare(fd.Proto)

	fn := ir.NewFunc(name, fd.Proto.Params)
	c.Module.AddFunc(fn)

	// Regeneration can nest a CompileFunc inside another; save the
	// caller's position and locals.
	prevFn, prevBlock := c.fn, c.builder.GetInsertBlock()
	c.fn = fn
	entry := fn.AddBlock("entry")
	c.builder.SetInsertPoint(fn, entry)

	PushScope(&c.Scopes, FuncScope)
	for _, p := range fn.Params {
		Put(c.Scopes, p.Name, ir.Value(p))
	}

	body := c.compileExpr(fd.Body)
	if body != nil {
		c.builder.CreateRet(body)
	}

	PopScope(&c.Scopes)
	c.fn = prevFn
	if prevFn != nil {
		c.builder.SetInsertPoint(prevFn, prevBlock)
	}

	if body == nil {
		c.Module.RemoveFunc(fn)
		return nil
	}

	if !fd.IsAnon() {
		c.Env.Define(fd)
	}
	return fn
}

// getFunction resolves a callee against the current unit first, then
// the environment: a known definition is regenerated into this unit on
// demand, a declaration-only prototype becomes an extern stub.
// Returns the callee's arity and whether resolution succeeded.
func (c *Compiler) getFunction(tok token.Token, name string) (int, bool) {
	if f := c.Module.NamedFunc(name); f != nil {
		return len(f.Params), true
	}

	if fd, ok := c.Env.Def(name); ok {
		// Temporarily forget the definition so CompileFunc does not
		// reject the regeneration as a redefinition.
		delete(c.Env.Defs, name)
		f := c.CompileFunc(fd)
		if f == nil {
			c.Env.Defs[name] = fd
			return 0, false
		}
		return len(f.Params), true
	}

	if proto, ok := c.Env.Proto(name); ok {
		c.Module.DeclareExtern(proto.Name, proto.Params)
		return len(proto.Params), true
	}

	c.addError(tok, fmt.Sprintf("unknown function %s referenced", name))
	return 0, false
}

func (c *Compiler) compileExpr(expr ast.Expression) ir.Value {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return &ir.Const{Val: e.Value}
	case *ast.Identifier:
		return c.compileIdentifier(e)
	case *ast.InfixExpression:
		return c.compileInfix(e)
	case *ast.CallExpression:
		return c.compileCall(e)
	case *ast.IfExpression:
		return c.compileIf(e)
	case *ast.ForExpression:
		return c.compileFor(e)
	default:
		panic(fmt.Sprintf("unhandled expression type: %T", e))
	}
}

func (c *Compiler) compileIdentifier(id *ast.Identifier) ir.Value {
	v, ok := Get(c.Scopes, id.Value)
	if !ok {
		c.addError(id.Token, fmt.Sprintf("unknown variable name %s", id.Value))
		return nil
	}
	return v
}

// compileInfix lowers both operands left to right, short-circuiting on
// the first failure so the operator instruction is never emitted over
// a hole. Built-ins map to arithmetic; `<` widens its comparison back
// to the value type; anything else becomes a call to the user-declared
// binary<op> function.
func (c *Compiler) compileInfix(ie *ast.InfixExpression) ir.Value {
	left := c.compileExpr(ie.Left)
	if left == nil {
		return nil
	}
	right := c.compileExpr(ie.Right)
	if right == nil {
		return nil
	}

	switch ie.Operator {
	case "+":
		return c.builder.CreateBinOp(ir.Add, left, right, "addtmp")
	case "-":
		return c.builder.CreateBinOp(ir.Sub, left, right, "subtmp")
	case "*":
		return c.builder.CreateBinOp(ir.Mul, left, right, "multmp")
	case "<":
		// Comparison result is 0/1 widened to the value type.
		return c.builder.CreateBinOp(ir.ULT, left, right, "cmptmp")
	}

	callee := "binary" + ie.Operator
	if c.Module.NamedFunc(callee) == nil {
		if _, declared := c.Env.Proto(callee); !declared {
			c.addError(ie.Token, "invalid binary operator")
			return nil
		}
	}
	arity, ok := c.getFunction(ie.Token, callee)
	if !ok {
		return nil
	}
	if arity != 2 {
		c.addError(ie.Token, fmt.Sprintf("operator function %s must take 2 operands", callee))
		return nil
	}
	return c.builder.CreateCall(callee, []ir.Value{left, right}, "binop")
}

func (c *Compiler) compileCall(ce *ast.CallExpression) ir.Value {
	arity, ok := c.getFunction(ce.Token, ce.Callee)
	if !ok {
		return nil
	}
	if arity != len(ce.Arguments) {
		c.addError(ce.Token, fmt.Sprintf("incorrect number of arguments for function %s", ce.Callee))
		return nil
	}

	args := make([]ir.Value, 0, len(ce.Arguments))
	for _, argExpr := range ce.Arguments {
		arg := c.compileExpr(argExpr)
		if arg == nil {
			return nil
		}
		args = append(args, arg)
	}

	return c.builder.CreateCall(ce.Callee, args, "calltmp")
}

// compileIf lowers a conditional into then/else arms joined by a merge
// block whose phi record carries the arm values. Each arm's incoming
// is keyed by the block the arm actually ended in, which may be deeper
// than the block it started in.
func (c *Compiler) compileIf(ie *ast.IfExpression) ir.Value {
	cond := c.compileExpr(ie.Condition)
	if cond == nil {
		return nil
	}
	ifCond := c.builder.CreateBinOp(ir.ONE, cond, &ir.Const{Val: 0}, "ifcond")

	thenBlock := c.fn.AddBlock("then")
	elseBlock := c.fn.AddBlock("else")
	mergeBlock := c.fn.AddBlock("merge")
	c.builder.CreateCondBr(ifCond, thenBlock, elseBlock)

	c.builder.SetInsertPoint(c.fn, thenBlock)
	thenVal := c.compileExpr(ie.Then)
	if thenVal == nil {
		return nil
	}
	c.builder.CreateBr(mergeBlock)
	thenEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPoint(c.fn, elseBlock)
	elseVal := c.compileExpr(ie.Else)
	if elseVal == nil {
		return nil
	}
	c.builder.CreateBr(mergeBlock)
	elseEnd := c.builder.GetInsertBlock()

	c.builder.SetInsertPoint(c.fn, mergeBlock)
	phi := c.builder.CreatePhi("iftmp")
	phi.AddIncoming(thenVal, thenEnd)
	phi.AddIncoming(elseVal, elseEnd)
	return phi
}

// compileFor lowers a counting loop. The condition is tested in the
// header before every iteration, including the first, so a loop can
// run zero times. The induction variable is a phi in the header fed by
// the start value and by var+step from the latch; it shadows any
// existing binding of the same name for the loop's duration. The loop
// expression itself always evaluates to 0.
func (c *Compiler) compileFor(fe *ast.ForExpression) ir.Value {
	start := c.compileExpr(fe.Start)
	if start == nil {
		return nil
	}
	preheader := c.builder.GetInsertBlock()

	header := c.fn.AddBlock("loop")
	exit := c.fn.AddBlock("endfor")
	c.builder.CreateBr(header)

	c.builder.SetInsertPoint(c.fn, header)
	induction := c.builder.CreatePhi(fe.Var)
	induction.AddIncoming(start, preheader)

	oldVal, hadOld := Get(c.Scopes, fe.Var)
	Put(c.Scopes, fe.Var, ir.Value(induction))

	cond := c.compileExpr(fe.Condition)
	if cond == nil {
		return nil
	}
	forCond := c.builder.CreateBinOp(ir.ONE, cond, &ir.Const{Val: 0}, "forcond")

	body := c.fn.AddBlock("body")
	c.builder.CreateCondBr(forCond, body, exit)

	c.builder.SetInsertPoint(c.fn, body)
	if c.compileExpr(fe.Body) == nil {
		return nil
	}
	step := c.compileExpr(fe.Step)
	if step == nil {
		return nil
	}
	next := c.builder.CreateBinOp(ir.Add, induction, step, "nextvar")
	latch := c.builder.GetInsertBlock()
	induction.AddIncoming(next, latch)
	c.builder.CreateBr(header)

	c.builder.SetInsertPoint(c.fn, exit)
	if hadOld {
		Put(c.Scopes, fe.Var, oldVal)
	} else {
		Delete(c.Scopes, fe.Var)
	}

	return &ir.Const{Val: 0}
}
