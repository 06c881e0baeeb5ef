// Package interp executes compilation units directly over the CFG.
// It is the session's reference backend: units accumulate into one
// function table, phi records resolve against the actually taken
// predecessor edge, and a couple of host functions stand in for the
// process symbols a native backend would link against.
package interp

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/thiremani/mica/compiler"
	"github.com/thiremani/mica/ir"
)

// HostFunc is a function provided by the host process, callable from
// the language like any extern. The declared prototype is whatever the
// user wrote in their extern, so implementations validate their own
// argument count.
type HostFunc func(args ...float64) (float64, error)

const maxDepth = 10000

// Engine implements compiler.Backend by walking basic blocks.
type Engine struct {
	funcs map[string]*ir.Func
	hosts map[string]HostFunc
	depth int
}

// NewEngine returns an engine whose host functions write to out.
// A nil out means os.Stdout.
func NewEngine(out io.Writer) *Engine {
	if out == nil {
		out = os.Stdout
	}
	e := &Engine{
		funcs: make(map[string]*ir.Func),
		hosts: make(map[string]HostFunc),
	}

	// Default host functions for character and number output.
	e.hosts["putchard"] = func(args ...float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("putchard expects 1 argument, got %d", len(args))
		}
		fmt.Fprintf(out, "%c", rune(args[0]))
		return 0, nil
	}
	e.hosts["printd"] = func(args ...float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("printd expects 1 argument, got %d", len(args))
		}
		fmt.Fprintf(out, "%f\n", args[0])
		return 0, nil
	}
	return e
}

// RegisterHost installs or replaces a host function.
func (e *Engine) RegisterHost(name string, fn HostFunc) {
	e.hosts[name] = fn
}

// Generate accepts a finalized unit. Functions replace same-named ones
// from earlier units, which is how the anonymous wrapper is reused and
// how regenerated definitions stay current. Extern references resolve
// lazily at call time.
func (e *Engine) Generate(unit *ir.Module) error {
	for _, f := range unit.Funcs {
		e.funcs[f.Name] = f
	}
	return nil
}

// Lookup resolves a generated function to a callable handle.
func (e *Engine) Lookup(name string) (compiler.Callable, error) {
	f, ok := e.funcs[name]
	if ok {
		return func(args ...float64) (float64, error) {
			return e.run(f, args)
		}, nil
	}
	if host, ok := e.hosts[name]; ok {
		return compiler.Callable(host), nil
	}
	return nil, fmt.Errorf("undefined symbol %s", name)
}

func (e *Engine) call(name string, args []float64) (float64, error) {
	if f, ok := e.funcs[name]; ok {
		return e.run(f, args)
	}
	if host, ok := e.hosts[name]; ok {
		return host(args...)
	}
	return 0, fmt.Errorf("undefined symbol %s", name)
}

// run executes one function body block by block, tracking the
// predecessor so phi records can select the value contributed along
// the edge actually taken.
func (e *Engine) run(f *ir.Func, args []float64) (float64, error) {
	if len(args) != len(f.Params) {
		return 0, fmt.Errorf("function %s expects %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	if e.depth >= maxDepth {
		return 0, fmt.Errorf("call depth limit exceeded in %s", f.Name)
	}
	e.depth++
	defer func() { e.depth-- }()

	vals := make(map[ir.Value]float64)
	for i, p := range f.Params {
		vals[p] = args[i]
	}

	eval := func(v ir.Value) float64 {
		if c, ok := v.(*ir.Const); ok {
			return c.Val
		}
		return vals[v]
	}

	block := f.Entry()
	if block == nil {
		return 0, fmt.Errorf("function %s has no body", f.Name)
	}
	var prev *ir.Block

	for {
		for _, instr := range block.Instrs {
			switch i := instr.(type) {
			case *ir.BinOp:
				vals[i] = evalBinOp(i.Op, eval(i.X), eval(i.Y))
			case *ir.CallInstr:
				callArgs := make([]float64, len(i.Args))
				for k, a := range i.Args {
					callArgs[k] = eval(a)
				}
				v, err := e.call(i.Callee, callArgs)
				if err != nil {
					return 0, err
				}
				vals[i] = v
			case *ir.Phi:
				matched := false
				for _, in := range i.Incomings {
					if in.Block == prev {
						vals[i] = eval(in.Val)
						matched = true
						break
					}
				}
				if !matched {
					return 0, fmt.Errorf("phi %s in %s has no entry for predecessor", i.Ref(), f.Name)
				}
			default:
				return 0, fmt.Errorf("unhandled instruction %T", instr)
			}
		}

		switch t := block.Term.(type) {
		case *ir.Br:
			prev, block = block, t.Target
		case *ir.CondBr:
			prev = block
			if eval(t.Cond) != 0 {
				block = t.Then
			} else {
				block = t.Else
			}
		case *ir.Ret:
			return eval(t.Val), nil
		default:
			return 0, fmt.Errorf("block %s in %s has no terminator", block.Name, f.Name)
		}
	}
}

func evalBinOp(op ir.Op, x, y float64) float64 {
	switch op {
	case ir.Add:
		return x + y
	case ir.Sub:
		return x - y
	case ir.Mul:
		return x * y
	case ir.ULT:
		// unordered-or-less-than, widened to 0/1
		if x < y || math.IsNaN(x) || math.IsNaN(y) {
			return 1
		}
		return 0
	case ir.ONE:
		if x != y && !math.IsNaN(x) && !math.IsNaN(y) {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("unhandled op %v", op))
	}
}

var _ compiler.Backend = (*Engine)(nil)
