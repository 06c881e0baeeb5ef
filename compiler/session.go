package compiler

import (
	"fmt"
	"io"

	"github.com/thiremani/mica/ast"
	"github.com/thiremani/mica/ir"
	"github.com/thiremani/mica/lexer"
	"github.com/thiremani/mica/parser"
	"github.com/thiremani/mica/token"
)

// Callable is an executable handle the backend returns for a looked-up
// function.
type Callable func(args ...float64) (float64, error)

// Backend consumes finalized compilation units. Generate may optimize
// before accepting; Lookup resolves a generated function to a handle.
// The interpreter engine implements both; the LLVM emitter implements
// Generate and rejects Lookup.
type Backend interface {
	Generate(unit *ir.Module) error
	Lookup(name string) (Callable, error)
}

// Session is the incremental-compilation state of one read-eval loop:
// the persistent symbol environment plus the backend. Each top-level
// construct is lowered into its own short-lived unit, handed off, and
// the unit discarded, while prototypes, definitions, and the operator
// table accumulate across submissions.
type Session struct {
	Env     *ast.Env
	Backend Backend

	Out io.Writer // generated/evaluated representations
	Err io.Writer // diagnostics

	unitCount int
}

func NewSession(backend Backend, out, errw io.Writer) *Session {
	return &Session{
		Env:     ast.NewEnv(),
		Backend: backend,
		Out:     out,
		Err:     errw,
	}
}

func (s *Session) newUnit() *ir.Module {
	m := ir.NewModule(fmt.Sprintf("unit%d", s.unitCount))
	s.unitCount++
	return m
}

func (s *Session) report(errs []*token.CompileError) {
	for _, ce := range errs {
		fmt.Fprintf(s.Err, "error: %s\n", ce)
	}
}

// HandleSource lexes src and handles every top-level construct in it.
// Diagnostics go to the error channel; the session continues with the
// next construct after any failure. Returns the number of constructs
// that failed.
func (s *Session) HandleSource(src string) int {
	p := parser.New(lexer.New(src), s.Env)

	failed := 0
	for {
		node := p.ParseConstruct()
		if errs := p.TakeErrors(); len(errs) > 0 {
			s.report(errs)
			failed++
			continue
		}
		if node == nil {
			return failed
		}
		if !s.Handle(node) {
			failed++
		}
	}
}

// Handle lowers one parsed construct, hands the finalized unit to the
// backend, and for an anonymous expression invokes it and prints the
// result. Reports success.
func (s *Session) Handle(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.Prototype:
		return s.handleExtern(n)
	case *ast.FuncDef:
		return s.handleDefinition(n)
	default:
		panic(fmt.Sprintf("unhandled construct type: %T", n))
	}
}

func (s *Session) handleExtern(proto *ast.Prototype) bool {
	s.Env.Declare(proto)
	ext := ir.Extern{Name: proto.Name, Params: proto.Params}
	fmt.Fprintf(s.Out, "Read extern:\n%s\n", &ext)
	return true
}

func (s *Session) handleDefinition(fd *ast.FuncDef) bool {
	unit := s.newUnit()
	c := NewCompiler(s.Env, unit)

	fn := c.CompileFunc(fd)
	if fn == nil {
		s.report(c.Errors)
		return false
	}

	// Ownership of the unit transfers to the backend; a fresh unit is
	// made for the next construct.
	if err := s.Backend.Generate(unit); err != nil {
		fmt.Fprintf(s.Err, "error: %v\n", err)
		return false
	}

	if !fd.IsAnon() {
		fmt.Fprintf(s.Out, "Read function definition:\n%s", fn)
		return true
	}

	callable, err := s.Backend.Lookup(ast.AnonName)
	if err != nil {
		fmt.Fprintf(s.Err, "error: %v\n", err)
		return false
	}
	v, err := callable()
	if err != nil {
		fmt.Fprintf(s.Err, "error: %v\n", err)
		return false
	}
	fmt.Fprintf(s.Out, "Evaluated to: %g\n", v)
	return true
}
