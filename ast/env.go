package ast

// Env is the symbol environment that survives across top-level
// submissions: declared prototypes, full definitions kept for lazy
// regeneration into later compilation units, and the operator
// precedence table consulted by the parser.
//
// It is passed explicitly to the parser and the compiler so several
// independent sessions can coexist in one process.
type Env struct {
	Protos map[string]*Prototype
	Defs   map[string]*FuncDef
	prec   map[string]int
}

func NewEnv() *Env {
	return &Env{
		Protos: make(map[string]*Prototype),
		Defs:   make(map[string]*FuncDef),
		prec: map[string]int{
			"<": 10,
			"+": 20,
			"-": 20,
			"*": 40,
		},
	}
}

// Precedence returns the binding strength of op, or -1 when op is not
// a declared binary operator. A non-positive table entry is reported
// as -1 as well, so it can never participate in expression parsing.
func (e *Env) Precedence(op string) int {
	p, ok := e.prec[op]
	if !ok || p <= 0 {
		return -1
	}
	return p
}

// SetPrecedence installs or overrides the precedence for op. Called
// for every successfully parsed `binary` prototype.
func (e *Env) SetPrecedence(op string, prec int) {
	e.prec[op] = prec
}

// Declare records a prototype. Later declarations overwrite earlier
// ones; whether that is a conflict is decided at definition time.
func (e *Env) Declare(proto *Prototype) {
	e.Protos[proto.Name] = proto
}

// Proto returns the declared prototype for name, if any.
func (e *Env) Proto(name string) (*Prototype, bool) {
	p, ok := e.Protos[name]
	return p, ok
}

// Def returns the full definition for name, if one has been generated.
func (e *Env) Def(name string) (*FuncDef, bool) {
	fd, ok := e.Defs[name]
	return fd, ok
}

// Define records a full definition after it has been generated, making
// it available for regeneration into later compilation units.
func (e *Env) Define(fd *FuncDef) {
	e.Protos[fd.Proto.Name] = fd.Proto
	e.Defs[fd.Proto.Name] = fd
}

// Defined reports whether name already has a generated definition.
// The anonymous wrapper is exempt: every bare expression reuses its
// name.
func (e *Env) Defined(name string) bool {
	if name == AnonName {
		return false
	}
	_, ok := e.Defs[name]
	return ok
}
