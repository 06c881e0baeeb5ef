package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/thiremani/mica/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

// OpKind tags a prototype with the operator role it implements.
type OpKind int

const (
	OpNone OpKind = iota
	OpUnary
	OpBinary
)

// DefaultPrecedence is used for a binary operator prototype that does
// not declare one.
const DefaultPrecedence = 30

// NumberLiteral is a floating point constant.
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()  {}
func (nl *NumberLiteral) Tok() token.Token { return nl.Token }
func (nl *NumberLiteral) String() string {
	if nl.Token.Literal != "" {
		return nl.Token.Literal
	}
	return strconv.FormatFloat(nl.Value, 'g', -1, 64)
}

// Identifier is a reference to a variable.
type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

// InfixExpression combines two operands with a binary operator, which
// may be a built-in or a user-declared symbol.
type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Operator string
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode()  {}
func (ie *InfixExpression) Tok() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")

	return out.String()
}

// CallExpression is callee(arg, arg, ...).
type CallExpression struct {
	Token     token.Token // the callee token.IDENT token
	Callee    string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()  {}
func (ce *CallExpression) Tok() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}

	var out bytes.Buffer
	out.WriteString(ce.Callee)
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

// IfExpression is `if cond then a else b`. An omitted else parses as
// the literal 0.
type IfExpression struct {
	Token     token.Token // the token.IF token
	Condition Expression
	Then      Expression
	Else      Expression
}

func (ie *IfExpression) expressionNode()  {}
func (ie *IfExpression) Tok() token.Token { return ie.Token }
func (ie *IfExpression) String() string {
	var out bytes.Buffer

	out.WriteString("if ")
	out.WriteString(ie.Condition.String())
	out.WriteString(" then ")
	out.WriteString(ie.Then.String())
	out.WriteString(" else ")
	out.WriteString(ie.Else.String())

	return out.String()
}

// ForExpression is `for i = start, cond, step do body end`. The loop
// itself always evaluates to 0.
type ForExpression struct {
	Token     token.Token // the token.FOR token
	Var       string
	Start     Expression
	Condition Expression
	Step      Expression
	Body      Expression
}

func (fe *ForExpression) expressionNode()  {}
func (fe *ForExpression) Tok() token.Token { return fe.Token }
func (fe *ForExpression) String() string {
	var out bytes.Buffer

	out.WriteString("for ")
	out.WriteString(fe.Var)
	out.WriteString(" = ")
	out.WriteString(fe.Start.String())
	out.WriteString(", ")
	out.WriteString(fe.Condition.String())
	out.WriteString(", ")
	out.WriteString(fe.Step.String())
	out.WriteString(" do ")
	out.WriteString(fe.Body.String())
	out.WriteString(" end")

	return out.String()
}

// Prototype is a function signature: name, parameter names, operator
// role, and the declared precedence when the role is OpBinary.
type Prototype struct {
	Token      token.Token // the name, `binary`, or `unary` token
	Name       string
	Params     []string
	Kind       OpKind
	Precedence int
}

func (p *Prototype) Tok() token.Token { return p.Token }
func (p *Prototype) String() string {
	var out bytes.Buffer
	out.WriteString(p.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(p.Params, " "))
	out.WriteString(")")
	return out.String()
}

// Operator returns the operator symbol a binary/unary prototype
// implements, e.g. "|" for a prototype named "binary|".
func (p *Prototype) Operator() string {
	switch p.Kind {
	case OpBinary:
		return strings.TrimPrefix(p.Name, "binary")
	case OpUnary:
		return strings.TrimPrefix(p.Name, "unary")
	}
	return ""
}

// FuncDef owns one Prototype and one body expression.
type FuncDef struct {
	Proto *Prototype
	Body  Expression
}

func (fd *FuncDef) Tok() token.Token { return fd.Proto.Token }
func (fd *FuncDef) String() string {
	var out bytes.Buffer
	out.WriteString("def ")
	out.WriteString(fd.Proto.String())
	out.WriteString(" ")
	out.WriteString(fd.Body.String())
	return out.String()
}

// AnonName is the synthesized name given to a bare top-level
// expression wrapped in a zero-parameter function.
const AnonName = "__anon_expr"

// IsAnon reports whether fd wraps a bare top-level expression.
func (fd *FuncDef) IsAnon() bool {
	return fd.Proto.Name == AnonName
}
