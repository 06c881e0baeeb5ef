package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thiremani/mica/ast"
	"github.com/thiremani/mica/lexer"
)

func parseOne(t *testing.T, input string) ast.Node {
	t.Helper()
	p := New(lexer.New(input), ast.NewEnv())
	node := p.ParseConstruct()
	require.Empty(t, p.Errors(), "input %q", input)
	require.NotNil(t, node, "input %q", input)
	return node
}

func parseAll(t *testing.T, input string) []ast.Node {
	t.Helper()
	p := New(lexer.New(input), ast.NewEnv())
	var nodes []ast.Node
	for !p.AtEOF() {
		node := p.ParseConstruct()
		require.Empty(t, p.Errors(), "input %q", input)
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func firstError(t *testing.T, input string) string {
	t.Helper()
	p := New(lexer.New(input), ast.NewEnv())
	for !p.AtEOF() {
		p.ParseConstruct()
		if errs := p.TakeErrors(); len(errs) > 0 {
			return errs[0].Msg
		}
	}
	t.Fatalf("expected a parse error for %q", input)
	return ""
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1+2*3", "(1 + (2 * 3))"},
		{"2*3+1", "((2 * 3) + 1)"},
		{"1+2-3", "((1 + 2) - 3)"},
		{"a<b+c", "(a < (b + c))"},
		{"(1+2)*3", "((1 + 2) * 3)"},
		{"a*b < c*d", "((a * b) < (c * d))"},
	}

	for _, tt := range tests {
		fd, ok := parseOne(t, tt.input).(*ast.FuncDef)
		require.True(t, ok)
		require.True(t, fd.IsAnon())
		require.Empty(t, fd.Proto.Params)
		require.Equal(t, tt.expected, fd.Body.String())
	}
}

func TestUserOperator(t *testing.T) {
	nodes := parseAll(t, `def binary| 5 (a b) a+b
1|0|1`)
	require.Len(t, nodes, 2)

	def := nodes[0].(*ast.FuncDef)
	require.Equal(t, "binary|", def.Proto.Name)
	require.Equal(t, ast.OpBinary, def.Proto.Kind)
	require.Equal(t, 5, def.Proto.Precedence)
	require.Equal(t, "|", def.Proto.Operator())

	expr := nodes[1].(*ast.FuncDef)
	require.Equal(t, "((1 | 0) | 1)", expr.Body.String())
}

func TestUserOperatorDefaultPrecedence(t *testing.T) {
	// Without a declared precedence the operator binds between + and *.
	nodes := parseAll(t, `def binary| (a b) a
1|2*3
1|2+3`)
	require.Len(t, nodes, 3)
	require.Equal(t, ast.DefaultPrecedence, nodes[0].(*ast.FuncDef).Proto.Precedence)
	require.Equal(t, "(1 | (2 * 3))", nodes[1].(*ast.FuncDef).Body.String())
	require.Equal(t, "((1 | 2) + 3)", nodes[2].(*ast.FuncDef).Body.String())
}

func TestUnaryPrototype(t *testing.T) {
	proto := parseOne(t, "extern unary!(v)").(*ast.Prototype)
	require.Equal(t, "unary!", proto.Name)
	require.Equal(t, ast.OpUnary, proto.Kind)
	require.Equal(t, "!", proto.Operator())
	require.Equal(t, []string{"v"}, proto.Params)
}

func TestUndeclaredOperatorStopsClimbing(t *testing.T) {
	// `|` has no table entry, so the expression ends before it and the
	// stray operator trips the next construct.
	p := New(lexer.New("1|2"), ast.NewEnv())

	node := p.ParseConstruct()
	require.Empty(t, p.TakeErrors())
	require.Equal(t, "1", node.(*ast.FuncDef).Body.String())

	require.Nil(t, p.ParseConstruct())
	errs := p.TakeErrors()
	require.Len(t, errs, 1)
	require.Equal(t, "unknown token when expecting an expression", errs[0].Msg)
}

func TestCallExpression(t *testing.T) {
	fd := parseOne(t, "foo(1, 2+3, bar())").(*ast.FuncDef)
	call, ok := fd.Body.(*ast.CallExpression)
	require.True(t, ok)
	require.Equal(t, "foo", call.Callee)
	require.Len(t, call.Arguments, 3)
	require.Equal(t, "foo(1, (2 + 3), bar())", call.String())
}

func TestIfDefaultsElseToZero(t *testing.T) {
	fd := parseOne(t, "if x then 1").(*ast.FuncDef)
	ie, ok := fd.Body.(*ast.IfExpression)
	require.True(t, ok)
	require.Equal(t, "if x then 1 else 0", ie.String())
}

func TestForExpression(t *testing.T) {
	fd := parseOne(t, "def count(n) for i = 1, i < n, 1 do i end").(*ast.FuncDef)
	fe, ok := fd.Body.(*ast.ForExpression)
	require.True(t, ok)
	require.Equal(t, "i", fe.Var)
	require.Equal(t, "for i = 1, (i < n), 1 do i end", fe.String())
}

func TestForDiagnostics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"for 1 = 1, i < 2, 1 do i end", "expected identifier after 'for'"},
		{"for i 1, i < 2, 1 do i end", "expected '=' after loop variable"},
		{"for i = 1 i < 2, 1 do i end", "expected ',' after loop start value"},
		{"for i = 1, i < 2 1 do i end", "expected ',' after loop condition"},
		{"for i = 1, i < 2, 1 i end", "expected 'do' in for expression"},
		{"for i = 1, i < 2, 1 do i", "expected 'end' after for body"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, firstError(t, tt.input), "input %q", tt.input)
	}
}

func TestPrototypeDiagnostics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"def 1(x) x", "expected function name in prototype"},
		{"def foo x) x", "expected '(' in prototype"},
		{"extern sin(x", "expected ')' in prototype"},
		{"def binary 5 (a b) a", "expected operator after 'binary'"},
		{"def unary (a) a", "expected operator after 'unary'"},
		{"def binary% 101 (a b) a", "invalid precedence: must be 1..100"},
		{"def binary% 0 (a b) a", "invalid precedence: must be 1..100"},
		{"def binary% (a) a", "invalid number of operands for operator"},
		{"def unary!(a b) a", "invalid number of operands for operator"},
		{"def foo(a a) a", `duplicate parameter "a" in prototype for foo`},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, firstError(t, tt.input), "input %q", tt.input)
	}
}

func TestErrorRecovery(t *testing.T) {
	p := New(lexer.New(`def (x) x
extern cos(y)`), ast.NewEnv())

	require.Nil(t, p.ParseConstruct())
	require.NotEmpty(t, p.TakeErrors())

	// The bad definition is discarded one token at a time until parsing
	// resumes at the extern.
	var proto *ast.Prototype
	for !p.AtEOF() {
		node := p.ParseConstruct()
		p.TakeErrors()
		if pr, ok := node.(*ast.Prototype); ok {
			proto = pr
		}
	}
	require.NotNil(t, proto)
	require.Equal(t, "cos", proto.Name)
}

func TestReparseIsIdempotent(t *testing.T) {
	// The same construct submitted twice yields structurally identical
	// trees; parsing mutates only the operator table, not the grammar.
	env := ast.NewEnv()
	src := "def foo(a) if a < 2 then a else foo(a-1)"

	p1 := New(lexer.New(src), env)
	first := p1.ParseConstruct()
	require.Empty(t, p1.Errors())

	p2 := New(lexer.New(src), env)
	second := p2.ParseConstruct()
	require.Empty(t, p2.Errors())

	require.Equal(t, first.String(), second.String())
}

func TestSemicolonsSkipped(t *testing.T) {
	nodes := parseAll(t, ";;1+2;;3;")
	require.Len(t, nodes, 2)
	require.Equal(t, "(1 + 2)", nodes[0].(*ast.FuncDef).Body.String())
	require.Equal(t, "3", nodes[1].(*ast.FuncDef).Body.String())
}
