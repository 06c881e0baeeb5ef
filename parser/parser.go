package parser

import (
	"fmt"
	"strconv"

	"github.com/thiremani/mica/ast"
	"github.com/thiremani/mica/lexer"
	"github.com/thiremani/mica/token"
)

// Parser turns the token stream into top-level constructs: function
// definitions, extern prototypes, and anonymous wrappers around bare
// expressions. Expressions are parsed by precedence climbing against
// the environment's operator table, so user-declared operators take
// part as soon as their prototype has been parsed.
type Parser struct {
	l      *lexer.Lexer
	env    *ast.Env
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer, env *ast.Env) *Parser {
	p := &Parser{
		l:      l,
		env:    env,
		errors: []*token.CompileError{},
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

// expect consumes the current token when it has the wanted type and
// records msg as a diagnostic otherwise.
func (p *Parser) expect(t token.TokenType, msg string) bool {
	if !p.curTokenIs(t) {
		p.addError(p.curToken, msg)
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) addError(tok token.Token, msg string) {
	p.errors = append(p.errors, &token.CompileError{Token: tok, Msg: msg})
}

func (p *Parser) Errors() []*token.CompileError {
	return p.errors
}

// TakeErrors returns the accumulated diagnostics and resets the list,
// so the session can report per construct.
func (p *Parser) TakeErrors() []*token.CompileError {
	errs := p.errors
	p.errors = []*token.CompileError{}
	return errs
}

// AtEOF reports whether the token source is exhausted.
func (p *Parser) AtEOF() bool {
	return p.curTokenIs(token.EOF)
}

// ParseConstruct parses the next top-level construct and returns one
// of *ast.FuncDef, *ast.Prototype, or nil. A nil with no recorded
// errors means end of input. On a parse failure the partial construct
// is discarded and exactly one further token is skipped, so the next
// call resynchronizes at a fresh position.
func (p *Parser) ParseConstruct() ast.Node {
	for p.curTokenIs(token.SEMICOLON) {
		p.nextToken()
	}

	if p.curTokenIs(token.EOF) {
		return nil
	}

	var node ast.Node
	switch p.curToken.Type {
	case token.DEF:
		if fd := p.parseDefinition(); fd != nil {
			node = fd
		}
	case token.EXTERN:
		if proto := p.parseExtern(); proto != nil {
			node = proto
		}
	default:
		if fd := p.parseTopLevelExpr(); fd != nil {
			node = fd
		}
	}

	if node == nil {
		// Skip token for error recovery.
		p.nextToken()
	}
	return node
}

// definition ::= 'def' prototype expression
func (p *Parser) parseDefinition() *ast.FuncDef {
	p.nextToken() // eat def

	proto := p.parsePrototype()
	if proto == nil {
		return nil
	}

	body := p.parseExpression(0)
	if body == nil {
		return nil
	}

	return &ast.FuncDef{Proto: proto, Body: body}
}

// external ::= 'extern' prototype
func (p *Parser) parseExtern() *ast.Prototype {
	p.nextToken() // eat extern
	return p.parsePrototype()
}

// toplevelexpr ::= expression
//
// The expression is wrapped in an anonymous zero-parameter function so
// it can be generated and invoked like any other.
func (p *Parser) parseTopLevelExpr() *ast.FuncDef {
	tok := p.curToken
	expr := p.parseExpression(0)
	if expr == nil {
		return nil
	}

	proto := &ast.Prototype{
		Token:      tok,
		Name:       ast.AnonName,
		Precedence: ast.DefaultPrecedence,
	}
	return &ast.FuncDef{Proto: proto, Body: expr}
}

// prototype
//
//	::= id '(' id* ')'
//	::= 'binary' OP number? '(' id id ')'
//	::= 'unary' OP '(' id ')'
//
// Parameters are whitespace separated. The synthesized name for an
// operator prototype is the keyword concatenated with the symbol, so
// `binary|` implements the `|` operator.
func (p *Parser) parsePrototype() *ast.Prototype {
	proto := &ast.Prototype{
		Token:      p.curToken,
		Precedence: ast.DefaultPrecedence,
	}

	switch p.curToken.Type {
	case token.IDENT:
		proto.Name = p.curToken.Literal
		p.nextToken()
	case token.BINARY:
		p.nextToken()
		if !p.curTokenIs(token.OPERATOR) {
			p.addError(p.curToken, "expected operator after 'binary'")
			return nil
		}
		proto.Name = "binary" + p.curToken.Literal
		proto.Kind = ast.OpBinary
		p.nextToken()

		if p.curTokenIs(token.NUMBER) {
			prec, err := strconv.ParseFloat(p.curToken.Literal, 64)
			if err != nil || prec < 1 || prec > 100 {
				p.addError(p.curToken, "invalid precedence: must be 1..100")
				return nil
			}
			proto.Precedence = int(prec)
			p.nextToken()
		}
	case token.UNARY:
		p.nextToken()
		if !p.curTokenIs(token.OPERATOR) {
			p.addError(p.curToken, "expected operator after 'unary'")
			return nil
		}
		proto.Name = "unary" + p.curToken.Literal
		proto.Kind = ast.OpUnary
		p.nextToken()
	default:
		p.addError(p.curToken, "expected function name in prototype")
		return nil
	}

	if !p.expect(token.LPAREN, "expected '(' in prototype") {
		return nil
	}

	for p.curTokenIs(token.IDENT) {
		proto.Params = append(proto.Params, p.curToken.Literal)
		p.nextToken()
	}

	if !p.expect(token.RPAREN, "expected ')' in prototype") {
		return nil
	}

	if !p.checkNoDuplicates(proto) {
		return nil
	}

	switch proto.Kind {
	case ast.OpUnary:
		if len(proto.Params) != 1 {
			p.addError(proto.Token, "invalid number of operands for operator")
			return nil
		}
	case ast.OpBinary:
		if len(proto.Params) != 2 {
			p.addError(proto.Token, "invalid number of operands for operator")
			return nil
		}
		// The operator becomes parseable from here on.
		p.env.SetPrecedence(proto.Operator(), proto.Precedence)
	}

	return proto
}

func (p *Parser) checkNoDuplicates(proto *ast.Prototype) bool {
	seen := make(map[string]struct{}, len(proto.Params))
	for _, name := range proto.Params {
		if _, ok := seen[name]; ok {
			p.addError(proto.Token, fmt.Sprintf("duplicate parameter %q in prototype for %s", name, proto.Name))
			return false
		}
		seen[name] = struct{}{}
	}
	return true
}

// expression ::= primary binoprhs
func (p *Parser) parseExpression(minPrec int) ast.Expression {
	lhs := p.parsePrimary()
	if lhs == nil {
		return nil
	}

	return p.parseBinOpRHS(minPrec, lhs)
}

// curPrecedence returns the table precedence of the current token when
// it is an operator, and -1 otherwise. An operator missing from the
// table also yields -1, which terminates precedence climbing.
func (p *Parser) curPrecedence() int {
	if !p.curTokenIs(token.OPERATOR) {
		return -1
	}
	return p.env.Precedence(p.curToken.Literal)
}

// binoprhs ::= (op primary)*
//
// Standard precedence climbing: consume operators binding at least as
// tightly as minPrec; when the operator after the right operand binds
// tighter than the current one, the right operand is re-parsed with a
// raised threshold so the tighter operator groups into it.
func (p *Parser) parseBinOpRHS(minPrec int, lhs ast.Expression) ast.Expression {
	for {
		prec := p.curPrecedence()
		if prec < minPrec {
			return lhs
		}

		opTok := p.curToken
		p.nextToken() // eat operator

		rhs := p.parsePrimary()
		if rhs == nil {
			return nil
		}

		if prec < p.curPrecedence() {
			rhs = p.parseBinOpRHS(prec+1, rhs)
			if rhs == nil {
				return nil
			}
		}

		lhs = &ast.InfixExpression{
			Token:    opTok,
			Operator: opTok.Literal,
			Left:     lhs,
			Right:    rhs,
		}
	}
}

// primary
//
//	::= numberexpr | identifierexpr | parenexpr | ifexpr | forexpr
func (p *Parser) parsePrimary() ast.Expression {
	switch p.curToken.Type {
	case token.NUMBER:
		return p.parseNumberLiteral()
	case token.IDENT:
		return p.parseIdentifierExpr()
	case token.LPAREN:
		return p.parseGroupedExpression()
	case token.IF:
		return p.parseIfExpression()
	case token.FOR:
		return p.parseForExpression()
	default:
		p.addError(p.curToken, "unknown token when expecting an expression")
		return nil
	}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as number", p.curToken.Literal))
		return nil
	}
	lit.Value = value

	p.nextToken()
	return lit
}

// identifierexpr
//
//	::= identifier
//	::= identifier '(' expression (',' expression)* ')'
func (p *Parser) parseIdentifierExpr() ast.Expression {
	tok := p.curToken
	p.nextToken()

	if !p.curTokenIs(token.LPAREN) {
		return &ast.Identifier{Token: tok, Value: tok.Literal}
	}

	call := &ast.CallExpression{Token: tok, Callee: tok.Literal}
	p.nextToken() // eat (

	if !p.curTokenIs(token.RPAREN) {
		for {
			arg := p.parseExpression(0)
			if arg == nil {
				return nil
			}
			call.Arguments = append(call.Arguments, arg)

			if p.curTokenIs(token.RPAREN) {
				break
			}
			if !p.curTokenIs(token.COMMA) {
				p.addError(p.curToken, "expected ')' or ',' in argument list")
				return nil
			}
			p.nextToken() // eat ,
		}
	}

	p.nextToken() // eat )
	return call
}

// parenexpr ::= '(' expression ')'
func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken() // eat (

	expr := p.parseExpression(0)
	if expr == nil {
		return nil
	}

	if !p.expect(token.RPAREN, "expected ')'") {
		return nil
	}
	return expr
}

// ifexpr ::= 'if' expression 'then' expression ('else' expression)?
func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.curToken}
	p.nextToken() // eat if

	expr.Condition = p.parseExpression(0)
	if expr.Condition == nil {
		return nil
	}

	if !p.expect(token.THEN, "expected 'then'") {
		return nil
	}

	expr.Then = p.parseExpression(0)
	if expr.Then == nil {
		return nil
	}

	if p.curTokenIs(token.ELSE) {
		p.nextToken() // eat else
		expr.Else = p.parseExpression(0)
		if expr.Else == nil {
			return nil
		}
	} else {
		// An omitted else evaluates to 0.
		expr.Else = &ast.NumberLiteral{Token: expr.Token, Value: 0}
	}

	return expr
}

// forexpr ::= 'for' identifier '=' expr ',' expr ',' expr 'do' expr 'end'
func (p *Parser) parseForExpression() ast.Expression {
	expr := &ast.ForExpression{Token: p.curToken}
	p.nextToken() // eat for

	if !p.curTokenIs(token.IDENT) {
		p.addError(p.curToken, "expected identifier after 'for'")
		return nil
	}
	expr.Var = p.curToken.Literal
	p.nextToken()

	if !p.expect(token.ASSIGN, "expected '=' after loop variable") {
		return nil
	}

	expr.Start = p.parseExpression(0)
	if expr.Start == nil {
		return nil
	}

	if !p.expect(token.COMMA, "expected ',' after loop start value") {
		return nil
	}

	expr.Condition = p.parseExpression(0)
	if expr.Condition == nil {
		return nil
	}

	if !p.expect(token.COMMA, "expected ',' after loop condition") {
		return nil
	}

	expr.Step = p.parseExpression(0)
	if expr.Step == nil {
		return nil
	}

	if !p.expect(token.DO, "expected 'do' in for expression") {
		return nil
	}

	expr.Body = p.parseExpression(0)
	if expr.Body == nil {
		return nil
	}

	if !p.expect(token.END, "expected 'end' after for body") {
		return nil
	}

	return expr
}
