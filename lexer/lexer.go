package lexer

import "github.com/thiremani/mica/token"

type Lexer struct {
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: []rune(input), line: 1, column: 0}
	l.readRune()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipSpaceAndComments()

	line, column := l.line, l.column

	var tok token.Token
	switch l.curr {
	case '=':
		tok = l.newToken(token.ASSIGN)
	case ',':
		tok = l.newToken(token.COMMA)
	case ';':
		tok = l.newToken(token.SEMICOLON)
	case '(':
		tok = l.newToken(token.LPAREN)
	case ')':
		tok = l.newToken(token.RPAREN)
	case 0:
		tok = token.Token{Type: token.EOF, Literal: "", Line: line, Column: column}
	default:
		if isLetter(l.curr) {
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(lit), Literal: lit, Line: line, Column: column}
		}
		if isDigit(l.curr) || l.curr == '.' {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Line: line, Column: column}
		}
		// Everything else is an operator character. User-declared
		// operators reach the parser this way.
		tok = l.newToken(token.OPERATOR)
	}

	l.readRune()
	return tok
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		for l.curr == ' ' || l.curr == '\t' || l.curr == '\n' || l.curr == '\r' {
			l.readRune()
		}
		if l.curr != '#' {
			return
		}
		// comment until end of line
		for l.curr != '\n' && l.curr != 0 {
			l.readRune()
		}
	}
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.curr) || l.curr == '.' {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) newToken(tokenType token.TokenType) token.Token {
	return token.Token{Type: tokenType, Literal: string(l.curr), Line: l.line, Column: l.column}
}
