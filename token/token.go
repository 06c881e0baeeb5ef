package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	literal_beg
	// Identifiers + literals
	IDENT  // fib, x, y, ...
	NUMBER // 13.25
	literal_end

	keyword_beg
	DEF
	EXTERN
	IF
	THEN
	ELSE
	FOR
	DO
	END
	BINARY
	UNARY
	keyword_end

	// Delimiters
	ASSIGN    // = (loop-variable initialization only)
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )

	// Any other symbol character. The literal carries the symbol so
	// user-declared operators flow through without lexer changes.
	OPERATOR
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",

	DEF:    "def",
	EXTERN: "extern",
	IF:     "if",
	THEN:   "then",
	ELSE:   "else",
	FOR:    "for",
	DO:     "do",
	END:    "end",
	BINARY: "binary",
	UNARY:  "unary",

	ASSIGN:    "=",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",

	OPERATOR: "OPERATOR",
}

var keywords = map[string]TokenType{
	"def":    DEF,
	"extern": EXTERN,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"for":    FOR,
	"do":     DO,
	"end":    END,
	"binary": BINARY,
	"unary":  UNARY,
}

// LookupIdent maps identifier text to its keyword type, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) IsKeyword() bool {
	return keyword_beg < t.Type && t.Type < keyword_end
}

func (t Token) IsLiteral() bool {
	return literal_beg < t.Type && t.Type < literal_end
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// CompileError is a diagnostic tied to the token where it was detected.
// Both the parser and the compiler accumulate these; the session prints
// them and moves on to the next top-level construct.
type CompileError struct {
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s", ce.Token.Line, ce.Token.Column, ce.Msg)
}
