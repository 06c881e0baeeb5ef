package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupIdent(t *testing.T) {
	require.Equal(t, DEF, LookupIdent("def"))
	require.Equal(t, BINARY, LookupIdent("binary"))
	require.Equal(t, IDENT, LookupIdent("fib"))
	require.Equal(t, IDENT, LookupIdent("Extern"))
}

func TestTokenPredicates(t *testing.T) {
	require.True(t, Token{Type: FOR}.IsKeyword())
	require.False(t, Token{Type: NUMBER}.IsKeyword())
	require.True(t, Token{Type: NUMBER}.IsLiteral())
	require.False(t, Token{Type: OPERATOR}.IsLiteral())
}

func TestCompileError(t *testing.T) {
	ce := &CompileError{
		Token: Token{Type: IDENT, Literal: "x", Line: 3, Column: 7},
		Msg:   "unknown variable name x",
	}
	require.Equal(t, "3:7: unknown variable name x", ce.Error())
}
