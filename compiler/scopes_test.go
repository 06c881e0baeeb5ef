package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopeShadowing(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](FuncScope)}
	Put(scopes, "x", 1)

	PushScope(&scopes, BlockScope)
	Put(scopes, "x", 2)

	v, ok := Get(scopes, "x")
	require.True(t, ok)
	require.Equal(t, 2, v)

	PopScope(&scopes)
	v, ok = Get(scopes, "x")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestScopeStopsAtFuncBoundary(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](FuncScope)}
	Put(scopes, "outer", 1)

	PushScope(&scopes, FuncScope)
	_, ok := Get(scopes, "outer")
	require.False(t, ok)

	PushScope(&scopes, BlockScope)
	Put(scopes, "inner", 2)
	v, ok := Get(scopes, "inner")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestScopeDelete(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](FuncScope)}
	Put(scopes, "x", 1)
	Delete(scopes, "x")
	_, ok := Get(scopes, "x")
	require.False(t, ok)

	PushScope(&scopes, BlockScope)
	Delete(scopes, "missing")
	_, ok = Get(scopes, "missing")
	require.False(t, ok)
}

func TestPutBulk(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](FuncScope)}
	PutBulk(scopes, map[string]int{"a": 1, "b": 2})

	a, ok := Get(scopes, "a")
	require.True(t, ok)
	require.Equal(t, 1, a)
	b, ok := Get(scopes, "b")
	require.True(t, ok)
	require.Equal(t, 2, b)
}

func TestPopGlobalScopePanics(t *testing.T) {
	scopes := []Scope[int]{NewScope[int](FuncScope)}
	require.Panics(t, func() {
		PopScope(&scopes)
	})
}
