package hash_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/grain/internal/adapters/hash"
)

func TestHasher_HashContent(t *testing.T) {
	h := hash.NewHasher()

	a := h.HashContent("def f():")
	b := h.HashContent("def f():")
	c := h.HashContent("def g():")

	require.Len(t, a, 16)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestHasher_HashLine_TrimsWhitespace(t *testing.T) {
	h := hash.NewHasher()

	plain := h.HashLine("x = 1")
	indented := h.HashLine("    x = 1  \t")
	require.Equal(t, plain, indented, "whitespace-only differences must not change the hash")
}

func TestHasher_HashLine_EmptySentinel(t *testing.T) {
	h := hash.NewHasher()

	require.Equal(t, "empty", h.HashLine(""))
	require.Equal(t, "empty", h.HashLine("   \t  "))
	require.NotEqual(t, "empty", h.HashLine("pass"))
}
