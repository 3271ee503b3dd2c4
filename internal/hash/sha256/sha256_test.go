package sha256

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashRawBytes(t *testing.T) {
	t.Parallel()

	got, err := New(nil).Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
}

func TestHashNormalizesInput(t *testing.T) {
	t.Parallel()

	h := New(func(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), " ") })
	a, err := h.Hash([]byte("Hello   World"))
	require.NoError(t, err)
	b, err := h.Hash([]byte("hello world\n"))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", a)
}
