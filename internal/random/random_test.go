package random

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesBounds(t *testing.T) {
	t.Parallel()

	b, err := Bytes(16)
	require.NoError(t, err)
	require.Len(t, b, 16)

	_, err = Bytes(0)
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = Bytes(MaxRequest + 1)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestIntn(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		v, err := Intn(6)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 6)
	}
}

func TestPerm(t *testing.T) {
	t.Parallel()

	perm, err := Perm(10)
	require.NoError(t, err)
	require.Len(t, perm, 10)

	seen := make(map[int]bool, 10)
	for _, v := range perm {
		require.False(t, seen[v], "duplicate index %d", v)
		seen[v] = true
	}
}
