package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSHA256Hex(t *testing.T) {
	require.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		SHA256Hex("hello"))
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	require.NoError(t, err)
	b, err := RandomToken(32)
	require.NoError(t, err)

	require.Len(t, a, 43)
	require.NotEqual(t, a, b)

	_, err = RandomToken(0)
	require.Error(t, err)
}
