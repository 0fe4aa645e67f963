package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/orderly/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("correct-horse")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := password.Verify("correct-horse", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("wrong-horse", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := password.Hash("correct-horse")
	require.NoError(t, err)
	second, err := password.Hash("correct-horse")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyMalformedHash(t *testing.T) {
	_, err := password.Verify("anything", "not-a-hash")
	require.Error(t, err)
}
