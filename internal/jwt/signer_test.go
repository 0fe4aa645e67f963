package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/orderly/internal/domain"
	"github.com/vladyslavplus/orderly/internal/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignAndVerify(t *testing.T) {
	signer, err := jwt.NewSigner([]byte(testSecret), "orderly", "orderly-clients", time.Minute)
	require.NoError(t, err)

	user := domain.User{ID: 42, UserName: "alice", Roles: []string{"Admin", "User"}}
	token, err := signer.Sign(user)
	require.NoError(t, err)

	std, custom, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", std.Subject)
	require.Equal(t, "orderly", std.Issuer)
	require.NotEmpty(t, std.ID)
	require.Equal(t, "alice", custom.Name)
	require.Equal(t, []string{"Admin", "User"}, custom.Roles)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, err := jwt.NewSigner([]byte(testSecret), "orderly", "orderly-clients", time.Minute)
	require.NoError(t, err)
	other, err := jwt.NewSigner([]byte("ffffffffffffffffffffffffffffffff"), "orderly", "orderly-clients", time.Minute)
	require.NoError(t, err)

	token, err := signer.Sign(domain.User{ID: 1})
	require.NoError(t, err)

	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	signer, err := jwt.NewSigner([]byte(testSecret), "someone-else", "orderly-clients", time.Minute)
	require.NoError(t, err)
	verifier, err := jwt.NewSigner([]byte(testSecret), "orderly", "orderly-clients", time.Minute)
	require.NoError(t, err)

	token, err := signer.Sign(domain.User{ID: 1})
	require.NoError(t, err)

	_, _, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	signer, err := jwt.NewSigner([]byte(testSecret), "orderly", "orderly-clients", time.Minute)
	require.NoError(t, err)

	_, _, err = signer.Verify("not.a.jwt")
	require.Error(t, err)
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	_, err := jwt.NewSigner([]byte("too-short"), "orderly", "orderly-clients", time.Minute)
	require.Error(t, err)
}
