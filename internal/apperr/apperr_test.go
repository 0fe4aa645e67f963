package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/orderly/internal/apperr"
)

func TestSentinelMatching(t *testing.T) {
	err := apperr.New(apperr.KindTokenInvalid, "token %d expired", 7)
	require.ErrorIs(t, err, apperr.ErrTokenInvalid)
	require.NotErrorIs(t, err, apperr.ErrTokenAlreadyRevoked)

	// Matching survives wrapping.
	wrapped := fmt.Errorf("refresh: %w", err)
	require.ErrorIs(t, wrapped, apperr.ErrTokenInvalid)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(apperr.New(apperr.KindNotFound, "gone")))
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(fmt.Errorf("outer: %w", apperr.ErrNotFound)))
	require.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrNotFound, http.StatusNotFound},
		{apperr.ErrTokenNotFound, http.StatusNotFound},
		{apperr.ErrAlreadyExists, http.StatusConflict},
		{apperr.ErrTokenAlreadyRevoked, http.StatusConflict},
		{apperr.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperr.ErrTokenInvalid, http.StatusUnauthorized},
		{apperr.New(apperr.KindValidationFailed, "bad input"), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, apperr.HTTPStatus(tc.err), "error %v", tc.err)
	}
}
