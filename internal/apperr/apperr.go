package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies domain failures. Callers switch on kind instead of
// unwrapping concrete error chains.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindAlreadyExists       Kind = "already_exists"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindTokenNotFound       Kind = "token_not_found"
	KindTokenInvalid        Kind = "token_invalid"
	KindTokenAlreadyRevoked Kind = "token_already_revoked"
	KindValidationFailed    Kind = "validation_failed"
	KindInternal            Kind = "internal_error"
)

// Error carries a machine-readable kind next to the human message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches two app errors by kind so errors.Is works on sentinel values.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a typed domain error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinel values for errors.Is checks.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrAlreadyExists       = &Error{Kind: KindAlreadyExists, Message: "resource already exists"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Message: "wrong email or password"}
	ErrTokenNotFound       = &Error{Kind: KindTokenNotFound, Message: "refresh token not found"}
	ErrTokenInvalid        = &Error{Kind: KindTokenInvalid, Message: "refresh token is invalid, revoked, or expired"}
	ErrTokenAlreadyRevoked = &Error{Kind: KindTokenAlreadyRevoked, Message: "refresh token already revoked"}
)

// KindOf extracts the kind from any error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps kinds to stable external statuses.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound, KindTokenNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindTokenAlreadyRevoked:
		return http.StatusConflict
	case KindInvalidCredentials, KindTokenInvalid:
		return http.StatusUnauthorized
	case KindValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
