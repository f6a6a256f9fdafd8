package models

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Auth outcomes. ErrInvalidCredentials deliberately covers both
	// "no such user" and "wrong password" so callers cannot tell them apart.
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrAccountLocked         = errors.New("account is temporarily locked")
	ErrPasswordMismatch      = errors.New("current password is incorrect")
	ErrSamePassword          = errors.New("new password must be different from current password")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidEmailFormat    = errors.New("invalid email format")
)

// WeakPasswordError reports every password policy rule the candidate
// password violated, so callers can show the user all of them at once.
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	if len(e.Violations) == 0 {
		return "password does not meet security requirements"
	}
	return "weak password: " + strings.Join(e.Violations, "; ")
}

// IsWeakPassword unwraps a WeakPasswordError from err if present.
func IsWeakPassword(err error) (*WeakPasswordError, bool) {
	var wpe *WeakPasswordError
	if errors.As(err, &wpe) {
		return wpe, true
	}
	return nil, false
}
