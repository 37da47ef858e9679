// server/internal/auth/errors.go
package auth

import "errors"

// Authentication error kinds.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
)

// UnknownError wraps any failure outside the known kinds.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string { return "authentication failed: " + e.Err.Error() }
func (e *UnknownError) Unwrap() error { return e.Err }

// Kind names the authentication error kind of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, ErrEmailAlreadyInUse):
		return "email_already_in_use"
	default:
		return "unknown"
	}
}

func unknown(err error) error {
	var u *UnknownError
	if errors.As(err, &u) {
		return err
	}
	return &UnknownError{Err: err}
}
