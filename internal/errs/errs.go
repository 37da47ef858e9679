// internal/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

// Kinds exposed to callers as a machine-readable cause.
const (
	KindNotFound         = "not_found"
	KindInvalidArgument  = "invalid_argument"
	KindStoreUnavailable = "store_unavailable"
	KindDecode           = "decode"
	KindUnknown          = "unknown"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrStoreUnavailable = errors.New("document store unavailable")
	ErrDecode           = errors.New("decode failed")
)

// DecodeError reports a required field that could not be decoded to its declared type.
type DecodeError struct {
	Field string
	Cause string
}

func (e *DecodeError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("decode field %q", e.Field)
	}
	return fmt.Sprintf("decode field %q: %s", e.Field, e.Cause)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// NewDecodeError builds a DecodeError for the given dotted field path.
func NewDecodeError(field, cause string) *DecodeError {
	return &DecodeError{Field: field, Cause: cause}
}

// Error is the typed error returned by the gateway and aggregator.
type Error struct {
	Kind   string
	Op     string
	Entity string
	Cause  error
	err    error
}

func (e *Error) Error() string {
	msg := e.err.Error()
	if e.Entity != "" {
		msg = e.Entity + " " + msg
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.err}
	}
	return []error{e.err, e.Cause}
}

func NotFound(entity, id string) *Error {
	return &Error{
		Kind:   KindNotFound,
		Entity: fmt.Sprintf("%s %q", entity, id),
		err:    ErrNotFound,
	}
}

// NotFoundCause is NotFound carrying the decode failure that made the document unusable.
func NotFoundCause(entity, id string, cause error) *Error {
	e := NotFound(entity, id)
	e.Cause = cause
	return e
}

func InvalidArgument(op, message string) *Error {
	return &Error{
		Kind: KindInvalidArgument,
		Op:   op,
		err:  fmt.Errorf("%w: %s", ErrInvalidArgument, message),
	}
}

func StoreUnavailable(op string, cause error) *Error {
	return &Error{
		Kind:  KindStoreUnavailable,
		Op:    op,
		Cause: cause,
		err:   ErrStoreUnavailable,
	}
}

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	var typed *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &typed):
		return typed.Kind
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindUnknown
	}
}

// FieldOf returns the failing field of a DecodeError anywhere in err's chain.
func FieldOf(err error) string {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Field
	}
	return ""
}
