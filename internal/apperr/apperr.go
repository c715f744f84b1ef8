// Package apperr defines the error kinds the service layer signals. The HTTP
// boundary maps each kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInvalid
	KindInvalidStatus
	KindExpired
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindInvalidStatus:
		return "invalid_status"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is matches sentinels by kind, so errors.Is(err, ErrNotFound) holds for any
// not-found error. An invalid status also counts as invalid input.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return e.Kind == KindInvalidStatus && t.Kind == KindInvalid
}

var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrInvalid       = &Error{Kind: KindInvalid}
	ErrInvalidStatus = &Error{Kind: KindInvalidStatus}
	ErrExpired       = &Error{Kind: KindExpired}
)

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error  { return New(KindNotFound, format, args...) }
func Conflict(format string, args ...any) error  { return New(KindConflict, format, args...) }
func Forbidden(format string, args ...any) error { return New(KindForbidden, format, args...) }
func Invalid(format string, args ...any) error   { return New(KindInvalid, format, args...) }
func Expired(format string, args ...any) error   { return New(KindExpired, format, args...) }

func InvalidStatus(status string) error {
	return New(KindInvalidStatus, "invalid status %q", status)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
