// Package apperr classifies failures so HTTP boundaries can translate them
// into user-facing messages without leaking internal detail.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code != "" && t.Code == e.Code
}

// Validation builds a validation error for a specific input field.
func Validation(code, field, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// NotFound builds a not-found error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict builds a conflict error (stale write, duplicate, lock held).
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Unavailable builds an error for a dependency that is down or not configured.
func Unavailable(code, message string) *Error {
	return &Error{Kind: KindUnavailable, Code: code, Message: message}
}

// Wrap attaches a cause to a classified error, keeping kind and code.
func Wrap(base *Error, err error) *Error {
	cp := *base
	cp.Err = err
	return &cp
}

// Withf copies base with a more specific message. Kind, code and field are kept,
// so errors.Is still matches base.
func Withf(base *Error, format string, args ...any) *Error {
	cp := *base
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// KindOf reports the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
