package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported to API callers.
type ErrorKind string

const (
	KindInvalidFilter        ErrorKind = "InvalidFilter"
	KindInvalidSort          ErrorKind = "InvalidSort"
	KindInvalidPage          ErrorKind = "InvalidPage"
	KindNotFound             ErrorKind = "NotFound"
	KindPatch                ErrorKind = "PatchError"
	KindMismatchedIdentifier ErrorKind = "MismatchedIdentifier"
	KindUnauthenticated      ErrorKind = "Unauthenticated"
	KindForbidden            ErrorKind = "Forbidden"
	KindInvalidRequest       ErrorKind = "InvalidRequest"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrInvalidFilter        = &Error{Kind: KindInvalidFilter}
	ErrInvalidSort          = &Error{Kind: KindInvalidSort}
	ErrInvalidPage          = &Error{Kind: KindInvalidPage}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrPatch                = &Error{Kind: KindPatch}
	ErrMismatchedIdentifier = &Error{Kind: KindMismatchedIdentifier}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
)

// Error is a caller-facing failure detected before any mutation was issued.
type Error struct {
	Kind   ErrorKind
	Reason string
	Field  string
	Err    error
}

// NewError builds an error of the given kind.
func NewError(kind ErrorKind, field, reason string) *Error {
	return &Error{Kind: kind, Field: field, Reason: reason}
}

// Errorf builds an error of the given kind with a formatted reason.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Reason == "" && e.Field == "":
		return string(e.Kind)
	case e.Field == "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
	}
}

// Message returns the human readable part without the kind prefix.
func (e *Error) Message() string {
	switch {
	case e.Field == "" && e.Reason == "":
		return string(e.Kind)
	case e.Field == "":
		return e.Reason
	case e.Reason == "":
		return e.Field
	default:
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidFilter reports a rejected filter criterion.
func InvalidFilter(field, reason string) *Error {
	return NewError(KindInvalidFilter, field, reason)
}

// InvalidSort reports a rejected sort field or direction.
func InvalidSort(field, reason string) *Error {
	return NewError(KindInvalidSort, field, reason)
}

// InvalidPage reports a rejected page number or size.
func InvalidPage(reason string) *Error {
	return NewError(KindInvalidPage, "", reason)
}

// NotFound reports a missing record in the caller's tenant.
func NotFound(entityType string) *Error {
	return NewError(KindNotFound, "", fmt.Sprintf("no %s found", entityType))
}

// PatchError reports an unusable patch document or operation.
func PatchError(field, reason string) *Error {
	return NewError(KindPatch, field, reason)
}

// InvalidRequest reports a request body or parameter that could not be decoded.
func InvalidRequest(reason string) *Error {
	return NewError(KindInvalidRequest, "", reason)
}

// KindOf extracts the kind of err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
