// Package apperr defines the error taxonomy shared by the scheduling engines.
//
// Every rejection produced by a domain service is an *Error carrying a Kind
// (what class of failure it is) and a stable machine-readable Code. Transport
// layers switch on the Kind; clients switch on the Code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindUnknown          Kind = ""
	KindNotFound         Kind = "not_found"
	KindAccessDenied     Kind = "access_denied"
	KindInvalidState     Kind = "invalid_state"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindDuplicate        Kind = "duplicate_entity"
	KindValidation       Kind = "validation_failed"
	KindUnauthenticated  Kind = "unauthenticated"
)

// Error is a typed domain error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// New returns a sentinel error. Sentinels are compared by Code with errors.Is.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error with the same code. A target without a code
// matches any error of the same kind, so errors.Is(err, apperr.NotFound)
// works for every not-found sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code
}

// WithMessage keeps kind and code but replaces the human-readable message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Kind-only targets for errors.Is.
var (
	NotFound         = &Error{Kind: KindNotFound}
	AccessDenied     = &Error{Kind: KindAccessDenied}
	InvalidState     = &Error{Kind: KindInvalidState}
	CapacityExceeded = &Error{Kind: KindCapacityExceeded}
	Duplicate        = &Error{Kind: KindDuplicate}
	Validation       = &Error{Kind: KindValidation}
	Unauthenticated  = &Error{Kind: KindUnauthenticated}
)

// Validationf builds a ValidationFailed error for malformed input.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var target *Error
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
