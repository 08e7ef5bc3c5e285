package service

import (
	"fmt"
	"strings"
)

// Kind classifies a service failure. Handlers map each kind to one HTTP
// status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidCredentials
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is returned by every service operation. Message is safe to show
// to clients except for KindInternal, whose cause is kept in Err.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string // missing or invalid input fields, for KindValidation
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func validationError(fields []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "missing or invalid fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}
