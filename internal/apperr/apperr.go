package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures that escape the sign-in pipeline.
type Kind string

const (
	// KindValidation marks malformed input or a payload that failed its schema.
	KindValidation Kind = "validation"
	// KindServer marks misconfiguration or a failed cryptographic operation.
	KindServer Kind = "server"
	// KindDatabase marks failures of persistence-adjacent calls.
	KindDatabase Kind = "database"
)

// Error is a typed failure carrying a message safe for server-side logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation wraps err as a KindValidation error.
func Validation(message string, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

// Server wraps err as a KindServer error.
func Server(message string, err error) *Error {
	return &Error{Kind: KindServer, Message: message, Err: err}
}

// Database wraps err as a KindDatabase error.
func Database(message string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: message, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
