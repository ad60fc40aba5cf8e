// Package domainerrors carries the error taxonomy shared by services and the
// HTTP boundary. Services return *Error values; the transport layer maps the
// Code to a status and a client-safe message.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeValidation marks missing or malformed input.
	CodeValidation Code = "validation_error"
	// CodeDuplicate marks an ID number that is already registered.
	CodeDuplicate Code = "duplicate"
	// CodeInvalidCredentials marks a rejected admin login.
	CodeInvalidCredentials Code = "invalid_credentials"
	// CodeMissingCredential marks a protected call without a bearer token.
	CodeMissingCredential Code = "missing_credential"
	// CodeInvalidCredential marks a tampered or expired bearer token.
	CodeInvalidCredential Code = "invalid_credential"
	// CodeTooManyAttempts marks a login rejected by the lockout window.
	CodeTooManyAttempts Code = "too_many_attempts"
	// CodeStore marks a persistence failure.
	CodeStore Code = "store_error"
	// CodeExport marks a spreadsheet serialization failure.
	CodeExport Code = "export_error"
	// CodeInternal marks anything else.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a code, a message safe to surface, and an
// optional cause kept for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}
