// Package euctr extracts structured trial records from the EU Clinical
// Trials Register: summary cards, protocol pages, and (possibly
// multi-version) results pages.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, sqlite/, pdf/).
package euctr

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	ECOLLABORATOR = "collaborator" // fetch or PDF collection failed
	EINTERNAL     = "internal"     // unexpected internal error
	EINVALID      = "invalid"      // bad input
	ENOTFOUND     = "not_found"    // entity does not exist
	ESTRUCTURAL   = "structural"   // expected markup element absent or misshapen
)

// Error represents an application-specific error. Errors carry a
// machine-readable code and a human-readable message.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("euctr error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
