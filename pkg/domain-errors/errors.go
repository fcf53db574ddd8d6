// Package domainerrors carries coded errors across service boundaries.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// them into coded errors so transports can map them to responses without
// inspecting driver-specific failures.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeValidation           Code = "validation_error"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeInternal             Code = "internal_error"
	CodeTimeout              Code = "timeout"
	CodeUnavailable          Code = "unavailable"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeNotificationDelivery Code = "notification_delivery"
)

// Error is a coded error with an optional cause.
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

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. The cause stays reachable through
// errors.Is and errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
