package greet

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a protocol error. The values travel on the wire.
type ErrorCode int

const (
	ErrorInternal          ErrorCode = 10
	ErrorInvalidCommand    ErrorCode = 11
	ErrorInvalidInvitation ErrorCode = 12
	ErrorInvalidState      ErrorCode = 13
	ErrorMissingSecret     ErrorCode = 14
	ErrorInvalidSecret     ErrorCode = 15
	ErrorNonceMismatch     ErrorCode = 16
	ErrorInvalidMessage    ErrorCode = 17
	ErrorRateLimited       ErrorCode = 18
)

var codeNames = map[ErrorCode]string{
	ErrorInternal:          "internal error",
	ErrorInvalidCommand:    "invalid command",
	ErrorInvalidInvitation: "invalid invitation",
	ErrorInvalidState:      "invalid invitation state",
	ErrorMissingSecret:     "missing secret",
	ErrorInvalidSecret:     "invalid secret",
	ErrorNonceMismatch:     "nonce mismatch",
	ErrorInvalidMessage:    "invalid message",
	ErrorRateLimited:       "rate limited",
}

// String returns the string representation of ErrorCode
func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Error is a protocol error. Two Errors match under errors.Is when their codes
// are equal.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("[greet] %s", e.Code)
	}
	return fmt.Sprintf("[greet] %s: %s", e.Code, e.Message)
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrInternal          = &Error{Code: ErrorInternal}
	ErrInvalidCommand    = &Error{Code: ErrorInvalidCommand}
	ErrInvalidInvitation = &Error{Code: ErrorInvalidInvitation}
	ErrInvalidState      = &Error{Code: ErrorInvalidState}
	ErrMissingSecret     = &Error{Code: ErrorMissingSecret}
	ErrInvalidSecret     = &Error{Code: ErrorInvalidSecret}
	ErrNonceMismatch     = &Error{Code: ErrorNonceMismatch}
	ErrInvalidMessage    = &Error{Code: ErrorInvalidMessage}
	ErrRateLimited       = &Error{Code: ErrorRateLimited}
)

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of a protocol error. Other errors map to
// ErrorInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrorInternal
}
