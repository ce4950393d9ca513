package inventory

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine failures. The values double as the
// machine-readable code in API error bodies.
type ErrorCode string

const (
	CodeInvalidArgument       ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeAlreadyExists         ErrorCode = "ALREADY_EXISTS"
	CodeReferentialIntegrity  ErrorCode = "REFERENTIAL_INTEGRITY_VIOLATION"
	CodeProductNotFound       ErrorCode = "PRODUCT_NOT_FOUND"
	CodeInvalidQuantity       ErrorCode = "INVALID_QUANTITY"
	CodeInsufficientInventory ErrorCode = "INSUFFICIENT_INVENTORY"
	CodeAlreadyProcessed      ErrorCode = "ALREADY_PROCESSED"

	// CodeConflict means the transaction kept colliding with concurrent
	// writers; the caller may retry.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeInternal covers everything that is not an expected business outcome.
	CodeInternal ErrorCode = "INTERNAL"
)

// Error is an expected business failure returned by the engine.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so callers can test against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidArgument       = &Error{Code: CodeInvalidArgument}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrAlreadyExists         = &Error{Code: CodeAlreadyExists}
	ErrReferentialIntegrity  = &Error{Code: CodeReferentialIntegrity}
	ErrProductNotFound       = &Error{Code: CodeProductNotFound}
	ErrInvalidQuantity       = &Error{Code: CodeInvalidQuantity}
	ErrInsufficientInventory = &Error{Code: CodeInsufficientInventory}
	ErrAlreadyProcessed      = &Error{Code: CodeAlreadyProcessed}
	ErrConflict              = &Error{Code: CodeConflict}
)

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
