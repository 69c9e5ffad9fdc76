package errors

import "fmt"

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	ErrConflict
	ErrInvalidInput
	// ErrUnauthorized is returned when the caller is not allowed to perform the operation
	ErrUnauthorized
	// ErrInvalidState is returned when an operation runs in the wrong lifecycle status
	ErrInvalidState
	// ErrInsufficientFunds covers missing allowance or balance
	ErrInsufficientFunds
	// ErrLimitExceeded covers supply, wallet and sale-window limits
	ErrLimitExceeded
	// ErrAlreadyPaid is returned when a one-shot payout runs a second time
	ErrAlreadyPaid
	// ErrNotOwner is returned when the caller does not hold the referenced item
	ErrNotOwner
)

var kindNames = map[Kind]string{
	ErrInternal:          "internal",
	ErrNotFound:          "not_found",
	ErrValidation:        "validation",
	ErrConflict:          "conflict",
	ErrInvalidInput:      "invalid_input",
	ErrUnauthorized:      "unauthorized",
	ErrInvalidState:      "invalid_state",
	ErrInsufficientFunds: "insufficient_funds",
	ErrLimitExceeded:     "limit_exceeded",
	ErrAlreadyPaid:       "already_paid",
	ErrNotOwner:          "not_owner",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err, or ErrInternal if err carries none.
// Any error type exposing ErrorKind() Kind is classified as well.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case interface{ ErrorKind() Kind }:
			return e.ErrorKind()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrInternal
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func InvalidInputf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

func InsufficientFundsf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
