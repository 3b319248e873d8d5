package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalid           ErrorCode = "INVALID"
	ErrCodeInvariant         ErrorCode = "INVARIANT"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	// Field names the offending input for validation failures.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Invalid builds a validation failure for a single field.
func Invalid(field, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalid,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// Common domain errors.
var (
	ErrAggregateNotFound      = NewError(ErrCodeNotFound, "aggregate not found")
	ErrPlanNotFound           = NewError(ErrCodeNotFound, "plan not found")
	ErrConcurrentModification = NewError(ErrCodeConflict, "aggregate was modified concurrently")
	ErrUnauthorized           = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload         = NewError(ErrCodeInvalid, "invalid payload")
	ErrCurrencyMismatch       = NewError(ErrCodeInvalid, "currency mismatch")

	ErrInvalidTransition = NewError(ErrCodeInvalidTransition, "invalid state transition")
	ErrAggregateDeleted  = NewError(ErrCodeInvalidTransition, "aggregate is deleted")

	ErrInvariantViolation  = NewError(ErrCodeInvariant, "invariant violation")
	ErrStockExceeded       = NewError(ErrCodeInvariant, "stock exceeded")
	ErrInsufficientBalance = NewError(ErrCodeInvariant, "insufficient balance")
	ErrLimitExceeded       = NewError(ErrCodeInvariant, "per-customer limit exceeded")
	ErrSaleNotActive       = NewError(ErrCodeInvariant, "flash sale is not active")
	ErrDeletionNotAllowed  = NewError(ErrCodeInvariant, "aggregate cannot be deleted in its current state")
)

// TransitionError reports an operation invoked while the aggregate is in a
// state that does not permit it.
type TransitionError struct {
	Kind string
	From string
	To   string
	Op   string
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s: cannot %s while %s", e.Kind, e.Op, e.From)
	}
	return fmt.Sprintf("%s: invalid state transition from %s to %s (%s)", e.Kind, e.From, e.To, e.Op)
}

// Unwrap lets errors.Is(err, ErrInvalidTransition) and IsDomainError classify the error.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func newTransitionError(kind, op, from, to string) *TransitionError {
	return &TransitionError{Kind: kind, Op: op, From: from, To: to}
}

// violation wraps a domain sentinel with call-specific detail.
func violation(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the classification of err, or ErrCodeInternal when err is not a domain error.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}
