package engine

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the reward engine.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAlreadyClaimed       = errors.New("already claimed")
	ErrNoSpinAvailable      = errors.New("no spin available")
	ErrUnknownRewardType    = errors.New("unknown reward type")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrAccountLockTimeout   = errors.New("account lock timeout")
	ErrUnknownSpin          = errors.New("unknown spin")
	ErrMilestoneNotReached  = errors.New("milestone not reached")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSource        = errors.New("invalid transaction source")
	ErrInvalidSpinType      = errors.New("invalid spin type")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// IsRejection reports whether err is an expected business outcome rather than
// a failure. Rejections are returned to the caller and never logged as errors.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrAlreadyClaimed),
		errors.Is(err, ErrNoSpinAvailable),
		errors.Is(err, ErrUnknownRewardType),
		errors.Is(err, ErrMilestoneNotReached):
		return true
	}
	return false
}
