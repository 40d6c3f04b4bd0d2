package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapErrorCarriesSegments(test *testing.T) {
	test.Parallel()
	wrapped := WrapError("wheel_spin", "wheel", "no_free_spin", ErrNoSpinAvailable)

	var operationError OperationError
	if !errors.As(wrapped, &operationError) {
		test.Fatalf("expected OperationError, got %T", wrapped)
	}
	if operationError.Operation() != "wheel_spin" {
		test.Fatalf("unexpected operation %q", operationError.Operation())
	}
	if operationError.Subject() != "wheel" {
		test.Fatalf("unexpected subject %q", operationError.Subject())
	}
	if operationError.Code() != "no_free_spin" {
		test.Fatalf("unexpected code %q", operationError.Code())
	}
	if !errors.Is(wrapped, ErrNoSpinAvailable) {
		test.Fatalf("wrapped error must unwrap to the sentinel")
	}
}

func TestWrapErrorNilPassthrough(test *testing.T) {
	test.Parallel()
	if WrapError("op", "subject", "code", nil) != nil {
		test.Fatalf("wrapping nil must stay nil")
	}
}

func TestIsRejection(test *testing.T) {
	test.Parallel()
	rejections := []error{
		ErrInsufficientFunds,
		ErrAlreadyClaimed,
		ErrNoSpinAvailable,
		ErrUnknownRewardType,
		ErrMilestoneNotReached,
		WrapError("op", "subject", "code", ErrAlreadyClaimed),
		fmt.Errorf("context: %w", ErrInsufficientFunds),
	}
	for _, err := range rejections {
		if !IsRejection(err) {
			test.Errorf("expected rejection for %v", err)
		}
	}
	failures := []error{
		ErrAccountLockTimeout,
		ErrUnknownSpin,
		ErrInvalidConfiguration,
		errors.New("connection reset"),
	}
	for _, err := range failures {
		if IsRejection(err) {
			test.Errorf("expected failure classification for %v", err)
		}
	}
}
