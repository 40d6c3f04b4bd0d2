package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAccountLockSerializesSameAccount(test *testing.T) {
	test.Parallel()
	locks := newAccountLocks(50 * time.Millisecond)

	release, err := locks.acquire(context.Background(), "acct-1")
	if err != nil {
		test.Fatalf("first acquire: %v", err)
	}
	_, err = locks.acquire(context.Background(), "acct-1")
	if !errors.Is(err, ErrAccountLockTimeout) {
		test.Fatalf("expected ErrAccountLockTimeout while held, got %v", err)
	}
	release()
	release, err = locks.acquire(context.Background(), "acct-1")
	if err != nil {
		test.Fatalf("acquire after release: %v", err)
	}
	release()
}

func TestAccountLockIndependentAccounts(test *testing.T) {
	test.Parallel()
	locks := newAccountLocks(50 * time.Millisecond)

	releaseFirst, err := locks.acquire(context.Background(), "acct-1")
	if err != nil {
		test.Fatalf("acquire acct-1: %v", err)
	}
	defer releaseFirst()
	releaseSecond, err := locks.acquire(context.Background(), "acct-2")
	if err != nil {
		test.Fatalf("holding acct-1 must not block acct-2: %v", err)
	}
	releaseSecond()
}

func TestAccountLockHonorsContextWhileWaiting(test *testing.T) {
	test.Parallel()
	locks := newAccountLocks(time.Second)

	release, err := locks.acquire(context.Background(), "acct-1")
	if err != nil {
		test.Fatalf("first acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.acquire(ctx, "acct-1")
	if !errors.Is(err, context.Canceled) {
		test.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAccountLockSlotsAreReclaimed(test *testing.T) {
	test.Parallel()
	locks := newAccountLocks(50 * time.Millisecond)

	release, err := locks.acquire(context.Background(), "acct-1")
	if err != nil {
		test.Fatalf("acquire: %v", err)
	}
	if len(locks.slots) != 1 {
		test.Fatalf("expected 1 live slot, got %d", len(locks.slots))
	}
	// A timed-out waiter must not pin the slot either.
	if _, err := locks.acquire(context.Background(), "acct-1"); !errors.Is(err, ErrAccountLockTimeout) {
		test.Fatalf("expected ErrAccountLockTimeout, got %v", err)
	}
	if len(locks.slots) != 1 {
		test.Fatalf("expected 1 live slot after waiter timeout, got %d", len(locks.slots))
	}
	release()
	if len(locks.slots) != 0 {
		test.Fatalf("expected slot map to drain after release, got %d entries", len(locks.slots))
	}
}

func TestAccountLockHandoffUnderContention(test *testing.T) {
	test.Parallel()
	locks := newAccountLocks(time.Second)

	release, err := locks.acquire(context.Background(), "acct-1")
	if err != nil {
		test.Fatalf("first acquire: %v", err)
	}
	acquired := make(chan error, 1)
	go func() {
		waiterRelease, waitErr := locks.acquire(context.Background(), "acct-1")
		if waitErr == nil {
			waiterRelease()
		}
		acquired <- waitErr
	}()
	time.Sleep(10 * time.Millisecond)
	release()
	if waitErr := <-acquired; waitErr != nil {
		test.Fatalf("waiter must acquire after release: %v", waitErr)
	}
}
