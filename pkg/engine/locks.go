package engine

import (
	"context"
	"sync"
	"time"
)

const defaultLockTimeout = 3 * time.Second

// accountLocks serializes operations per account. Acquisition is bounded:
// contention past the timeout surfaces as ErrAccountLockTimeout instead of
// blocking the worker. Different accounts never contend with each other.
// Slots are refcounted: an entry stays mapped while any holder or waiter
// references it, and the last release evicts it, so the map tracks active
// accounts rather than every account ever seen.
type accountLocks struct {
	mu      sync.Mutex
	slots   map[string]*lockSlot
	timeout time.Duration
}

type lockSlot struct {
	gate chan struct{}
	refs int
}

func newAccountLocks(timeout time.Duration) *accountLocks {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &accountLocks{
		slots:   make(map[string]*lockSlot),
		timeout: timeout,
	}
}

func (locks *accountLocks) retain(accountKey string) *lockSlot {
	locks.mu.Lock()
	defer locks.mu.Unlock()
	slot, ok := locks.slots[accountKey]
	if !ok {
		slot = &lockSlot{gate: make(chan struct{}, 1)}
		locks.slots[accountKey] = slot
	}
	slot.refs++
	return slot
}

func (locks *accountLocks) put(accountKey string, slot *lockSlot) {
	locks.mu.Lock()
	defer locks.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(locks.slots, accountKey)
	}
}

// acquire takes the per-account slot, waiting at most the configured timeout.
// The returned release function must be called exactly once. Cancellation is
// honored only while waiting; once acquired, the critical section runs to
// completion.
func (locks *accountLocks) acquire(ctx context.Context, accountKey string) (func(), error) {
	slot := locks.retain(accountKey)
	timer := time.NewTimer(locks.timeout)
	defer timer.Stop()
	select {
	case slot.gate <- struct{}{}:
		return func() {
			<-slot.gate
			locks.put(accountKey, slot)
		}, nil
	case <-timer.C:
		locks.put(accountKey, slot)
		return nil, ErrAccountLockTimeout
	case <-ctx.Done():
		locks.put(accountKey, slot)
		return nil, ctx.Err()
	}
}
