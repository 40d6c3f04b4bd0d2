package engine

import (
	"context"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing engine operation. Status "rejected"
// marks expected business outcomes (insufficient funds, already claimed);
// only "error" denotes a genuine failure.
type OperationLog struct {
	Operation string
	UserID    UserID
	GameID    string
	Amount    AmountUnits
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithClock overrides the service clock; the function must return Unix UTC seconds.
func WithClock(now func() int64) ServiceOption {
	return func(service *Service) {
		if now != nil {
			service.nowFn = now
		}
	}
}

// WithRand overrides the wheel's random source; the function must return a
// value uniform in [0,1).
func WithRand(roll func() float64) ServiceOption {
	return func(service *Service) {
		if roll != nil {
			service.randFn = roll
		}
	}
}

// WithPlayCounts wires the read-only games-played accessor feeding the
// mastery multiplier. Without it every account plays at multiplier 1.0.
func WithPlayCounts(playCounts PlayCounts) ServiceOption {
	return func(service *Service) {
		service.playCounts = playCounts
	}
}

// WithLockTimeout bounds per-account lock acquisition.
func WithLockTimeout(timeout time.Duration) ServiceOption {
	return func(service *Service) {
		if timeout > 0 {
			service.lockTimeout = timeout
		}
	}
}
