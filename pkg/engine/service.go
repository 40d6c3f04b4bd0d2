package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Service is the reward orchestrator: it turns gameplay and login events into
// ledger movements, applying mastery, streak, cap, and wheel policy on the
// way. Every mutating operation runs inside the account's lock and a single
// store transaction, so compound updates commit or fail as one unit.
type Service struct {
	store       Store
	policy      Policy
	playCounts  PlayCounts
	locks       *accountLocks
	lockTimeout time.Duration
	nowFn       func() int64
	randFn      func() float64
	logger      OperationLogger
}

// NewService wires a Service. The policy is validated here; an invalid policy
// is a deployment error and never reaches a running instance.
func NewService(store Store, policy Policy, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	service := &Service{
		store:       store,
		policy:      policy,
		lockTimeout: defaultLockTimeout,
		nowFn:       func() int64 { return time.Now().UTC().Unix() },
		randFn:      rand.Float64,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	service.locks = newAccountLocks(service.lockTimeout)
	return service, nil
}

// Balance returns the account's current balance: the sum of all ledger
// amounts. A never-seen account reads as zero without being created.
func (service *Service) Balance(ctx context.Context, userID UserID) (AmountUnits, error) {
	accountID, found, err := service.store.FindAccountID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return service.store.SumAmounts(ctx, accountID)
}

// History lists the account's transactions, newest first. Filters are
// AND-combined. A never-seen account yields an empty list.
func (service *Service) History(ctx context.Context, userID UserID, filter HistoryFilter) ([]Transaction, error) {
	accountID, found, err := service.store.FindAccountID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Transaction{}, nil
	}
	return service.store.ListTransactions(ctx, accountID, filter)
}

// AwardGameEvent credits a gameplay event. The base reward from the policy
// table is scaled by mastery and streak multipliers (combined first, rounded
// once), then passed through the daily cap and diminishing-returns policy.
// An amount capped to zero is a success with no ledger entry written.
func (service *Service) AwardGameEvent(ctx context.Context, userID UserID, gameID string, eventType string, params map[string]any) (AmountUnits, error) {
	rule, known := service.policy.BaseReward(gameID, eventType)
	if !known {
		err := WrapError(operationAward, "policy", "unknown_event", fmt.Errorf("%w: %s/%s", ErrUnknownRewardType, gameID, eventType))
		service.logOperation(ctx, OperationLog{Operation: operationAward, UserID: userID, GameID: gameID, Error: err})
		return 0, err
	}

	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return 0, WrapError(operationAward, "account", "lock", err)
	}
	defer release()

	var credited AmountUnits
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()

		gamesPlayed, err := service.lifetimePlays(ctx, accountID, gameID)
		if err != nil {
			return err
		}
		loginState, err := txStore.GetLoginState(ctx, accountID)
		if err != nil {
			return err
		}
		multiplier := service.policy.MasteryMultiplier(gamesPlayed) * service.policy.StreakMultiplier(loginState.CurrentStreak)
		proposed := AmountUnits(math.Round(float64(rule.Base) * multiplier))

		day := DayKeyUTC(nowUnixUTC)
		summary, err := txStore.GetDailySummary(ctx, accountID, day)
		if err != nil {
			return err
		}
		credited = service.policy.adjustForDay(summary, gameID, proposed)
		summary = recordIssued(summary, gameID, credited)
		if err := txStore.SaveDailySummary(ctx, accountID, summary); err != nil {
			return err
		}
		if credited <= 0 {
			credited = 0
			return nil
		}
		_, err = appendTransaction(ctx, txStore, accountID, credited, SourceGameReward, gameID, rule.Description, marshalParams(params), nowUnixUTC)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationAward,
		UserID:    userID,
		GameID:    gameID,
		Amount:    credited,
		Error:     operationError,
	})
	if operationError != nil {
		return 0, operationError
	}
	return credited, nil
}

// ClaimDailyLogin advances the login streak and credits the tiered daily
// reward. Claiming twice within one UTC day fails with ErrAlreadyClaimed.
// Every 7th consecutive day additionally grants a wheel spin.
func (service *Service) ClaimDailyLogin(ctx context.Context, userID UserID) (DailyLoginResult, error) {
	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return DailyLoginResult{}, WrapError(operationDailyLogin, "account", "lock", err)
	}
	defer release()

	var result DailyLoginResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		loginState, err := txStore.GetLoginState(ctx, accountID)
		if err != nil {
			return err
		}
		if claimedToday(loginState, nowUnixUTC) {
			return WrapError(operationDailyLogin, "streak", "duplicate", ErrAlreadyClaimed)
		}
		streak := nextStreak(loginState, nowUnixUTC)
		amount := service.policy.LoginReward(streak)
		spins := service.policy.spinsGrantedForStreak(streak)

		loginState.CurrentStreak = streak
		if streak > loginState.LongestStreak {
			loginState.LongestStreak = streak
		}
		loginState.LastClaimUnixUTC = nowUnixUTC
		if err := txStore.SaveLoginState(ctx, accountID, loginState); err != nil {
			return err
		}
		description := fmt.Sprintf("Daily login day %d", streak)
		if _, err := appendTransaction(ctx, txStore, accountID, amount, SourceDailyLogin, "", description, "", nowUnixUTC); err != nil {
			return err
		}
		if spins > 0 {
			if err := grantSpins(ctx, txStore, accountID, spins); err != nil {
				return err
			}
		}
		result = DailyLoginResult{AmountCredited: amount, NewStreak: streak, WheelSpinsGranted: spins}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDailyLogin,
		UserID:    userID,
		Amount:    result.AmountCredited,
		Error:     operationError,
	})
	if operationError != nil {
		return DailyLoginResult{}, operationError
	}
	return result, nil
}

func (service *Service) lifetimePlays(ctx context.Context, accountID string, gameID string) (int64, error) {
	if service.playCounts == nil {
		return 0, nil
	}
	return service.playCounts.GamesPlayed(ctx, accountID, gameID)
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		switch {
		case entry.Error == nil:
			entry.Status = operationStatusOK
		case IsRejection(entry.Error):
			entry.Status = operationStatusRejected
		default:
			entry.Status = operationStatusError
		}
	}
	service.logger.LogOperation(ctx, entry)
}

// appendTransaction writes one ledger line inside the caller's transaction,
// rejecting any debit that would take the balance below zero. The returned
// transaction carries the post-write balance.
func appendTransaction(ctx context.Context, txStore Store, accountID string, amount AmountUnits, source Source, gameID string, description string, metadataJSON string, nowUnixUTC int64) (Transaction, error) {
	total, err := txStore.SumAmounts(ctx, accountID)
	if err != nil {
		return Transaction{}, err
	}
	if amount < 0 && total+amount < 0 {
		return Transaction{}, WrapError("ledger", "balance", "insufficient", ErrInsufficientFunds)
	}
	transaction := Transaction{
		AccountID:      accountID,
		Amount:         amount,
		Source:         source,
		GameID:         gameID,
		Description:    description,
		MetadataJSON:   metadataJSON,
		BalanceAfter:   total + amount,
		CreatedUnixUTC: nowUnixUTC,
	}
	return txStore.InsertTransaction(ctx, transaction)
}

func grantSpins(ctx context.Context, txStore Store, accountID string, spins int) error {
	wheelState, err := txStore.GetWheelState(ctx, accountID)
	if err != nil {
		return err
	}
	wheelState.PaidSpinsAvailable += spins
	return txStore.SaveWheelState(ctx, accountID, wheelState)
}

func marshalParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(raw)
}
