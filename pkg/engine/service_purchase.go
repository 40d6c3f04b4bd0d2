package engine

import (
	"context"
	"fmt"
)

// ClaimMilestone pays out a one-time streak milestone. Eligibility follows
// the longest streak ever reached, so a later reset does not forfeit an
// earned milestone. Re-claims fail with ErrAlreadyClaimed.
func (service *Service) ClaimMilestone(ctx context.Context, userID UserID, milestoneDays int) (MilestoneResult, error) {
	milestone, known := service.policy.MilestoneByDays(milestoneDays)
	if !known {
		err := WrapError(operationMilestone, "policy", "unknown_milestone", fmt.Errorf("%w: %d days", ErrUnknownRewardType, milestoneDays))
		service.logOperation(ctx, OperationLog{Operation: operationMilestone, UserID: userID, Error: err})
		return MilestoneResult{}, err
	}
	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return MilestoneResult{}, WrapError(operationMilestone, "account", "lock", err)
	}
	defer release()

	var result MilestoneResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		loginState, err := txStore.GetLoginState(ctx, accountID)
		if err != nil {
			return err
		}
		if loginState.ClaimedMilestones[milestone.Days] {
			return WrapError(operationMilestone, "milestone", "duplicate", ErrAlreadyClaimed)
		}
		if loginState.LongestStreak < milestone.Days {
			return WrapError(operationMilestone, "milestone", "locked", fmt.Errorf("%w: requires %d days", ErrMilestoneNotReached, milestone.Days))
		}
		if err := txStore.MarkMilestoneClaimed(ctx, accountID, milestone.Days); err != nil {
			return err
		}
		description := fmt.Sprintf("Streak milestone %d days", milestone.Days)
		if _, err := appendTransaction(ctx, txStore, accountID, milestone.Credits, SourceMilestone, "", description, "", service.nowFn()); err != nil {
			return err
		}
		if milestone.WheelSpins > 0 {
			if err := grantSpins(ctx, txStore, accountID, milestone.WheelSpins); err != nil {
				return err
			}
		}
		result = MilestoneResult{AmountCredited: milestone.Credits, WheelSpinsGranted: milestone.WheelSpins}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationMilestone,
		UserID:    userID,
		Amount:    result.AmountCredited,
		Error:     operationError,
	})
	if operationError != nil {
		return MilestoneResult{}, operationError
	}
	return result, nil
}

// PurchaseGame debits the unlock cost for a game. Each game unlocks at most
// once per account; a repeat purchase fails with ErrAlreadyClaimed.
func (service *Service) PurchaseGame(ctx context.Context, userID UserID, gameID string, cost AmountUnits) (Transaction, error) {
	if cost <= 0 {
		return Transaction{}, WrapError(operationPurchaseGame, "unlock", "cost", fmt.Errorf("%w: cost must be positive", ErrInvalidAmount))
	}
	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return Transaction{}, WrapError(operationPurchaseGame, "account", "lock", err)
	}
	defer release()

	var unlock Transaction
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		unlocked, err := txStore.HasGameUnlock(ctx, accountID, gameID)
		if err != nil {
			return err
		}
		if unlocked {
			return WrapError(operationPurchaseGame, "unlock", "duplicate", ErrAlreadyClaimed)
		}
		description := fmt.Sprintf("Unlocked %s", gameID)
		unlock, err = appendTransaction(ctx, txStore, accountID, -cost, SourceGameUnlock, gameID, description, "", service.nowFn())
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationPurchaseGame,
		UserID:    userID,
		GameID:    gameID,
		Amount:    -cost,
		Error:     operationError,
	})
	if operationError != nil {
		return Transaction{}, operationError
	}
	return unlock, nil
}
