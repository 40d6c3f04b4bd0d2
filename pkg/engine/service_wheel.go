package engine

import (
	"context"
	"fmt"
)

// SpinWheel draws a wheel segment and records an unclaimed spin. Free spins
// refresh at the UTC day boundary; paid spins are decremented at spin time,
// not at claim time. An account's very first spin draws uniformly from the
// attractive subset instead of the weighted table.
func (service *Service) SpinWheel(ctx context.Context, userID UserID, spinType SpinType) (SpinRecord, error) {
	if _, err := ParseSpinType(string(spinType)); err != nil {
		return SpinRecord{}, WrapError(operationSpin, "wheel", "spin_type", err)
	}
	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return SpinRecord{}, WrapError(operationSpin, "account", "lock", err)
	}
	defer release()

	var record SpinRecord
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		wheelState, err := txStore.GetWheelState(ctx, accountID)
		if err != nil {
			return err
		}
		switch spinType {
		case SpinTypeFree:
			if !wheelState.FreeSpinAvailable(nowUnixUTC) {
				return WrapError(operationSpin, "wheel", "no_free_spin", ErrNoSpinAvailable)
			}
			wheelState.LastFreeSpinUnixUTC = nowUnixUTC
		case SpinTypePaid:
			if wheelState.PaidSpinsAvailable <= 0 {
				return WrapError(operationSpin, "wheel", "no_paid_spin", ErrNoSpinAvailable)
			}
			wheelState.PaidSpinsAvailable--
		}

		roll := service.randFn()
		var segment WheelSegment
		if wheelState.TotalSpins == 0 {
			segment = pickAttractive(service.policy.attractiveSegments(), roll)
		} else {
			segment = pickSegment(service.policy.Segments, roll)
		}
		wheelState.TotalSpins++

		record, err = txStore.InsertSpin(ctx, SpinRecord{
			AccountID:      accountID,
			Type:           spinType,
			SegmentID:      segment.SegmentID,
			RewardAmount:   segment.Reward,
			CreatedUnixUTC: nowUnixUTC,
		})
		if err != nil {
			return err
		}
		return txStore.SaveWheelState(ctx, accountID, wheelState)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationSpin,
		UserID:    userID,
		Amount:    record.RewardAmount,
		Error:     operationError,
	})
	if operationError != nil {
		return SpinRecord{}, operationError
	}
	return record, nil
}

// ClaimSpinReward credits a previously drawn spin. Each spin pays out exactly
// once; a second claim fails with ErrAlreadyClaimed.
func (service *Service) ClaimSpinReward(ctx context.Context, userID UserID, spinID string) (AmountUnits, error) {
	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return 0, WrapError(operationClaimSpin, "account", "lock", err)
	}
	defer release()

	var credited AmountUnits
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		spin, err := txStore.GetSpin(ctx, accountID, spinID)
		if err != nil {
			return err
		}
		if spin.Claimed {
			return WrapError(operationClaimSpin, "spin", "duplicate", ErrAlreadyClaimed)
		}
		if err := txStore.MarkSpinClaimed(ctx, accountID, spinID); err != nil {
			return err
		}
		description := fmt.Sprintf("Wheel spin %s", spin.SegmentID)
		if _, err := appendTransaction(ctx, txStore, accountID, spin.RewardAmount, SourceWheelSpin, "", description, "", service.nowFn()); err != nil {
			return err
		}
		credited = spin.RewardAmount
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationClaimSpin,
		UserID:    userID,
		Amount:    credited,
		Error:     operationError,
	})
	if operationError != nil {
		return 0, operationError
	}
	return credited, nil
}

// PurchaseSpins debits quantity x unit cost and credits paid spins in the
// same transaction. An insufficient balance rejects the whole purchase with
// no visible side effect.
func (service *Service) PurchaseSpins(ctx context.Context, userID UserID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, WrapError(operationPurchaseSpins, "wheel", "quantity", fmt.Errorf("%w: quantity must be positive", ErrInvalidAmount))
	}
	release, err := service.locks.acquire(ctx, userID.String())
	if err != nil {
		return 0, WrapError(operationPurchaseSpins, "account", "lock", err)
	}
	defer release()

	var newSpinCount int
	cost := AmountUnits(int64(quantity)) * service.policy.SpinUnitCost
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		accountID, err := txStore.GetOrCreateAccountID(ctx, userID)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Purchased %d wheel spins", quantity)
		if _, err := appendTransaction(ctx, txStore, accountID, -cost, SourceWheelPurchase, "", description, "", service.nowFn()); err != nil {
			return err
		}
		wheelState, err := txStore.GetWheelState(ctx, accountID)
		if err != nil {
			return err
		}
		wheelState.PaidSpinsAvailable += quantity
		newSpinCount = wheelState.PaidSpinsAvailable
		return txStore.SaveWheelState(ctx, accountID, wheelState)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationPurchaseSpins,
		UserID:    userID,
		Amount:    -cost,
		Error:     operationError,
	})
	if operationError != nil {
		return 0, operationError
	}
	return newSpinCount, nil
}
