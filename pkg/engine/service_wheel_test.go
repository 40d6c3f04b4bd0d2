package engine

import (
	"context"
	"errors"
	"testing"
)

func TestSpinWheelFirstSpinLandsAttractive(test *testing.T) {
	test.Parallel()
	rolls := []float64{0, 0.25, 0.5, 0.75, 0.999}
	for _, roll := range rolls {
		store := newStubStore(test)
		service := mustNewService(test, store, WithRand(func() float64 { return roll }))
		userID := mustUserID(test, "spinner-first")

		record, err := service.SpinWheel(context.Background(), userID, SpinTypeFree)
		if err != nil {
			test.Fatalf("spin at roll %v: %v", roll, err)
		}
		if !segmentIsAttractive(record.SegmentID) {
			test.Fatalf("first spin at roll %v landed on %s, want an attractive segment", roll, record.SegmentID)
		}
	}
}

func TestSpinWheelSecondSpinUsesWeightedDraw(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store) // roll fixed at 0
	userID := mustUserID(test, "spinner-second")
	accountID := store.mustAccountID(test, userID)
	store.wheelStates[accountID] = WheelState{TotalSpins: 1, PaidSpinsAvailable: 1}

	record, err := service.SpinWheel(context.Background(), userID, SpinTypePaid)
	if err != nil {
		test.Fatalf("spin: %v", err)
	}
	// Roll 0 on the weighted wheel falls in the first (heaviest) segment.
	if record.SegmentID != "seg-5" {
		test.Fatalf("expected seg-5 for roll 0, got %s", record.SegmentID)
	}
}

func TestSpinWheelFreeSpinOncePerDay(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-greedy")

	if _, err := service.SpinWheel(context.Background(), userID, SpinTypeFree); err != nil {
		test.Fatalf("first free spin: %v", err)
	}
	_, err := service.SpinWheel(context.Background(), userID, SpinTypeFree)
	if !errors.Is(err, ErrNoSpinAvailable) {
		test.Fatalf("expected ErrNoSpinAvailable, got %v", err)
	}
}

func TestSpinWheelFreeSpinRefreshesNextDay(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	now := fixedNowUnixUTC
	service := mustNewService(test, store, WithClock(func() int64 { return now }))
	userID := mustUserID(test, "spinner-patient")

	if _, err := service.SpinWheel(context.Background(), userID, SpinTypeFree); err != nil {
		test.Fatalf("first free spin: %v", err)
	}
	now += 24 * 60 * 60
	if _, err := service.SpinWheel(context.Background(), userID, SpinTypeFree); err != nil {
		test.Fatalf("next-day free spin: %v", err)
	}
}

func TestSpinWheelPaidDecrementsAtSpinTime(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-paid")
	accountID := store.mustAccountID(test, userID)
	store.wheelStates[accountID] = WheelState{PaidSpinsAvailable: 2}

	record, err := service.SpinWheel(context.Background(), userID, SpinTypePaid)
	if err != nil {
		test.Fatalf("spin: %v", err)
	}
	if record.Claimed {
		test.Fatalf("fresh spin must start unclaimed")
	}
	if store.wheelStates[accountID].PaidSpinsAvailable != 1 {
		test.Fatalf("expected 1 paid spin left, got %d", store.wheelStates[accountID].PaidSpinsAvailable)
	}
}

func TestSpinWheelPaidWithoutEntitlement(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-broke")

	_, err := service.SpinWheel(context.Background(), userID, SpinTypePaid)
	if !errors.Is(err, ErrNoSpinAvailable) {
		test.Fatalf("expected ErrNoSpinAvailable, got %v", err)
	}
}

func TestSpinWheelRejectsUnknownType(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-typo")

	_, err := service.SpinWheel(context.Background(), userID, SpinType("bonus"))
	if !errors.Is(err, ErrInvalidSpinType) {
		test.Fatalf("expected ErrInvalidSpinType, got %v", err)
	}
}

func TestClaimSpinRewardCreditsExactlyOnce(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-claimer")

	record, err := service.SpinWheel(context.Background(), userID, SpinTypeFree)
	if err != nil {
		test.Fatalf("spin: %v", err)
	}
	credited, err := service.ClaimSpinReward(context.Background(), userID, record.SpinID)
	if err != nil {
		test.Fatalf("claim: %v", err)
	}
	if credited != record.RewardAmount {
		test.Fatalf("expected %d credited, got %d", record.RewardAmount, credited)
	}
	_, err = service.ClaimSpinReward(context.Background(), userID, record.SpinID)
	if !errors.Is(err, ErrAlreadyClaimed) {
		test.Fatalf("expected ErrAlreadyClaimed on re-claim, got %v", err)
	}
	rows := 0
	for _, transaction := range store.transactions {
		if transaction.Source == SourceWheelSpin {
			rows++
		}
	}
	if rows != 1 {
		test.Fatalf("expected one wheel-spin credit, got %d", rows)
	}
}

func TestClaimSpinRewardUnknownSpin(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-guesser")

	_, err := service.ClaimSpinReward(context.Background(), userID, "spin-404")
	if !errors.Is(err, ErrUnknownSpin) {
		test.Fatalf("expected ErrUnknownSpin, got %v", err)
	}
}

func TestPurchaseSpinsDebitsAndCredits(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-buyer")
	accountID := store.mustAccountID(test, userID)
	seedBalance(store, accountID, 250)

	available, err := service.PurchaseSpins(context.Background(), userID, 2)
	if err != nil {
		test.Fatalf("purchase: %v", err)
	}
	if available != 2 {
		test.Fatalf("expected 2 spins available, got %d", available)
	}
	balance, err := service.Balance(context.Background(), userID)
	if err != nil {
		test.Fatalf("balance: %v", err)
	}
	if balance != 50 {
		test.Fatalf("expected balance 50 after the 200 debit, got %d", balance)
	}
}

func TestPurchaseSpinsInsufficientFunds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-short")
	accountID := store.mustAccountID(test, userID)
	seedBalance(store, accountID, 150)

	_, err := service.PurchaseSpins(context.Background(), userID, 2)
	if !errors.Is(err, ErrInsufficientFunds) {
		test.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(store.transactions) != 1 {
		test.Fatalf("rejected purchase must leave the ledger untouched, got %d rows", len(store.transactions))
	}
	if store.wheelStates[accountID].PaidSpinsAvailable != 0 {
		test.Fatalf("rejected purchase must not grant spins, got %d", store.wheelStates[accountID].PaidSpinsAvailable)
	}
}

func TestPurchaseSpinsRejectsNonPositiveQuantity(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "spinner-zero")

	_, err := service.PurchaseSpins(context.Background(), userID, 0)
	if !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPurchaseGameUnlocksOnce(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "unlocker")
	accountID := store.mustAccountID(test, userID)
	seedBalance(store, accountID, 500)

	unlock, err := service.PurchaseGame(context.Background(), userID, "rhythm-tap", 120)
	if err != nil {
		test.Fatalf("purchase: %v", err)
	}
	if unlock.Amount != -120 {
		test.Fatalf("expected -120 debit, got %d", unlock.Amount)
	}
	if unlock.BalanceAfter != 380 {
		test.Fatalf("expected balance after 380, got %d", unlock.BalanceAfter)
	}
	_, err = service.PurchaseGame(context.Background(), userID, "rhythm-tap", 120)
	if !errors.Is(err, ErrAlreadyClaimed) {
		test.Fatalf("expected ErrAlreadyClaimed on repeat unlock, got %v", err)
	}
}

func TestPurchaseGameInsufficientFunds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "unlocker-broke")

	_, err := service.PurchaseGame(context.Background(), userID, "rhythm-tap", 120)
	if !errors.Is(err, ErrInsufficientFunds) {
		test.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPurchaseGameRejectsNonPositiveCost(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	userID := mustUserID(test, "unlocker-free")

	_, err := service.PurchaseGame(context.Background(), userID, "rhythm-tap", 0)
	if !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func segmentIsAttractive(segmentID string) bool {
	for _, segment := range DefaultPolicy().Segments {
		if segment.SegmentID == segmentID {
			return segment.Attractive
		}
	}
	return false
}

func seedBalance(store *stubStore, accountID string, amount AmountUnits) {
	store.transactions = append(store.transactions, Transaction{
		TransactionID:  "tx-seed",
		AccountID:      accountID,
		Amount:         amount,
		Source:         SourceManualAdjustment,
		BalanceAfter:   amount,
		CreatedUnixUTC: fixedNowUnixUTC,
	})
}
