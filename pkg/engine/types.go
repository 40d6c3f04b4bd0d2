package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AmountUnits is a signed credit amount in the smallest currency unit.
type AmountUnits int64

// Int64 returns the raw amount.
func (amount AmountUnits) Int64() int64 {
	return int64(amount)
}

// UserID identifies an account owner.
type UserID struct {
	value string
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// Source enumerates balance-affecting event kinds.
type Source string

const (
	SourceGameReward       Source = "game-reward"
	SourceDailyLogin       Source = "daily-login"
	SourceMilestone        Source = "milestone"
	SourceWheelSpin        Source = "wheel-spin"
	SourceWheelPurchase    Source = "wheel-purchase"
	SourceGameUnlock       Source = "game-unlock"
	SourceReferral         Source = "referral"
	SourceManualAdjustment Source = "manual-adjustment"
)

// String returns the wire value of the source.
func (source Source) String() string {
	return string(source)
}

// ParseSource validates a raw source value.
func ParseSource(raw string) (Source, error) {
	switch Source(raw) {
	case SourceGameReward, SourceDailyLogin, SourceMilestone, SourceWheelSpin,
		SourceWheelPurchase, SourceGameUnlock, SourceReferral, SourceManualAdjustment:
		return Source(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSource, raw)
}

// A single immutable line in the ledger.
type Transaction struct {
	TransactionID  string
	AccountID      string
	Amount         AmountUnits
	Source         Source
	GameID         string
	Description    string
	MetadataJSON   string
	BalanceAfter   AmountUnits
	CreatedUnixUTC int64
}

// HistoryFilter narrows History listings. Zero-value fields are ignored;
// populated filters are AND-combined. Results are newest-first.
type HistoryFilter struct {
	Source      Source
	FromUnixUTC int64
	ToUnixUTC   int64
	Limit       int
}

// LoginState holds per-account daily-login continuity.
type LoginState struct {
	CurrentStreak     int
	LongestStreak     int
	LastClaimUnixUTC  int64
	ClaimedMilestones map[int]bool
}

// SpinType distinguishes free from purchased wheel spins.
type SpinType string

const (
	SpinTypeFree SpinType = "free"
	SpinTypePaid SpinType = "paid"
)

// ParseSpinType validates a raw spin type.
func ParseSpinType(raw string) (SpinType, error) {
	switch SpinType(raw) {
	case SpinTypeFree, SpinTypePaid:
		return SpinType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpinType, raw)
}

// WheelState holds per-account spin entitlements.
type WheelState struct {
	LastFreeSpinUnixUTC int64
	PaidSpinsAvailable  int
	TotalSpins          int64
}

// FreeSpinAvailable reports whether the daily free spin is still unused for
// the UTC calendar day containing nowUnixUTC.
func (state WheelState) FreeSpinAvailable(nowUnixUTC int64) bool {
	if state.LastFreeSpinUnixUTC == 0 {
		return true
	}
	return DayKeyUTC(state.LastFreeSpinUnixUTC) != DayKeyUTC(nowUnixUTC)
}

// SpinRecord is one wheel outcome, held unclaimed until the reward is credited.
type SpinRecord struct {
	SpinID         string
	AccountID      string
	Type           SpinType
	SegmentID      string
	RewardAmount   AmountUnits
	Claimed        bool
	CreatedUnixUTC int64
}

// DailySummary tracks per-day issuance for cap enforcement. Days roll over
// logically; old summaries stay behind as history.
type DailySummary struct {
	Day         string
	TotalIssued AmountUnits
	GamePlays   map[string]int
	GameIssued  map[string]AmountUnits
}

// DayKeyUTC returns the UTC calendar day containing the instant.
func DayKeyUTC(unixUTC int64) string {
	return time.Unix(unixUTC, 0).UTC().Format(dayKeyLayout)
}

// DailyLoginResult reports the outcome of a successful daily claim.
type DailyLoginResult struct {
	AmountCredited    AmountUnits
	NewStreak         int
	WheelSpinsGranted int
}

// MilestoneResult reports the outcome of a successful milestone claim.
type MilestoneResult struct {
	AmountCredited    AmountUnits
	WheelSpinsGranted int
}

// Store is the persistence contract used by Service. All mutating service
// operations run inside a single WithTx closure so that ledger appends and
// auxiliary state updates commit or fail together.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetOrCreateAccountID(ctx context.Context, userID UserID) (string, error)
	FindAccountID(ctx context.Context, userID UserID) (string, bool, error)
	InsertTransaction(ctx context.Context, transaction Transaction) (Transaction, error)
	SumAmounts(ctx context.Context, accountID string) (AmountUnits, error)
	ListTransactions(ctx context.Context, accountID string, filter HistoryFilter) ([]Transaction, error)
	GetLoginState(ctx context.Context, accountID string) (LoginState, error)
	SaveLoginState(ctx context.Context, accountID string, state LoginState) error
	MarkMilestoneClaimed(ctx context.Context, accountID string, thresholdDays int) error
	GetWheelState(ctx context.Context, accountID string) (WheelState, error)
	SaveWheelState(ctx context.Context, accountID string, state WheelState) error
	InsertSpin(ctx context.Context, spin SpinRecord) (SpinRecord, error)
	GetSpin(ctx context.Context, accountID string, spinID string) (SpinRecord, error)
	MarkSpinClaimed(ctx context.Context, accountID string, spinID string) error
	GetDailySummary(ctx context.Context, accountID string, day string) (DailySummary, error)
	SaveDailySummary(ctx context.Context, accountID string, summary DailySummary) error
	HasGameUnlock(ctx context.Context, accountID string, gameID string) (bool, error)
}

// PlayCounts reads the lifetime games-played counter owned by the game-stats
// collaborator. The engine never writes through this interface.
type PlayCounts interface {
	GamesPlayed(ctx context.Context, accountID string, gameID string) (int64, error)
}
