package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	AccountID string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex:uniq_accounts_user"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// Transaction mirrors the transactions table. Seq is the insertion order and
// breaks timestamp ties when listing history.
type Transaction struct {
	Seq           int64          `gorm:"primaryKey;autoIncrement"`
	TransactionID string         `gorm:"type:uuid;not null;uniqueIndex:uniq_transactions_id"`
	AccountID     string         `gorm:"type:uuid;not null;index:idx_transactions_account_created,priority:1"`
	Source        string         `gorm:"not null"`
	GameID        string         `gorm:""`
	Amount        int64          `gorm:"not null"`
	BalanceAfter  int64          `gorm:"not null"`
	Description   string         `gorm:""`
	Metadata      datatypes.JSON `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_transactions_account_created,priority:2"`
}

func (Transaction) TableName() string { return "transactions" }

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}

// LoginState mirrors the login_states table.
type LoginState struct {
	AccountID     string     `gorm:"type:uuid;primaryKey"`
	CurrentStreak int        `gorm:"not null"`
	LongestStreak int        `gorm:"not null"`
	LastClaimAt   *time.Time `gorm:""`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (LoginState) TableName() string { return "login_states" }

// MilestoneClaim records a one-time milestone payout. The composite primary
// key is the claim-once guarantee at the constraint level.
type MilestoneClaim struct {
	AccountID     string    `gorm:"type:uuid;primaryKey"`
	ThresholdDays int       `gorm:"primaryKey"`
	ClaimedAt     time.Time `gorm:"not null"`
}

func (MilestoneClaim) TableName() string { return "milestone_claims" }

// WheelState mirrors the wheel_states table.
type WheelState struct {
	AccountID          string     `gorm:"type:uuid;primaryKey"`
	LastFreeSpinAt     *time.Time `gorm:""`
	PaidSpinsAvailable int        `gorm:"not null"`
	TotalSpins         int64      `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

func (WheelState) TableName() string { return "wheel_states" }

// Spin mirrors the spins table.
type Spin struct {
	SpinID       string    `gorm:"type:uuid;primaryKey"`
	AccountID    string    `gorm:"type:uuid;not null;index:idx_spins_account"`
	Type         string    `gorm:"not null"`
	SegmentID    string    `gorm:"not null"`
	RewardAmount int64     `gorm:"not null"`
	Claimed      bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Spin) TableName() string { return "spins" }

func (spin *Spin) BeforeCreate(tx *gorm.DB) error {
	if spin.SpinID == "" {
		spin.SpinID = uuid.NewString()
	}
	return nil
}

// DailySummary mirrors the daily_summaries table; per-game counters live in
// a JSON column keyed by game id.
type DailySummary struct {
	AccountID   string         `gorm:"type:uuid;primaryKey"`
	Day         string         `gorm:"primaryKey"`
	TotalIssued int64          `gorm:"not null"`
	Games       datatypes.JSON `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (DailySummary) TableName() string { return "daily_summaries" }

// GameStat mirrors the game_stats table owned by the game-stats collaborator.
// The engine only reads it.
type GameStat struct {
	AccountID   string `gorm:"type:uuid;primaryKey"`
	GameID      string `gorm:"primaryKey"`
	GamesPlayed int64  `gorm:"not null"`
}

func (GameStat) TableName() string { return "game_stats" }
