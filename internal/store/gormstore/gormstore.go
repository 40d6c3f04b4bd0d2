package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/NovaArcadeLabs/goldcredits/pkg/engine"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultHistoryLimit   = 100
	emptyJSONObject       = "{}"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore   = "store"
	errorSubjectAccount   = "account"
	errorSubjectBalance   = "balance"
	errorSubjectLedger    = "ledger"
	errorSubjectLogin     = "login_state"
	errorSubjectMilestone = "milestone"
	errorSubjectWheel     = "wheel_state"
	errorSubjectSpin      = "spin"
	errorSubjectSummary   = "daily_summary"
	errorSubjectStats     = "game_stats"
	errorCodeCreate       = "create"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeLookup       = "lookup"
	errorCodeSave         = "save"
	errorCodeSum          = "sum"
	errorCodeUpdate       = "update"
)

// Store implements engine.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Models lists every table the store owns, for AutoMigrate.
func Models() []any {
	return []any{
		&Account{},
		&Transaction{},
		&LoginState{},
		&MilestoneClaim{},
		&WheelState{},
		&Spin{},
		&DailySummary{},
		&GameStat{},
	}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore engine.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetOrCreateAccountID(ctx context.Context, userID engine.UserID) (string, error) {
	var account Account
	err := store.db.WithContext(ctx).
		Where(Account{UserID: userID.String()}).
		Attrs(Account{CreatedAt: time.Now().UTC()}).
		FirstOrCreate(&account).Error
	if err != nil {
		return "", wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
	}
	return account.AccountID, nil
}

func (store *Store) FindAccountID(ctx context.Context, userID engine.UserID) (string, bool, error) {
	var account Account
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
	}
	return account.AccountID, true, nil
}

func (store *Store) InsertTransaction(ctx context.Context, transaction engine.Transaction) (engine.Transaction, error) {
	row := Transaction{
		AccountID:    transaction.AccountID,
		Source:       transaction.Source.String(),
		GameID:       transaction.GameID,
		Amount:       transaction.Amount.Int64(),
		BalanceAfter: transaction.BalanceAfter.Int64(),
		Description:  transaction.Description,
		Metadata:     metadataJSON(transaction.MetadataJSON),
		CreatedAt:    time.Now().UTC(),
	}
	if transaction.CreatedUnixUTC != 0 {
		row.CreatedAt = time.Unix(transaction.CreatedUnixUTC, 0).UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return engine.Transaction{}, wrapStoreError(errorSubjectLedger, errorCodeInsert, err)
	}
	return mapTransaction(row)
}

func (store *Store) SumAmounts(ctx context.Context, accountID string) (engine.AmountUnits, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("coalesce(sum(amount),0) as total").
		Where("account_id = ?", accountID).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return engine.AmountUnits(sum.Total), nil
}

func (store *Store) ListTransactions(ctx context.Context, accountID string, filter engine.HistoryFilter) ([]engine.Transaction, error) {
	query := store.db.WithContext(ctx).
		Where("account_id = ?", accountID)
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source.String())
	}
	if filter.FromUnixUTC > 0 {
		query = query.Where("created_at >= ?", time.Unix(filter.FromUnixUTC, 0).UTC())
	}
	if filter.ToUnixUTC > 0 {
		query = query.Where("created_at < ?", time.Unix(filter.ToUnixUTC, 0).UTC())
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows []Transaction
	err := query.
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectLedger, errorCodeList, err)
	}

	transactions := make([]engine.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectLedger, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *Store) GetLoginState(ctx context.Context, accountID string) (engine.LoginState, error) {
	state := engine.LoginState{ClaimedMilestones: map[int]bool{}}
	var row LoginState
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Take(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.LoginState{}, wrapStoreError(errorSubjectLogin, errorCodeGet, err)
	}
	if err == nil {
		state.CurrentStreak = row.CurrentStreak
		state.LongestStreak = row.LongestStreak
		if row.LastClaimAt != nil {
			state.LastClaimUnixUTC = row.LastClaimAt.Unix()
		}
	}
	var claims []MilestoneClaim
	if err := store.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&claims).Error; err != nil {
		return engine.LoginState{}, wrapStoreError(errorSubjectMilestone, errorCodeList, err)
	}
	for _, claim := range claims {
		state.ClaimedMilestones[claim.ThresholdDays] = true
	}
	return state, nil
}

func (store *Store) SaveLoginState(ctx context.Context, accountID string, state engine.LoginState) error {
	row := LoginState{
		AccountID:     accountID,
		CurrentStreak: state.CurrentStreak,
		LongestStreak: state.LongestStreak,
		UpdatedAt:     time.Now().UTC(),
	}
	if state.LastClaimUnixUTC != 0 {
		claimedAt := time.Unix(state.LastClaimUnixUTC, 0).UTC()
		row.LastClaimAt = &claimedAt
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectLogin, errorCodeSave, err)
	}
	return nil
}

func (store *Store) MarkMilestoneClaimed(ctx context.Context, accountID string, thresholdDays int) error {
	claim := MilestoneClaim{
		AccountID:     accountID,
		ThresholdDays: thresholdDays,
		ClaimedAt:     time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).Create(&claim).Error
	if isUniqueViolation(err) {
		return wrapStoreError(errorSubjectMilestone, errorCodeDuplicate, engine.ErrAlreadyClaimed)
	}
	if err != nil {
		return wrapStoreError(errorSubjectMilestone, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetWheelState(ctx context.Context, accountID string) (engine.WheelState, error) {
	var row WheelState
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.WheelState{}, nil
	}
	if err != nil {
		return engine.WheelState{}, wrapStoreError(errorSubjectWheel, errorCodeGet, err)
	}
	state := engine.WheelState{
		PaidSpinsAvailable: row.PaidSpinsAvailable,
		TotalSpins:         row.TotalSpins,
	}
	if row.LastFreeSpinAt != nil {
		state.LastFreeSpinUnixUTC = row.LastFreeSpinAt.Unix()
	}
	return state, nil
}

func (store *Store) SaveWheelState(ctx context.Context, accountID string, state engine.WheelState) error {
	row := WheelState{
		AccountID:          accountID,
		PaidSpinsAvailable: state.PaidSpinsAvailable,
		TotalSpins:         state.TotalSpins,
		UpdatedAt:          time.Now().UTC(),
	}
	if state.LastFreeSpinUnixUTC != 0 {
		spunAt := time.Unix(state.LastFreeSpinUnixUTC, 0).UTC()
		row.LastFreeSpinAt = &spunAt
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectWheel, errorCodeSave, err)
	}
	return nil
}

func (store *Store) InsertSpin(ctx context.Context, spin engine.SpinRecord) (engine.SpinRecord, error) {
	row := Spin{
		AccountID:    spin.AccountID,
		Type:         string(spin.Type),
		SegmentID:    spin.SegmentID,
		RewardAmount: spin.RewardAmount.Int64(),
		Claimed:      spin.Claimed,
		CreatedAt:    time.Now().UTC(),
	}
	if spin.CreatedUnixUTC != 0 {
		row.CreatedAt = time.Unix(spin.CreatedUnixUTC, 0).UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return engine.SpinRecord{}, wrapStoreError(errorSubjectSpin, errorCodeInsert, err)
	}
	return mapSpin(row)
}

func (store *Store) GetSpin(ctx context.Context, accountID string, spinID string) (engine.SpinRecord, error) {
	var row Spin
	err := store.db.WithContext(ctx).
		Where("account_id = ? AND spin_id = ?", accountID, spinID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.SpinRecord{}, wrapStoreError(errorSubjectSpin, errorCodeGet, engine.ErrUnknownSpin)
	}
	if err != nil {
		return engine.SpinRecord{}, wrapStoreError(errorSubjectSpin, errorCodeGet, err)
	}
	return mapSpin(row)
}

func (store *Store) MarkSpinClaimed(ctx context.Context, accountID string, spinID string) error {
	result := store.db.WithContext(ctx).
		Model(&Spin{}).
		Where("account_id = ? AND spin_id = ? AND claimed = ?", accountID, spinID, false).
		Update("claimed", true)
	if result.Error != nil {
		return wrapStoreError(errorSubjectSpin, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSpin, errorCodeDuplicate, engine.ErrAlreadyClaimed)
	}
	return nil
}

func (store *Store) GetDailySummary(ctx context.Context, accountID string, day string) (engine.DailySummary, error) {
	summary := engine.DailySummary{
		Day:        day,
		GamePlays:  map[string]int{},
		GameIssued: map[string]engine.AmountUnits{},
	}
	var row DailySummary
	err := store.db.WithContext(ctx).
		Where("account_id = ? AND day = ?", accountID, day).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return summary, nil
	}
	if err != nil {
		return engine.DailySummary{}, wrapStoreError(errorSubjectSummary, errorCodeGet, err)
	}
	summary.TotalIssued = engine.AmountUnits(row.TotalIssued)
	var games map[string]gameDayStat
	if len(row.Games) > 0 {
		if err := json.Unmarshal(row.Games, &games); err != nil {
			return engine.DailySummary{}, wrapStoreError(errorSubjectSummary, errorCodeInvalid, err)
		}
	}
	for gameID, stat := range games {
		summary.GamePlays[gameID] = stat.Plays
		summary.GameIssued[gameID] = engine.AmountUnits(stat.Issued)
	}
	return summary, nil
}

func (store *Store) SaveDailySummary(ctx context.Context, accountID string, summary engine.DailySummary) error {
	games := make(map[string]gameDayStat, len(summary.GamePlays))
	for gameID, plays := range summary.GamePlays {
		games[gameID] = gameDayStat{
			Plays:  plays,
			Issued: summary.GameIssued[gameID].Int64(),
		}
	}
	raw, err := json.Marshal(games)
	if err != nil {
		return wrapStoreError(errorSubjectSummary, errorCodeInvalid, err)
	}
	row := DailySummary{
		AccountID:   accountID,
		Day:         summary.Day,
		TotalIssued: summary.TotalIssued.Int64(),
		Games:       datatypes.JSON(raw),
		UpdatedAt:   time.Now().UTC(),
	}
	err = store.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectSummary, errorCodeSave, err)
	}
	return nil
}

func (store *Store) HasGameUnlock(ctx context.Context, accountID string, gameID string) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("account_id = ? AND source = ? AND game_id = ?", accountID, engine.SourceGameUnlock.String(), gameID).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectLedger, errorCodeLookup, err)
	}
	return count > 0, nil
}

// PlayStats reads the games-played counters owned by the game-stats
// collaborator. It satisfies engine.PlayCounts.
type PlayStats struct {
	db *gorm.DB
}

// NewPlayStats returns a read-only accessor over the game_stats table.
func NewPlayStats(db *gorm.DB) *PlayStats {
	return &PlayStats{db: db}
}

func (stats *PlayStats) GamesPlayed(ctx context.Context, accountID string, gameID string) (int64, error) {
	var row GameStat
	err := stats.db.WithContext(ctx).
		Where("account_id = ? AND game_id = ?", accountID, gameID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapStoreError(errorSubjectStats, errorCodeGet, err)
	}
	return row.GamesPlayed, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return engine.WrapError(errorOperationStore, subject, code, err)
}

type sqlSum struct {
	Total int64
}

type gameDayStat struct {
	Plays  int   `json:"plays"`
	Issued int64 `json:"issued"`
}

func mapTransaction(row Transaction) (engine.Transaction, error) {
	source, err := engine.ParseSource(row.Source)
	if err != nil {
		return engine.Transaction{}, err
	}
	return engine.Transaction{
		TransactionID:  row.TransactionID,
		AccountID:      row.AccountID,
		Amount:         engine.AmountUnits(row.Amount),
		Source:         source,
		GameID:         row.GameID,
		Description:    row.Description,
		MetadataJSON:   string(row.Metadata),
		BalanceAfter:   engine.AmountUnits(row.BalanceAfter),
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapSpin(row Spin) (engine.SpinRecord, error) {
	spinType, err := engine.ParseSpinType(row.Type)
	if err != nil {
		return engine.SpinRecord{}, err
	}
	return engine.SpinRecord{
		SpinID:         row.SpinID,
		AccountID:      row.AccountID,
		Type:           spinType,
		SegmentID:      row.SegmentID,
		RewardAmount:   engine.AmountUnits(row.RewardAmount),
		Claimed:        row.Claimed,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func metadataJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(emptyJSONObject))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
