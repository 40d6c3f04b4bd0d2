package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NovaArcadeLabs/goldcredits/pkg/engine"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Engine is the subset of the reward orchestrator the HTTP facade calls.
type Engine interface {
	Balance(ctx context.Context, userID engine.UserID) (engine.AmountUnits, error)
	History(ctx context.Context, userID engine.UserID, filter engine.HistoryFilter) ([]engine.Transaction, error)
	AwardGameEvent(ctx context.Context, userID engine.UserID, gameID string, eventType string, params map[string]any) (engine.AmountUnits, error)
	ClaimDailyLogin(ctx context.Context, userID engine.UserID) (engine.DailyLoginResult, error)
	ClaimMilestone(ctx context.Context, userID engine.UserID, milestoneDays int) (engine.MilestoneResult, error)
	SpinWheel(ctx context.Context, userID engine.UserID, spinType engine.SpinType) (engine.SpinRecord, error)
	ClaimSpinReward(ctx context.Context, userID engine.UserID, spinID string) (engine.AmountUnits, error)
	PurchaseSpins(ctx context.Context, userID engine.UserID, quantity int) (int, error)
	PurchaseGame(ctx context.Context, userID engine.UserID, gameID string, cost engine.AmountUnits) (engine.Transaction, error)
}

// Run boots the HTTP facade using the supplied configuration.
func Run(ctx context.Context, cfg Config, rewards Engine, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	handler := &httpHandler{
		logger:  logger,
		rewards: rewards,
		cfg:     cfg,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reward api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/accounts/:account")
	api.GET("/balance", handler.handleBalance)
	api.GET("/history", handler.handleHistory)
	api.POST("/events", handler.handleGameEvent)
	api.POST("/daily-login", handler.handleDailyLogin)
	api.POST("/milestones", handler.handleMilestone)
	api.POST("/spins", handler.handleSpin)
	api.POST("/spin-claims", handler.handleSpinClaim)
	api.POST("/spin-purchases", handler.handleSpinPurchase)
	api.POST("/game-purchases", handler.handleGamePurchase)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	rewards Engine
	cfg     Config
}

func (handler *httpHandler) handleBalance(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	balance, err := handler.rewards.Balance(handler.requestContext(ctx), userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance": balance.Int64()})
}

func (handler *httpHandler) handleHistory(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var query historyQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_query", "malformed history filter"))
		return
	}
	filter := engine.HistoryFilter{
		FromUnixUTC: query.From,
		ToUnixUTC:   query.To,
		Limit:       query.Limit,
	}
	if query.Source != "" {
		source, err := engine.ParseSource(query.Source)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_source", "unknown transaction source"))
			return
		}
		filter.Source = source
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	transactions, err := handler.rewards.History(handler.requestContext(ctx), userID, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]transactionPayload, 0, len(transactions))
	for _, transaction := range transactions {
		payload = append(payload, mapTransactionPayload(transaction))
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": payload})
}

func (handler *httpHandler) handleGameEvent(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var request gameEventRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with game_id and event_type"))
		return
	}
	credited, err := handler.rewards.AwardGameEvent(handler.requestContext(ctx), userID, request.GameID, request.EventType, request.Params)
	if errors.Is(err, engine.ErrUnknownRewardType) {
		// Unknown combinations are non-fatal to callers: zero reward, not a crash.
		ctx.JSON(http.StatusOK, gin.H{"amount_credited": 0, "status": "unknown_event"})
		return
	}
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"amount_credited": credited.Int64(), "status": "success"})
}

func (handler *httpHandler) handleDailyLogin(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	result, err := handler.rewards.ClaimDailyLogin(handler.requestContext(ctx), userID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"amount_credited":     result.AmountCredited.Int64(),
		"new_streak":          result.NewStreak,
		"wheel_spins_granted": result.WheelSpinsGranted,
	})
}

func (handler *httpHandler) handleMilestone(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var request milestoneRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with days"))
		return
	}
	result, err := handler.rewards.ClaimMilestone(handler.requestContext(ctx), userID, request.Days)
	if errors.Is(err, engine.ErrUnknownRewardType) {
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_milestone", "no milestone configured for those days"))
		return
	}
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"amount_credited":     result.AmountCredited.Int64(),
		"wheel_spins_granted": result.WheelSpinsGranted,
	})
}

func (handler *httpHandler) handleSpin(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var request spinRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with type"))
		return
	}
	spinType, err := engine.ParseSpinType(request.Type)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_spin_type", "type must be free or paid"))
		return
	}
	record, err := handler.rewards.SpinWheel(handler.requestContext(ctx), userID, spinType)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"spin_id":       record.SpinID,
		"segment_id":    record.SegmentID,
		"reward_amount": record.RewardAmount.Int64(),
		"claimed":       record.Claimed,
	})
}

func (handler *httpHandler) handleSpinClaim(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var request spinClaimRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || request.SpinID == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with spin_id"))
		return
	}
	credited, err := handler.rewards.ClaimSpinReward(handler.requestContext(ctx), userID, request.SpinID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"amount_credited": credited.Int64()})
}

func (handler *httpHandler) handleSpinPurchase(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var request spinPurchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with quantity"))
		return
	}
	newSpinCount, err := handler.rewards.PurchaseSpins(handler.requestContext(ctx), userID, request.Quantity)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"new_spin_count": newSpinCount})
}

func (handler *httpHandler) handleGamePurchase(ctx *gin.Context) {
	userID, ok := handler.pathUserID(ctx)
	if !ok {
		return
	}
	var request gamePurchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || request.GameID == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with game_id and cost"))
		return
	}
	unlock, err := handler.rewards.PurchaseGame(handler.requestContext(ctx), userID, request.GameID, engine.AmountUnits(request.Cost))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"transaction": mapTransactionPayload(unlock),
	})
}

func (handler *httpHandler) pathUserID(ctx *gin.Context) (engine.UserID, bool) {
	userID, err := engine.NewUserID(ctx.Param("account"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account", "account id is required"))
		return engine.UserID{}, false
	}
	return userID, true
}

func (handler *httpHandler) requestContext(ctx *gin.Context) context.Context {
	return ctx.Request.Context()
}

// respondError maps engine errors onto HTTP statuses. Business rejections get
// 409 with a stable code; only unexpected failures are logged here.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds):
		ctx.JSON(http.StatusConflict, errorResponse("insufficient_funds", "balance too low"))
	case errors.Is(err, engine.ErrAlreadyClaimed):
		ctx.JSON(http.StatusConflict, errorResponse("already_claimed", "reward was already claimed"))
	case errors.Is(err, engine.ErrNoSpinAvailable):
		ctx.JSON(http.StatusConflict, errorResponse("no_spin_available", "no spin of that type available"))
	case errors.Is(err, engine.ErrMilestoneNotReached):
		ctx.JSON(http.StatusConflict, errorResponse("milestone_not_reached", "streak has not reached that milestone"))
	case errors.Is(err, engine.ErrUnknownSpin):
		ctx.JSON(http.StatusNotFound, errorResponse("unknown_spin", "no such spin"))
	case errors.Is(err, engine.ErrInvalidAmount), errors.Is(err, engine.ErrInvalidSpinType), errors.Is(err, engine.ErrInvalidUserID):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request", err.Error()))
	case errors.Is(err, engine.ErrAccountLockTimeout):
		ctx.Header("Retry-After", "1")
		ctx.JSON(http.StatusServiceUnavailable, errorResponse("account_busy", "account is busy, retry with backoff"))
	default:
		handler.logger.Error("engine call failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("engine_error", "operation failed"))
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func mapTransactionPayload(transaction engine.Transaction) transactionPayload {
	metadata := json.RawMessage(transaction.MetadataJSON)
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}
	return transactionPayload{
		TransactionID:  transaction.TransactionID,
		Amount:         transaction.Amount.Int64(),
		Source:         transaction.Source.String(),
		GameID:         transaction.GameID,
		Description:    transaction.Description,
		Metadata:       metadata,
		BalanceAfter:   transaction.BalanceAfter.Int64(),
		CreatedUnixUTC: transaction.CreatedUnixUTC,
	}
}

type historyQuery struct {
	Source string `form:"source"`
	From   int64  `form:"from"`
	To     int64  `form:"to"`
	Limit  int    `form:"limit"`
}

type gameEventRequest struct {
	GameID    string         `json:"game_id"`
	EventType string         `json:"event_type"`
	Params    map[string]any `json:"params"`
}

type milestoneRequest struct {
	Days int `json:"days"`
}

type spinRequest struct {
	Type string `json:"type"`
}

type spinClaimRequest struct {
	SpinID string `json:"spin_id"`
}

type spinPurchaseRequest struct {
	Quantity int `json:"quantity"`
}

type gamePurchaseRequest struct {
	GameID string `json:"game_id"`
	Cost   int64  `json:"cost"`
}

type transactionPayload struct {
	TransactionID  string          `json:"transaction_id"`
	Amount         int64           `json:"amount"`
	Source         string          `json:"source"`
	GameID         string          `json:"game_id,omitempty"`
	Description    string          `json:"description"`
	Metadata       json.RawMessage `json:"metadata"`
	BalanceAfter   int64           `json:"balance_after"`
	CreatedUnixUTC int64           `json:"created_unix_utc"`
}
