package engine

const (
	operationAward         = "award_game_event"
	operationDailyLogin    = "claim_daily_login"
	operationMilestone     = "claim_milestone"
	operationSpin          = "spin_wheel"
	operationClaimSpin     = "claim_spin_reward"
	operationPurchaseSpins = "purchase_spins"
	operationPurchaseGame  = "purchase_game"

	operationStatusOK       = "ok"
	operationStatusRejected = "rejected"
	operationStatusError    = "error"

	// dayKeyLayout formats the UTC calendar day used for daily rollover.
	dayKeyLayout = "2006-01-02"

	streakResetGapSeconds = 48 * 60 * 60
)
