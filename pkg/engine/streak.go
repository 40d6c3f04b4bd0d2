package engine

// nextStreak computes the streak value after a claim at nowUnixUTC.
// A first-ever claim starts at 1. A gap of more than 48 hours since the last
// claim resets to 1 (never 0); anything shorter extends the run.
func nextStreak(state LoginState, nowUnixUTC int64) int {
	if state.LastClaimUnixUTC == 0 {
		return 1
	}
	if nowUnixUTC-state.LastClaimUnixUTC > streakResetGapSeconds {
		return 1
	}
	return state.CurrentStreak + 1
}

// claimedToday reports whether the last claim falls in the same UTC calendar
// day as nowUnixUTC. Same-day re-claims are rejected, not absorbed.
func claimedToday(state LoginState, nowUnixUTC int64) bool {
	if state.LastClaimUnixUTC == 0 {
		return false
	}
	return DayKeyUTC(state.LastClaimUnixUTC) == DayKeyUTC(nowUnixUTC)
}

// spinsGrantedForStreak returns the wheel spins earned by reaching streak:
// one spin on every 7th consecutive day (policy cadence).
func (policy Policy) spinsGrantedForStreak(streak int) int {
	if streak > 0 && streak%policy.SpinEveryDays == 0 {
		return 1
	}
	return 0
}
