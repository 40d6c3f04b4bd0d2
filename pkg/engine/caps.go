package engine

import "math"

// floatSlack absorbs binary rounding noise in the reduction factor so that an
// exact product such as 10*0.4 does not truncate to 3.
const floatSlack = 1e-9

// adjustForDay applies the daily-cap and diminishing-returns rules, in that
// order, to a proposed game-reward amount. The caller owns the
// read-modify-write of the summary; this function only computes.
//
// Rule 1: the account-wide daily cap bounds total issuance; the proposal is
// clipped to whatever headroom remains (floor 0).
// Rule 2: once the day's play count for the game reaches the threshold, a
// reduction factor shrinks the clipped amount, truncating toward zero.
func (policy Policy) adjustForDay(summary DailySummary, gameID string, proposed AmountUnits) AmountUnits {
	if proposed <= 0 {
		return 0
	}
	headroom := policy.DailyCap - summary.TotalIssued
	if headroom <= 0 {
		return 0
	}
	adjusted := proposed
	if adjusted > headroom {
		adjusted = headroom
	}
	plays := summary.GamePlays[gameID]
	if plays >= policy.DiminishThreshold {
		playsOverCap := plays - policy.DiminishThreshold
		factor := 1.0 - float64(playsOverCap+1)*policy.DiminishStep
		if factor < policy.DiminishFloor {
			factor = policy.DiminishFloor
		}
		adjusted = AmountUnits(math.Floor(float64(adjusted)*factor + floatSlack))
	}
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// recordIssued folds one award into the day's summary. Play counts advance on
// every evaluated event, credited or not, so diminishing returns track plays
// rather than payouts.
func recordIssued(summary DailySummary, gameID string, issued AmountUnits) DailySummary {
	if summary.GamePlays == nil {
		summary.GamePlays = make(map[string]int)
	}
	if summary.GameIssued == nil {
		summary.GameIssued = make(map[string]AmountUnits)
	}
	summary.GamePlays[gameID]++
	summary.TotalIssued += issued
	summary.GameIssued[gameID] += issued
	return summary
}
