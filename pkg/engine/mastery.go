package engine

// MasteryMultiplier maps a lifetime play count for one game onto a reward
// multiplier via the policy's step table. Negative counts are clamped to 0.
// Pure; no side effects.
func (policy Policy) MasteryMultiplier(gamesPlayed int64) float64 {
	if gamesPlayed < 0 {
		gamesPlayed = 0
	}
	multiplier := 1.0
	for _, tier := range policy.MasteryTiers {
		if gamesPlayed >= tier.MinPlays {
			multiplier = tier.Multiplier
		}
	}
	return multiplier
}
