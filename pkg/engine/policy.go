package engine

import (
	"fmt"
	"math"
)

const weightSumEpsilon = 1e-9

// EventKey addresses one row of the reward table.
type EventKey struct {
	GameID    string
	EventType string
}

// RewardRule is the base reward for one (game, event-type) combination.
type RewardRule struct {
	Base        AmountUnits
	Description string
}

// MasteryTier maps a lifetime play count to a reward multiplier.
type MasteryTier struct {
	MinPlays   int64
	Multiplier float64
}

// StreakTier maps a login streak length to a reward multiplier.
type StreakTier struct {
	MinStreak  int
	Multiplier float64
}

// LoginRewardTier maps a streak length to the daily-login credit.
type LoginRewardTier struct {
	MinStreak int
	Amount    AmountUnits
}

// Milestone is a one-time streak achievement reward.
type Milestone struct {
	Days       int
	Credits    AmountUnits
	WheelSpins int
}

// WheelSegment is one slice of the probability wheel. Segment order is part
// of the policy: the inverse-CDF draw resolves boundary ties to the earlier
// segment, so reordering segments changes outcomes for identical rolls.
type WheelSegment struct {
	SegmentID  string
	Reward     AmountUnits
	Weight     float64
	Attractive bool
}

// Policy is the static configuration driving every reward computation.
// It is validated once at load time; a Policy that fails Validate must not
// reach a running Service.
type Policy struct {
	Rewards           map[EventKey]RewardRule
	MasteryTiers      []MasteryTier
	StreakTiers       []StreakTier
	LoginRewards      []LoginRewardTier
	SpinEveryDays     int
	Milestones        []Milestone
	Segments          []WheelSegment
	DailyCap          AmountUnits
	DiminishThreshold int
	DiminishStep      float64
	DiminishFloor     float64
	SpinUnitCost      AmountUnits
}

// DefaultPolicy returns the production reward configuration.
func DefaultPolicy() Policy {
	return Policy{
		Rewards: map[EventKey]RewardRule{
			{GameID: "flame-of-wisdom", EventType: "participation"}: {Base: 2, Description: "Flame of Wisdom participation"},
			{GameID: "flame-of-wisdom", EventType: "win"}:           {Base: 10, Description: "Flame of Wisdom win"},
			{GameID: "tic-tac-toe", EventType: "participation"}:     {Base: 2, Description: "Tic-tac-toe participation"},
			{GameID: "tic-tac-toe", EventType: "win"}:               {Base: 8, Description: "Tic-tac-toe win"},
			{GameID: "tic-tac-toe", EventType: "draw"}:              {Base: 4, Description: "Tic-tac-toe draw"},
			{GameID: "2048", EventType: "participation"}:            {Base: 2, Description: "2048 participation"},
			{GameID: "2048", EventType: "tile-512"}:                 {Base: 5, Description: "2048 reached 512"},
			{GameID: "2048", EventType: "tile-1024"}:                {Base: 12, Description: "2048 reached 1024"},
			{GameID: "2048", EventType: "tile-2048"}:                {Base: 30, Description: "2048 reached 2048"},
			{GameID: "rhythm-tap", EventType: "participation"}:      {Base: 2, Description: "Rhythm tap participation"},
			{GameID: "rhythm-tap", EventType: "perfect-run"}:        {Base: 15, Description: "Rhythm tap perfect run"},
		},
		MasteryTiers: []MasteryTier{
			{MinPlays: 10, Multiplier: 1.05},
			{MinPlays: 50, Multiplier: 1.10},
			{MinPlays: 100, Multiplier: 1.15},
			{MinPlays: 250, Multiplier: 1.20},
		},
		StreakTiers: []StreakTier{
			{MinStreak: 3, Multiplier: 1.05},
			{MinStreak: 7, Multiplier: 1.10},
			{MinStreak: 14, Multiplier: 1.15},
			{MinStreak: 30, Multiplier: 1.20},
		},
		LoginRewards: []LoginRewardTier{
			{MinStreak: 1, Amount: 10},
			{MinStreak: 5, Amount: 15},
			{MinStreak: 10, Amount: 20},
			{MinStreak: 20, Amount: 25},
			{MinStreak: 30, Amount: 30},
		},
		SpinEveryDays: 7,
		Milestones: []Milestone{
			{Days: 3, Credits: 30},
			{Days: 7, Credits: 70},
			{Days: 14, Credits: 150},
			{Days: 30, Credits: 300, WheelSpins: 1},
			{Days: 60, Credits: 600, WheelSpins: 2},
			{Days: 90, Credits: 1000, WheelSpins: 3},
		},
		Segments: []WheelSegment{
			{SegmentID: "seg-5", Reward: 5, Weight: 0.30},
			{SegmentID: "seg-10", Reward: 10, Weight: 0.25},
			{SegmentID: "seg-15", Reward: 15, Weight: 0.15},
			{SegmentID: "seg-20", Reward: 20, Weight: 0.12, Attractive: true},
			{SegmentID: "seg-30", Reward: 30, Weight: 0.08, Attractive: true},
			{SegmentID: "seg-50", Reward: 50, Weight: 0.06, Attractive: true},
			{SegmentID: "seg-75", Reward: 75, Weight: 0.03, Attractive: true},
			{SegmentID: "seg-100", Reward: 100, Weight: 0.01},
		},
		DailyCap:          200,
		DiminishThreshold: 10,
		DiminishStep:      0.1,
		DiminishFloor:     0.1,
		SpinUnitCost:      100,
	}
}

// Validate checks the policy invariants. A failure here is a deployment
// error and must halt startup.
func (policy Policy) Validate() error {
	if len(policy.Rewards) == 0 {
		return fmt.Errorf("%w: reward table is empty", ErrInvalidConfiguration)
	}
	for key, rule := range policy.Rewards {
		if rule.Base <= 0 {
			return fmt.Errorf("%w: non-positive base for %s/%s", ErrInvalidConfiguration, key.GameID, key.EventType)
		}
	}
	if err := validateAscendingMastery(policy.MasteryTiers); err != nil {
		return err
	}
	if err := validateAscendingStreak(policy.StreakTiers); err != nil {
		return err
	}
	if len(policy.LoginRewards) == 0 {
		return fmt.Errorf("%w: login reward table is empty", ErrInvalidConfiguration)
	}
	for index, tier := range policy.LoginRewards {
		if tier.Amount <= 0 {
			return fmt.Errorf("%w: non-positive login reward at tier %d", ErrInvalidConfiguration, index)
		}
		if index > 0 && tier.MinStreak <= policy.LoginRewards[index-1].MinStreak {
			return fmt.Errorf("%w: login reward tiers must ascend", ErrInvalidConfiguration)
		}
	}
	if policy.SpinEveryDays <= 0 {
		return fmt.Errorf("%w: spin cadence must be positive", ErrInvalidConfiguration)
	}
	for index, milestone := range policy.Milestones {
		if milestone.Days <= 0 || milestone.Credits <= 0 {
			return fmt.Errorf("%w: malformed milestone at index %d", ErrInvalidConfiguration, index)
		}
		if index > 0 && milestone.Days <= policy.Milestones[index-1].Days {
			return fmt.Errorf("%w: milestones must ascend", ErrInvalidConfiguration)
		}
	}
	if err := policy.validateSegments(); err != nil {
		return err
	}
	if policy.DailyCap <= 0 {
		return fmt.Errorf("%w: daily cap must be positive", ErrInvalidConfiguration)
	}
	if policy.DiminishThreshold <= 0 {
		return fmt.Errorf("%w: diminishing-returns threshold must be positive", ErrInvalidConfiguration)
	}
	if policy.DiminishStep <= 0 || policy.DiminishStep >= 1 {
		return fmt.Errorf("%w: diminishing-returns step must be in (0,1)", ErrInvalidConfiguration)
	}
	if policy.DiminishFloor <= 0 || policy.DiminishFloor >= 1 {
		return fmt.Errorf("%w: diminishing-returns floor must be in (0,1)", ErrInvalidConfiguration)
	}
	if policy.SpinUnitCost <= 0 {
		return fmt.Errorf("%w: spin unit cost must be positive", ErrInvalidConfiguration)
	}
	return nil
}

func (policy Policy) validateSegments() error {
	if len(policy.Segments) == 0 {
		return fmt.Errorf("%w: wheel has no segments", ErrInvalidConfiguration)
	}
	var weightSum float64
	attractive := 0
	seen := make(map[string]bool, len(policy.Segments))
	for _, segment := range policy.Segments {
		if segment.SegmentID == "" {
			return fmt.Errorf("%w: segment with empty id", ErrInvalidConfiguration)
		}
		if seen[segment.SegmentID] {
			return fmt.Errorf("%w: duplicate segment id %q", ErrInvalidConfiguration, segment.SegmentID)
		}
		seen[segment.SegmentID] = true
		if segment.Reward <= 0 {
			return fmt.Errorf("%w: non-positive reward for segment %q", ErrInvalidConfiguration, segment.SegmentID)
		}
		if segment.Weight <= 0 {
			return fmt.Errorf("%w: non-positive weight for segment %q", ErrInvalidConfiguration, segment.SegmentID)
		}
		weightSum += segment.Weight
		if segment.Attractive {
			attractive++
		}
	}
	if math.Abs(weightSum-1.0) > weightSumEpsilon {
		return fmt.Errorf("%w: segment weights sum to %v, want 1.0", ErrInvalidConfiguration, weightSum)
	}
	if attractive == 0 {
		return fmt.Errorf("%w: no attractive segments for the first-spin guarantee", ErrInvalidConfiguration)
	}
	return nil
}

// BaseReward looks up the reward rule for a (game, event-type) combination.
func (policy Policy) BaseReward(gameID string, eventType string) (RewardRule, bool) {
	rule, ok := policy.Rewards[EventKey{GameID: gameID, EventType: eventType}]
	return rule, ok
}

// LoginReward returns the daily-login credit for a streak length.
func (policy Policy) LoginReward(streak int) AmountUnits {
	amount := AmountUnits(0)
	for _, tier := range policy.LoginRewards {
		if streak >= tier.MinStreak {
			amount = tier.Amount
		}
	}
	return amount
}

// StreakMultiplier returns the game-reward multiplier for a streak length.
func (policy Policy) StreakMultiplier(streak int) float64 {
	multiplier := 1.0
	for _, tier := range policy.StreakTiers {
		if streak >= tier.MinStreak {
			multiplier = tier.Multiplier
		}
	}
	return multiplier
}

// MilestoneByDays finds the milestone configured for a threshold.
func (policy Policy) MilestoneByDays(days int) (Milestone, bool) {
	for _, milestone := range policy.Milestones {
		if milestone.Days == days {
			return milestone, true
		}
	}
	return Milestone{}, false
}

func (policy Policy) attractiveSegments() []WheelSegment {
	segments := make([]WheelSegment, 0, len(policy.Segments))
	for _, segment := range policy.Segments {
		if segment.Attractive {
			segments = append(segments, segment)
		}
	}
	return segments
}

func validateAscendingMastery(tiers []MasteryTier) error {
	for index, tier := range tiers {
		if tier.Multiplier < 1.0 {
			return fmt.Errorf("%w: mastery multiplier below 1.0 at tier %d", ErrInvalidConfiguration, index)
		}
		if index > 0 && tier.MinPlays <= tiers[index-1].MinPlays {
			return fmt.Errorf("%w: mastery tiers must ascend", ErrInvalidConfiguration)
		}
	}
	return nil
}

func validateAscendingStreak(tiers []StreakTier) error {
	for index, tier := range tiers {
		if tier.Multiplier < 1.0 {
			return fmt.Errorf("%w: streak multiplier below 1.0 at tier %d", ErrInvalidConfiguration, index)
		}
		if index > 0 && tier.MinStreak <= tiers[index-1].MinStreak {
			return fmt.Errorf("%w: streak tiers must ascend", ErrInvalidConfiguration)
		}
	}
	return nil
}
