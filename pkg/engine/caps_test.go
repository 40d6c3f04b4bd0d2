package engine

import "testing"

func TestAdjustForDayClipsToHeadroom(test *testing.T) {
	test.Parallel()
	policy := DefaultPolicy()
	summary := DailySummary{TotalIssued: 195, GamePlays: map[string]int{}}

	if got := policy.adjustForDay(summary, "2048", 10); got != 5 {
		test.Fatalf("expected clip to 5, got %d", got)
	}
}

func TestAdjustForDayZeroAtCap(test *testing.T) {
	test.Parallel()
	policy := DefaultPolicy()
	summary := DailySummary{TotalIssued: 200, GamePlays: map[string]int{}}

	if got := policy.adjustForDay(summary, "2048", 10); got != 0 {
		test.Fatalf("expected 0 at the cap, got %d", got)
	}
}

func TestAdjustForDayDiminishesPastThreshold(test *testing.T) {
	test.Parallel()
	policy := DefaultPolicy()
	cases := []struct {
		plays int
		want  AmountUnits
	}{
		{plays: 0, want: 10},
		{plays: 9, want: 10},
		{plays: 10, want: 9},  // factor 0.9
		{plays: 11, want: 8},  // factor 0.8
		{plays: 15, want: 4},  // factor 0.4 exactly, no float drift
		{plays: 18, want: 1},  // factor 0.1 floor
		{plays: 100, want: 1}, // floor holds
	}
	for _, testCase := range cases {
		summary := DailySummary{GamePlays: map[string]int{"2048": testCase.plays}}
		if got := policy.adjustForDay(summary, "2048", 10); got != testCase.want {
			test.Errorf("plays %d: got %d, want %d", testCase.plays, got, testCase.want)
		}
	}
}

func TestAdjustForDayTruncatesTowardZero(test *testing.T) {
	test.Parallel()
	policy := DefaultPolicy()
	summary := DailySummary{GamePlays: map[string]int{"tic-tac-toe": 10}}

	// 8 * 0.9 = 7.2 truncates to 7, never rounds up.
	if got := policy.adjustForDay(summary, "tic-tac-toe", 8); got != 7 {
		test.Fatalf("expected truncation to 7, got %d", got)
	}
}

func TestAdjustForDayIgnoresOtherGamesPlays(test *testing.T) {
	test.Parallel()
	policy := DefaultPolicy()
	summary := DailySummary{GamePlays: map[string]int{"2048": 50}}

	if got := policy.adjustForDay(summary, "tic-tac-toe", 8); got != 8 {
		test.Fatalf("diminishing returns must be per game, got %d", got)
	}
}

func TestRecordIssuedCountsPlaysWithoutCredit(test *testing.T) {
	test.Parallel()
	summary := DailySummary{Day: "2023-11-14"}
	summary = recordIssued(summary, "2048", 0)
	summary = recordIssued(summary, "2048", 12)

	if summary.GamePlays["2048"] != 2 {
		test.Fatalf("expected 2 plays, got %d", summary.GamePlays["2048"])
	}
	if summary.TotalIssued != 12 {
		test.Fatalf("expected 12 issued, got %d", summary.TotalIssued)
	}
	if summary.GameIssued["2048"] != 12 {
		test.Fatalf("expected 12 issued for the game, got %d", summary.GameIssued["2048"])
	}
}
