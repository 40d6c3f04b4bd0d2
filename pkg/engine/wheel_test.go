package engine

import "testing"

func TestPickSegmentWalksConfiguredOrder(test *testing.T) {
	test.Parallel()
	segments := DefaultPolicy().Segments
	cases := []struct {
		roll float64
		want string
	}{
		{roll: 0.0, want: "seg-5"},
		{roll: 0.10, want: "seg-5"},
		{roll: 0.40, want: "seg-10"},
		{roll: 0.60, want: "seg-15"},
		{roll: 0.75, want: "seg-20"},
		{roll: 0.85, want: "seg-30"},
		{roll: 0.92, want: "seg-50"},
		{roll: 0.97, want: "seg-75"},
		{roll: 0.995, want: "seg-100"},
	}
	for _, testCase := range cases {
		if got := pickSegment(segments, testCase.roll); got.SegmentID != testCase.want {
			test.Errorf("roll %v: got %s, want %s", testCase.roll, got.SegmentID, testCase.want)
		}
	}
}

func TestPickSegmentBoundaryTieFavorsEarlierSegment(test *testing.T) {
	test.Parallel()
	segments := []WheelSegment{
		{SegmentID: "first", Reward: 5, Weight: 0.25},
		{SegmentID: "second", Reward: 10, Weight: 0.25},
		{SegmentID: "third", Reward: 20, Weight: 0.5},
	}
	// A roll exactly on the running sum belongs to the segment that closed it.
	if got := pickSegment(segments, 0.25); got.SegmentID != "first" {
		test.Fatalf("tie at 0.25 resolved to %s, want first", got.SegmentID)
	}
	if got := pickSegment(segments, 0.5); got.SegmentID != "second" {
		test.Fatalf("tie at 0.5 resolved to %s, want second", got.SegmentID)
	}
}

func TestPickSegmentBackstopsRoundingDrift(test *testing.T) {
	test.Parallel()
	segments := DefaultPolicy().Segments
	// A roll at the extreme of [0,1) must still land on the final segment even
	// if accumulated weights fall a hair short of 1.0.
	got := pickSegment(segments, 0.9999999999999999)
	if got.SegmentID != "seg-100" {
		test.Fatalf("expected final segment, got %s", got.SegmentID)
	}
}

func TestPickAttractiveIsUniformByIndex(test *testing.T) {
	test.Parallel()
	attractive := DefaultPolicy().attractiveSegments()
	if len(attractive) != 4 {
		test.Fatalf("expected 4 attractive segments, got %d", len(attractive))
	}
	cases := []struct {
		roll float64
		want string
	}{
		{roll: 0.0, want: "seg-20"},
		{roll: 0.24, want: "seg-20"},
		{roll: 0.25, want: "seg-30"},
		{roll: 0.5, want: "seg-50"},
		{roll: 0.75, want: "seg-75"},
		{roll: 0.999, want: "seg-75"},
	}
	for _, testCase := range cases {
		if got := pickAttractive(attractive, testCase.roll); got.SegmentID != testCase.want {
			test.Errorf("roll %v: got %s, want %s", testCase.roll, got.SegmentID, testCase.want)
		}
	}
}
