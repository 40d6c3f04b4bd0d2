package engine

// pickSegment selects a wheel segment by the standard inverse-CDF walk:
// accumulate weights in configured segment order and select the first segment
// whose running sum reaches the roll. The roll is uniform in [0,1). A roll
// exactly on a boundary resolves to the earlier segment. Weight-sum validity
// is a load-time invariant (Policy.Validate), so the final segment backstops
// rounding drift.
func pickSegment(segments []WheelSegment, roll float64) WheelSegment {
	var cumulative float64
	for _, segment := range segments {
		cumulative += segment.Weight
		if roll <= cumulative {
			return segment
		}
	}
	return segments[len(segments)-1]
}

// pickAttractive selects uniformly among the attractive subset, bypassing the
// weighted draw. Used only for an account's very first spin.
func pickAttractive(segments []WheelSegment, roll float64) WheelSegment {
	index := int(roll * float64(len(segments)))
	if index >= len(segments) {
		index = len(segments) - 1
	}
	return segments[index]
}
