package incident

import (
	"testing"

	"pgregory.net/rapid"
)

// Property: the final score is never negative and never exceeds the base
// score, for any valid base score and hint usage.
func TestProperty_FinalScoreBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.IntRange(MinScore, MaxScore).Draw(rt, "base")
		used := rapid.IntRange(0, MaxHintLevel).Draw(rt, "hints_used")

		penalty, err := CumulativePenalty(used)
		if err != nil {
			t.Fatalf("CumulativePenalty(%d): %v", used, err)
		}

		final := FinalScore(base, penalty)
		if final < MinScore {
			t.Fatalf("final score %d below %d (base=%d penalty=%d)", final, MinScore, base, penalty)
		}
		if final > base {
			t.Fatalf("final score %d above base %d (penalty=%d)", final, base, penalty)
		}
	})
}

// Property: the cumulative penalty is non-decreasing in the number of
// hint levels unlocked.
func TestProperty_PenaltyMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		used := rapid.IntRange(1, MaxHintLevel).Draw(rt, "hints_used")

		prev, err := CumulativePenalty(used - 1)
		if err != nil {
			t.Fatalf("CumulativePenalty(%d): %v", used-1, err)
		}
		cur, err := CumulativePenalty(used)
		if err != nil {
			t.Fatalf("CumulativePenalty(%d): %v", used, err)
		}
		if cur < prev {
			t.Fatalf("penalty decreased: %d levels → %d, %d levels → %d", used-1, prev, used, cur)
		}
	})
}
