package incident

import (
	"fmt"
	"time"
)

// Hint level bounds. Levels unlock sequentially: a level-n request requires
// all levels below n to have been delivered already.
const (
	MinHintLevel = 1
	MaxHintLevel = 3
)

// hintCosts maps hint level → point cost. Level 1 is a free Socratic
// question, level 2 points a direction, level 3 gives a concrete command.
var hintCosts = [MaxHintLevel + 1]int{0, 0, 1, 2}

// HintCost returns the point cost of a single hint level.
func HintCost(level int) (int, error) {
	if level < MinHintLevel || level > MaxHintLevel {
		return 0, fmt.Errorf("hint level %d out of range [%d,%d]", level, MinHintLevel, MaxHintLevel)
	}
	return hintCosts[level], nil
}

// CumulativePenalty returns the total score penalty for having unlocked
// the first hintsUsed levels: the sum of the costs of every delivered
// level. Skipping levels is impossible under sequential unlock, so the
// cumulative table is simply 0, 0, 1, 3.
func CumulativePenalty(hintsUsed int) (int, error) {
	if hintsUsed < 0 || hintsUsed > MaxHintLevel {
		return 0, fmt.Errorf("hints used %d out of range [0,%d]", hintsUsed, MaxHintLevel)
	}
	total := 0
	for level := MinHintLevel; level <= hintsUsed; level++ {
		total += hintCosts[level]
	}
	return total, nil
}

// HintRequest is one delivered hint for an open incident. The incident
// owns its lifecycle; this row only references it.
type HintRequest struct {
	IncidentID  string    `json:"incident_id"`
	Level       int       `json:"level"`
	Content     string    `json:"content"`
	RequestedAt time.Time `json:"requested_at"`
}
