// Package incident defines the data model for the adaptive incident
// training engine: generated incidents, graduated hint requests,
// validation question/answer rows, and spaced-repetition schedule entries.
package incident

import "time"

// Severity represents incident priority, P1 (most severe) through P4.
type Severity string

const (
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
	SeverityP4 Severity = "P4"
)

// IsValid checks if a severity string is a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityP1, SeverityP2, SeverityP3, SeverityP4:
		return true
	}
	return false
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity converts a string to a Severity, returning empty for invalid values.
func ParseSeverity(s string) Severity {
	sev := Severity(s)
	if sev.IsValid() {
		return sev
	}
	return ""
}

// Status represents the incident lifecycle state.
type Status string

const (
	// StatusOpen is the initial state of every persisted incident.
	StatusOpen Status = "open"

	// StatusInvestigating is an optional, informational state entered when
	// the learner starts working an incident (first hint request).
	StatusInvestigating Status = "investigating"

	// StatusResolved is terminal. Entered exactly once, by the scorer.
	StatusResolved Status = "resolved"

	// StatusFailed marks a generation attempt that exhausted its retries
	// mid-flow. It is terminal for the attempt, not for the incident row:
	// incident generation failures prevent row creation altogether, so
	// persisted incidents never carry this state.
	StatusFailed Status = "failed"
)

// IsValid checks if a status string is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusFailed
}

// Difficulty bounds for generated incidents.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Score bounds for resolution scoring.
const (
	MinScore = 0
	MaxScore = 5
)

// Incident is a generated operational training incident.
// Title, description, symptoms, target system and difficulty are immutable
// once created; scoring fields are written exactly once, on resolution.
type Incident struct {
	ID           string   `json:"id"`
	Severity     Severity `json:"severity"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Symptoms     string   `json:"symptoms"`
	TargetSystem string   `json:"target_system"`
	Difficulty   int      `json:"difficulty"`
	Status       Status   `json:"status"`

	CreatedAt time.Time `json:"created_at"`

	// HintsUsed counts delivered hint levels (0–3). Mutated only by the
	// hint dispenser, one level at a time.
	HintsUsed int `json:"hints_used"`

	// Resolution fields, set once by the scorer.
	ResolutionText string `json:"resolution_text,omitempty"`
	BaseScore      int    `json:"base_score"`
	HintsPenalty   int    `json:"hints_penalty"`
	FinalScore     int    `json:"final_score"`

	// NextReviewDate is nil until the incident is scored.
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
}

// Resolved reports whether the incident has been scored.
func (i *Incident) Resolved() bool {
	return i.Status == StatusResolved
}

// FinalScore computes the final score from a base score and hint penalty,
// clamped so it never goes negative.
func FinalScore(baseScore, hintsPenalty int) int {
	final := baseScore - hintsPenalty
	if final < MinScore {
		return MinScore
	}
	return final
}
