package incident

import "time"

// ScheduleEntry records the spaced-repetition outcome of scoring an
// incident: when it was scored, the review interval the final score
// earned, and the resulting due date.
type ScheduleEntry struct {
	IncidentID     string    `json:"incident_id"`
	ScoredAt       time.Time `json:"scored_at"`
	NextReviewDate time.Time `json:"next_review_date"`
	IntervalDays   int       `json:"interval_days"`
}
