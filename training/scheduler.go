package training

import (
	"context"
	"fmt"
	"time"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
)

// reviewIntervals maps final score to review interval in days. Score 0
// means due immediately; mastery earns two weeks.
var reviewIntervals = [incident.MaxScore + 1]int{0, 1, 1, 3, 7, 14}

// Schedule maps a final score to the next review date. Pure: no store,
// no clock. Scores outside [0,5] are rejected; the scorer's clamp keeps
// them in range upstream.
func Schedule(incidentID string, finalScore int, scoredAt time.Time) (incident.ScheduleEntry, error) {
	if finalScore < incident.MinScore || finalScore > incident.MaxScore {
		return incident.ScheduleEntry{}, fmt.Errorf("final score %d out of range [%d,%d]",
			finalScore, incident.MinScore, incident.MaxScore)
	}
	scoredAt = scoredAt.UTC()
	interval := reviewIntervals[finalScore]
	return incident.ScheduleEntry{
		IncidentID:     incidentID,
		ScoredAt:       scoredAt,
		NextReviewDate: scoredAt.AddDate(0, 0, interval),
		IntervalDays:   interval,
	}, nil
}

// DueLister is the slice of the store the scheduler queries.
type DueLister interface {
	DueToday(ctx context.Context, today time.Time) ([]*incident.Incident, error)
}

// Scheduler answers due-today queries over the store.
type Scheduler struct {
	store DueLister
}

// NewScheduler creates a Scheduler over the given store.
func NewScheduler(store DueLister) *Scheduler {
	return &Scheduler{store: store}
}

// DueToday returns resolved incidents whose review date has arrived,
// oldest due first, ties broken by lowest final score so struggling
// topics surface before mastered ones.
func (s *Scheduler) DueToday(ctx context.Context, today time.Time) ([]*incident.Incident, error) {
	due, err := s.store.DueToday(ctx, today.UTC())
	if err != nil {
		return nil, fmt.Errorf("query due incidents: %w", err)
	}
	return due, nil
}
