package training

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/M-Boiguille/SkillOps-sub000/store"
)

// fastRetry keeps test retries off the real backoff schedule.
func fastRetry(attempts int) llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       attempts,
		AttemptTimeout:    time.Second,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        4 * time.Millisecond,
	}
}

// fakeService counts calls per method and delegates to the configured
// funcs. Unconfigured methods return valid drafts.
type fakeService struct {
	incidentCalls   int
	hintCalls       int
	validationCalls int
	assessCalls     int

	generateIncident   func(p IncidentPrompt) (*IncidentDraft, error)
	generateHint       func(p HintPrompt) (*HintDraft, error)
	generateValidation func(p ValidationPrompt) (*QuestionSet, error)
	assessAnswers      func(p AssessmentPrompt) (*Assessment, error)
}

func validIncidentDraft() *IncidentDraft {
	return &IncidentDraft{
		Severity:     "P2",
		Title:        "Redis refusing connections",
		Description:  "The cache tier started rejecting new connections after a deploy.",
		Symptoms:     "Application latency spiked; connection errors in the logs.",
		TargetSystem: "Redis",
		Difficulty:   3,
	}
}

func (f *fakeService) GenerateIncident(_ context.Context, p IncidentPrompt) (*IncidentDraft, error) {
	f.incidentCalls++
	if f.generateIncident != nil {
		return f.generateIncident(p)
	}
	return validIncidentDraft(), nil
}

func (f *fakeService) GenerateHint(_ context.Context, p HintPrompt) (*HintDraft, error) {
	f.hintCalls++
	if f.generateHint != nil {
		return f.generateHint(p)
	}
	return &HintDraft{Level: p.Level, Content: "What changed in the last deploy?"}, nil
}

func (f *fakeService) GenerateValidation(_ context.Context, p ValidationPrompt) (*QuestionSet, error) {
	f.validationCalls++
	if f.generateValidation != nil {
		return f.generateValidation(p)
	}
	return &QuestionSet{Questions: []string{
		"What was the root cause?",
		"How would you detect this earlier?",
	}}, nil
}

func (f *fakeService) AssessAnswers(_ context.Context, p AssessmentPrompt) (*Assessment, error) {
	f.assessCalls++
	if f.assessAnswers != nil {
		return f.assessAnswers(p)
	}
	scores := make([]float64, len(p.Answers))
	for i := range scores {
		scores[i] = 1.0
	}
	return &Assessment{Scores: scores}, nil
}

// createOpenIncidentValue builds an in-memory open incident for prompt
// construction tests that never touch a store.
func createOpenIncidentValue() *incident.Incident {
	return &incident.Incident{
		ID:           "inc-mem",
		Severity:     incident.SeverityP1,
		Title:        "Postgres primary down",
		Description:  "The primary crashed under load.",
		Symptoms:     "Connection refused on 5432.",
		TargetSystem: "Postgres",
		Difficulty:   4,
		Status:       incident.StatusOpen,
		CreatedAt:    time.Now().UTC(),
	}
}

// openTestStore opens a throwaway SQLite store.
func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "training.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createOpenIncident persists a fresh open incident and returns it.
func createOpenIncident(t *testing.T, st *store.Store, id, system string) *incident.Incident {
	t.Helper()
	inc := &incident.Incident{
		ID:           id,
		Severity:     incident.SeverityP2,
		Title:        "Disk filling on " + system,
		Description:  "A runaway log writer is filling the data volume.",
		Symptoms:     "Disk usage alerts; writes slowing down.",
		TargetSystem: system,
		Difficulty:   3,
		Status:       incident.StatusOpen,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, st.CreateIncident(context.Background(), inc))
	return inc
}
