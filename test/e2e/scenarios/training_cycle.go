package scenarios

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/M-Boiguille/SkillOps-sub000/store"
	"github.com/M-Boiguille/SkillOps-sub000/test/e2e/client"
	"github.com/M-Boiguille/SkillOps-sub000/test/e2e/config"
	"github.com/M-Boiguille/SkillOps-sub000/training"
)

// TrainingCycleScenario runs one full training session: context build,
// incident generation, two hint levels, resolution with validation
// questions, and the resulting score and review schedule.
type TrainingCycleScenario struct {
	cfg *config.Config

	dir  string
	st   *store.Store
	svc  training.Service
	mock *client.MockLLMClient
}

// NewTrainingCycleScenario creates the scenario with the given config.
func NewTrainingCycleScenario(cfg *config.Config) *TrainingCycleScenario {
	return &TrainingCycleScenario{cfg: cfg}
}

func (s *TrainingCycleScenario) Name() string { return "training-cycle" }

func (s *TrainingCycleScenario) Description() string {
	return "Generates an incident, unlocks two hints, resolves it, and verifies scoring and review scheduling"
}

func (s *TrainingCycleScenario) Setup(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "skillops-e2e-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	s.dir = dir

	st, err := store.Open(filepath.Join(dir, "skillops.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.st = st

	llmClient := llm.NewClient(llm.Endpoint{
		Provider: s.cfg.Provider,
		URL:      s.cfg.LLMURL,
		Model:    s.cfg.Model,
	})
	s.svc = training.NewHTTPService(llmClient)

	s.mock = client.NewMockLLMClient(s.cfg.LLMURL)
	if err := s.mock.Health(ctx); err != nil {
		return fmt.Errorf("mock LLM unreachable at %s: %w", s.cfg.LLMURL, err)
	}
	return nil
}

func (s *TrainingCycleScenario) Execute(ctx context.Context) (*Result, error) {
	result := NewResult(s.Name())
	defer result.Complete()

	var inc *incident.Incident

	err := runStage(result, "generate", func() error {
		agg := training.NewAggregator(s.st)
		profile, err := agg.BuildContext(ctx)
		if err != nil {
			return fmt.Errorf("build context: %w", err)
		}
		// Empty history: learner must start as a beginner.
		if profile.SkillLevel != training.SkillBeginner {
			return fmt.Errorf("expected beginner skill level on empty history, got %s", profile.SkillLevel)
		}

		gen := training.NewGenerator(s.svc, s.st)
		inc, err = gen.Generate(ctx, profile, training.GenerateOpts{})
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if inc.Status != incident.StatusOpen {
			return fmt.Errorf("new incident status = %s, want %s", inc.Status, incident.StatusOpen)
		}
		if inc.Difficulty < incident.MinDifficulty || inc.Difficulty > incident.MaxDifficulty {
			return fmt.Errorf("difficulty %d out of range", inc.Difficulty)
		}
		result.SetDetail("incident_id", inc.ID)
		result.SetDetail("target_system", inc.TargetSystem)
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "hints", func() error {
		d := training.NewDispenser(s.svc, s.st)
		for level := 1; level <= 2; level++ {
			hint, err := d.RequestHint(ctx, inc.ID, level)
			if err != nil {
				return fmt.Errorf("hint level %d: %w", level, err)
			}
			if hint.Content == "" {
				return fmt.Errorf("hint level %d has empty content", level)
			}
		}
		refreshed, err := s.st.GetIncident(ctx, inc.ID)
		if err != nil {
			return fmt.Errorf("reload incident: %w", err)
		}
		if refreshed.HintsUsed != 2 {
			return fmt.Errorf("hints used = %d, want 2", refreshed.HintsUsed)
		}
		if refreshed.Status != incident.StatusInvestigating {
			return fmt.Errorf("status = %s, want %s", refreshed.Status, incident.StatusInvestigating)
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	var resolved *incident.Incident
	err = runStage(result, "resolve", func() error {
		sc := training.NewScorer(s.svc, s.st)
		answer := func(question string) (string, error) {
			return "Redis hit maxmemory with no eviction policy, so writes failed instead of evicting old keys.", nil
		}
		var err error
		resolved, err = sc.Score(ctx, inc.ID,
			"Set maxmemory-policy to allkeys-lru and raised maxmemory to fit the new session payloads.",
			answer)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}

		// Default assessment fixture grades [1.0, 0.5]: base 4.
		// Two hints cost a cumulative penalty of 1, leaving a final of 3.
		if resolved.BaseScore != 4 {
			return fmt.Errorf("base score = %d, want 4", resolved.BaseScore)
		}
		if resolved.HintsPenalty != 1 {
			return fmt.Errorf("hints penalty = %d, want 1", resolved.HintsPenalty)
		}
		if resolved.FinalScore != 3 {
			return fmt.Errorf("final score = %d, want 3", resolved.FinalScore)
		}
		if resolved.Status != incident.StatusResolved {
			return fmt.Errorf("status = %s, want %s", resolved.Status, incident.StatusResolved)
		}
		result.SetMetric("final_score", resolved.FinalScore)
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "schedule", func() error {
		entry, err := s.st.GetScheduleEntry(ctx, inc.ID)
		if err != nil {
			return fmt.Errorf("schedule entry: %w", err)
		}
		// Final score 3 earns a 3-day review interval.
		if entry.IntervalDays != 3 {
			return fmt.Errorf("interval = %d days, want 3", entry.IntervalDays)
		}
		wantDue := entry.ScoredAt.AddDate(0, 0, 3)
		if !entry.NextReviewDate.Equal(wantDue) {
			return fmt.Errorf("next review %s, want %s", entry.NextReviewDate, wantDue)
		}
		if resolved.NextReviewDate == nil || !resolved.NextReviewDate.Equal(entry.NextReviewDate) {
			return fmt.Errorf("incident review date does not match schedule entry")
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "verify-llm-calls", func() error {
		stats, err := s.mock.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("mock stats: %w", err)
		}
		// Counts are cumulative across the run, so lower bounds only.
		checks := map[string]int64{
			"incident":   1,
			"hint":       2,
			"validation": 1,
			"assessment": 1,
		}
		for kind, min := range checks {
			if stats.CallsByKind[kind] < min {
				return fmt.Errorf("%s calls = %d, want at least %d", kind, stats.CallsByKind[kind], min)
			}
		}
		result.SetMetric("total_llm_calls", stats.TotalCalls)

		// The generation prompt must carry the learner context.
		reqs, err := s.mock.GetRequests(ctx, "incident")
		if err != nil {
			result.AddWarning(fmt.Sprintf("mock requests unavailable: %v", err))
			return nil
		}
		if len(reqs) == 0 {
			return fmt.Errorf("no captured incident requests")
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	result.Success = true
	return result, nil
}

func (s *TrainingCycleScenario) Teardown(ctx context.Context) error {
	if s.st != nil {
		if err := s.st.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	if s.dir != "" {
		return os.RemoveAll(s.dir)
	}
	return nil
}

var _ Scenario = (*TrainingCycleScenario)(nil)
