package scenarios

import (
	"context"
	"errors"
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

// HintGuardrailsScenario exercises the hint and resolution guardrails:
// sequential hint unlock, duplicate rejection, the full three-hint
// penalty, the empty-resolution check, and the write-once resolution.
type HintGuardrailsScenario struct {
	cfg *config.Config

	dir string
	st  *store.Store
	svc training.Service
}

// NewHintGuardrailsScenario creates the scenario with the given config.
func NewHintGuardrailsScenario(cfg *config.Config) *HintGuardrailsScenario {
	return &HintGuardrailsScenario{cfg: cfg}
}

func (s *HintGuardrailsScenario) Name() string { return "hint-guardrails" }

func (s *HintGuardrailsScenario) Description() string {
	return "Verifies sequential hint unlock, the maximum hint penalty, and that resolution is write-once"
}

func (s *HintGuardrailsScenario) Setup(ctx context.Context) error {
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

	mock := client.NewMockLLMClient(s.cfg.LLMURL)
	if err := mock.Health(ctx); err != nil {
		return fmt.Errorf("mock LLM unreachable at %s: %w", s.cfg.LLMURL, err)
	}
	return nil
}

func (s *HintGuardrailsScenario) Execute(ctx context.Context) (*Result, error) {
	result := NewResult(s.Name())
	defer result.Complete()

	var inc *incident.Incident
	d := training.NewDispenser(s.svc, s.st)
	sc := training.NewScorer(s.svc, s.st)

	err := runStage(result, "generate", func() error {
		agg := training.NewAggregator(s.st)
		profile, err := agg.BuildContext(ctx)
		if err != nil {
			return fmt.Errorf("build context: %w", err)
		}
		inc, err = training.NewGenerator(s.svc, s.st).Generate(ctx, profile, training.GenerateOpts{})
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		result.SetDetail("incident_id", inc.ID)
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "out-of-sequence-rejected", func() error {
		if _, err := d.RequestHint(ctx, inc.ID, 2); !errors.Is(err, training.ErrOutOfSequence) {
			return fmt.Errorf("level 2 before level 1: got %v, want out-of-sequence", err)
		}
		refreshed, err := s.st.GetIncident(ctx, inc.ID)
		if err != nil {
			return err
		}
		if refreshed.HintsUsed != 0 {
			return fmt.Errorf("rejected hint mutated hints used to %d", refreshed.HintsUsed)
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "all-three-hints", func() error {
		for level := 1; level <= 3; level++ {
			if _, err := d.RequestHint(ctx, inc.ID, level); err != nil {
				return fmt.Errorf("hint level %d: %w", level, err)
			}
		}
		if _, err := d.RequestHint(ctx, inc.ID, 3); !errors.Is(err, training.ErrOutOfSequence) {
			return fmt.Errorf("duplicate level 3: got %v, want out-of-sequence", err)
		}
		hints, err := s.st.ListHints(ctx, inc.ID)
		if err != nil {
			return err
		}
		if len(hints) != 3 {
			return fmt.Errorf("stored hints = %d, want 3", len(hints))
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "empty-resolution-rejected", func() error {
		if _, err := sc.Score(ctx, inc.ID, "   ", nil); !errors.Is(err, training.ErrEmptyResolution) {
			return fmt.Errorf("blank resolution: got %v, want empty-resolution", err)
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "full-penalty-applied", func() error {
		answer := func(string) (string, error) { return "The eviction policy was noeviction.", nil }
		resolved, err := sc.Score(ctx, inc.ID, "Switched maxmemory-policy to allkeys-lru.", answer)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		// Three hints cost the full cumulative penalty of 3.
		if resolved.HintsPenalty != 3 {
			return fmt.Errorf("hints penalty = %d, want 3", resolved.HintsPenalty)
		}
		if want := incident.FinalScore(resolved.BaseScore, 3); resolved.FinalScore != want {
			return fmt.Errorf("final score = %d, want %d", resolved.FinalScore, want)
		}
		result.SetMetric("final_score", resolved.FinalScore)
		return nil
	})
	if err != nil {
		return result, nil
	}

	err = runStage(result, "resolution-write-once", func() error {
		before, err := s.st.GetIncident(ctx, inc.ID)
		if err != nil {
			return err
		}
		if _, err := sc.Score(ctx, inc.ID, "Second attempt.", nil); !errors.Is(err, store.ErrAlreadyResolved) {
			return fmt.Errorf("re-resolve: got %v, want already-resolved", err)
		}
		if _, err := d.RequestHint(ctx, inc.ID, 1); !errors.Is(err, training.ErrIncidentClosed) {
			return fmt.Errorf("hint after resolve: got %v, want incident-closed", err)
		}
		after, err := s.st.GetIncident(ctx, inc.ID)
		if err != nil {
			return err
		}
		if after.FinalScore != before.FinalScore || after.HintsUsed != before.HintsUsed {
			return fmt.Errorf("rejected operations mutated the resolved incident")
		}
		return nil
	})
	if err != nil {
		return result, nil
	}

	result.Success = true
	return result, nil
}

func (s *HintGuardrailsScenario) Teardown(ctx context.Context) error {
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

var _ Scenario = (*HintGuardrailsScenario)(nil)
