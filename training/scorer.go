package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/M-Boiguille/SkillOps-sub000/metrics"
	"github.com/M-Boiguille/SkillOps-sub000/store"
)

// Validation scoring constants.
const (
	// validationRetryAttempts is the attempt budget shared by question
	// generation and answer assessment.
	validationRetryAttempts = 2

	// heuristicBaseScore is awarded when the validation phase degrades:
	// a non-empty resolution earns a middle score instead of failing the
	// whole resolve operation.
	heuristicBaseScore = 3
)

// AnswerCollector obtains the learner's answer to one validation
// question. An error aborts scoring with nothing persisted.
type AnswerCollector func(question string) (string, error)

// ResolutionStore is the slice of the store the scorer needs.
type ResolutionStore interface {
	GetIncident(ctx context.Context, id string) (*incident.Incident, error)
	ResolveIncident(ctx context.Context, id string, r store.Resolution) error
}

// Scorer evaluates a free-text resolution into a final score and commits
// resolution, Q&A rows, scores, status and schedule entry in one
// transaction.
type Scorer struct {
	svc     Service
	store   ResolutionStore
	retry   llm.RetryConfig
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithScorerRetry overrides the retry policy for validation calls.
func WithScorerRetry(cfg llm.RetryConfig) ScorerOption {
	return func(s *Scorer) {
		s.retry = cfg
	}
}

// WithScorerLogger sets the logger. Defaults to slog.Default.
func WithScorerLogger(logger *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// WithScorerMetrics attaches a metrics recorder. Nil records nothing.
func WithScorerMetrics(r *metrics.Recorder) ScorerOption {
	return func(s *Scorer) {
		s.metrics = r
	}
}

// withScorerClock fixes the clock for tests.
func withScorerClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a Scorer over the given service and store.
func NewScorer(svc Service, st ResolutionStore, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		svc:    svc,
		store:  st,
		retry:  llm.DefaultRetryConfig().WithMaxAttempts(validationRetryAttempts),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs the full resolution pass: validation questions are
// generated, answers are collected from the caller, the service grades
// them, hint penalties apply, and everything commits atomically.
//
// Generative failure anywhere in the validation phase is the engine's
// one graceful-degradation path: the non-empty resolution earns the
// heuristic base score and no Q&A rows are recorded. A collector error,
// by contrast, is a caller abort and persists nothing.
func (s *Scorer) Score(ctx context.Context, incidentID, resolutionText string, collect AnswerCollector) (*incident.Incident, error) {
	if strings.TrimSpace(resolutionText) == "" {
		return nil, ErrEmptyResolution
	}

	inc, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.Resolved() {
		return nil, fmt.Errorf("incident %s: %w", inc.ID, store.ErrAlreadyResolved)
	}
	if inc.Status.Terminal() {
		return nil, fmt.Errorf("incident %s is %s: %w", inc.ID, inc.Status, ErrIncidentClosed)
	}

	penalty, err := incident.CumulativePenalty(inc.HintsUsed)
	if err != nil {
		return nil, fmt.Errorf("hint penalty: %w", err)
	}

	baseScore, qa, err := s.validationScore(ctx, inc, resolutionText, collect)
	if err != nil {
		return nil, err
	}

	finalScore := incident.FinalScore(baseScore, penalty)
	scoredAt := s.now().UTC()
	entry, err := Schedule(inc.ID, finalScore, scoredAt)
	if err != nil {
		return nil, err
	}

	res := store.Resolution{
		ResolutionText: resolutionText,
		BaseScore:      baseScore,
		HintsPenalty:   penalty,
		FinalScore:     finalScore,
		QA:             qa,
		Entry:          entry,
	}
	if err := s.store.ResolveIncident(ctx, inc.ID, res); err != nil {
		return nil, err
	}

	s.metrics.ObserveResolution(finalScore)
	s.logger.Info("Incident resolved",
		"incident", inc.ID,
		"base_score", baseScore,
		"hints_penalty", penalty,
		"final_score", finalScore,
		"next_review", entry.NextReviewDate.Format(time.DateOnly))

	return s.store.GetIncident(ctx, inc.ID)
}

// validationScore runs the question/answer/assessment phase. On any
// generative failure it degrades to the heuristic base score with no
// Q&A rows.
func (s *Scorer) validationScore(ctx context.Context, inc *incident.Incident, resolutionText string, collect AnswerCollector) (int, []incident.ValidationQA, error) {
	var questions *QuestionSet
	attempts, err := llm.Retry(ctx, s.retry, func(ctx context.Context) error {
		q, err := s.svc.GenerateValidation(ctx, ValidationPrompt{
			Incident:       inc,
			ResolutionText: resolutionText,
		})
		if err != nil {
			return err
		}
		if err := q.Validate(); err != nil {
			return llm.NewTransientError(fmt.Errorf("schema validation: %w", err))
		}
		questions = q
		return nil
	})
	if err != nil {
		s.logger.Warn("Validation questions unavailable, using heuristic score",
			"incident", inc.ID, "attempts", attempts, "error", err)
		return heuristicBaseScore, nil, nil
	}

	answers := make([]AnswerPair, 0, len(questions.Questions))
	for _, question := range questions.Questions {
		answer, err := collect(question)
		if err != nil {
			return 0, nil, fmt.Errorf("collect answer: %w", err)
		}
		answers = append(answers, AnswerPair{Question: question, Answer: answer})
	}

	var assessment *Assessment
	attempts, err = llm.Retry(ctx, s.retry, func(ctx context.Context) error {
		a, err := s.svc.AssessAnswers(ctx, AssessmentPrompt{
			Incident:       inc,
			ResolutionText: resolutionText,
			Answers:        answers,
		})
		if err != nil {
			return err
		}
		if err := a.Validate(len(answers)); err != nil {
			return llm.NewTransientError(fmt.Errorf("schema validation: %w", err))
		}
		assessment = a
		return nil
	})
	if err != nil {
		s.logger.Warn("Answer assessment unavailable, using heuristic score",
			"incident", inc.ID, "attempts", attempts, "error", err)
		return heuristicBaseScore, nil, nil
	}

	qa := make([]incident.ValidationQA, len(answers))
	for i, pair := range answers {
		qa[i] = incident.ValidationQA{
			IncidentID:      inc.ID,
			Question:        pair.Question,
			AnswerGiven:     pair.Answer,
			AssessedCorrect: assessment.Scores[i],
		}
	}

	baseScore := int(math.Round(assessment.Mean() * float64(incident.MaxScore)))
	return baseScore, qa, nil
}
