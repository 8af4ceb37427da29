// Package training implements the adaptive incident training engine:
// context aggregation over the learner's history, retried incident
// generation with strict schema validation, graduated hint dispensing,
// resolution scoring with validation questions, and spaced-repetition
// review scheduling.
package training

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
)

// Service is the generative capability behind the engine. Implementations
// perform exactly one service call per method invocation; retry budgets
// live in the callers so attempt counts stay observable.
type Service interface {
	// GenerateIncident produces a new incident draft biased by the
	// learner's context profile.
	GenerateIncident(ctx context.Context, p IncidentPrompt) (*IncidentDraft, error)

	// GenerateHint produces the hint content for one level of an open
	// incident.
	GenerateHint(ctx context.Context, p HintPrompt) (*HintDraft, error)

	// GenerateValidation produces 2-3 validation questions for a
	// resolution attempt.
	GenerateValidation(ctx context.Context, p ValidationPrompt) (*QuestionSet, error)

	// AssessAnswers grades the learner's answers to previously generated
	// validation questions.
	AssessAnswers(ctx context.Context, p AssessmentPrompt) (*Assessment, error)
}

// IncidentPrompt carries the context fields that bias incident generation.
type IncidentPrompt struct {
	WeakSystems   []string
	RecentSystems []string
	SkillLevel    SkillLevel

	// Difficulty overrides the profile-derived difficulty when non-zero
	// (spaced-repetition re-exposure).
	Difficulty int

	// TargetSystem pins generation to one system when non-empty.
	TargetSystem string
}

// HintPrompt carries the incident snapshot for hint generation.
type HintPrompt struct {
	Incident *incident.Incident
	Level    int
}

// ValidationPrompt carries the incident and the resolution under review.
type ValidationPrompt struct {
	Incident       *incident.Incident
	ResolutionText string
}

// AnswerPair is one validation question with the learner's answer.
type AnswerPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AssessmentPrompt carries the answers to grade.
type AssessmentPrompt struct {
	Incident       *incident.Incident
	ResolutionText string
	Answers        []AnswerPair
}

// IncidentDraft is the exact wire shape an incident generation response
// must decode into. Anything else is a schema failure.
type IncidentDraft struct {
	Severity     string `json:"severity"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Symptoms     string `json:"symptoms"`
	TargetSystem string `json:"target_system"`
	Difficulty   int    `json:"difficulty"`
}

// Validate checks the draft against the incident schema.
func (d *IncidentDraft) Validate() error {
	if !incident.Severity(d.Severity).IsValid() {
		return fmt.Errorf("severity %q not in P1-P4", d.Severity)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is empty")
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("description is empty")
	}
	if strings.TrimSpace(d.Symptoms) == "" {
		return fmt.Errorf("symptoms are empty")
	}
	if strings.TrimSpace(d.TargetSystem) == "" {
		return fmt.Errorf("target_system is empty")
	}
	if d.Difficulty < incident.MinDifficulty || d.Difficulty > incident.MaxDifficulty {
		return fmt.Errorf("difficulty %d out of range [%d,%d]",
			d.Difficulty, incident.MinDifficulty, incident.MaxDifficulty)
	}
	return nil
}

// HintDraft is the wire shape of a hint generation response.
type HintDraft struct {
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// Validate checks the draft against the requested level.
func (d *HintDraft) Validate(level int) error {
	if d.Level != level {
		return fmt.Errorf("hint level %d does not match requested level %d", d.Level, level)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("hint content is empty")
	}
	return nil
}

// Validation question count bounds.
const (
	minQuestions = 2
	maxQuestions = 3
)

// QuestionSet is the wire shape of a validation-question response.
type QuestionSet struct {
	Questions []string `json:"questions"`
}

// Validate checks the question count and content.
func (q *QuestionSet) Validate() error {
	if len(q.Questions) < minQuestions || len(q.Questions) > maxQuestions {
		return fmt.Errorf("expected %d-%d questions, got %d", minQuestions, maxQuestions, len(q.Questions))
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question) == "" {
			return fmt.Errorf("question %d is empty", i+1)
		}
	}
	return nil
}

// Assessment is the wire shape of an answer-grading response. Scores are
// per-question partial credit in [0,1], in question order.
type Assessment struct {
	Scores []float64 `json:"scores"`
}

// Validate checks the assessment against the number of answers graded.
func (a *Assessment) Validate(answered int) error {
	if len(a.Scores) != answered {
		return fmt.Errorf("expected %d scores, got %d", answered, len(a.Scores))
	}
	for i, score := range a.Scores {
		if score < 0 || score > 1 {
			return fmt.Errorf("score %d is %g, want [0,1]", i+1, score)
		}
	}
	return nil
}

// Mean returns the mean correctness across all graded answers.
func (a *Assessment) Mean() float64 {
	if len(a.Scores) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range a.Scores {
		total += s
	}
	return total / float64(len(a.Scores))
}

// decodeStrict extracts the JSON payload from a model response and decodes
// it into v, rejecting unknown fields. Failures are transient: a malformed
// response is retried like a transport failure.
func decodeStrict(content string, v any) error {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return llm.NewTransientError(fmt.Errorf("no JSON object in response"))
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return llm.NewTransientError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
