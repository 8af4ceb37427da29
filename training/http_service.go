package training

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/M-Boiguille/SkillOps-sub000/llm"
)

// Generation defaults for the HTTP service.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// HTTPService implements Service against a model endpoint through the LLM
// client. Each method performs exactly one completion call; retry budgets
// belong to the engine components.
type HTTPService struct {
	client      *llm.Client
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// HTTPServiceOption configures an HTTPService.
type HTTPServiceOption func(*HTTPService)

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) HTTPServiceOption {
	return func(s *HTTPService) {
		s.temperature = t
	}
}

// WithMaxTokens overrides the completion token limit.
func WithMaxTokens(n int) HTTPServiceOption {
	return func(s *HTTPService) {
		s.maxTokens = n
	}
}

// WithServiceLogger sets the logger. Defaults to slog.Default.
func WithServiceLogger(logger *slog.Logger) HTTPServiceOption {
	return func(s *HTTPService) {
		s.logger = logger
	}
}

// NewHTTPService creates a Service backed by the given LLM client.
func NewHTTPService(client *llm.Client, opts ...HTTPServiceOption) *HTTPService {
	s := &HTTPService{
		client:      client,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// complete sends one prompt and returns the raw response content.
func (s *HTTPService) complete(ctx context.Context, prompt string) (string, error) {
	temp := s.temperature
	resp, err := s.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temp,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("Completion received",
		"model", resp.Model,
		"tokens", resp.TokensUsed,
		"finish_reason", resp.FinishReason)
	return resp.Content, nil
}

// GenerateIncident implements Service.
func (s *HTTPService) GenerateIncident(ctx context.Context, p IncidentPrompt) (*IncidentDraft, error) {
	content, err := s.complete(ctx, incidentPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("generate incident: %w", err)
	}
	var draft IncidentDraft
	if err := decodeStrict(content, &draft); err != nil {
		return nil, fmt.Errorf("generate incident: %w", err)
	}
	return &draft, nil
}

// GenerateHint implements Service.
func (s *HTTPService) GenerateHint(ctx context.Context, p HintPrompt) (*HintDraft, error) {
	content, err := s.complete(ctx, hintPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("generate hint: %w", err)
	}
	var draft HintDraft
	if err := decodeStrict(content, &draft); err != nil {
		return nil, fmt.Errorf("generate hint: %w", err)
	}
	return &draft, nil
}

// GenerateValidation implements Service.
func (s *HTTPService) GenerateValidation(ctx context.Context, p ValidationPrompt) (*QuestionSet, error) {
	content, err := s.complete(ctx, validationPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("generate validation: %w", err)
	}
	var qs QuestionSet
	if err := decodeStrict(content, &qs); err != nil {
		return nil, fmt.Errorf("generate validation: %w", err)
	}
	return &qs, nil
}

// AssessAnswers implements Service.
func (s *HTTPService) AssessAnswers(ctx context.Context, p AssessmentPrompt) (*Assessment, error) {
	content, err := s.complete(ctx, assessmentPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("assess answers: %w", err)
	}
	var a Assessment
	if err := decodeStrict(content, &a); err != nil {
		return nil, fmt.Errorf("assess answers: %w", err)
	}
	return &a, nil
}
