package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/M-Boiguille/SkillOps-sub000/metrics"
)

// IncidentCreator is the slice of the store the generator writes to.
type IncidentCreator interface {
	CreateIncident(ctx context.Context, inc *incident.Incident) error
}

// GenerateOpts carries per-call overrides for spaced-repetition
// re-exposure. Zero values mean no override.
type GenerateOpts struct {
	Difficulty   int
	TargetSystem string
}

// Generator turns a context profile into a persisted open incident by
// calling the generative service with retries and strict schema checks.
type Generator struct {
	svc     Service
	store   IncidentCreator
	retry   llm.RetryConfig
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorRetry overrides the retry policy.
func WithGeneratorRetry(cfg llm.RetryConfig) GeneratorOption {
	return func(g *Generator) {
		g.retry = cfg
	}
}

// WithGeneratorLogger sets the logger. Defaults to slog.Default.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithGeneratorMetrics attaches a metrics recorder. Nil records nothing.
func WithGeneratorMetrics(r *metrics.Recorder) GeneratorOption {
	return func(g *Generator) {
		g.metrics = r
	}
}

// withGeneratorClock fixes the clock for tests.
func withGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a Generator over the given service and store.
func NewGenerator(svc Service, store IncidentCreator, opts ...GeneratorOption) *Generator {
	g := &Generator{
		svc:    svc,
		store:  store,
		retry:  llm.DefaultRetryConfig(),
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one incident biased by the profile and persists it
// with status open in the same call. Schema-validation failures consume
// the same retry budget as transport failures; exhausting the budget
// returns a GenerationError carrying the attempt count, and no incident
// row exists afterward.
func (g *Generator) Generate(ctx context.Context, profile *ContextProfile, opts GenerateOpts) (*incident.Incident, error) {
	if opts.Difficulty != 0 &&
		(opts.Difficulty < incident.MinDifficulty || opts.Difficulty > incident.MaxDifficulty) {
		return nil, fmt.Errorf("difficulty override %d out of range [%d,%d]",
			opts.Difficulty, incident.MinDifficulty, incident.MaxDifficulty)
	}

	prompt := IncidentPrompt{
		WeakSystems:   profile.WeakSystems,
		RecentSystems: profile.RecentSystems,
		SkillLevel:    profile.SkillLevel,
		Difficulty:    opts.Difficulty,
		TargetSystem:  opts.TargetSystem,
	}

	var draft *IncidentDraft
	attempts, err := llm.Retry(ctx, g.retry, func(ctx context.Context) error {
		d, err := g.svc.GenerateIncident(ctx, prompt)
		if err != nil {
			return err
		}
		if err := d.Validate(); err != nil {
			return llm.NewTransientError(fmt.Errorf("schema validation: %w", err))
		}
		draft = d
		return nil
	})
	if err != nil {
		g.metrics.ObserveGeneration("error", attempts)
		g.logger.Warn("Incident generation failed", "attempts", attempts, "error", err)
		return nil, &GenerationError{Attempts: attempts, Err: err}
	}

	inc := &incident.Incident{
		ID:           g.newID(),
		Severity:     incident.Severity(draft.Severity),
		Title:        draft.Title,
		Description:  draft.Description,
		Symptoms:     draft.Symptoms,
		TargetSystem: draft.TargetSystem,
		Difficulty:   draft.Difficulty,
		Status:       incident.StatusOpen,
		CreatedAt:    g.now().UTC(),
	}
	if err := g.store.CreateIncident(ctx, inc); err != nil {
		g.metrics.ObserveGeneration("error", attempts)
		return nil, fmt.Errorf("persist incident: %w", err)
	}

	g.metrics.ObserveGeneration("ok", attempts)
	g.logger.Info("Incident generated",
		"id", inc.ID,
		"system", inc.TargetSystem,
		"severity", inc.Severity,
		"difficulty", inc.Difficulty,
		"attempts", attempts)

	return inc, nil
}
