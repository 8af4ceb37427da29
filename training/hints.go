package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
	"github.com/M-Boiguille/SkillOps-sub000/metrics"
)

// hintRetryAttempts is the smaller attempt budget for hint generation.
const hintRetryAttempts = 2

// HintStore is the slice of the store the dispenser needs.
type HintStore interface {
	GetIncident(ctx context.Context, id string) (*incident.Incident, error)
	MarkInvestigating(ctx context.Context, id string) error
	AppendHint(ctx context.Context, hint *incident.HintRequest, expectedPrior int) error
}

// Dispenser serves graduated hints for open incidents. Levels unlock
// strictly in order and each delivery is recorded with a guarded write,
// so a failed request never changes the hint count.
type Dispenser struct {
	svc     Service
	store   HintStore
	retry   llm.RetryConfig
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// DispenserOption configures a Dispenser.
type DispenserOption func(*Dispenser)

// WithDispenserRetry overrides the retry policy.
func WithDispenserRetry(cfg llm.RetryConfig) DispenserOption {
	return func(d *Dispenser) {
		d.retry = cfg
	}
}

// WithDispenserLogger sets the logger. Defaults to slog.Default.
func WithDispenserLogger(logger *slog.Logger) DispenserOption {
	return func(d *Dispenser) {
		d.logger = logger
	}
}

// WithDispenserMetrics attaches a metrics recorder. Nil records nothing.
func WithDispenserMetrics(r *metrics.Recorder) DispenserOption {
	return func(d *Dispenser) {
		d.metrics = r
	}
}

// withDispenserClock fixes the clock for tests.
func withDispenserClock(now func() time.Time) DispenserOption {
	return func(d *Dispenser) {
		d.now = now
	}
}

// NewDispenser creates a Dispenser over the given service and store.
func NewDispenser(svc Service, store HintStore, opts ...DispenserOption) *Dispenser {
	d := &Dispenser{
		svc:    svc,
		store:  store,
		retry:  llm.DefaultRetryConfig().WithMaxAttempts(hintRetryAttempts),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RequestHint generates and records the hint at the given level.
// The level must be exactly one past the incident's delivered count;
// re-requesting a delivered level is rejected, not replayed. The first
// hint moves an open incident to investigating.
func (d *Dispenser) RequestHint(ctx context.Context, incidentID string, level int) (*incident.HintRequest, error) {
	if level < incident.MinHintLevel || level > incident.MaxHintLevel {
		return nil, fmt.Errorf("level %d out of range [%d,%d]: %w",
			level, incident.MinHintLevel, incident.MaxHintLevel, ErrOutOfSequence)
	}

	inc, err := d.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.Status.Terminal() {
		return nil, fmt.Errorf("incident %s is %s: %w", inc.ID, inc.Status, ErrIncidentClosed)
	}
	if level != inc.HintsUsed+1 {
		return nil, fmt.Errorf("requested level %d with %d hint(s) delivered: %w",
			level, inc.HintsUsed, ErrOutOfSequence)
	}

	var draft *HintDraft
	attempts, err := llm.Retry(ctx, d.retry, func(ctx context.Context) error {
		h, err := d.svc.GenerateHint(ctx, HintPrompt{Incident: inc, Level: level})
		if err != nil {
			return err
		}
		if err := h.Validate(level); err != nil {
			return llm.NewTransientError(fmt.Errorf("schema validation: %w", err))
		}
		draft = h
		return nil
	})
	if err != nil {
		d.logger.Warn("Hint generation failed",
			"incident", incidentID, "level", level, "attempts", attempts, "error", err)
		return nil, &GenerationError{Attempts: attempts, Err: err}
	}

	// Informational transition; the guarded hint write below is what
	// actually protects the count.
	if inc.Status == incident.StatusOpen {
		if err := d.store.MarkInvestigating(ctx, inc.ID); err != nil {
			return nil, fmt.Errorf("mark investigating: %w", err)
		}
	}

	hint := &incident.HintRequest{
		IncidentID:  inc.ID,
		Level:       level,
		Content:     draft.Content,
		RequestedAt: d.now().UTC(),
	}
	if err := d.store.AppendHint(ctx, hint, inc.HintsUsed); err != nil {
		return nil, fmt.Errorf("record hint: %w", err)
	}

	d.metrics.ObserveHint(level)
	d.logger.Info("Hint served", "incident", inc.ID, "level", level, "attempts", attempts)

	return hint, nil
}
