package training

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/M-Boiguille/SkillOps-sub000/chaos"
	"github.com/M-Boiguille/SkillOps-sub000/incident"
)

// SkillLevel is the learner's derived skill band.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Profile thresholds.
const (
	// defaultHistoryLimit bounds how many recent resolved incidents feed
	// the profile.
	defaultHistoryLimit = 50

	// weakScoreThreshold marks a system weak when its mean final score
	// falls below it.
	weakScoreThreshold = 3.0

	// Skill bands over the rolling mean final score.
	beginnerCeiling     = 2.0
	intermediateCeiling = 4.0

	// recentSystemsWindow bounds how far back chaos events count as
	// "recent".
	recentSystemsWindow = 7 * 24 * time.Hour
)

// ContextProfile summarizes the learner's history for incident generation.
type ContextProfile struct {
	// WeakSystems are systems with mean final score below the weak
	// threshold, weakest first, ties broken by most recent occurrence.
	WeakSystems []string

	// SkillLevel is derived from the mean final score across all systems.
	SkillLevel SkillLevel

	// RecentSystems were touched by fault-injection events in the last
	// seven days, most recent first.
	RecentSystems []string

	// MeanScore and SampleSize describe the history the profile was
	// built from. SampleSize zero means a fresh learner.
	MeanScore  float64
	SampleSize int
}

// History is the slice of the store the aggregator reads.
type History interface {
	RecentResolved(ctx context.Context, limit int) ([]*incident.Incident, error)
}

// Aggregator builds context profiles from resolved history and the chaos
// event log. It has no side effects.
type Aggregator struct {
	history History
	chaos   *chaos.Reader
	limit   int
	logger  *slog.Logger
	now     func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithHistoryLimit overrides how many resolved incidents are read.
func WithHistoryLimit(n int) AggregatorOption {
	return func(a *Aggregator) {
		a.limit = n
	}
}

// WithChaosReader attaches the fault-injection event log. Without it,
// RecentSystems stays empty.
func WithChaosReader(r *chaos.Reader) AggregatorOption {
	return func(a *Aggregator) {
		a.chaos = r
	}
}

// WithAggregatorLogger sets the logger. Defaults to slog.Default.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// withAggregatorClock fixes the clock for tests.
func withAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an Aggregator over the given history.
func NewAggregator(history History, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		history: history,
		limit:   defaultHistoryLimit,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// systemStats accumulates per-system score history.
type systemStats struct {
	system string
	total  int
	count  int
	latest time.Time
}

func (s *systemStats) mean() float64 {
	return float64(s.total) / float64(s.count)
}

// BuildContext reads recent resolved incidents and the chaos log and
// derives the learner's profile. Store read errors propagate; they are
// fatal for the whole generation attempt.
func (a *Aggregator) BuildContext(ctx context.Context) (*ContextProfile, error) {
	resolved, err := a.history.RecentResolved(ctx, a.limit)
	if err != nil {
		return nil, fmt.Errorf("read resolved history: %w", err)
	}

	perSystem := make(map[string]*systemStats)
	scoreTotal := 0
	for _, inc := range resolved {
		stats, ok := perSystem[inc.TargetSystem]
		if !ok {
			stats = &systemStats{system: inc.TargetSystem}
			perSystem[inc.TargetSystem] = stats
		}
		stats.total += inc.FinalScore
		stats.count++
		if inc.CreatedAt.After(stats.latest) {
			stats.latest = inc.CreatedAt
		}
		scoreTotal += inc.FinalScore
	}

	weak := make([]*systemStats, 0, len(perSystem))
	for _, stats := range perSystem {
		if stats.mean() < weakScoreThreshold {
			weak = append(weak, stats)
		}
	}
	sort.Slice(weak, func(i, j int) bool {
		if weak[i].mean() != weak[j].mean() {
			return weak[i].mean() < weak[j].mean()
		}
		return weak[i].latest.After(weak[j].latest)
	})
	weakSystems := make([]string, len(weak))
	for i, stats := range weak {
		weakSystems[i] = stats.system
	}

	profile := &ContextProfile{
		WeakSystems: weakSystems,
		SkillLevel:  SkillBeginner,
		SampleSize:  len(resolved),
	}
	if len(resolved) > 0 {
		profile.MeanScore = float64(scoreTotal) / float64(len(resolved))
		profile.SkillLevel = skillBand(profile.MeanScore)
	}

	if a.chaos != nil {
		since := a.now().Add(-recentSystemsWindow)
		recent, err := a.chaos.RecentSystems(since)
		if err != nil {
			return nil, fmt.Errorf("read chaos events: %w", err)
		}
		profile.RecentSystems = recent
	}

	a.logger.Debug("Context profile built",
		"sample_size", profile.SampleSize,
		"mean_score", profile.MeanScore,
		"skill_level", profile.SkillLevel,
		"weak_systems", profile.WeakSystems)

	return profile, nil
}

func skillBand(mean float64) SkillLevel {
	switch {
	case mean < beginnerCeiling:
		return SkillBeginner
	case mean < intermediateCeiling:
		return SkillIntermediate
	default:
		return SkillAdvanced
	}
}
