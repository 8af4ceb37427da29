package training

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
	"github.com/M-Boiguille/SkillOps-sub000/llm"
)

type fakeCreator struct {
	created []*incident.Incident
	err     error
}

func (f *fakeCreator) CreateIncident(_ context.Context, inc *incident.Incident) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, inc)
	return nil
}

func testProfile() *ContextProfile {
	return &ContextProfile{
		WeakSystems:   []string{"Redis", "Kubernetes"},
		RecentSystems: []string{"Redis"},
		SkillLevel:    SkillIntermediate,
		MeanScore:     3.2,
		SampleSize:    12,
	}
}

func TestGenerateSuccessPersistsOpenIncident(t *testing.T) {
	svc := &fakeService{}
	st := &fakeCreator{}
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	g := NewGenerator(svc, st,
		WithGeneratorRetry(fastRetry(3)),
		withGeneratorClock(func() time.Time { return fixed }))

	inc, err := g.Generate(context.Background(), testProfile(), GenerateOpts{})
	require.NoError(t, err)

	assert.Equal(t, 1, svc.incidentCalls)
	require.Len(t, st.created, 1)
	assert.Same(t, inc, st.created[0])
	assert.NotEmpty(t, inc.ID)
	assert.Equal(t, incident.StatusOpen, inc.Status)
	assert.Equal(t, fixed, inc.CreatedAt)
	assert.Equal(t, "Redis", inc.TargetSystem)
	assert.Equal(t, 3, inc.Difficulty)
	assert.Equal(t, 0, inc.HintsUsed)
}

func TestGenerateExhaustsBudgetAfterExactlyThreeCalls(t *testing.T) {
	svc := &fakeService{
		generateIncident: func(IncidentPrompt) (*IncidentDraft, error) {
			return nil, llm.NewTransientError(errors.New("timeout"))
		},
	}
	st := &fakeCreator{}
	g := NewGenerator(svc, st, WithGeneratorRetry(fastRetry(3)))

	_, err := g.Generate(context.Background(), testProfile(), GenerateOpts{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Equal(t, 3, svc.incidentCalls)
	assert.Empty(t, st.created, "no incident row may exist after a failed generation")
}

func TestGenerateSchemaFailureConsumesBudget(t *testing.T) {
	svc := &fakeService{
		generateIncident: func(IncidentPrompt) (*IncidentDraft, error) {
			d := validIncidentDraft()
			d.Difficulty = 9
			return d, nil
		},
	}
	st := &fakeCreator{}
	g := NewGenerator(svc, st, WithGeneratorRetry(fastRetry(3)))

	_, err := g.Generate(context.Background(), testProfile(), GenerateOpts{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Equal(t, 3, svc.incidentCalls)
	assert.Contains(t, err.Error(), "difficulty")
	assert.Empty(t, st.created)
}

func TestGenerateRecoversWithinBudget(t *testing.T) {
	svc := &fakeService{}
	svc.generateIncident = func(IncidentPrompt) (*IncidentDraft, error) {
		if svc.incidentCalls < 3 {
			return nil, llm.NewTransientError(errors.New("connection refused"))
		}
		return validIncidentDraft(), nil
	}
	st := &fakeCreator{}
	g := NewGenerator(svc, st, WithGeneratorRetry(fastRetry(3)))

	inc, err := g.Generate(context.Background(), testProfile(), GenerateOpts{})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.incidentCalls)
	assert.NotNil(t, inc)
	require.Len(t, st.created, 1)
}

func TestGenerateFatalErrorAbortsImmediately(t *testing.T) {
	svc := &fakeService{
		generateIncident: func(IncidentPrompt) (*IncidentDraft, error) {
			return nil, llm.NewFatalError(errors.New("invalid API key"))
		},
	}
	g := NewGenerator(svc, &fakeCreator{}, WithGeneratorRetry(fastRetry(3)))

	_, err := g.Generate(context.Background(), testProfile(), GenerateOpts{})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.Attempts)
	assert.Equal(t, 1, svc.incidentCalls)
}

func TestGeneratePassesOverridesToPrompt(t *testing.T) {
	var got IncidentPrompt
	svc := &fakeService{
		generateIncident: func(p IncidentPrompt) (*IncidentDraft, error) {
			got = p
			return validIncidentDraft(), nil
		},
	}
	g := NewGenerator(svc, &fakeCreator{}, WithGeneratorRetry(fastRetry(3)))

	_, err := g.Generate(context.Background(), testProfile(), GenerateOpts{
		Difficulty:   5,
		TargetSystem: "Postgres",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Difficulty)
	assert.Equal(t, "Postgres", got.TargetSystem)
	assert.Equal(t, []string{"Redis", "Kubernetes"}, got.WeakSystems)
	assert.Equal(t, SkillIntermediate, got.SkillLevel)
}

func TestGenerateRejectsBadDifficultyOverride(t *testing.T) {
	svc := &fakeService{}
	g := NewGenerator(svc, &fakeCreator{})

	_, err := g.Generate(context.Background(), testProfile(), GenerateOpts{Difficulty: 7})
	require.Error(t, err)
	assert.Equal(t, 0, svc.incidentCalls, "invalid options must not reach the service")
}

func TestGeneratePersistFailurePropagates(t *testing.T) {
	svc := &fakeService{}
	st := &fakeCreator{err: fmt.Errorf("disk full")}
	g := NewGenerator(svc, st, WithGeneratorRetry(fastRetry(3)))

	_, err := g.Generate(context.Background(), testProfile(), GenerateOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist incident")

	var genErr *GenerationError
	assert.False(t, errors.As(err, &genErr), "store failures are not generation errors")
}
