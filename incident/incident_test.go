package incident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  Severity
	}{
		{"P1", SeverityP1},
		{"P2", SeverityP2},
		{"P3", SeverityP3},
		{"P4", SeverityP4},
		{"P5", ""},
		{"p1", ""},
		{"", ""},
		{"critical", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.input))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusOpen.Terminal())
	assert.False(t, StatusInvestigating.Terminal())
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusFailed} {
		assert.True(t, s.IsValid(), "status %s", s)
	}
	assert.False(t, Status("closed").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestFinalScore(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		penalty int
		want    int
	}{
		{"no penalty", 5, 0, 5},
		{"levels 1+2 unlocked", 4, 1, 3},
		{"all levels unlocked", 4, 3, 1},
		{"clamped at zero", 2, 3, 0},
		{"zero base", 0, 0, 0},
		{"full penalty on low base", 1, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinalScore(tt.base, tt.penalty))
		})
	}
}
