package incident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHintCost(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
	}

	for _, tt := range tests {
		cost, err := HintCost(tt.level)
		require.NoError(t, err)
		assert.Equal(t, tt.want, cost, "level %d", tt.level)
	}
}

func TestHintCostOutOfRange(t *testing.T) {
	for _, level := range []int{0, -1, 4} {
		_, err := HintCost(level)
		assert.Error(t, err, "level %d", level)
	}
}

func TestCumulativePenalty(t *testing.T) {
	tests := []struct {
		hintsUsed int
		want      int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 3},
	}

	for _, tt := range tests {
		penalty, err := CumulativePenalty(tt.hintsUsed)
		require.NoError(t, err)
		assert.Equal(t, tt.want, penalty, "hints used %d", tt.hintsUsed)
	}
}

func TestCumulativePenaltyOutOfRange(t *testing.T) {
	for _, used := range []int{-1, 4} {
		_, err := CumulativePenalty(used)
		assert.Error(t, err, "hints used %d", used)
	}
}
