package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndObserve(t *testing.T) {
	r := NewRecorder()
	reg := prometheus.NewRegistry()
	require.NoError(t, r.Register(reg))

	r.ObserveGeneration("ok", 2)
	r.ObserveGeneration("error", 3)
	r.ObserveHint(1)
	r.ObserveHint(3)
	r.ObserveResolution(4)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["skillops_generation_attempts"])
	assert.True(t, names["skillops_generation_outcomes_total"])
	assert.True(t, names["skillops_hints_served_total"])
	assert.True(t, names["skillops_scoring_final_score"])
}

func TestRegisterTwiceFails(t *testing.T) {
	r := NewRecorder()
	reg := prometheus.NewRegistry()
	require.NoError(t, r.Register(reg))
	assert.Error(t, r.Register(reg))
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	require.NoError(t, r.Register(prometheus.NewRegistry()))
	r.ObserveGeneration("ok", 1)
	r.ObserveHint(2)
	r.ObserveResolution(0)
}
