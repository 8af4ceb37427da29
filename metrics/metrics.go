// Package metrics exposes Prometheus collectors for the training engine:
// generation attempts and outcomes, hint levels served, and final-score
// distribution. A nil *Recorder is valid and records nothing, so the
// engine can run without a metrics endpoint.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the engine's collectors.
type Recorder struct {
	generationAttempts prometheus.Histogram
	generationOutcomes *prometheus.CounterVec
	hintsServed        *prometheus.CounterVec
	finalScores        prometheus.Histogram
}

// NewRecorder creates the collectors. Call Register to attach them to a
// registry before serving.
func NewRecorder() *Recorder {
	return &Recorder{
		generationAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skillops",
			Subsystem: "generation",
			Name:      "attempts",
			Help:      "Attempts consumed per incident generation call.",
			Buckets:   []float64{1, 2, 3},
		}),
		generationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillops",
			Subsystem: "generation",
			Name:      "outcomes_total",
			Help:      "Incident generation calls by outcome.",
		}, []string{"outcome"}),
		hintsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillops",
			Subsystem: "hints",
			Name:      "served_total",
			Help:      "Hints served by level.",
		}, []string{"level"}),
		finalScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skillops",
			Subsystem: "scoring",
			Name:      "final_score",
			Help:      "Final score distribution of resolved incidents.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
	}
}

// Register registers all collectors with reg.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	if r == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		r.generationAttempts,
		r.generationOutcomes,
		r.hintsServed,
		r.finalScores,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveGeneration records one generation call.
func (r *Recorder) ObserveGeneration(outcome string, attempts int) {
	if r == nil {
		return
	}
	r.generationAttempts.Observe(float64(attempts))
	r.generationOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveHint records one served hint.
func (r *Recorder) ObserveHint(level int) {
	if r == nil {
		return
	}
	r.hintsServed.WithLabelValues(strconv.Itoa(level)).Inc()
}

// ObserveResolution records one scored resolution.
func (r *Recorder) ObserveResolution(finalScore int) {
	if r == nil {
		return
	}
	r.finalScores.Observe(float64(finalScore))
}
