// Package scenarios defines the e2e scenarios for the training engine.
// Each scenario drives a real store and a real HTTP generative service
// against the mock LLM server, end to end.
package scenarios

import (
	"context"
	"sync"
	"time"
)

// Scenario is one end-to-end test case.
type Scenario interface {
	// Name returns the scenario name for identification and reporting.
	Name() string

	// Description says what the scenario exercises.
	Description() string

	// Setup prepares the scenario environment before execution.
	Setup(ctx context.Context) error

	// Execute runs the scenario and returns pass/fail plus diagnostics.
	Execute(ctx context.Context) (*Result, error)

	// Teardown cleans up after the scenario execution.
	Teardown(ctx context.Context) error
}

// Result contains the outcome of a scenario execution.
// All methods are safe for concurrent use.
type Result struct {
	mu sync.Mutex `json:"-"`

	ScenarioName string        `json:"scenario_name"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Metrics contains timing and count metrics from the scenario.
	Metrics map[string]any `json:"metrics,omitempty"`

	// Details contains scenario-specific output data.
	Details map[string]any `json:"details,omitempty"`

	// Errors contains all errors encountered during execution.
	Errors []string `json:"errors,omitempty"`

	// Warnings contains non-fatal issues encountered.
	Warnings []string `json:"warnings,omitempty"`

	// Stages tracks completion of each stage in the scenario.
	Stages []StageResult `json:"stages,omitempty"`
}

// StageResult represents the outcome of a single stage in a scenario.
type StageResult struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// NewResult creates a new Result initialized for the given scenario.
func NewResult(scenarioName string) *Result {
	return &Result{
		ScenarioName: scenarioName,
		StartTime:    time.Now(),
		Metrics:      make(map[string]any),
		Details:      make(map[string]any),
	}
}

// Complete marks the result as complete, setting end time and duration.
func (r *Result) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// Fail records the terminal error and marks the result failed.
func (r *Result) Fail(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Success = false
	r.Error = err
	r.Errors = append(r.Errors, err)
}

// AddError adds an error to the result.
func (r *Result) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning to the result.
func (r *Result) AddWarning(warning string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, warning)
}

// AddStage adds a completed stage to the result.
func (r *Result) AddStage(name string, success bool, duration time.Duration, err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stages = append(r.Stages, StageResult{
		Name:     name,
		Success:  success,
		Duration: duration,
		Error:    err,
	})
}

// SetMetric sets a metric value.
func (r *Result) SetMetric(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Metrics[key] = value
}

// SetDetail sets a detail value.
func (r *Result) SetDetail(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Details[key] = value
}

// runStage executes fn, records it as a stage on result, and returns
// fn's error. On failure the result is marked failed with the stage name
// prefixed.
func runStage(result *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		result.AddStage(name, false, time.Since(start), err.Error())
		result.Fail(name + ": " + err.Error())
		return err
	}
	result.AddStage(name, true, time.Since(start), "")
	return nil
}
