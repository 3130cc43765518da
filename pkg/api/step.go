package api

import (
	"time"
)

type (
	// ResultStatus is the outcome a capability reports for one invocation
	ResultStatus string

	// StepStatus is the outcome recorded for a step within a run. It covers
	// the capability outcomes plus the cascade status applied to steps whose
	// dependencies never produced the values they reference
	StepStatus string

	// StepResult is what a capability invocation returns: a success or error
	// status plus either an output map or an error message
	StepResult struct {
		Result Args         `json:"result,omitempty"`
		Error  string       `json:"error,omitempty"`
		Status ResultStatus `json:"status"`
	}

	// StepRecord is the entry stored in the execution context for one step
	StepRecord struct {
		StartedAt   time.Time  `json:"started_at,omitzero"`
		CompletedAt time.Time  `json:"completed_at,omitzero"`
		Result      Args       `json:"result,omitempty"`
		Error       string     `json:"error,omitempty"`
		Status      StepStatus `json:"status"`
	}

	// RunResult aggregates one complete workflow execution. Output holds the
	// terminal step's result, or a map keyed by step ID when several steps
	// have no dependents; Steps always carries the full execution context
	RunResult struct {
		StartedAt   time.Time              `json:"started_at"`
		CompletedAt time.Time              `json:"completed_at"`
		Steps       map[StepID]*StepRecord `json:"steps"`
		Output      Args                   `json:"output,omitempty"`
		Flow        string                 `json:"flow"`
		RunID       RunID                  `json:"run_id"`
		Success     bool                   `json:"success"`
	}
)

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

const (
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"

	// StepSkippedDependencyFailed marks a step that never ran because a
	// required parameter still carried an unresolved reference after its
	// producer failed or was itself skipped
	StepSkippedDependencyFailed StepStatus = "skipped-dependency-failed"
)

// NewResult creates a successful StepResult with an empty output map
func NewResult() *StepResult {
	return &StepResult{
		Status: ResultSuccess,
		Result: Args{},
	}
}

// WithOutput adds an output value to the result
func (r *StepResult) WithOutput(name Name, value any) *StepResult {
	if r.Result == nil {
		r.Result = Args{}
	}
	r.Result[name] = value
	return r
}

// WithOutputs merges a map of output values into the result
func (r *StepResult) WithOutputs(outputs Args) *StepResult {
	for k, v := range outputs {
		r = r.WithOutput(k, v)
	}
	return r
}

// WithError marks the result as failed with the given error
func (r *StepResult) WithError(err error) *StepResult {
	r.Status = ResultError
	r.Error = err.Error()
	return r
}

// Successful reports whether the capability invocation succeeded
func (r *StepResult) Successful() bool {
	return r.Status == ResultSuccess
}

// Succeeded reports whether the recorded step completed successfully
func (r *StepRecord) Succeeded() bool {
	return r.Status == StepSuccess
}

// Skipped reports whether the step was skipped by the dependency cascade
func (r *StepRecord) Skipped() bool {
	return r.Status == StepSkippedDependencyFailed
}

// Duration returns the wall time the step spent executing
func (r *StepRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Record returns the context entry for a step ID, or nil when the run never
// recorded one
func (r *RunResult) Record(id StepID) *StepRecord {
	if r.Steps == nil {
		return nil
	}
	return r.Steps[id]
}
