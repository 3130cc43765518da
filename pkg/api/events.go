package api

import "time"

type (
	// EventType identifies the kind of lifecycle event
	EventType string

	// Event is the envelope published for every engine lifecycle change and
	// streamed to websocket subscribers
	Event struct {
		Timestamp time.Time `json:"timestamp"`
		Data      any       `json:"data,omitempty"`
		ID        string    `json:"id"`
		Type      EventType `json:"type"`
		RunID     RunID     `json:"run_id,omitempty"`
		StepID    StepID    `json:"step_id,omitempty"`
	}

	// RunStartedEvent is emitted when a workflow run begins
	RunStartedEvent struct {
		Init  Args   `json:"init,omitempty"`
		Flow  string `json:"flow"`
		Steps int    `json:"steps"`
	}

	// RunCompletedEvent is emitted when a run finishes, successfully or not
	RunCompletedEvent struct {
		Output  Args  `json:"output,omitempty"`
		Success bool  `json:"success"`
		Elapsed int64 `json:"elapsed_ms"`
	}

	// RunFailedEvent is emitted when a run aborts before any step executes
	RunFailedEvent struct {
		Error string `json:"error"`
	}

	// StepStartedEvent is emitted when a step begins execution
	StepStartedEvent struct {
		Input Args   `json:"input,omitempty"`
		Type  string `json:"type"`
	}

	// StepCompletedEvent is emitted when a step completes successfully
	StepCompletedEvent struct {
		Result  Args  `json:"result,omitempty"`
		Elapsed int64 `json:"elapsed_ms"`
	}

	// StepFailedEvent is emitted when a step's capability reports an error
	StepFailedEvent struct {
		Error string `json:"error"`
	}

	// StepSkippedEvent is emitted when the dependency cascade skips a step
	StepSkippedEvent struct {
		Reason string `json:"reason"`
	}

	// FlowReloadedEvent is emitted when the watcher swaps in a fresh
	// definition, or reports the watched file disappearing
	FlowReloadedEvent struct {
		Flow        string `json:"flow,omitempty"`
		Path        string `json:"path"`
		Disappeared bool   `json:"disappeared,omitempty"`
	}
)

const (
	EventTypeRunStarted    EventType = "run_started"
	EventTypeRunCompleted  EventType = "run_completed"
	EventTypeRunFailed     EventType = "run_failed"
	EventTypeStepStarted   EventType = "step_started"
	EventTypeStepCompleted EventType = "step_completed"
	EventTypeStepFailed    EventType = "step_failed"
	EventTypeStepSkipped   EventType = "step_skipped"
	EventTypeFlowReloaded  EventType = "flow_reloaded"
)
