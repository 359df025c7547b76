package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is one of the terminal states.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// StepStatus is the lifecycle state of a single step within an execution.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Terminal reports whether a step in this state is done for scheduling
// purposes. Skipped counts: dependents of a skipped step still proceed.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	default:
		return false
	}
}

// ExecutionStats summarizes one finished execution.
type ExecutionStats struct {
	TotalSteps      int   `json:"total_steps"`
	CompletedSteps  int   `json:"completed_steps"`
	FailedSteps     int   `json:"failed_steps"`
	SkippedSteps    int   `json:"skipped_steps"`
	TotalDurationMS int64 `json:"total_duration_ms"`
}

// WorkflowExecution is the record of one Execute call, from pending through
// exactly one terminal state. The engine owns it for its lifetime; callers
// receive read views.
type WorkflowExecution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	Input       any             `json:"input,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	// Results holds completed step results keyed by step id. Skipped and
	// failed steps have no entry here.
	Results map[string]any `json:"results,omitempty"`

	// StepStates records the terminal state of every step for reporting,
	// including optional steps that failed and steps that were skipped.
	StepStates map[string]StepStatus `json:"step_states,omitempty"`

	// StepErrors records the last error message of each failed step.
	StepErrors map[string]string `json:"step_errors,omitempty"`

	Error      string         `json:"error,omitempty"`
	RolledBack bool           `json:"rolled_back"`
	Output     any            `json:"output,omitempty"`
	Stats      ExecutionStats `json:"stats"`
}

// Clone returns a deep-enough copy to hand to callers while the execution is
// still mutable inside the engine.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	out := *e

	if e.CompletedAt != nil {
		completed := *e.CompletedAt
		out.CompletedAt = &completed
	}

	out.Results = make(map[string]any, len(e.Results))
	for k, v := range e.Results {
		out.Results[k] = v
	}

	out.StepStates = make(map[string]StepStatus, len(e.StepStates))
	for k, v := range e.StepStates {
		out.StepStates[k] = v
	}

	out.StepErrors = make(map[string]string, len(e.StepErrors))
	for k, v := range e.StepErrors {
		out.StepErrors[k] = v
	}

	return &out
}
