package models

import (
	"log/slog"
	"sync"
)

// StepContext is shared by all steps of one execution. Completed step results
// become visible through Result/Results before any dependent step starts.
//
// State is seeded from the definition's InitialState and is handed to step
// handlers without engine-imposed locking; handlers that write it from
// concurrent siblings within one wave must coordinate themselves.
type StepContext struct {
	ExecutionID string
	WorkflowID  string

	// Input is the original workflow input passed to Execute.
	Input any

	State map[string]any

	Logger *slog.Logger

	mu      sync.RWMutex
	results map[string]any
}

// NewStepContext creates the shared context for one execution.
func NewStepContext(executionID, workflowID string, input any, initialState map[string]any, logger *slog.Logger) *StepContext {
	state := make(map[string]any, len(initialState))
	for k, v := range initialState {
		state[k] = v
	}

	return &StepContext{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Input:       input,
		State:       state,
		Logger:      logger,
		results:     make(map[string]any),
	}
}

// Result returns the recorded result of a completed step. Skipped and failed
// steps never record a result, so the second return is false for them.
func (sc *StepContext) Result(stepID string) (any, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	result, ok := sc.results[stepID]

	return result, ok
}

// Results returns a copy of all recorded step results.
func (sc *StepContext) Results() map[string]any {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	out := make(map[string]any, len(sc.results))
	for k, v := range sc.results {
		out[k] = v
	}

	return out
}

// SetResult records a completed step's result. Called by the engine only.
func (sc *StepContext) SetResult(stepID string, result any) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.results[stepID] = result
}
