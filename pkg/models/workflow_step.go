package models

import "time"

// WorkflowStep is a single unit of work inside a definition. The handler is
// either attached directly (code-defined workflows) or resolved from the
// registered step factories via Uses/With (JSON-defined workflows).
type WorkflowStep struct {
	ID   string `json:"id"   validate:"required"`
	Name string `json:"name"`

	// Uses names a registered step handler type; With is its configuration.
	// Ignored when Handler is already set.
	Uses string         `json:"uses,omitempty"`
	With map[string]any `json:"with,omitempty"`

	Handler StepHandler `json:"-"`

	DependsOn []string `json:"depends_on,omitempty"`

	// Optional steps may fail without failing the workflow.
	Optional bool `json:"optional,omitempty"`

	// Retries is the number of re-attempts after the first failure; nil picks
	// up the registry default. Zero means exactly one attempt.
	Retries *int `json:"retries,omitempty" validate:"omitempty,gte=0"`

	// RetryDelayMS is the pause between attempts; nil picks up the registry
	// default.
	RetryDelayMS *int64 `json:"retry_delay_ms,omitempty" validate:"omitempty,gte=0"`

	// TimeoutMS bounds a single handler attempt. Zero means no timeout.
	TimeoutMS int64 `json:"timeout_ms,omitempty" validate:"gte=0"`
}

// RetryCount resolves the configured retry count against the given default.
func (s *WorkflowStep) RetryCount(def int) int {
	if s.Retries != nil {
		return *s.Retries
	}

	return def
}

// RetryDelay resolves the configured retry delay against the given default.
func (s *WorkflowStep) RetryDelay(def time.Duration) time.Duration {
	if s.RetryDelayMS != nil {
		return time.Duration(*s.RetryDelayMS) * time.Millisecond
	}

	return def
}

// Timeout returns the per-attempt timeout, or zero when unbounded.
func (s *WorkflowStep) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}
