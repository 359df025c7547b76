// Package models defines the core domain models for declarative workflow orchestration.
package models

// WorkflowDefinition is a declarative description of a workflow: a set of
// named steps connected by dependencies. Definitions are validated and held
// by the registry; executions never mutate them.
type WorkflowDefinition struct {
	ID           string          `json:"id"                      validate:"required"`
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Steps        []*WorkflowStep `json:"steps"                   validate:"required,min=1,dive"`
	InitialState map[string]any  `json:"initial_state,omitempty"`

	// EnableRollback runs compensating actions for completed steps when a
	// later non-optional step fails terminally.
	EnableRollback bool `json:"enable_rollback"`

	// InputSchema, when set, is a JSON Schema document that execution input
	// must satisfy before an execution is created.
	InputSchema map[string]any `json:"input_schema,omitempty"`

	// Schedule is an optional cron expression. The runner starts a schedule
	// trigger for every registered definition that carries one.
	Schedule string `json:"schedule,omitempty"`

	// TransformOutput maps the final step results into the execution output.
	// When nil the raw results map is used.
	TransformOutput func(results map[string]any) any `json:"-"`

	// Lifecycle hooks. All optional.
	OnStart    func(input any)                               `json:"-"`
	OnComplete func(execution *WorkflowExecution)            `json:"-"`
	OnError    func(execution *WorkflowExecution, err error) `json:"-"`
}

// Step returns the step with the given id, or nil.
func (d *WorkflowDefinition) Step(id string) *WorkflowStep {
	for _, step := range d.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// HasTag reports whether the definition carries the given tag.
func (d *WorkflowDefinition) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}

	return false
}
