package models

import "context"

// StepHandler performs the work of one step. Handlers are invoked at least
// once per step (retries re-invoke the full handler), so they should be
// idempotent or rollback-aware.
type StepHandler interface {
	Execute(ctx context.Context, input any, sc *StepContext) (any, error)
}

// Conditional is an optional capability: when the condition evaluates false
// against the current context the step is skipped rather than executed.
// Conditions must be side-effect-free and fast.
type Conditional interface {
	Condition(sc *StepContext) bool
}

// InputTransformer is an optional capability: it derives the step input from
// the results of previously completed steps. When absent the step receives
// the workflow's original input.
type InputTransformer interface {
	TransformInput(previous map[string]any) any
}

// Compensable is an optional capability: Rollback undoes the step's effects
// given the result of its own successful run. Best effort; errors are logged,
// never retried.
type Compensable interface {
	Rollback(ctx context.Context, result any) error
}

// StepFunc adapts a plain function to the StepHandler interface.
type StepFunc func(ctx context.Context, input any, sc *StepContext) (any, error)

func (f StepFunc) Execute(ctx context.Context, input any, sc *StepContext) (any, error) {
	return f(ctx, input, sc)
}
