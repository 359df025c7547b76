package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/weave-nn/weave/pkg/events"
	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/otelhelper"
)

// stepOutcome is the terminal result of one step's lifecycle.
type stepOutcome struct {
	step       *models.WorkflowStep
	status     models.StepStatus
	result     any
	err        error
	attempts   int
	startedAt  time.Time
	finishedAt time.Time
}

// runStep drives one step through its lifecycle: condition check, input
// derivation, then the attempt loop with retry and timeout handling. A
// skipped step records no result but is terminal for scheduling, so
// dependents still proceed.
func (e *Engine) runStep(ctx context.Context, def *models.WorkflowDefinition, sc *models.StepContext, step *models.WorkflowStep) *stepOutcome {
	logger := sc.Logger.With("step_id", step.ID, "step_name", step.Name)
	outcome := &stepOutcome{step: step, startedAt: time.Now()}

	defer func() {
		outcome.finishedAt = time.Now()
	}()

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
			attribute.String(otelhelper.StepIDKey, step.ID),
			attribute.String(otelhelper.StepNameKey, step.Name),
			attribute.String(otelhelper.ExecutionIDKey, sc.ExecutionID),
		)

		defer func() {
			if outcome.status == models.StepStatusFailed && outcome.err != nil {
				otelhelper.SetError(span, outcome.err,
					attribute.String(otelhelper.StepIDKey, step.ID))
			}

			span.End()
		}()
	}

	if conditional, ok := step.Handler.(models.Conditional); ok {
		shouldRun, err := evalCondition(conditional, sc)
		if err != nil {
			logger.Error("Step condition panicked", "error", err)

			outcome.status = models.StepStatusFailed
			outcome.err = err

			return outcome
		}

		if !shouldRun {
			logger.Info("Step condition evaluated false, skipping")

			outcome.status = models.StepStatusSkipped

			return outcome
		}
	}

	input, err := deriveInput(step.Handler, sc)
	if err != nil {
		logger.Error("Step input transform failed", "error", err)

		outcome.status = models.StepStatusFailed
		outcome.err = err
		e.publishStepFailed(ctx, sc, step, err, 0)

		return outcome
	}

	config := e.registry.Config()
	retries := step.RetryCount(config.DefaultRetries)
	retryDelay := step.RetryDelay(config.DefaultRetryDelay)

	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		outcome.attempts = attempt + 1

		e.publish(ctx, events.StepStarted{
			BaseEvent: events.NewBaseEvent(events.StepStartedEvent, sc.WorkflowID, sc.ExecutionID),
			StepID:    step.ID,
			StepName:  step.Name,
			Attempt:   attempt + 1,
		})

		result, err := e.invokeHandler(ctx, step, input, sc)
		if err == nil {
			sc.SetResult(step.ID, result)

			outcome.status = models.StepStatusCompleted
			outcome.result = result

			logger.Info("Step completed", "attempts", outcome.attempts)
			e.publish(ctx, events.StepCompleted{
				BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, sc.WorkflowID, sc.ExecutionID),
				StepID:     step.ID,
				Result:     result,
				DurationMS: time.Since(outcome.startedAt).Milliseconds(),
			})

			return outcome
		}

		lastErr = err
		logger.Warn("Step attempt failed",
			"attempt", attempt+1, "max_attempts", retries+1, "error", err)

		if attempt < retries {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				// Between attempts the retry delay is a scheduling boundary;
				// give up without re-invoking the handler.
				lastErr = ctx.Err()
				attempt = retries
			}
		}
	}

	outcome.status = models.StepStatusFailed
	outcome.err = lastErr

	logger.Error("Step failed terminally",
		"attempts", outcome.attempts, "optional", step.Optional, "error", lastErr)
	e.publishStepFailed(ctx, sc, step, lastErr, outcome.attempts)

	return outcome
}

// invokeHandler runs a single attempt, racing the handler against the step's
// timeout when one is set. A timeout does not interrupt the handler
// goroutine; its eventual result is discarded and its side effects are not
// assumed complete.
func (e *Engine) invokeHandler(ctx context.Context, step *models.WorkflowStep, input any, sc *models.StepContext) (any, error) {
	timeout := step.Timeout()
	if timeout <= 0 {
		return safeExecute(ctx, step.Handler, input, sc)
	}

	type attemptResult struct {
		value any
		err   error
	}

	done := make(chan attemptResult, 1)

	go func() {
		value, err := safeExecute(ctx, step.Handler, input, sc)
		done <- attemptResult{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		return result.value, result.err
	case <-timer.C:
		return nil, fmt.Errorf("Step timed out after %dms", step.TimeoutMS)
	}
}

// safeExecute converts a panicking handler into an ordinary step error.
func safeExecute(ctx context.Context, handler models.StepHandler, input any, sc *models.StepContext) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step handler panicked: %v", r)
		}
	}()

	return handler.Execute(ctx, input, sc)
}

// deriveInput resolves the step input: the transformer's view of previous
// results when present, the workflow's original input otherwise. Transform
// panics surface as step failures.
func deriveInput(handler models.StepHandler, sc *models.StepContext) (input any, err error) {
	transformer, ok := handler.(models.InputTransformer)
	if !ok {
		return sc.Input, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("input transform panicked: %v", r)
		}
	}()

	return transformer.TransformInput(sc.Results()), nil
}

func evalCondition(conditional models.Conditional, sc *models.StepContext) (shouldRun bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step condition panicked: %v", r)
		}
	}()

	return conditional.Condition(sc), nil
}

func (e *Engine) publishStepFailed(ctx context.Context, sc *models.StepContext, step *models.WorkflowStep, err error, attempts int) {
	message := ""
	if err != nil {
		message = err.Error()
	}

	e.publish(ctx, events.StepFailed{
		BaseEvent: events.NewBaseEvent(events.StepFailedEvent, sc.WorkflowID, sc.ExecutionID),
		StepID:    step.ID,
		Error:     message,
		Attempts:  attempts,
		Optional:  step.Optional,
	})
}
