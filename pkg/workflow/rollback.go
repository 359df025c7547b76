package workflow

import (
	"context"
	"fmt"

	"github.com/weave-nn/weave/pkg/events"
	"github.com/weave-nn/weave/pkg/models"
)

// rollback invokes compensating actions for every completed step, most
// recently completed first. Steps without the Compensable capability are
// passed over. Individual rollback failures are logged and never abort the
// pass; every eligible step gets exactly one attempt. The execution's
// RolledBack flag is set regardless of individual failures.
func (e *Engine) rollback(ctx context.Context, r *run, completed []completedStep) {
	r.mu.Lock()
	workflowID := r.execution.WorkflowID
	executionID := r.execution.ID
	r.mu.Unlock()

	logger := e.logger.With("workflow_id", workflowID, "execution_id", executionID)

	steps := make([]string, 0, len(completed))
	for i := len(completed) - 1; i >= 0; i-- {
		steps = append(steps, completed[i].step.ID)
	}

	logger.Info("Starting rollback", "completed_steps", steps)
	e.publish(ctx, events.RollbackStarted{
		BaseEvent: events.NewBaseEvent(events.RollbackStartedEvent, workflowID, executionID),
		Steps:     steps,
	})

	var rolledBack, failed []string

	for i := len(completed) - 1; i >= 0; i-- {
		entry := completed[i]

		compensable, ok := entry.step.Handler.(models.Compensable)
		if !ok {
			continue
		}

		if err := safeRollback(ctx, compensable, entry.result); err != nil {
			logger.Error("Rollback failed for step",
				"step_id", entry.step.ID, "error", err)
			failed = append(failed, entry.step.ID)

			continue
		}

		logger.Info("Rolled back step", "step_id", entry.step.ID)
		rolledBack = append(rolledBack, entry.step.ID)
	}

	r.mu.Lock()
	r.execution.RolledBack = true
	r.mu.Unlock()

	e.publish(ctx, events.RollbackCompleted{
		BaseEvent:       events.NewBaseEvent(events.RollbackCompletedEvent, workflowID, executionID),
		RolledBackSteps: rolledBack,
		FailedSteps:     failed,
	})
}

func safeRollback(ctx context.Context, compensable models.Compensable, result any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rollback panicked: %v", r)
		}
	}()

	return compensable.Rollback(ctx, result)
}
