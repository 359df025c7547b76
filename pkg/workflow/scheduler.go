package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/weave-nn/weave/pkg/models"
)

// completedStep remembers a successful step for the rollback pass.
type completedStep struct {
	step       *models.WorkflowStep
	result     any
	finishedAt time.Time
}

// runWaves drives an execution level by level: every iteration dispatches all
// steps whose dependencies are terminal, concurrently, and waits for the whole
// wave before recomputing. A step therefore never starts before each of its
// dependencies has a recorded result or skip marker.
//
// When a non-optional step fails, siblings already dispatched in the same
// wave finish naturally, no further waves start, and rollback runs if the
// definition enables it. Cancellation is observed between waves only.
func (e *Engine) runWaves(ctx context.Context, def *models.WorkflowDefinition, r *run, sc *models.StepContext) error {
	statuses := make(map[string]models.StepStatus, len(def.Steps))
	for _, step := range def.Steps {
		statuses[step.ID] = models.StepStatusPending
	}

	var completed []completedStep

	for {
		if r.cancelled.Load() || ctx.Err() != nil {
			return errCancelled
		}

		wave := readySteps(def, statuses)
		if len(wave) == 0 {
			if pendingRemain(statuses) {
				// Unreachable for validated definitions; acyclicity is
				// checked at registration.
				return errors.New("scheduler stalled: unterminated steps with unsatisfiable dependencies")
			}

			return nil
		}

		outcomes := make([]*stepOutcome, len(wave))

		var wg sync.WaitGroup

		for i, step := range wave {
			statuses[step.ID] = models.StepStatusRunning

			wg.Add(1)

			go func(i int, step *models.WorkflowStep) {
				defer wg.Done()

				outcomes[i] = e.runStep(ctx, def, sc, step)
			}(i, step)
		}

		wg.Wait()

		waveCompleted := make([]completedStep, 0, len(outcomes))

		var fatal error

		for _, outcome := range outcomes {
			statuses[outcome.step.ID] = outcome.status
			r.recordOutcome(outcome)

			switch outcome.status {
			case models.StepStatusCompleted:
				waveCompleted = append(waveCompleted, completedStep{
					step:       outcome.step,
					result:     outcome.result,
					finishedAt: outcome.finishedAt,
				})
			case models.StepStatusFailed:
				if !outcome.step.Optional && fatal == nil {
					fatal = fmt.Errorf("step %s failed: %w", outcome.step.ID, outcome.err)
				}
			}
		}

		// Rollback walks steps most-recent-first, so order within the wave
		// follows actual finish times.
		sort.Slice(waveCompleted, func(i, j int) bool {
			return waveCompleted[i].finishedAt.Before(waveCompleted[j].finishedAt)
		})
		completed = append(completed, waveCompleted...)

		if fatal != nil {
			if def.EnableRollback {
				e.rollback(ctx, r, completed)
			}

			return fatal
		}
	}
}

// readySteps selects pending steps whose every dependency is terminal.
func readySteps(def *models.WorkflowDefinition, statuses map[string]models.StepStatus) []*models.WorkflowStep {
	ready := make([]*models.WorkflowStep, 0, len(def.Steps))

	for _, step := range def.Steps {
		if statuses[step.ID] != models.StepStatusPending {
			continue
		}

		satisfied := true

		for _, dep := range step.DependsOn {
			if !statuses[dep].Terminal() {
				satisfied = false

				break
			}
		}

		if satisfied {
			ready = append(ready, step)
		}
	}

	return ready
}

func pendingRemain(statuses map[string]models.StepStatus) bool {
	for _, status := range statuses {
		if !status.Terminal() {
			return true
		}
	}

	return false
}

// recordOutcome folds a terminal step outcome into the execution record.
func (r *run) recordOutcome(outcome *stepOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution := r.execution
	execution.StepStates[outcome.step.ID] = outcome.status

	switch outcome.status {
	case models.StepStatusCompleted:
		execution.Results[outcome.step.ID] = outcome.result
		execution.Stats.CompletedSteps++
	case models.StepStatusFailed:
		if outcome.err != nil {
			execution.StepErrors[outcome.step.ID] = outcome.err.Error()
		}

		execution.Stats.FailedSteps++
	case models.StepStatusSkipped:
		execution.Stats.SkippedSteps++
	}
}
