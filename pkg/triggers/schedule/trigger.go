// Package schedule provides a cron-driven execution trigger.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/weave-nn/weave/pkg/protocol"
)

// Trigger starts an execution of one workflow on a cron schedule.
type Trigger struct {
	ID         string
	CronExpr   string
	WorkflowID string
	Input      any

	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

// NewTrigger creates a schedule trigger from configuration.
func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	cronExpr, _ := config["cron"].(string)
	workflowID, _ := config["workflow_id"].(string)

	trigger := &Trigger{
		ID:         id,
		CronExpr:   cronExpr,
		WorkflowID: workflowID,
		Input:      config["input"],
		logger: logger.With(
			"module", "schedule_trigger",
			"id", id,
			"cron", cronExpr,
			"workflow_id", workflowID,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.ID == "" {
		return errors.New("schedule trigger ID is required")
	}

	if t.WorkflowID == "" {
		return errors.New("schedule trigger workflow_id is required")
	}

	if t.CronExpr == "" {
		return errors.New("schedule trigger cron expression is required")
	}

	if _, err := cron.ParseStandard(t.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.callback = callback
	t.cron = cron.New()

	_, err := t.cron.AddFunc(t.CronExpr, func() {
		t.logger.Info("Schedule fired, starting execution")

		if err := t.callback(ctx, t.WorkflowID, t.Input); err != nil {
			t.logger.Error("Scheduled execution failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cron job: %w", err)
	}

	t.cron.Start()
	t.logger.Info("Schedule trigger started")

	return nil
}

func (t *Trigger) Stop(_ context.Context) error {
	if t.cron != nil {
		stopCtx := t.cron.Stop()
		<-stopCtx.Done()
	}

	t.logger.Info("Schedule trigger stopped")

	return nil
}

var _ protocol.Trigger = (*Trigger)(nil)
