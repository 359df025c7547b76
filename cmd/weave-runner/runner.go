// Package main implements the weave runner: it registers persisted workflow
// definitions and executes them from schedule and queue triggers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/weave-nn/weave/pkg/persistence"
	"github.com/weave-nn/weave/pkg/protocol"
	"github.com/weave-nn/weave/pkg/registry"
	"github.com/weave-nn/weave/pkg/triggers/queue"
	"github.com/weave-nn/weave/pkg/triggers/schedule"
	"github.com/weave-nn/weave/pkg/workflow"
)

type Runner struct {
	id       string
	logger   *slog.Logger
	registry *registry.Registry
	engine   *workflow.Engine
	store    persistence.Persistence
	redisURL string
	queue    string

	triggers []protocol.Trigger
}

func NewRunner(
	id string,
	logger *slog.Logger,
	reg *registry.Registry,
	engine *workflow.Engine,
	store persistence.Persistence,
	redisURL string,
	queueName string,
) *Runner {
	return &Runner{
		id:       id,
		logger:   logger,
		registry: reg,
		engine:   engine,
		store:    store,
		redisURL: redisURL,
		queue:    queueName,
	}
}

// Start loads persisted definitions, registers them, starts the configured
// triggers and blocks until SIGINT or SIGTERM.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.loadDefinitions(ctx); err != nil {
		return err
	}

	if err := r.startTriggers(ctx); err != nil {
		r.stopTriggers(ctx)

		return err
	}

	r.logger.InfoContext(ctx, "Runner started", "triggers", len(r.triggers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		r.logger.InfoContext(ctx, "Shutting down runner")
	case <-ctx.Done():
	}

	r.stopTriggers(ctx)

	return nil
}

func (r *Runner) loadDefinitions(ctx context.Context) error {
	defs, err := r.store.Definitions(ctx)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if err := r.registry.Register(def); err != nil {
			r.logger.ErrorContext(ctx, "Skipping invalid persisted definition",
				"workflow_id", def.ID, "error", err)

			continue
		}

		r.logger.InfoContext(ctx, "Registered workflow", "workflow_id", def.ID)
	}

	return nil
}

func (r *Runner) startTriggers(ctx context.Context) error {
	callback := r.execute

	for _, def := range r.registry.List(registry.Filter{}) {
		if def.Schedule == "" {
			continue
		}

		trigger, err := schedule.NewTrigger(map[string]any{
			"id":          "schedule-" + def.ID,
			"cron":        def.Schedule,
			"workflow_id": def.ID,
		}, r.logger)
		if err != nil {
			r.logger.ErrorContext(ctx, "Invalid schedule on workflow",
				"workflow_id", def.ID, "error", err)

			continue
		}

		if err := trigger.Start(ctx, callback); err != nil {
			return err
		}

		r.triggers = append(r.triggers, trigger)
	}

	if r.redisURL != "" {
		trigger, err := queue.NewTrigger(map[string]any{
			"addr":  r.redisURL,
			"queue": r.queue,
		}, r.logger)
		if err != nil {
			return err
		}

		if err := trigger.Start(ctx, callback); err != nil {
			return err
		}

		r.triggers = append(r.triggers, trigger)
	}

	return nil
}

func (r *Runner) stopTriggers(ctx context.Context) {
	for _, trigger := range r.triggers {
		if err := trigger.Stop(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Failed to stop trigger", "error", err)
		}
	}

	r.triggers = nil
}

func (r *Runner) execute(ctx context.Context, workflowID string, input any) error {
	execution, err := r.engine.Execute(ctx, workflowID, input)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Triggered execution finished",
		"workflow_id", workflowID,
		"execution_id", execution.ID,
		"status", execution.Status)

	return nil
}
