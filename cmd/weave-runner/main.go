package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/weave-nn/weave/pkg/cmd"
	"github.com/weave-nn/weave/pkg/log"
	"github.com/weave-nn/weave/pkg/otelhelper"
	"github.com/weave-nn/weave/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "weave-runner",
		EnableShellCompletion: true,
		Usage:                 "Run persisted workflows from schedule and queue triggers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "runner-id",
				Aliases: []string{"id"},
				Usage:   "Custom runner ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("RUNNER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file://path or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis address for the queue trigger (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis list consumed by the queue trigger",
				Value:   "weave:executions",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			runnerID := command.String("runner-id")
			if runnerID == "" {
				runnerID = "runner-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("weave-runner").With("runner_id", runnerID)

			logger.InfoContext(ctx, "Initializing Weave Runner")

			reg := cmd.NewRegistry(logger)

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(ctx, command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			engineOpts := []workflow.Option{
				workflow.WithEventBus(eventBus),
				workflow.WithPersistence(store),
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "weave-runner")
				if err != nil {
					return err
				}

				engineOpts = append(engineOpts, workflow.WithTracer(tracer))
			}

			engine := workflow.NewEngine(logger, reg, engineOpts...)

			runner := NewRunner(
				runnerID,
				logger,
				reg,
				engine,
				store,
				command.String("redis-url"),
				command.String("queue"),
			)

			if err := runner.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Runner stopped with error", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
