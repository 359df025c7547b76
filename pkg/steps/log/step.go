// Package log provides a step handler that writes a structured log line.
package log

import (
	"context"

	"github.com/weave-nn/weave/pkg/models"
)

// Step logs a configured message at a configured level and succeeds.
type Step struct {
	Message string
	Level   string
}

// NewStep creates a log step from configuration.
func NewStep(config map[string]any) *Step {
	message, _ := config["message"].(string)
	level, _ := config["level"].(string)

	if level == "" {
		level = "info"
	}

	return &Step{Message: message, Level: level}
}

func (s *Step) Execute(_ context.Context, input any, sc *models.StepContext) (any, error) {
	logger := sc.Logger.With("step_type", "log")

	switch s.Level {
	case "debug":
		logger.Debug(s.Message, "input", input)
	case "warn", "warning":
		logger.Warn(s.Message, "input", input)
	case "error":
		logger.Error(s.Message, "input", input)
	default:
		logger.Info(s.Message, "input", input)
	}

	return map[string]any{
		"logged":  true,
		"message": s.Message,
		"level":   s.Level,
	}, nil
}

var _ models.StepHandler = (*Step)(nil)
