// Package delay provides a step handler that waits a configured duration.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/weave-nn/weave/pkg/models"
)

// Step sleeps for a configured number of milliseconds, honoring context
// cancellation.
type Step struct {
	Duration time.Duration
}

// NewStep creates a delay step from configuration.
func NewStep(config map[string]any) (*Step, error) {
	ms, ok := config["duration_ms"].(float64)
	if !ok || ms <= 0 {
		return nil, fmt.Errorf("delay step requires a positive 'duration_ms'")
	}

	return &Step{Duration: time.Duration(ms) * time.Millisecond}, nil
}

func (s *Step) Execute(ctx context.Context, _ any, _ *models.StepContext) (any, error) {
	timer := time.NewTimer(s.Duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return map[string]any{"delayed_ms": s.Duration.Milliseconds()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ models.StepHandler = (*Step)(nil)
