package delay_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/steps/delay"
)

func TestDelayStepWaits(t *testing.T) {
	step, err := delay.NewStep(map[string]any{"duration_ms": float64(20)})
	require.NoError(t, err)

	sc := models.NewStepContext("exec-1", "wf", nil, nil, slog.Default())

	start := time.Now()
	result, err := step.Execute(context.Background(), nil, sc)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(20), out["delayed_ms"])
}

func TestDelayStepHonorsCancellation(t *testing.T) {
	step, err := delay.NewStep(map[string]any{"duration_ms": float64(5000)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	sc := models.NewStepContext("exec-1", "wf", nil, nil, slog.Default())

	start := time.Now()
	_, err = step.Execute(ctx, nil, sc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDelayStepRequiresPositiveDuration(t *testing.T) {
	_, err := delay.NewStep(map[string]any{})
	require.Error(t, err)

	_, err = delay.NewStep(map[string]any{"duration_ms": float64(-5)})
	require.Error(t, err)
}

func TestDelayFactory(t *testing.T) {
	factory := delay.NewFactory()
	assert.Equal(t, "delay", factory.ID())

	_, err := factory.Create(map[string]any{"duration_ms": float64(1)})
	require.NoError(t, err)
}
