package schedule_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-nn/weave/pkg/triggers/schedule"
)

func TestNewTriggerValidConfig(t *testing.T) {
	trigger, err := schedule.NewTrigger(map[string]any{
		"id":          "nightly",
		"cron":        "0 3 * * *",
		"workflow_id": "etl",
		"input":       map[string]any{"full": true},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "nightly", trigger.ID)
	assert.Equal(t, "etl", trigger.WorkflowID)
}

func TestNewTriggerRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		config map[string]any
	}{
		{"missing id", map[string]any{"cron": "* * * * *", "workflow_id": "wf"}},
		{"missing workflow", map[string]any{"id": "t", "cron": "* * * * *"}},
		{"missing cron", map[string]any{"id": "t", "workflow_id": "wf"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schedule.NewTrigger(tc.config, slog.Default())
			require.Error(t, err)
		})
	}
}

func TestNewTriggerRejectsBadCronExpression(t *testing.T) {
	_, err := schedule.NewTrigger(map[string]any{
		"id":          "t",
		"cron":        "not a cron line",
		"workflow_id": "wf",
	}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
