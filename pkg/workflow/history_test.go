package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/workflow"
)

func record(id, workflowID string, status models.ExecutionStatus, startedAt time.Time) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:         id,
		WorkflowID: workflowID,
		Status:     status,
		StartedAt:  startedAt,
	}
}

func seededHistory() *workflow.History {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	history := workflow.NewHistory()
	history.Append(record("e1", "wf-a", models.ExecutionStatusCompleted, base))
	history.Append(record("e2", "wf-b", models.ExecutionStatusFailed, base.Add(time.Minute)))
	history.Append(record("e3", "wf-a", models.ExecutionStatusFailed, base.Add(2*time.Minute)))
	history.Append(record("e4", "wf-a", models.ExecutionStatusCompleted, base.Add(3*time.Minute)))

	return history
}

func TestHistoryDefaultSortIsMostRecentFirst(t *testing.T) {
	history := seededHistory()

	records := history.List(workflow.HistoryFilter{})
	require.Len(t, records, 4)
	assert.Equal(t, "e4", records[0].ID)
	assert.Equal(t, "e1", records[3].ID)
}

func TestHistoryAscendingSort(t *testing.T) {
	history := seededHistory()

	records := history.List(workflow.HistoryFilter{SortOrder: "asc"})
	require.Len(t, records, 4)
	assert.Equal(t, "e1", records[0].ID)
	assert.Equal(t, "e4", records[3].ID)
}

func TestHistoryFilterByWorkflowAndStatus(t *testing.T) {
	history := seededHistory()

	records := history.List(workflow.HistoryFilter{
		WorkflowID: "wf-a",
		Status:     models.ExecutionStatusFailed,
	})
	require.Len(t, records, 1)
	assert.Equal(t, "e3", records[0].ID)
}

func TestHistoryPagination(t *testing.T) {
	history := seededHistory()

	page := history.List(workflow.HistoryFilter{SortOrder: "asc", Offset: 1, Limit: 2})
	require.Len(t, page, 2)
	assert.Equal(t, "e2", page[0].ID)
	assert.Equal(t, "e3", page[1].ID)

	assert.Empty(t, history.List(workflow.HistoryFilter{Offset: 99}))
}

func TestHistoryClear(t *testing.T) {
	history := seededHistory()
	require.Equal(t, 4, history.Len())

	history.Clear()
	assert.Zero(t, history.Len())
	assert.Empty(t, history.List(workflow.HistoryFilter{}))
}
