//go:build integration
// +build integration

package postgresql

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/persistence"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupTestDB(t *testing.T) (*Persistence, context.Context) {
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("weave_test"),
			postgres.WithUsername("weave"),
			postgres.WithPassword("weave"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, "TRUNCATE workflow_definitions, workflow_executions")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	return store, ctx
}

func sampleDefinition(id string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:   id,
		Name: "Definition " + id,
		Steps: []*models.WorkflowStep{
			{ID: "s", Uses: "log", With: map[string]any{"message": "hi"}},
		},
	}
}

func sampleExecution(id, workflowID string, status models.ExecutionStatus, startedAt time.Time) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:         id,
		WorkflowID: workflowID,
		Status:     status,
		StartedAt:  startedAt,
		Results:    map[string]any{"s": "ok"},
		StepStates: map[string]models.StepStatus{"s": models.StepStatusCompleted},
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	store, ctx := setupTestDB(t)

	require.NoError(t, store.SaveDefinition(ctx, sampleDefinition("wf-1")))

	def, err := store.DefinitionByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Definition wf-1", def.Name)

	// Upsert replaces the stored document.
	updated := sampleDefinition("wf-1")
	updated.Name = "Renamed"
	require.NoError(t, store.SaveDefinition(ctx, updated))

	def, err = store.DefinitionByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", def.Name)

	defs, err := store.Definitions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestDefinitionNotFound(t *testing.T) {
	store, ctx := setupTestDB(t)

	_, err := store.DefinitionByID(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, persistence.IsNotFound(err))
}

func TestDeleteDefinition(t *testing.T) {
	store, ctx := setupTestDB(t)

	require.NoError(t, store.SaveDefinition(ctx, sampleDefinition("wf-1")))
	require.NoError(t, store.DeleteDefinition(ctx, "wf-1"))

	err := store.DeleteDefinition(ctx, "wf-1")
	assert.True(t, persistence.IsNotFound(err))
}

func TestExecutionQueries(t *testing.T) {
	store, ctx := setupTestDB(t)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveExecution(ctx, sampleExecution("e1", "wf-a", models.ExecutionStatusCompleted, base)))
	require.NoError(t, store.SaveExecution(ctx, sampleExecution("e2", "wf-a", models.ExecutionStatusFailed, base.Add(time.Minute))))
	require.NoError(t, store.SaveExecution(ctx, sampleExecution("e3", "wf-b", models.ExecutionStatusCompleted, base.Add(2*time.Minute))))

	loaded, err := store.ExecutionByID(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, loaded.Status)

	byWorkflow, err := store.Executions(ctx, persistence.ExecutionQuery{WorkflowID: "wf-a"})
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	failed, err := store.Executions(ctx, persistence.ExecutionQuery{Status: models.ExecutionStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "e2", failed[0].ID)

	page, err := store.Executions(ctx, persistence.ExecutionQuery{SortOrder: "asc", Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "e2", page[0].ID)
}

func TestHealthCheck(t *testing.T) {
	store, ctx := setupTestDB(t)

	require.NoError(t, store.HealthCheck(ctx))
}
