// Package persistence abstracts the optional durable store behind the
// engine. The engine is fully functional in-memory; a store wired in at
// construction receives definitions and finished executions through this
// contract.
package persistence

import (
	"context"

	"github.com/weave-nn/weave/pkg/models"
)

// ExecutionQuery filters persisted executions. Zero values match everything.
type ExecutionQuery struct {
	WorkflowID string
	Status     models.ExecutionStatus

	// SortOrder is "asc" or "desc" over StartedAt; descending by default.
	SortOrder string

	Offset int
	Limit  int
}

type Persistence interface {
	Definitions(ctx context.Context) ([]*models.WorkflowDefinition, error)
	SaveDefinition(ctx context.Context, def *models.WorkflowDefinition) error
	DefinitionByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	DeleteDefinition(ctx context.Context, id string) error

	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	Executions(ctx context.Context, query ExecutionQuery) ([]*models.WorkflowExecution, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
