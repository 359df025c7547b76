// Package postgresql implements the persistence contract on PostgreSQL.
// Records are stored as JSONB documents with the columns needed for
// filtering broken out.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/persistence"
)

// Persistence is a PostgreSQL-backed store for definitions and executions.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence opens a connection pool and applies pending schema
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Persistence{
		db:     db,
		logger: logger.With("module", "postgresql_persistence"),
	}

	m := &migrator{db: db, logger: p.logger}
	if err := m.run(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Persistence) Definitions(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT data FROM workflow_definitions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var def models.WorkflowDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("corrupt definition record: %w", err)
		}

		defs = append(defs, &def)
	}

	return defs, rows.Err()
}

func (p *Persistence) SaveDefinition(ctx context.Context, def *models.WorkflowDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return persistence.NewStoreError("SaveDefinition", def.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO workflow_definitions (id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, def.ID, data)
	if err != nil {
		return persistence.NewStoreError("SaveDefinition", def.ID, err)
	}

	return nil
}

func (p *Persistence) DefinitionByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx,
		"SELECT data FROM workflow_definitions WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("DefinitionByID", id, persistence.ErrDefinitionNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("DefinitionByID", id, err)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, persistence.NewStoreError("DefinitionByID", id, err)
	}

	return &def, nil
}

func (p *Persistence) DeleteDefinition(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx,
		"DELETE FROM workflow_definitions WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("DeleteDefinition", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("DeleteDefinition", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("DeleteDefinition", id, persistence.ErrDefinitionNotFound)
	}

	return nil
}

func (p *Persistence) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	data, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewStoreError("SaveExecution", execution.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, workflow_id, status, started_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, data = EXCLUDED.data
	`, execution.ID, execution.WorkflowID, string(execution.Status), execution.StartedAt, data)
	if err != nil {
		return persistence.NewStoreError("SaveExecution", execution.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx,
		"SELECT data FROM workflow_executions WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStoreError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return &execution, nil
}

func (p *Persistence) Executions(ctx context.Context, query persistence.ExecutionQuery) ([]*models.WorkflowExecution, error) {
	querySQL := "SELECT data FROM workflow_executions WHERE 1=1"
	args := make([]any, 0, 4)

	if query.WorkflowID != "" {
		args = append(args, query.WorkflowID)
		querySQL += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}

	if query.Status != "" {
		args = append(args, string(query.Status))
		querySQL += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if query.SortOrder == "asc" {
		querySQL += " ORDER BY started_at ASC"
	} else {
		querySQL += " ORDER BY started_at DESC"
	}

	if query.Limit > 0 {
		args = append(args, query.Limit)
		querySQL += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if query.Offset > 0 {
		args = append(args, query.Offset)
		querySQL += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var execution models.WorkflowExecution
		if err := json.Unmarshal(data, &execution); err != nil {
			return nil, fmt.Errorf("corrupt execution record: %w", err)
		}

		executions = append(executions, &execution)
	}

	return executions, rows.Err()
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}
