// Package file implements the persistence contract on top of a directory of
// JSON documents. Handler functions and hooks are not serializable;
// definitions round-trip through their declarative form (Uses/With steps).
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/weave-nn/weave/pkg/models"
	"github.com/weave-nn/weave/pkg/persistence"
)

const fileMode = 0o644

// Persistence stores definitions and executions as JSON files under a root
// directory.
type Persistence struct {
	root string
}

// NewPersistence creates a file store rooted at the given directory,
// accepting both plain paths and file:// URLs.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.TrimPrefix(root, "file://")}
}

func (p *Persistence) definitionsDir() string {
	return filepath.Join(p.root, "definitions")
}

func (p *Persistence) executionsDir() string {
	return filepath.Join(p.root, "executions")
}

// Definitions loads every stored definition, ordered by id.
func (p *Persistence) Definitions(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	ids, err := listIDs(p.definitionsDir())
	if err != nil {
		return nil, err
	}

	defs := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		def, err := p.DefinitionByID(ctx, id)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	return defs, nil
}

func (p *Persistence) SaveDefinition(_ context.Context, def *models.WorkflowDefinition) error {
	if err := writeJSON(p.definitionsDir(), def.ID, def); err != nil {
		return persistence.NewStoreError("SaveDefinition", def.ID, err)
	}

	return nil
}

func (p *Persistence) DefinitionByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition

	if err := readJSON(p.definitionsDir(), id, &def); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewStoreError("DefinitionByID", id, persistence.ErrDefinitionNotFound)
		}

		return nil, persistence.NewStoreError("DefinitionByID", id, err)
	}

	return &def, nil
}

func (p *Persistence) DeleteDefinition(_ context.Context, id string) error {
	path := jsonPath(p.definitionsDir(), id)

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistence.NewStoreError("DeleteDefinition", id, persistence.ErrDefinitionNotFound)
		}

		return persistence.NewStoreError("DeleteDefinition", id, err)
	}

	return nil
}

func (p *Persistence) SaveExecution(_ context.Context, execution *models.WorkflowExecution) error {
	if err := writeJSON(p.executionsDir(), execution.ID, execution); err != nil {
		return persistence.NewStoreError("SaveExecution", execution.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	if err := readJSON(p.executionsDir(), id, &execution); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewStoreError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return &execution, nil
}

// Executions loads stored executions matching the query, sorted by StartedAt.
func (p *Persistence) Executions(ctx context.Context, query persistence.ExecutionQuery) ([]*models.WorkflowExecution, error) {
	ids, err := listIDs(p.executionsDir())
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowExecution, 0, len(ids))

	for _, id := range ids {
		execution, err := p.ExecutionByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if query.WorkflowID != "" && execution.WorkflowID != query.WorkflowID {
			continue
		}

		if query.Status != "" && execution.Status != query.Status {
			continue
		}

		matched = append(matched, execution)
	}

	ascending := query.SortOrder == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		if ascending {
			return matched[i].StartedAt.Before(matched[j].StartedAt)
		}

		return matched[j].StartedAt.Before(matched[i].StartedAt)
	})

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return []*models.WorkflowExecution{}, nil
		}

		matched = matched[query.Offset:]
	}

	if query.Limit > 0 && query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}

	return matched, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func jsonPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

func writeJSON(dir, id string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(jsonPath(dir, id), data, fileMode)
}

func readJSON(dir, id string, v any) error {
	data, err := os.ReadFile(jsonPath(dir, id))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt record %s: %w", id, err)
	}

	return nil
}

func listIDs(dir string) ([]string, error) {
	entries, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil || entries == nil {
		if errors.Is(err, fs.ErrNotExist) || entries == nil {
			return []string{}, nil
		}

		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, strings.TrimSuffix(entry, ".json"))
	}

	sort.Strings(ids)

	return ids, nil
}
