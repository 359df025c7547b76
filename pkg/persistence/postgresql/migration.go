package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

const currentSchemaVersion = 1

var migrations = map[int]string{
	1: `
		CREATE TABLE IF NOT EXISTS workflow_definitions (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS workflow_executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			data JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_workflow_executions_workflow_id
			ON workflow_executions (workflow_id);
		CREATE INDEX IF NOT EXISTS idx_workflow_executions_status
			ON workflow_executions (status);
	`,
}

// migrator applies schema migrations in version order, tracking the applied
// version in schema_migrations.
type migrator struct {
	db     *sql.DB
	logger *slog.Logger
}

func (m *migrator) run(ctx context.Context) error {
	createMigrationsSQL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := m.db.ExecContext(ctx, createMigrationsSQL); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if current >= currentSchemaVersion {
		return nil
	}

	versions := make([]int, 0, len(migrations))
	for version := range migrations {
		if version > current {
			versions = append(versions, version)
		}
	}

	sort.Ints(versions)

	for _, version := range versions {
		m.logger.InfoContext(ctx, "Applying schema migration", "version", version)

		if _, err := m.db.ExecContext(ctx, migrations[version]); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}

		if _, err := m.db.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
	}

	return nil
}

func (m *migrator) currentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	return version, nil
}
