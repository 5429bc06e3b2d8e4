package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_type_document_status",
		SQL: `DO $$ BEGIN
  CREATE TYPE document_status AS ENUM
    ('pending', 'running', 'finished', 'failed', 'deleting', 'deleted', 'delete_failed');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID            PRIMARY KEY,
  file_name    TEXT            NOT NULL,
  storage_path TEXT            NOT NULL UNIQUE,
  size         BIGINT          NOT NULL CHECK (size >= 0),
  mime_type    TEXT            NOT NULL,
  status       document_status NOT NULL DEFAULT 'pending',
  created_at   TIMESTAMPTZ     NOT NULL DEFAULT now()
);`,
	},
	{
		// Serves the per-partition descending range scans; the column order
		// mirrors the keyset (status, created_at, id).
		Name: "create_index_documents_status_created_at",
		SQL: `CREATE INDEX IF NOT EXISTS idx_documents_status_created_at
  ON documents (status, created_at DESC, id DESC);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("migration: sentinel check failed", "error", err)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("migration: schema already exists, skipping",
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration: step failed",
				"migration_step", step.Name,
				"error", err)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("migration: step applied",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.Info("migration: schema created",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
