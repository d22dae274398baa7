package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// SentinelTable is checked before any step runs; if it exists the schema is assumed current.
const SentinelTable = "public.analysis_records"

var steps = []migrationStep{
	{
		Name: "create_table_analysis_records",
		SQL: `CREATE TABLE IF NOT EXISTS analysis_records (
  id            BIGSERIAL   PRIMARY KEY,
  filename      TEXT        NOT NULL,
  size_bytes    BIGINT      NOT NULL CHECK (size_bytes >= 0),
  mime_type     TEXT        NOT NULL,
  sha256        CHAR(64)    NOT NULL,
  line_count    INTEGER     NULL CHECK (line_count >= 0),
  processed_utc TIMESTAMPTZ NOT NULL,
  status        TEXT        NOT NULL
);`,
	},
	{
		Name: "create_index_analysis_records_filename",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_analysis_records_filename ON analysis_records (filename);`,
	},
	{
		Name: "create_index_analysis_records_sha256",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_analysis_records_sha256 ON analysis_records (sha256);`,
	},
}

// EnsureMigrated checks if the analysis_records table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, lg *zap.Logger, dbHost string) error {
	start := time.Now()
	lg = lg.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	lg.Info("db migration check", zap.String("event", "db_migration_check"))

	var exists bool
	query := fmt.Sprintf("SELECT to_regclass('%s') IS NOT NULL", SentinelTable)
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		lg.Error("db migration failed",
			zap.String("event", "db_migration_failed"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		lg.Info("schema already exists, skipping migration",
			zap.String("event", "db_migration_skip"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	lg.Info("db migration start", zap.String("event", "db_migration_start"), zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			lg.Error("db migration failed",
				zap.String("event", "db_migration_failed"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		lg.Info("db migration step",
			zap.String("event", "db_migration_step"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	lg.Info("db migration success",
		zap.String("event", "db_migration_success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
