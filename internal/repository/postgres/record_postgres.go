package postgres

import (
	"context"
	"database/sql"

	"uploadsim/internal/model"
	"uploadsim/internal/repository"
)

// RecordPostgres is a PostgreSQL implementation of repository.RecordRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type RecordPostgres struct {
	db *sql.DB
}

// NewRecordPostgres creates a new RecordPostgres repository.
func NewRecordPostgres(db *sql.DB) *RecordPostgres {
	return &RecordPostgres{db: db}
}

var _ repository.RecordRepository = (*RecordPostgres)(nil)

// Append inserts a new analysis_records row. The serial id keeps insertion order.
func (r *RecordPostgres) Append(ctx context.Context, rec *model.AnalysisRecord) error {
	const q = `
		INSERT INTO analysis_records (filename, size_bytes, mime_type, sha256, line_count, processed_utc, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var lineCount sql.NullInt64
	if rec.LineCount != nil {
		lineCount = sql.NullInt64{Int64: int64(*rec.LineCount), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.Filename,
		rec.SizeBytes,
		rec.MimeType,
		rec.SHA256,
		lineCount,
		rec.ProcessedUTC.Time,
		rec.Status,
	)
	return err
}

// List returns every record ordered by insertion.
func (r *RecordPostgres) List(ctx context.Context) (*repository.ListResult, error) {
	const q = `
		SELECT filename, size_bytes, mime_type, sha256, line_count, processed_utc, status
		FROM analysis_records
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.AnalysisRecord, 0)
	for rows.Next() {
		var (
			rec       model.AnalysisRecord
			lineCount sql.NullInt64
			processed sql.NullTime
		)
		if err := rows.Scan(
			&rec.Filename,
			&rec.SizeBytes,
			&rec.MimeType,
			&rec.SHA256,
			&lineCount,
			&processed,
			&rec.Status,
		); err != nil {
			return nil, err
		}
		if lineCount.Valid {
			n := int(lineCount.Int64)
			rec.LineCount = &n
		}
		if processed.Valid {
			rec.ProcessedUTC = model.NewTimestamp(processed.Time)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.ListResult{Items: items, State: repository.StateLoaded}, nil
}
