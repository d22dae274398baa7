package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"uploadsim/internal/model"
	"uploadsim/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

const digest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

var recordColumns = []string{"filename", "size_bytes", "mime_type", "sha256", "line_count", "processed_utc", "status"}

func TestRecordPostgres_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewRecordPostgres(db)
	ctx := context.Background()
	processed := model.NewTimestamp(time.Now())

	t.Run("text record", func(t *testing.T) {
		lines := 3
		rec := &model.AnalysisRecord{
			Filename:     "example.txt",
			SizeBytes:    59,
			MimeType:     "text/plain",
			SHA256:       digest,
			LineCount:    &lines,
			ProcessedUTC: processed,
			Status:       model.StatusProcessed,
		}

		mock.ExpectExec("INSERT INTO analysis_records").
			WithArgs("example.txt", int64(59), "text/plain", digest, sql.NullInt64{Int64: 3, Valid: true}, processed.Time, "Processed").
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.Append(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("binary record stores null line count", func(t *testing.T) {
		rec := &model.AnalysisRecord{
			Filename:     "photo.png",
			SizeBytes:    10,
			MimeType:     "image/png",
			SHA256:       digest,
			ProcessedUTC: processed,
			Status:       model.StatusProcessed,
		}

		mock.ExpectExec("INSERT INTO analysis_records").
			WithArgs("photo.png", int64(10), "image/png", digest, sql.NullInt64{}, processed.Time, "Processed").
			WillReturnResult(sqlmock.NewResult(2, 1))

		assert.NoError(t, repo.Append(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO analysis_records").WillReturnError(errors.New("db down"))

		err := repo.Append(ctx, &model.AnalysisRecord{Filename: "x"})
		assert.EqualError(t, err, "db down")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewRecordPostgres(db)
	ctx := context.Background()

	t.Run("success keeps insertion order", func(t *testing.T) {
		ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		rows := sqlmock.NewRows(recordColumns).
			AddRow("b.txt", 4, "text/plain", digest, 1, ts, "Processed").
			AddRow("a.bin", 9, "application/octet-stream", digest, nil, ts, "Processed")

		mock.ExpectQuery("SELECT (.+) FROM analysis_records ORDER BY id ASC").WillReturnRows(rows)

		res, err := repo.List(ctx)

		assert.NoError(t, err)
		assert.Equal(t, repository.StateLoaded, res.State)
		if assert.Len(t, res.Items, 2) {
			assert.Equal(t, "b.txt", res.Items[0].Filename)
			if assert.NotNil(t, res.Items[0].LineCount) {
				assert.Equal(t, 1, *res.Items[0].LineCount)
			}
			assert.Equal(t, "a.bin", res.Items[1].Filename)
			assert.Nil(t, res.Items[1].LineCount)
			assert.Equal(t, "2025-01-02T03:04:05Z", res.Items[1].ProcessedUTC.String())
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM analysis_records").WillReturnError(errors.New("db down"))

		res, err := repo.List(ctx)

		assert.Error(t, err)
		assert.Nil(t, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
