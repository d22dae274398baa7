package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uploadsim/internal/model"
	"uploadsim/internal/repository"
)

const digest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func record(name string) *model.AnalysisRecord {
	return &model.AnalysisRecord{
		Filename:     name,
		SizeBytes:    0,
		MimeType:     model.DefaultContentType,
		SHA256:       digest,
		ProcessedUTC: model.NewTimestamp(time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)),
		Status:       model.StatusProcessed,
	}
}

func newStore(t *testing.T) *RecordStore {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "db", "dynamodb_mock.json"), zap.NewNop())
}

func TestRecordStore_ListMissingFile(t *testing.T) {
	s := newStore(t)

	res, err := s.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, repository.StateEmpty, res.State)
	assert.Empty(t, res.Items)
	assert.NoError(t, res.Err)
}

func TestRecordStore_Init(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Init())
	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	require.NoError(t, s.Append(context.Background(), record("a.txt")))
	require.NoError(t, s.Init())

	res, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Items, 1, "Init must not truncate an existing store")
}

func TestRecordStore_AppendPreservesOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, name := range []string{"b.txt", "a.txt", "b.txt"} {
		require.NoError(t, s.Append(ctx, record(name)))
	}

	res, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.StateLoaded, res.State)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "b.txt", res.Items[0].Filename)
	assert.Equal(t, "a.txt", res.Items[1].Filename)
	assert.Equal(t, "b.txt", res.Items[2].Filename)
}

func TestRecordStore_FileFormat(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	lines := 2
	rec := record("notes.md")
	rec.LineCount = &lines
	require.NoError(t, s.Append(ctx, rec))
	require.NoError(t, s.Append(ctx, record("blob.bin")))

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, float64(2), raw[0]["line_count"])
	assert.Contains(t, raw[1], "line_count")
	assert.Nil(t, raw[1]["line_count"])
	assert.Equal(t, "2025-05-06T07:08:09Z", raw[1]["processed_utc"])
	assert.Contains(t, string(b), "\n  {", "array is pretty printed with two-space indent")
}

func TestRecordStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	res, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.StateUnreadable, res.State)
	assert.Error(t, res.Err)
	assert.Empty(t, res.Items)

	require.NoError(t, s.Append(ctx, record("fresh.txt")))

	res, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.StateLoaded, res.State)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "fresh.txt", res.Items[0].Filename)

	moved, err := os.ReadFile(s.Path() + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(moved))
}

func TestRecordStore_NullContents(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("null"), 0o644))

	res, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repository.StateLoaded, res.State)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestRecordStore_AppendNil(t *testing.T) {
	s := newStore(t)
	assert.Error(t, s.Append(context.Background(), nil))
}

func TestRecordStore_CancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Append(ctx, record("a.txt")), context.Canceled)
	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordStore_ConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, record(fmt.Sprintf("f%02d.txt", i))))
		}(i)
	}
	wg.Wait()

	res, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Items, 20)
}
