package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uploadsim/internal/analyzer"
	"uploadsim/internal/config"
	"uploadsim/internal/model"
	"uploadsim/internal/repository"
	"uploadsim/internal/repository/jsonfile"
	"uploadsim/internal/service"
	"uploadsim/internal/storage"
)

type pipeline struct {
	svc     service.IngestService
	store   *storage.LocalStorage
	records *jsonfile.RecordStore
	srcDir  string
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(root, "s3_bucket"))
	require.NoError(t, err)
	records := jsonfile.New(filepath.Join(root, "db", "dynamodb_mock.json"), zap.NewNop())
	require.NoError(t, records.Init())

	an := analyzer.New(store, config.AnalyzerConfig{ChunkSize: 16}, zap.NewNop())
	return &pipeline{
		svc:     service.NewIngestService(store, an, records, nil, zap.NewNop()),
		store:   store,
		records: records,
		srcDir:  filepath.Join(root, "src"),
	}
}

func (p *pipeline) source(t *testing.T, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(p.srcDir, 0o755))
	path := filepath.Join(p.srcDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipeline_ExampleUpload(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	src := p.source(t, "example.txt", "Hello from example.txt\nThis is a sample text file.\nLine 3.\n")

	rec, err := p.svc.Upload(ctx, src)

	require.NoError(t, err)
	assert.Equal(t, "example.txt", rec.Filename)
	assert.Equal(t, int64(59), rec.SizeBytes)
	assert.Equal(t, "text/plain", rec.MimeType)
	assert.True(t, model.IsSHA256Hex(rec.SHA256))
	require.NotNil(t, rec.LineCount)
	assert.Equal(t, 3, *rec.LineCount)

	stored, err := os.ReadFile(p.store.Resolve("example.txt"))
	require.NoError(t, err)
	assert.Len(t, stored, 59)

	res, err := p.svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	got := res.Items[0]
	assert.Equal(t, rec.SHA256, got.SHA256)
	assert.Equal(t, rec.ProcessedUTC.String(), got.ProcessedUTC.String())
	assert.Equal(t, *rec.LineCount, *got.LineCount)
}

func TestPipeline_UploadsAreRecordedInOrder(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	var names []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("file-%d.csv", i)
		names = append(names, name)
		_, err := p.svc.Upload(ctx, p.source(t, name, fmt.Sprintf("a,b\n%d,%d\n", i, i)))
		require.NoError(t, err)
	}
	// a repeated upload is a new record, not an update
	_, err := p.svc.Upload(ctx, filepath.Join(p.srcDir, names[0]))
	require.NoError(t, err)
	names = append(names, names[0])

	res, err := p.svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, len(names))
	for i, name := range names {
		assert.Equal(t, name, res.Items[i].Filename)
	}
	assert.Equal(t, res.Items[0].SHA256, res.Items[5].SHA256)
}

func TestPipeline_MissingSource(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	_, err := p.svc.Upload(ctx, filepath.Join(p.srcDir, "ghost.txt"))

	assert.ErrorIs(t, err, storage.ErrSourceNotFound)
	_, statErr := os.Stat(p.store.Resolve("ghost.txt"))
	assert.True(t, os.IsNotExist(statErr))
	res, err := p.svc.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestPipeline_EventForUnknownObject(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ev := service.NewObjectCreatedEvent("uploads", model.StoredObject{Key: "never.txt"}, "r", time.Now())

	_, err := p.svc.HandleEvent(ctx, ev)

	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	res, err := p.svc.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.StateLoaded, res.State)
	assert.Empty(t, res.Items)
}
