package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"uploadsim/internal/analyzer"
	"uploadsim/internal/config"
	"uploadsim/internal/database"
	"uploadsim/internal/database/migration"
	"uploadsim/internal/metrics"
	"uploadsim/internal/repository"
	"uploadsim/internal/repository/jsonfile"
	"uploadsim/internal/repository/postgres"
	"uploadsim/internal/service"
	"uploadsim/internal/storage"
)

// app holds the wired pipeline for one CLI invocation.
type app struct {
	cfg     *config.AppConfig
	lg      *zap.Logger
	svc     service.IngestService
	metrics *metrics.Recorder

	closers []func()
}

func newApp(ctx context.Context, cfg *config.AppConfig, lg *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, lg: lg}

	store, bucket, err := openStorage(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	records, err := a.openRecords(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init record store: %w", err)
	}

	a.metrics, err = metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		a.Close()
		return nil, err
	}

	an := analyzer.New(store, cfg.Analyzer, lg)
	a.svc = service.NewIngestService(store, an, records, a.metrics, lg, service.WithBucket(bucket))

	lg.Debug("pipeline ready",
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("record_backend", cfg.RecordBackend),
	)
	return a, nil
}

// openStorage returns the content store and the bucket name reported in events.
func openStorage(cfg *config.AppConfig) (storage.Storage, string, error) {
	switch cfg.StorageBackend {
	case config.StorageMinIO:
		s, err := storage.NewMinIO(cfg.MinIO)
		return s, cfg.MinIO.Bucket, err
	case config.StorageWebDAV:
		s, err := storage.NewWebDAV(cfg.WebDAV)
		return s, cfg.WebDAV.Root, err
	default:
		s, err := storage.NewLocal(cfg.ContentDir)
		return s, filepath.Base(cfg.ContentDir), err
	}
}

func (a *app) openRecords(ctx context.Context) (repository.RecordRepository, error) {
	if a.cfg.RecordBackend == config.RecordPostgres {
		db, err := database.NewPostgres(ctx, a.cfg.Database, a.lg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := migration.EnsureMigrated(ctx, db, a.lg, a.cfg.Database.Host); err != nil {
			return nil, err
		}
		return postgres.NewRecordPostgres(db), nil
	}

	store := jsonfile.New(a.cfg.RecordFile, a.lg)
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

// Close writes the metrics textfile and releases backend connections.
func (a *app) Close() {
	if a.metrics != nil && a.cfg.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.MetricsFile), 0o755); err == nil {
			if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
				a.lg.Warn("metrics textfile not written", zap.Error(err))
			}
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
