// Package jsonfile stores analysis records as one JSON array in a single file.
//
// Every Append rewrites the whole array. Within a process the read-modify-write
// sequence is serialized by a mutex; separate processes writing the same file are
// not coordinated. Rewrites go through a temp file and a rename, so a crash leaves
// either the old array or the new one on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"uploadsim/internal/model"
	"uploadsim/internal/repository"
)

// RecordStore is the JSON-array implementation of repository.RecordRepository.
type RecordStore struct {
	path string
	lg   *zap.Logger

	mu sync.Mutex
}

// New returns a store backed by path. The file is created lazily by the first Append.
func New(path string, lg *zap.Logger) *RecordStore {
	return &RecordStore{path: path, lg: lg.With(zap.String("component", "record_store"))}
}

var _ repository.RecordRepository = (*RecordStore)(nil)

// Path returns the backing file.
func (s *RecordStore) Path() string {
	return s.path
}

// Init writes an empty array if the backing file does not exist yet.
func (s *RecordStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.write(nil)
}

// Append loads the array, adds rec and rewrites the file. An unreadable file is
// moved aside to <path>.corrupt and treated as empty, so Append never fails because
// of existing contents.
func (s *RecordStore) Append(ctx context.Context, rec *model.AnalysisRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.load()
	if res.State == repository.StateUnreadable {
		s.lg.Warn("record store unreadable, starting a new array",
			zap.String("path", s.path),
			zap.Error(res.Err),
		)
		if err := os.Rename(s.path, s.path+".corrupt"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.lg.Warn("could not move unreadable record store aside", zap.Error(err))
		}
	}

	items := append(res.Items, *rec)
	if err := s.write(items); err != nil {
		return fmt.Errorf("write record store: %w", err)
	}
	s.lg.Info("record appended",
		zap.String("filename", rec.Filename),
		zap.Int("records", len(items)),
	)
	return nil
}

// List returns the stored records in insertion order. It never returns an error for
// missing or corrupt files; the result's State says which case applied.
func (s *RecordStore) List(ctx context.Context) (*repository.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.load()
	if res.State == repository.StateUnreadable {
		s.lg.Warn("record store unreadable, listing as empty",
			zap.String("path", s.path),
			zap.Error(res.Err),
		)
	}
	return res, nil
}

func (s *RecordStore) load() *repository.ListResult {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &repository.ListResult{Items: []model.AnalysisRecord{}, State: repository.StateEmpty}
		}
		return &repository.ListResult{Items: []model.AnalysisRecord{}, State: repository.StateUnreadable, Err: err}
	}

	var items []model.AnalysisRecord
	if err := json.Unmarshal(b, &items); err != nil {
		return &repository.ListResult{Items: []model.AnalysisRecord{}, State: repository.StateUnreadable, Err: err}
	}
	if items == nil {
		// a literal null is as good as an empty array
		items = []model.AnalysisRecord{}
	}
	return &repository.ListResult{Items: items, State: repository.StateLoaded}
}

func (s *RecordStore) write(items []model.AnalysisRecord) error {
	if items == nil {
		items = []model.AnalysisRecord{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
