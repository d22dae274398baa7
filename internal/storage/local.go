package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage keeps objects as plain files under a content root directory.
// The object for key lives at <root>/<key>; there is no deduplication or versioning.
type LocalStorage struct {
	root string
}

// NewLocal creates the content root if needed and returns a store rooted at it.
func NewLocal(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("content root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

var _ Storage = (*LocalStorage)(nil)

// Resolve returns where the object for key is (or would be) stored. It does no I/O.
func (s *LocalStorage) Resolve(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes r to <root>/<key>, creating intermediate directories.
// The data is staged in a temp file and renamed into place.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	dest, err := s.checkedPath(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return ObjectInfo{}, fmt.Errorf("chmod temp object: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return ObjectInfo{}, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("close temp object: %w", err)
	}
	if opt.Size > 0 && opt.Size != n {
		return ObjectInfo{}, fmt.Errorf("short write: expected %d bytes, copied %d", opt.Size, n)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return ObjectInfo{}, fmt.Errorf("commit object: %w", err)
	}

	st, err := os.Stat(dest)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	return ObjectInfo{
		Key:          key,
		Location:     dest,
		Size:         st.Size(),
		ContentType:  opt.ContentType,
		LastModified: st.ModTime().UTC(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the object file for reading.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	path, err := s.checkedPath(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return f, ObjectInfo{
		Key:          key,
		Location:     path,
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
	}, nil
}

// checkedPath resolves key after ValidateKey accepted it.
func (s *LocalStorage) checkedPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return s.Resolve(key), nil
}
