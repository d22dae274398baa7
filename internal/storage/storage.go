package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"uploadsim/internal/model"
)

// Package storage contains the content store: object backends keyed by a flat string key.
// The local filesystem backend is the default; MinIO and WebDAV are drop-in alternatives.

var (
	// ErrSourceNotFound is returned when the file handed to PutFile does not exist.
	ErrSourceNotFound = errors.New("source file not found")
	// ErrObjectNotFound is returned by Get when no object is stored under the key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are not a clean relative path below the store root.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Location     string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the content store abstraction used by the pipeline.
type Storage interface {
	// Put writes an object under the given key, replacing any previous object with that key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get opens an object for streaming. It returns ErrObjectNotFound for unknown keys.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
}

// ValidateKey accepts slash-separated relative keys that stay below the store root:
// no leading slash, no "." or ".." segments and no empty segments.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.HasPrefix(key, "/") || strings.HasPrefix(key, "../") ||
		path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// PutFile copies the bytes of sourcePath verbatim into store under key.
func PutFile(ctx context.Context, store Storage, sourcePath, key string) (model.StoredObject, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.StoredObject{}, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return model.StoredObject{}, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return model.StoredObject{}, fmt.Errorf("stat source: %w", err)
	}
	if st.IsDir() {
		return model.StoredObject{}, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, sourcePath)
	}

	info, err := store.Put(ctx, key, f, PutObjectOptions{
		Size: st.Size(),
		Metadata: map[string]string{
			"original-path": sourcePath,
		},
	})
	if err != nil {
		return model.StoredObject{}, fmt.Errorf("put object: %w", err)
	}

	return model.StoredObject{
		Key:      info.Key,
		Location: info.Location,
		Size:     info.Size,
	}, nil
}
