package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/studio-b12/gowebdav"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"uploadsim/internal/config"
)

type webdavStorage struct {
	client *gowebdav.Client
	root   string
}

// NewWebDAV returns a Storage that keeps objects under cfg.Root on a WebDAV server.
func NewWebDAV(cfg config.WebDAVConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("webdav url is required")
	}
	cli := gowebdav.NewClient(cfg.URL, cfg.User, cfg.Password)
	cli.SetTransport(otelhttp.NewTransport(http.DefaultTransport))
	root := path.Join("/", cfg.Root)
	if err := cli.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create webdav root: %w", err)
	}
	return &webdavStorage{client: cli, root: root}, nil
}

// objectPath maps key below the configured root; keys that would climb out of it are rejected.
func (w *webdavStorage) objectPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return path.Join(w.root, key), nil
}

func (w *webdavStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	p, err := w.objectPath(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := w.client.MkdirAll(path.Dir(p), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create object dir: %w", err)
	}
	if err := w.client.WriteStream(p, r, 0o644); err != nil {
		return ObjectInfo{}, err
	}
	st, err := w.client.Stat(p)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	return ObjectInfo{
		Key:          key,
		Location:     p,
		Size:         st.Size(),
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
		Metadata:     opt.Metadata,
	}, nil
}

func (w *webdavStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	p, err := w.objectPath(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	st, err := w.client.Stat(p)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, ObjectInfo{}, err
	}
	if st.IsDir() {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	rc, err := w.client.ReadStream(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return rc, ObjectInfo{
		Key:          key,
		Location:     p,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}
