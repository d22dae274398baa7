// Package analyzer derives an AnalysisRecord from an object in the content store.
//
// The object is read once. Every chunk goes to the SHA-256 hasher and, for text-like
// objects, to the line counter, so memory use is bounded by the chunk size.
package analyzer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"uploadsim/internal/config"
	"uploadsim/internal/model"
	"uploadsim/internal/storage"
)

// sniffLen matches the read limit mimetype uses for detection.
const sniffLen = 3072

var tracer = otel.Tracer("uploadsim/analyzer")

// Analyzer computes file metadata for stored objects.
type Analyzer struct {
	store     storage.Storage
	chunkSize int
	sniff     bool
	clock     func() time.Time
	lg        *zap.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClock replaces time.Now as the source of processed_utc.
func WithClock(clock func() time.Time) Option {
	return func(a *Analyzer) { a.clock = clock }
}

// New returns an Analyzer reading objects from store.
func New(store storage.Storage, cfg config.AnalyzerConfig, lg *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:     store,
		chunkSize: cfg.ChunkSize,
		sniff:     cfg.SniffContent,
		clock:     time.Now,
		lg:        lg.With(zap.String("component", "analyzer")),
	}
	if a.chunkSize <= 0 {
		a.chunkSize = config.DefaultChunkSize
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze reads the object stored under key and returns its record. A missing object
// yields an error wrapping storage.ErrObjectNotFound.
func (a *Analyzer) Analyze(ctx context.Context, key string) (*model.AnalysisRecord, error) {
	ctx, span := tracer.Start(ctx, "analyzer.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("object.key", key))

	rec, err := a.analyze(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("object.size", rec.SizeBytes),
		attribute.String("object.mime_type", rec.MimeType),
	)
	return rec, nil
}

func (a *Analyzer) analyze(ctx context.Context, key string) (*model.AnalysisRecord, error) {
	rc, info, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	defer rc.Close()

	r := bufio.NewReaderSize(rc, max(a.chunkSize, sniffLen))

	contentType := ContentTypeByName(key)
	if contentType == "" && a.sniff {
		head, _ := r.Peek(sniffLen)
		contentType = ContentTypeBySniffing(head)
	}
	if contentType == "" {
		contentType = model.DefaultContentType
	}

	var lines *textLineWriter
	if IsTextLike(key, contentType) {
		lines = newTextLineWriter()
	}

	h := sha256.New()
	n, err := a.stream(ctx, r, h, lines)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}

	var lineCount *int
	if lines != nil {
		if lineErr := lines.Close(); lineErr != nil {
			a.lg.Warn("line count unavailable", zap.String("key", key), zap.Error(lineErr))
		} else {
			c := lines.Count()
			lineCount = &c
		}
	}

	size := info.Size
	if size < 0 {
		size = n
	}

	rec := &model.AnalysisRecord{
		Filename:     key,
		SizeBytes:    size,
		MimeType:     contentType,
		SHA256:       hex.EncodeToString(h.Sum(nil)),
		LineCount:    lineCount,
		ProcessedUTC: model.NewTimestamp(a.clock()),
		Status:       model.StatusProcessed,
	}
	a.lg.Debug("object analyzed",
		zap.String("key", key),
		zap.Int64("size_bytes", rec.SizeBytes),
		zap.String("mime_type", rec.MimeType),
	)
	return rec, nil
}

// stream feeds r to h and, when set, lines in chunks of at most a.chunkSize bytes.
// A line counting failure is kept inside lines and does not stop hashing.
func (a *Analyzer) stream(ctx context.Context, r io.Reader, h hash.Hash, lines *textLineWriter) (int64, error) {
	buf := make([]byte, a.chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			h.Write(chunk)
			total += int64(n)
			if lines != nil {
				_, _ = lines.Write(chunk)
			}
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
