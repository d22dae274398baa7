package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"uploadsim/internal/logging"
	"uploadsim/internal/metrics"
	"uploadsim/internal/model"
	"uploadsim/internal/repository"
	"uploadsim/internal/storage"
)

// DefaultBucket names the content store in generated events.
const DefaultBucket = "uploads"

var tracer = otel.Tracer("uploadsim/service")

// Analyzer turns a stored object into an analysis record.
type Analyzer interface {
	Analyze(ctx context.Context, key string) (*model.AnalysisRecord, error)
}

// IngestService defines the upload pipeline use cases.
type IngestService interface {
	// Upload stores the file at sourcePath under its base name, then processes the
	// resulting object-created event. There is no rollback: if the record cannot be
	// appended the object stays stored.
	Upload(ctx context.Context, sourcePath string) (*model.AnalysisRecord, error)

	// HandleEvent analyzes the object named by the event and appends its record.
	HandleEvent(ctx context.Context, ev events.S3Event) (*model.AnalysisRecord, error)

	// Records lists every appended record in order.
	Records(ctx context.Context) (*repository.ListResult, error)
}

type ingestService struct {
	store    storage.Storage
	analyzer Analyzer
	repo     repository.RecordRepository
	metrics  *metrics.Recorder
	lg       *zap.Logger

	bucket    string
	clock     func() time.Time
	requestID func() string
}

// Option customizes the ingest service.
type Option func(*ingestService)

// WithBucket sets the bucket name written into generated events.
func WithBucket(bucket string) Option {
	return func(s *ingestService) { s.bucket = bucket }
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(gen func() string) Option {
	return func(s *ingestService) { s.requestID = gen }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *ingestService) { s.clock = clock }
}

// NewIngestService constructs a new IngestService. rec may be nil.
func NewIngestService(store storage.Storage, an Analyzer, repo repository.RecordRepository, rec *metrics.Recorder, lg *zap.Logger, opts ...Option) IngestService {
	s := &ingestService{
		store:     store,
		analyzer:  an,
		repo:      repo,
		metrics:   rec,
		lg:        logging.WithComponent(lg, "ingest"),
		bucket:    DefaultBucket,
		clock:     time.Now,
		requestID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ingestService) Upload(ctx context.Context, sourcePath string) (rec *model.AnalysisRecord, err error) {
	ctx, span := tracer.Start(ctx, "ingest.Upload")
	defer func() {
		s.metrics.ObserveUpload(Outcome(err))
		endSpan(span, err)
	}()

	if sourcePath == "" {
		return nil, fmt.Errorf("%w: empty path", storage.ErrSourceNotFound)
	}
	key := filepath.Base(sourcePath)
	span.SetAttributes(attribute.String("object.key", key))

	start := time.Now()
	obj, err := storage.PutFile(ctx, s.store, sourcePath, key)
	s.metrics.ObserveStage(metrics.StagePut, time.Since(start))
	if err != nil {
		if errors.Is(err, storage.ErrSourceNotFound) {
			s.lg.Warn("upload source not found", zap.String("path", sourcePath))
		} else {
			s.lg.Error("object put failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = s.requestID()
	}
	s.lg.Info("object stored",
		zap.String("request_id", requestID),
		zap.String("key", obj.Key),
		zap.String("location", obj.Location),
		zap.Int64("size", obj.Size),
	)

	ev := NewObjectCreatedEvent(s.bucket, obj, requestID, s.clock())
	return s.HandleEvent(ctx, ev)
}

func (s *ingestService) HandleEvent(ctx context.Context, ev events.S3Event) (rec *model.AnalysisRecord, err error) {
	ctx, span := tracer.Start(ctx, "ingest.HandleEvent")
	defer func() {
		s.metrics.ObserveEvent(Outcome(err))
		endSpan(span, err)
	}()

	lg := s.lg
	if id := RequestID(ev); id != "" {
		lg = logging.WithRequestID(lg, id)
		span.SetAttributes(attribute.String("request.id", id))
	}

	key, err := ObjectKey(ev)
	if err != nil {
		lg.Error("function received malformed event")
		return nil, err
	}
	lg = lg.With(zap.String("key", key))

	start := time.Now()
	rec, err = s.analyzer.Analyze(ctx, key)
	s.metrics.ObserveStage(metrics.StageAnalyze, time.Since(start))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			lg.Warn("function file not found")
		} else {
			lg.Error("analysis failed", zap.Error(err))
		}
		return nil, err
	}
	s.metrics.AddAnalyzedBytes(rec.SizeBytes)

	if err = rec.Validate(); err != nil {
		lg.Error("analysis produced an invalid record", zap.Error(err))
		return nil, fmt.Errorf("invalid record for %q: %w", key, err)
	}

	start = time.Now()
	err = s.repo.Append(ctx, rec)
	s.metrics.ObserveStage(metrics.StageAppend, time.Since(start))
	if err != nil {
		lg.Error("record append failed, object left in store", zap.Error(err))
		return nil, fmt.Errorf("append record: %w", err)
	}

	lg.Info("function processed file",
		zap.Int64("size_bytes", rec.SizeBytes),
		zap.String("mime_type", rec.MimeType),
	)
	return rec, nil
}

func (s *ingestService) Records(ctx context.Context) (*repository.ListResult, error) {
	return s.repo.List(ctx)
}

// Outcome maps a pipeline error to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, storage.ErrSourceNotFound):
		return metrics.OutcomeSourceNotFound
	case errors.Is(err, storage.ErrObjectNotFound):
		return metrics.OutcomeObjectNotFound
	case errors.Is(err, ErrMalformedEvent):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeError
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
