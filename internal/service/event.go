package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"uploadsim/internal/model"
	"uploadsim/internal/storage"
)

// ErrMalformedEvent is returned when an event carries no object key.
var ErrMalformedEvent = errors.New("malformed event")

const (
	eventNameObjectCreated = "ObjectCreated:Put"
	requestIDElement       = "x-amz-request-id"
)

// NewObjectCreatedEvent builds the notification emitted after obj was stored in bucket.
func NewObjectCreatedEvent(bucket string, obj model.StoredObject, requestID string, now time.Time) events.S3Event {
	return events.S3Event{
		Records: []events.S3EventRecord{{
			EventVersion: "2.1",
			EventSource:  "aws:s3",
			AWSRegion:    "local",
			EventTime:    now.UTC(),
			EventName:    eventNameObjectCreated,
			ResponseElements: map[string]string{
				requestIDElement: requestID,
			},
			S3: events.S3Entity{
				SchemaVersion: "1.0",
				Bucket:        events.S3Bucket{Name: bucket},
				Object: events.S3Object{
					Key:  obj.Key,
					Size: obj.Size,
				},
			},
		}},
	}
}

// ObjectKey returns the key of the first record of ev. A key that would resolve
// outside the content store makes the event malformed.
func ObjectKey(ev events.S3Event) (string, error) {
	if len(ev.Records) == 0 {
		return "", ErrMalformedEvent
	}
	key := ev.Records[0].S3.Object.Key
	if key == "" {
		return "", ErrMalformedEvent
	}
	if err := storage.ValidateKey(key); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return key, nil
}

// RequestID returns the request id carried by ev, or an empty string.
func RequestID(ev events.S3Event) string {
	if len(ev.Records) == 0 {
		return ""
	}
	return ev.Records[0].ResponseElements[requestIDElement]
}

type requestIDKey struct{}

// ContextWithRequestID makes Upload reuse id instead of generating one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
