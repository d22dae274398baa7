// Package gateway wraps the ingest pipeline in API Gateway style responses:
// a status code, headers and a JSON body. Errors never escape as Go errors.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"uploadsim/internal/model"
	"uploadsim/internal/service"
	"uploadsim/internal/storage"
)

// HeaderRequestID carries the request id of every response.
const HeaderRequestID = "X-Request-Id"

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

// Upload simulates POST /upload: the file at path is stored and processed.
func Upload(ctx context.Context, svc service.IngestService, path string) events.APIGatewayProxyResponse {
	requestID := uuid.New().String()
	ctx = service.ContextWithRequestID(ctx, requestID)

	rec, err := svc.Upload(ctx, path)
	if err != nil {
		return errorResponse(requestID, filepath.Base(path), err)
	}
	return recordResponse(requestID, rec)
}

// Invoke runs the function directly with a raw S3 event document.
func Invoke(ctx context.Context, svc service.IngestService, rawEvent []byte) events.APIGatewayProxyResponse {
	var ev events.S3Event
	if err := json.Unmarshal(rawEvent, &ev); err != nil {
		return errorResponse(uuid.New().String(), "", service.ErrMalformedEvent)
	}
	requestID := service.RequestID(ev)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	key, _ := service.ObjectKey(ev)

	rec, err := svc.HandleEvent(ctx, ev)
	if err != nil {
		return errorResponse(requestID, key, err)
	}
	return recordResponse(requestID, rec)
}

// StatusFor maps a pipeline error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, storage.ErrSourceNotFound),
		errors.Is(err, service.ErrMalformedEvent),
		errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func recordResponse(requestID string, rec *model.AnalysisRecord) events.APIGatewayProxyResponse {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errorResponse(requestID, rec.Filename, err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers(requestID),
		Body:       string(b),
	}
}

// errorResponse writes a standardized JSON error response without leaking internal errors.
func errorResponse(requestID, key string, err error) events.APIGatewayProxyResponse {
	status := StatusFor(err)
	env := errorEnvelope{}
	switch {
	case errors.Is(err, storage.ErrSourceNotFound):
		env.Code, env.Message = "SOURCE_NOT_FOUND", "local file not found"
	case errors.Is(err, service.ErrMalformedEvent), errors.Is(err, storage.ErrInvalidKey):
		env.Code, env.Message = "MALFORMED_EVENT", "malformed event"
	case errors.Is(err, storage.ErrObjectNotFound):
		env.Code, env.Message, env.Key = "NOT_FOUND", "file not found", key
	default:
		env.Code, env.Message = "INTERNAL_ERROR", "internal server error"
	}

	b, _ := json.Marshal(errorPayload{RequestID: requestID, Error: env})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers(requestID),
		Body:       string(b),
	}
}

func headers(requestID string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		HeaderRequestID: requestID,
	}
}
