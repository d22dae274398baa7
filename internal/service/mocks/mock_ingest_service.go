package mocks

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/mock"

	"uploadsim/internal/model"
	"uploadsim/internal/repository"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Upload(ctx context.Context, sourcePath string) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, sourcePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockIngestService) HandleEvent(ctx context.Context, ev events.S3Event) (*model.AnalysisRecord, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisRecord), args.Error(1)
}

func (m *MockIngestService) Records(ctx context.Context) (*repository.ListResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListResult), args.Error(1)
}
