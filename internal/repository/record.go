package repository

import (
	"context"

	"uploadsim/internal/model"
)

// RecordRepository persists analysis records. Persistence only, no business logic.
type RecordRepository interface {
	// Append adds a record after every record already stored.
	Append(ctx context.Context, rec *model.AnalysisRecord) error

	// List returns all records in insertion order.
	List(ctx context.Context) (*ListResult, error)
}

// LoadState tells apart the reasons a listing can come back without records.
type LoadState int

const (
	// StateLoaded means the backing store was read successfully (it may still hold zero records).
	StateLoaded LoadState = iota
	// StateEmpty means the backing store does not exist yet.
	StateEmpty
	// StateUnreadable means the backing store exists but could not be read or parsed.
	// Items is empty and Err carries the cause.
	StateUnreadable
)

func (s LoadState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// ListResult wraps a listing with the state of the store it came from.
type ListResult struct {
	Items []model.AnalysisRecord
	State LoadState
	Err   error
}
