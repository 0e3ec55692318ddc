// Package storage defines the persistence interface for the activity log and the
// extraction audit trail. No patient field values are ever stored.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/yomitori/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ActivityFilter selects activity log entries, newest first.
type ActivityFilter struct {
	Limit int
	// OnlyAPI drops requests for the root page, static assets and the favicon.
	OnlyAPI bool
}

// Storage defines activity log and extraction audit persistence.
type Storage interface {
	// Activity log
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
	ListActivityLogs(ctx context.Context, filter ActivityFilter) ([]*models.ActivityLog, error)
	CountActivityLogs(ctx context.Context) (int64, error)

	// Extraction audit trail
	CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error
	GetExtraction(ctx context.Context, id string) (*models.ExtractionRecord, error)
	ListExtractions(ctx context.Context, offset, limit int) ([]*models.ExtractionRecord, error)
	CountExtractions(ctx context.Context) (int64, error)

	Close() error
}
