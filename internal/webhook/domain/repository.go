package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent inserts the dedup row, doing nothing on a session_id
	// conflict. Returns false when the row already existed.
	InsertEvent(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)

	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*EventRecord, error)

	// MarkProcessed stamps processed_at and records the processing error,
	// if any, on the event row.
	MarkProcessed(ctx context.Context, db *gorm.DB, sessionID string, processingError *string, now time.Time) error
}
