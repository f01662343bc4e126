package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/webhook/domain"
	pkgdb "github.com/smallbiznis/storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// InsertEvent records a delivery, reporting false when the session was seen
// before. The conflict clause lets gorm render the dedup insert per dialect.
func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, record *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(record)
	if res.Error != nil {
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.EventRecord, error) {
	var record domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, event_id, event_type, product_id, quantity, payload, processing_error, received_at, processed_at
		 FROM checkout_events WHERE session_id = ?`,
		sessionID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, sessionID string, processingError *string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE checkout_events SET processed_at = ?, processing_error = ?
		 WHERE session_id = ?`,
		now,
		processingError,
		sessionID,
	).Error
}
