package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type processedEventRepository struct {
	db *gorm.DB
}

func (r *processedEventRepository) HasProcessed(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&processedEventModel{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed inserts the consumed event id and reports whether this call
// was the first to do so. Redelivered messages hit the primary key and return false.
func (r *processedEventRepository) MarkProcessed(ctx context.Context, eventID uuid.UUID, eventType string, at time.Time) (bool, error) {
	rec := processedEventModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: at.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
