package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

type loginAttemptRepository struct {
	db *gorm.DB
}

var _ ports.LoginAttemptRepository = (*loginAttemptRepository)(nil)

func (r *loginAttemptRepository) Insert(ctx context.Context, attempt domain.LoginAttempt) error {
	rec := loginAttemptModel{
		UserID:        attempt.UserID,
		AttemptAt:     utcOrNow(attempt.AttemptAt),
		IPAddress:     nullableString(attempt.IPAddress),
		Status:        attempt.Status,
		FailureReason: attempt.FailureReason,
		UserAgent:     attempt.UserAgent,
		DeviceID:      attempt.DeviceID,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *loginAttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := r.db.WithContext(ctx).
		Model(&loginAttemptModel{}).
		Where("user_id = ?", userID)
	if since != nil {
		q = q.Where("attempt_at >= ?", since.UTC())
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []loginAttemptModel
	if err := q.Order("attempt_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LoginAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLoginAttempt(row))
	}
	return out, nil
}
