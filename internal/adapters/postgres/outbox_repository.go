package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shoplane/identity-service/internal/ports"
)

type outboxRepository struct {
	db *gorm.DB
}

// ClaimUnpublished marks up to limit rows with the caller's claim token under
// SKIP LOCKED row locks, so concurrent relay instances partition the backlog
// instead of double-publishing.
func (r *outboxRepository) ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	now := time.Now().UTC()
	var rows []authOutboxModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&authOutboxModel{}).
			Select("event_id").
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("created_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		if err := tx.Model(&authOutboxModel{}).
			Where("event_id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("published_at IS NULL").
			Where("dead_lettered_at IS NULL").
			Order("created_at ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}

	result := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.record())
	}
	return result, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, eventID uuid.UUID, claimToken string, at time.Time) error {
	return r.resolveClaim(ctx, eventID, claimToken, map[string]any{
		"published_at": at.UTC(),
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.resolveClaim(ctx, eventID, claimToken, map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at.UTC(),
	})
}

// MarkDeadLettered parks a row that exhausted its retry budget. The row stays
// in the table for operator inspection; the claim query skips it.
func (r *outboxRepository) MarkDeadLettered(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.resolveClaim(ctx, eventID, claimToken, map[string]any{
		"retry_count":      gorm.Expr("retry_count + 1"),
		"last_error":       errMsg,
		"last_error_at":    at.UTC(),
		"dead_lettered_at": at.UTC(),
	})
}

// resolveClaim applies updates to a still-claimed, still-unpublished row and
// releases the claim in the same statement. A stale claim token matches no
// rows, which makes every Mark call a no-op after the claim expires.
func (r *outboxRepository) resolveClaim(ctx context.Context, eventID uuid.UUID, claimToken string, updates map[string]any) error {
	updates["claim_token"] = nil
	updates["claim_until"] = nil
	return r.db.WithContext(ctx).
		Model(&authOutboxModel{}).
		Where("event_id = ? AND claim_token = ?", eventID, claimToken).
		Where("published_at IS NULL").
		Updates(updates).Error
}
