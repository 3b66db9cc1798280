package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

type eventStoreRepository struct {
	db *gorm.DB
}

// AppendWithOutbox writes the event-log row and its outbox row in one
// transaction. The log row is append-only; only the outbox carries delivery state.
func (r *eventStoreRepository) AppendWithOutbox(ctx context.Context, event domain.Event, msg ports.OutboxMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventRow := toEventModel(event)
		if err := tx.Create(&eventRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		outboxRow := authOutboxModel{
			EventID:      msg.EventID,
			EventType:    msg.EventType,
			Topic:        msg.Topic,
			PartitionKey: msg.PartitionKey,
			Payload:      string(msg.Payload),
			CreatedAt:    utcOrNow(msg.CreatedAt),
		}
		return tx.Create(&outboxRow).Error
	})
}

func (r *eventStoreRepository) ListByAggregate(ctx context.Context, aggregateID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []authEventModel
	if err := r.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainEvent(row))
	}
	return out, nil
}

func (r *eventStoreRepository) ListByCorrelation(ctx context.Context, correlationID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []authEventModel
	if err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainEvent(row))
	}
	return out, nil
}
