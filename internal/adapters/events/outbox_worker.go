package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/ports"
)

type deliveryOutcome int

const (
	deliveryPublished deliveryOutcome = iota
	deliveryRetryScheduled
	deliveryDeadLettered
)

// OutboxWorker pulls unpublished outbox records and publishes them to their
// topics. This separates transactional writes from broker delivery.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

// NewOutboxWorker constructs the outbox publisher loop with sane defaults.
func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run executes the periodic outbox publish loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce claims one batch and attempts delivery for each record.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	tally := map[deliveryOutcome]int{}
	for _, rec := range records {
		tally[w.deliver(ctx, rec, claimToken, now)]++
	}

	w.logger.InfoContext(ctx, "outbox batch processed",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "outbox_process_once",
		"outcome", "success",
		"batch_size", len(records),
		"published_count", tally[deliveryPublished],
		"failed_count", tally[deliveryRetryScheduled]+tally[deliveryDeadLettered],
		"dead_lettered_count", tally[deliveryDeadLettered],
	)
	return nil
}

func (w *OutboxWorker) deliver(ctx context.Context, rec ports.OutboxRecord, claimToken string, now time.Time) deliveryOutcome {
	// Claims can outlive a crashed worker, so a record may arrive here
	// already at the retry ceiling.
	if rec.RetryCount >= w.maxRetries {
		_ = w.outbox.MarkDeadLettered(ctx, rec.EventID, claimToken, "retry threshold reached before publish", now)
		return deliveryDeadLettered
	}

	err := w.publisher.Publish(ctx, rec.Topic, rec.PartitionKey, rec.Payload)
	if err == nil {
		_ = w.outbox.MarkPublished(ctx, rec.EventID, claimToken, now)
		return deliveryPublished
	}

	retries := rec.RetryCount + 1
	if retries >= w.maxRetries {
		w.logPublishFailure(ctx, slog.LevelError, "outbox message moved to dlq", rec, retries, err)
		_ = w.outbox.MarkDeadLettered(ctx, rec.EventID, claimToken, err.Error(), now)
		return deliveryDeadLettered
	}

	w.logPublishFailure(ctx, slog.LevelWarn, "outbox publish failed; retry scheduled", rec, retries, err)
	_ = w.outbox.MarkFailed(ctx, rec.EventID, claimToken, err.Error(), now)
	return deliveryRetryScheduled
}

func (w *OutboxWorker) logPublishFailure(ctx context.Context, level slog.Level, msg string, rec ports.OutboxRecord, retries int, err error) {
	w.logger.Log(ctx, level, msg,
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "failure",
		"event_id", rec.EventID,
		"event_type", rec.EventType,
		"topic", rec.Topic,
		"retry_count", retries,
		"error", err,
	)
}
