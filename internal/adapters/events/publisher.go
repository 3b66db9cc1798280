package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher is the local-development publisher used when no broker
// is configured. Payloads are logged by size, not content, so local logs
// do not fill up with event JSON.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, topic, partitionKey string, payload []byte) error {
	p.logger.InfoContext(ctx, "published event",
		"topic", topic,
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
	)
	return nil
}
