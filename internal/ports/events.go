package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
// The application and relay use this abstraction to keep broker/client
// concerns in adapters.
type EventPublisher interface {
	Publish(ctx context.Context, topic, partitionKey string, payload []byte) error
}

// InboundMessage is a broker message handed to the idempotent consumer.
type InboundMessage struct {
	Topic   string
	Payload []byte
}
