package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

const eventVersion = 1

// buildEvent assembles the envelope and its outbox twin. The pair shares an
// event id; the log row is the source of truth, the outbox row drives delivery.
func (s *Service) buildEvent(eventType, aggregateType, aggregateID, correlationID, causationID string, payload any) (domain.Event, ports.OutboxMessage) {
	now := s.nowFn()
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(`{}`)
	}
	event := domain.Event{
		EventID:       uuid.New(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     now,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		CorrelationID: correlationID,
		CausationID:   causationID,
		Payload:       raw,
	}
	envelope, err := json.Marshal(event)
	if err != nil {
		envelope = raw
	}
	msg := ports.OutboxMessage{
		EventID:      event.EventID,
		EventType:    eventType,
		Topic:        domain.TopicFor(aggregateType),
		PartitionKey: aggregateID,
		Payload:      envelope,
		CreatedAt:    now,
	}
	return event, msg
}

// appendEvent writes event + outbox transactionally and logs on failure.
// Non-fatal callers pass fatal=false: the triggering state change already
// committed and must not be rolled back for an audit miss.
func (s *Service) appendEvent(ctx context.Context, event domain.Event, msg ports.OutboxMessage, fatal bool) error {
	err := s.events.AppendWithOutbox(ctx, event, msg)
	if err == nil {
		return nil
	}
	if fatal {
		return fmt.Errorf("append event %s: %w", event.EventType, err)
	}
	slog.Default().WarnContext(ctx, "domain event append failed",
		"service", s.cfg.ServiceName,
		"module", "application",
		"layer", "application",
		"operation", "append_event",
		"outcome", "failure",
		"event_type", event.EventType,
		"aggregate_id", event.AggregateID,
		"error", err,
	)
	return nil
}

// inboundEnvelope mirrors the JSON envelope published by the registration and
// verification CRUD surface.
type inboundEnvelope struct {
	EventID       uuid.UUID       `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	Timestamp     time.Time       `json:"timestamp"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	CorrelationID string          `json:"correlationId"`
	CausationID   string          `json:"causationId"`
	Payload       json.RawMessage `json:"payload"`
}

type userRegisteredPayload struct {
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type userActivatedPayload struct {
	UserID      uuid.UUID `json:"userId"`
	ActivatedAt time.Time `json:"activatedAt"`
}

// HandleInboundEvent consumes one broker message. Delivery is at-least-once:
// handlers check the processed-event marker up front, mutate, and mark only
// after the mutation committed. A failure at any point leaves the marker
// absent, so the broker's redelivery retries the projection; duplicates from
// the retry window are absorbed by the projection itself.
func (s *Service) HandleInboundEvent(ctx context.Context, msg ports.InboundMessage) error {
	var envelope inboundEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return fmt.Errorf("%w: malformed event envelope", domain.ErrInvalidInput)
	}
	if envelope.EventID == uuid.Nil {
		return fmt.Errorf("%w: event id is required", domain.ErrInvalidInput)
	}

	switch envelope.EventType {
	case domain.EventUserRegistered:
		return s.handleUserRegistered(ctx, envelope)
	case domain.EventUserActivated:
		return s.handleUserActivated(ctx, envelope)
	default:
		slog.Default().DebugContext(ctx, "inbound event ignored",
			"service", s.cfg.ServiceName,
			"module", "application",
			"layer", "application",
			"operation", "handle_inbound_event",
			"outcome", "skipped",
			"event_type", envelope.EventType,
			"topic", msg.Topic,
		)
		return nil
	}
}

func (s *Service) handleUserRegistered(ctx context.Context, envelope inboundEnvelope) error {
	seen, err := s.processedEvents.HasProcessed(ctx, envelope.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	var payload userRegisteredPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return fmt.Errorf("%w: malformed UserRegistered payload", domain.ErrInvalidInput)
	}
	email, err := normalizeEmail(payload.Email)
	if err != nil {
		return err
	}

	_, err = s.users.CreateFromRegistration(ctx, ports.CreateUserParams{
		UserID:       payload.UserID,
		Email:        email,
		PasswordHash: payload.PasswordHash,
		Name:         payload.Name,
		RegisteredAt: payload.RegisteredAt,
	})
	// A conflict means the row was already projected by an earlier partial
	// run that failed before marking. Fall through and mark now.
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return err
	}

	_, err = s.processedEvents.MarkProcessed(ctx, envelope.EventID, envelope.EventType, s.nowFn())
	return err
}

func (s *Service) handleUserActivated(ctx context.Context, envelope inboundEnvelope) error {
	seen, err := s.processedEvents.HasProcessed(ctx, envelope.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	var payload userActivatedPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return fmt.Errorf("%w: malformed UserActivated payload", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	if err := s.users.Activate(ctx, payload.UserID, now); err != nil {
		return err
	}
	if err := s.users.ResetFailedAttempts(ctx, payload.UserID, now); err != nil {
		return err
	}

	event, outboxMsg := s.buildEvent(
		domain.EventAccountUnlocked,
		domain.AggregateAccount,
		payload.UserID.String(),
		envelope.CorrelationID,
		envelope.EventID.String(),
		map[string]any{
			"userId":     payload.UserID.String(),
			"unlockedAt": now,
			"reason":     "ACCOUNT_ACTIVATED",
		},
	)
	if err := s.appendEvent(ctx, event, outboxMsg, true); err != nil {
		return err
	}

	// Marking last keeps the event eligible for redelivery until every write
	// above has committed.
	_, err = s.processedEvents.MarkProcessed(ctx, envelope.EventID, envelope.EventType, s.nowFn())
	return err
}
