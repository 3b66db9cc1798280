package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
)

// RecordAuthFailureParams captures one failed credential check.
// BuildLockEvent runs inside the transaction, after the row-locked increment,
// so the emitted AccountLocked payload carries the authoritative counter value.
type RecordAuthFailureParams struct {
	UserID          uuid.UUID
	Now             time.Time
	Threshold       int
	LockoutDuration time.Duration
	BuildLockEvent  func(failedAttempts int, lockedUntil time.Time) (domain.Event, OutboxMessage)
}

// AuthFailureResult reports counter state after a failure was recorded.
type AuthFailureResult struct {
	FailedAttempts int
	Locked         bool
	LockedUntil    *time.Time
}

// CreateUserParams captures the auth-relevant projection of a registration event.
type CreateUserParams struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	RegisteredAt time.Time
}

// MFAEnrollmentParams mutates the user's second-factor configuration.
type MFAEnrollmentParams struct {
	UserID      uuid.UUID
	Method      domain.MFAMethod
	Enabled     bool
	TOTPSecret  string
	PhoneNumber string
	Now         time.Time
}

// UserRepository defines persistence operations for user identities.
// Failure recording is transactional so lockout transitions and their domain
// events cannot diverge under concurrent signin attempts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	RecordAuthFailure(ctx context.Context, params RecordAuthFailureParams) (AuthFailureResult, error)
	ResetFailedAttempts(ctx context.Context, userID uuid.UUID, now time.Time) error
	CreateFromRegistration(ctx context.Context, params CreateUserParams) (domain.User, error)
	Activate(ctx context.Context, userID uuid.UUID, now time.Time) error
	SetMFAEnrollment(ctx context.Context, params MFAEnrollmentParams) error
}

// OutboxMessage is the delivery-queue side of a domain event. It shares the
// event id with the event-store row but is a separate record: the log is
// immutable truth, the outbox carries mutable delivery metadata.
type OutboxMessage struct {
	EventID      uuid.UUID
	EventType    string
	Topic        string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRecord is durable outbox state including retry/error metadata.
type OutboxRecord struct {
	EventID        uuid.UUID
	EventType      string
	Topic          string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
// Rows are written only through EventStoreRepository.AppendWithOutbox, so an
// outbox entry can never exist without its event-log twin.
// Claiming uses row locks so multiple relay instances never double-publish.
type OutboxRepository interface {
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, eventID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// EventStoreRepository owns the append-only event log.
// AppendWithOutbox writes the log row and the outbox row in one transaction;
// this is the invariant that no event is lost relative to the state it describes.
type EventStoreRepository interface {
	AppendWithOutbox(ctx context.Context, event domain.Event, msg OutboxMessage) error
	ListByAggregate(ctx context.Context, aggregateID string, limit int) ([]domain.Event, error)
	ListByCorrelation(ctx context.Context, correlationID string, limit int) ([]domain.Event, error)
}

// ProcessedEventRepository tracks consumed inbound event ids so replayed
// deliveries become no-ops. Consumers check HasProcessed before projecting
// and call MarkProcessed only after the projection committed; marking first
// would turn a transient projection failure into a permanently lost event.
// MarkProcessed returns false when the id was already recorded.
type ProcessedEventRepository interface {
	HasProcessed(ctx context.Context, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, eventID uuid.UUID, eventType string, at time.Time) (bool, error)
}

// LoginAttemptRepository stores signin outcomes used for audit and lockout forensics.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error)
}
