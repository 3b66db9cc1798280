package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/ports"
)

type userModel struct {
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Email          string     `gorm:"column:email"`
	PasswordHash   string     `gorm:"column:password_hash"`
	Name           string     `gorm:"column:name"`
	Status         string     `gorm:"column:status"`
	Roles          string     `gorm:"column:roles;type:jsonb"`
	EmailVerified  bool       `gorm:"column:email_verified"`
	MFAEnabled     bool       `gorm:"column:mfa_enabled"`
	TOTPEnabled    bool       `gorm:"column:totp_enabled"`
	TOTPSecret     string     `gorm:"column:totp_secret"`
	PhoneNumber    string     `gorm:"column:phone_number"`
	FailedAttempts int        `gorm:"column:failed_attempts"`
	LockedUntil    *time.Time `gorm:"column:locked_until"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
	DeletedAt      *time.Time `gorm:"column:deleted_at"`
}

func (userModel) TableName() string { return "users" }

type authEventModel struct {
	EventID       uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType     string    `gorm:"column:event_type"`
	EventVersion  int       `gorm:"column:event_version"`
	OccurredAt    time.Time `gorm:"column:occurred_at"`
	AggregateID   string    `gorm:"column:aggregate_id"`
	AggregateType string    `gorm:"column:aggregate_type"`
	CorrelationID string    `gorm:"column:correlation_id"`
	CausationID   *string   `gorm:"column:causation_id"`
	Payload       string    `gorm:"column:payload;type:jsonb"`
}

func (authEventModel) TableName() string { return "auth_events" }

type authOutboxModel struct {
	EventID        uuid.UUID  `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	Topic          string     `gorm:"column:topic"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (authOutboxModel) TableName() string { return "auth_outbox" }

func (m authOutboxModel) record() ports.OutboxRecord {
	return ports.OutboxRecord{
		EventID:        m.EventID,
		EventType:      m.EventType,
		Topic:          m.Topic,
		PartitionKey:   m.PartitionKey,
		Payload:        []byte(m.Payload),
		RetryCount:     m.RetryCount,
		LastError:      m.LastError,
		CreatedAt:      m.CreatedAt,
		PublishedAt:    m.PublishedAt,
		LastErrorAt:    m.LastErrorAt,
		ClaimToken:     m.ClaimToken,
		ClaimUntil:     m.ClaimUntil,
		DeadLetteredAt: m.DeadLetteredAt,
	}
}

type processedEventModel struct {
	EventID     uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (processedEventModel) TableName() string { return "auth_processed_events" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	UserID        *uuid.UUID `gorm:"column:user_id"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	Status        string     `gorm:"column:status"`
	FailureReason string     `gorm:"column:failure_reason"`
	UserAgent     string     `gorm:"column:user_agent"`
	DeviceID      string     `gorm:"column:device_id"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }
