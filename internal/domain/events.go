package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Aggregate types group event streams per owning entity.
const (
	AggregateAccount = "account"
	AggregateSession = "session"
	AggregateMFA     = "mfa"
)

// Event types produced by the authentication core.
const (
	EventAccountLocked            = "identity.account.locked"
	EventAccountUnlocked          = "identity.account.unlocked"
	EventSessionCreated           = "identity.session.created"
	EventSessionRevoked           = "identity.session.revoked"
	EventMFAChallengeCreated      = "identity.mfa.challenge_created"
	EventMFAVerificationFailed    = "identity.mfa.verification_failed"
	EventMFAVerificationCompleted = "identity.mfa.verification_completed"
	EventDeviceTrusted            = "identity.mfa.device_trusted"
)

// Event types consumed from the registration/verification CRUD surface.
const (
	EventUserRegistered = "identity.account.registered"
	EventUserActivated  = "identity.account.activated"
)

// Lockout reasons carried on EventAccountLocked.
const (
	LockReasonExcessiveFailedAttempts = "EXCESSIVE_FAILED_ATTEMPTS"
	LockReasonAdminAction             = "ADMIN_ACTION"
	LockReasonSuspiciousActivity      = "SUSPICIOUS_ACTIVITY"
)

// Failure reasons carried on EventMFAVerificationFailed.
const (
	MFAFailInvalidCode         = "INVALID_CODE"
	MFAFailCodeAlreadyUsed     = "CODE_ALREADY_USED"
	MFAFailChallengeExpired    = "CHALLENGE_EXPIRED"
	MFAFailInvalidToken        = "INVALID_TOKEN"
	MFAFailMaxAttemptsExceeded = "MAX_ATTEMPTS_EXCEEDED"
)

// Session revocation reasons.
const (
	RevokeReasonLogout     = "LOGOUT"
	RevokeReasonTokenReuse = "TOKEN_REUSE"
	RevokeReasonUserAction = "USER_ACTION"
)

// Event is the append-only domain event envelope. CausationID links an effect
// back to the event or request that triggered it; CorrelationID spans a whole
// request chain. Envelopes are immutable once appended.
type Event struct {
	EventID       uuid.UUID       `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	Timestamp     time.Time       `json:"timestamp"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	CorrelationID string          `json:"correlationId"`
	CausationID   string          `json:"causationId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// TopicFor maps an aggregate type to its Kafka topic.
// One topic per aggregate keeps consumer ordering guarantees per entity stream.
func TopicFor(aggregateType string) string {
	switch aggregateType {
	case AggregateSession:
		return "identity.session.events"
	case AggregateMFA:
		return "identity.mfa.events"
	default:
		return "identity.account.events"
	}
}
