package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
)

// SessionStore keeps login sessions in a TTL-capable key/value store.
// Create enforces the per-user concurrency cap by evicting oldest sessions
// first (FIFO on created-at) and returns the evicted ids for audit events.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session, ttl time.Duration, maxPerUser int) (evicted []string, err error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	UpdateRefreshID(ctx context.Context, sessionID, refreshID string) error
	Delete(ctx context.Context, sessionID string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Session, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// DeviceTrustStore keeps "remember this device" records with natural expiry.
// Put prunes beyond maxPerUser, oldest first, and returns pruned trust ids.
type DeviceTrustStore interface {
	Put(ctx context.Context, trust domain.DeviceTrust, ttl time.Duration, maxPerUser int) (pruned []string, err error)
	Get(ctx context.Context, trustID string) (*domain.DeviceTrust, error)
	Touch(ctx context.Context, trustID string, usedAt time.Time) error
	Revoke(ctx context.Context, trustID string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.DeviceTrust, error)
}

// MFAChallengeStore persists short-lived second-factor challenges.
// IncrementAttempts must be atomic in the store: two racing verification
// attempts must observe distinct counter values so at most maxAttempts ever
// pass the budget check.
type MFAChallengeStore interface {
	Put(ctx context.Context, challenge domain.MFAChallenge, ttl time.Duration) error
	Get(ctx context.Context, challengeID string) (*domain.MFAChallenge, error)
	IncrementAttempts(ctx context.Context, challengeID string) (int, error)
	RecordSMSSend(ctx context.Context, challengeID, codeHash string, sentAt time.Time) error
	Delete(ctx context.Context, challengeID string) error
}

// UsedCodeStore records consumed TOTP codes for replay prevention.
// MarkUsed returns false when the (user, timeStep, codeHash) tuple was
// already consumed; records expire once outside any valid verification window.
type UsedCodeStore interface {
	MarkUsed(ctx context.Context, userID uuid.UUID, codeHash string, timeStep int64, ttl time.Duration) (bool, error)
}

// SMSSendWindow tracks timestamped SMS sends per user for the sliding-window
// resend limit, independent of any single challenge's lifetime.
type SMSSendWindow interface {
	RecordSend(ctx context.Context, userID uuid.UUID, at time.Time) error
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}
