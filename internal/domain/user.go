package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the account lifecycle state owned by the identity service.
type UserStatus string

const (
	StatusPendingVerification UserStatus = "PENDING_VERIFICATION"
	StatusActive              UserStatus = "ACTIVE"
	StatusSuspended           UserStatus = "SUSPENDED"
	StatusLocked              UserStatus = "LOCKED"
	StatusDeactivated         UserStatus = "DEACTIVATED"
	StatusDeleted             UserStatus = "DELETED"
)

// User is the canonical authentication identity aggregate.
// It keeps only auth-relevant state; profile/address data lives in the customer service.
type User struct {
	UserID         uuid.UUID
	Email          string
	PasswordHash   string
	Name           string
	Status         UserStatus
	Roles          []string
	EmailVerified  bool
	MFAEnabled     bool
	TOTPEnabled    bool
	TOTPSecret     string
	PhoneNumber    string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// IsLocked reports whether the account is inside an active lockout window.
// A LOCKED status whose window has elapsed no longer blocks authentication;
// the row transitions back on the next successful signin.
func (u User) IsLocked(now time.Time) bool {
	if u.Status != StatusLocked {
		return false
	}
	if u.LockedUntil == nil {
		return true
	}
	return u.LockedUntil.After(now)
}

// CanAuthenticate reports whether the lifecycle status permits credential checks at all.
// PENDING_VERIFICATION is allowed so first signin can prompt for email verification.
func (u User) CanAuthenticate() bool {
	switch u.Status {
	case StatusActive, StatusPendingVerification, StatusLocked:
		return true
	default:
		return false
	}
}

// Session is a login session record kept in the TTL store.
// RefreshID tracks the newest refresh token in the family so reuse of a
// superseded token is detectable.
type Session struct {
	SessionID   string    `json:"session_id"`
	UserID      uuid.UUID `json:"user_id"`
	DeviceID    string    `json:"device_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	TokenFamily string    `json:"token_family"`
	RefreshID   string    `json:"refresh_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DeviceTrust is a long-lived "remember this device" credential.
// FingerprintHash is a SHA-256 digest; the raw fingerprint is never stored.
// IPAddress is recorded for audit only and is intentionally excluded from
// Matches: mobile and VPN clients churn IPs without changing the device.
type DeviceTrust struct {
	TrustID         string    `json:"trust_id"`
	UserID          uuid.UUID `json:"user_id"`
	FingerprintHash string    `json:"fingerprint_hash"`
	UserAgent       string    `json:"user_agent"`
	IPAddress       string    `json:"ip_address"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	LastUsedAt      time.Time `json:"last_used_at"`
}

// Matches requires both the hashed fingerprint and the exact user agent to match.
func (d DeviceTrust) Matches(fingerprintHash, userAgent string) bool {
	return d.FingerprintHash == fingerprintHash && d.UserAgent == userAgent
}

func (d DeviceTrust) IsExpired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// MFAMethod is a supported second-factor delivery mechanism.
type MFAMethod string

const (
	MethodTOTP  MFAMethod = "TOTP"
	MethodSMS   MFAMethod = "SMS"
	MethodEmail MFAMethod = "EMAIL"
)

// MFAChallenge is a transient authentication-attempt record. It carries only
// the user id; verification re-fetches the user so token issuance sees the
// account's current state. SMSCodeHash is empty for TOTP challenges.
type MFAChallenge struct {
	ChallengeID string     `json:"challenge_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Method      MFAMethod  `json:"method"`
	SMSCodeHash string     `json:"sms_code_hash,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	LastSentAt  *time.Time `json:"last_sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func (c MFAChallenge) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

func (c MFAChallenge) HasExceededMaxAttempts() bool {
	return c.Attempts >= c.MaxAttempts
}

func (c MFAChallenge) RemainingAttempts() int {
	remaining := c.MaxAttempts - c.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LoginAttempt records authentication outcomes for audit and lockout forensics.
type LoginAttempt struct {
	ID            int64
	UserID        *uuid.UUID
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
	UserAgent     string
	DeviceID      string
}
