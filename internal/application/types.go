package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
)

// Config carries every tunable for the authentication core. All values are
// resolved at bootstrap and passed at construction.
type Config struct {
	ServiceName string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SessionTTL         time.Duration
	MaxSessionsPerUser int

	DeviceTrustTTL    time.Duration
	MaxDevicesPerUser int

	MFAChallengeTTL time.Duration
	MFAMaxAttempts  int
	UsedCodeTTL     time.Duration

	SMSResendCooldown time.Duration
	SMSResendWindow   time.Duration
	SMSMaxPerWindow   int

	LockoutThreshold int
	LockoutDuration  time.Duration

	// PasswordResetURL points at the account-recovery surface owned by the CRUD
	// side of the identity service; it is echoed on 423 responses.
	PasswordResetURL string
}

const (
	StatusSuccess     = "SUCCESS"
	StatusMFARequired = "MFA_REQUIRED"
)

type SigninRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	RememberMe        bool   `json:"rememberMe"`
	DeviceFingerprint string `json:"deviceFingerprint"`

	DeviceTrustToken string `json:"-"`
	IPAddress        string `json:"-"`
	UserAgent        string `json:"-"`
}

// IssuedSession is the cookie-bearing half of a success response. The HTTP
// adapter turns it into Set-Cookie headers; tokens are never in the JSON body.
type IssuedSession struct {
	UserID           uuid.UUID
	SessionID        string
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  int64
	RefreshExpiresIn int64
	DeviceTrustID    string
}

type SigninResponse struct {
	Status      string    `json:"status"`
	UserID      uuid.UUID `json:"userId,omitempty"`
	MFAToken    string    `json:"mfaToken,omitempty"`
	MFAMethods  []string  `json:"mfaMethods,omitempty"`
	MaskedPhone string    `json:"maskedPhone,omitempty"`
	ExpiresIn   int64     `json:"expiresIn"`

	Session *IssuedSession `json:"-"`
}

type MFAVerifyRequest struct {
	MFAToken       string `json:"mfaToken"`
	Code           string `json:"code"`
	Method         string `json:"method"`
	RememberDevice bool   `json:"rememberDevice"`

	DeviceFingerprint string `json:"deviceFingerprint"`
	IPAddress         string `json:"-"`
	UserAgent         string `json:"-"`
}

type MFAResendRequest struct {
	MFAToken string `json:"mfaToken"`
	Method   string `json:"method"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type MFAResendResponse struct {
	MFAToken          string `json:"mfaToken"`
	MaskedPhone       string `json:"maskedPhone"`
	ExpiresIn         int64  `json:"expiresIn"`
	ResendAvailableIn int64  `json:"resendAvailableIn"`
}

type MFASetupRequest struct {
	Action      string `json:"action"`
	Method      string `json:"method"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type MFASetupResponse struct {
	Method      string `json:"method"`
	Enabled     bool   `json:"enabled"`
	Secret      string `json:"secret,omitempty"`
	MaskedPhone string `json:"maskedPhone,omitempty"`
}

type SessionItem struct {
	SessionID string    `json:"sessionId"`
	DeviceID  string    `json:"deviceId,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsCurrent bool      `json:"isCurrent"`
}

// LoginHistoryItem is one recorded signin attempt in the audit listing.
type LoginHistoryItem struct {
	AttemptAt     time.Time `json:"attemptAt"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failureReason,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
}

func toSessionItem(s domain.Session, currentSessionID string) SessionItem {
	return SessionItem{
		SessionID: s.SessionID,
		DeviceID:  s.DeviceID,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		IsCurrent: s.SessionID == currentSessionID,
	}
}
