package ports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
)

// PasswordHasher hashes and verifies credentials. The encoded hash is
// self-describing so verification needs no external parameter state.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// TokenPair is the result of a successful token issuance.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  int64
	RefreshExpiresIn int64
	RefreshID        string
	TokenFamily      string
}

// AccessClaims is the validated content of an access token.
type AccessClaims struct {
	UserID    uuid.UUID
	Email     string
	Roles     []string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	KeyID     string
}

// RefreshClaims is the validated content of a refresh token.
type RefreshClaims struct {
	UserID      uuid.UUID
	SessionID   string
	TokenFamily string
	RefreshID   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// TokenSigner issues and validates RS256 tokens. Rotation installs a new
// signing key while prior public keys stay available for verification until
// every token they signed has expired.
type TokenSigner interface {
	CreateTokens(user domain.User, sessionID, tokenFamily string) (TokenPair, error)
	ParseAccessToken(raw string) (AccessClaims, error)
	ParseRefreshToken(raw string) (RefreshClaims, error)
	RotateKey(now time.Time) (string, error)
	PublicJWKs() ([]map[string]any, error)
}

// TOTPVerifier implements RFC 6238 code generation and checking. VerifyCode
// returns the time step the code matched at so replay records bind to the
// code's own step.
type TOTPVerifier interface {
	GenerateSecret() (string, error)
	VerifyCode(secret, code string) (step int64, ok bool)
	HashCode(code string) string
	CurrentStep(now time.Time) int64
}

// RateLimiter is a non-blocking per-key token bucket. TryAcquire never waits;
// callers respond with a rate-limit error on rejection.
type RateLimiter interface {
	TryAcquire(key string) bool
	Reset(key string)
}

// SMSSender delivers one-time codes through the SMS provider.
type SMSSender interface {
	SendCode(ctx context.Context, phoneNumber, code string) error
}

// MaskPhone renders the only phone representation ever returned to clients.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return "***-***-****"
	}
	return "***-***-" + string(digits[len(digits)-4:])
}

// NormalizeMethod canonicalizes client-supplied MFA method names.
func NormalizeMethod(raw string) (domain.MFAMethod, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TOTP", "AUTHENTICATOR_APP":
		return domain.MethodTOTP, true
	case "SMS":
		return domain.MethodSMS, true
	case "EMAIL":
		return domain.MethodEmail, true
	default:
		return "", false
	}
}
