package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")
	// ErrRateLimited is returned when the per-IP token bucket is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidMFAToken covers unknown, consumed, or malformed challenge tokens.
	ErrInvalidMFAToken = errors.New("invalid mfa token")
	// ErrMFAExpired signals a challenge past its TTL.
	ErrMFAExpired = errors.New("mfa challenge expired")
	// ErrInvalidCode signals a wrong or replayed second-factor code.
	ErrInvalidCode = errors.New("invalid mfa code")
	// ErrMaxAttemptsExceeded signals a challenge whose attempt budget is spent.
	ErrMaxAttemptsExceeded = errors.New("mfa attempts exhausted")
	// ErrResendCooldown gates SMS resends between the cooldown and hourly window.
	ErrResendCooldown = errors.New("resend not yet available")

	ErrSessionRevoked = errors.New("session revoked")
	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrNotImplemented = errors.New("not implemented")
)

// AccountLockedError carries the lockout window so the HTTP layer can render
// a countdown and password-reset guidance without re-reading the user row.
type AccountLockedError struct {
	LockedUntil time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.LockedUntil.Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool { return target == ErrAccountLocked }

// RemainingSeconds returns the whole seconds left in the lockout window, never negative.
func (e *AccountLockedError) RemainingSeconds(now time.Time) int64 {
	remaining := int64(e.LockedUntil.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// InvalidCodeError reports a failed verification attempt together with the
// attempts the caller has left. Reason distinguishes wrong codes from replays.
type InvalidCodeError struct {
	Reason            string
	RemainingAttempts int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code (%s), %d attempts remaining", e.Reason, e.RemainingAttempts)
}

func (e *InvalidCodeError) Is(target error) bool { return target == ErrInvalidCode }

// ResendCooldownError tells the client when the next SMS resend becomes available.
type ResendCooldownError struct {
	AvailableIn time.Duration
}

func (e *ResendCooldownError) Error() string {
	return fmt.Sprintf("resend available in %s", e.AvailableIn)
}

func (e *ResendCooldownError) Is(target error) bool { return target == ErrResendCooldown }
