package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
)

// normalizeEmail canonicalizes and validates email format before lookup.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashFingerprint stores one-way fingerprints; the raw value never persists.
func hashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(fingerprint)))
	return hex.EncodeToString(sum[:])
}

// randomDigits returns a zero-padded random numeric code for SMS delivery.
func randomDigits(size int) string {
	if size <= 0 {
		size = 6
	}
	raw := make([]byte, 8)
	_, _ = rand.Read(raw)
	n := int(raw[0])<<24 | int(raw[1])<<16 | int(raw[2])<<8 | int(raw[3])
	if n < 0 {
		n = -n
	}
	mod := 1
	for i := 0; i < size; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", size, n%mod)
}

func newSessionID() string { return "sess_" + uuid.NewString() }

func newTrustID() string { return "trust_" + uuid.NewString() }

func newChallengeID() string { return "mfa_" + uuid.NewString() }

// recordLoginAttempt persists the audit row; persistence failures are logged,
// never surfaced to the caller.
func (s *Service) recordLoginAttempt(ctx context.Context, userID *uuid.UUID, req SigninRequest, status, reason string) {
	if s.loginAttempts == nil {
		return
	}
	if err := s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:        userID,
		AttemptAt:     s.nowFn(),
		IPAddress:     req.IPAddress,
		Status:        status,
		FailureReason: reason,
		UserAgent:     req.UserAgent,
		DeviceID:      req.DeviceFingerprint,
	}); err != nil {
		slog.Default().WarnContext(ctx, "failed to persist login attempt",
			"service", s.cfg.ServiceName,
			"module", "application",
			"layer", "application",
			"operation", "record_login_attempt",
			"outcome", "failure",
			"reason", reason,
			"error", err,
		)
	}
}

// availableMethods lists the second factors the user has enrolled,
// strongest first.
func availableMethods(user domain.User) []string {
	methods := make([]string, 0, 2)
	if user.TOTPEnabled && user.TOTPSecret != "" {
		methods = append(methods, string(domain.MethodTOTP))
	}
	if user.PhoneNumber != "" {
		methods = append(methods, string(domain.MethodSMS))
	}
	return methods
}

// preferredMethod picks the challenge method: explicit request wins, then
// TOTP, then SMS.
func preferredMethod(user domain.User, requested domain.MFAMethod) (domain.MFAMethod, error) {
	methods := availableMethods(user)
	if len(methods) == 0 {
		return "", fmt.Errorf("%w: no second factor enrolled", domain.ErrInvalidInput)
	}
	if requested != "" {
		for _, m := range methods {
			if m == string(requested) {
				return requested, nil
			}
		}
		return "", fmt.Errorf("%w: method %s not enrolled", domain.ErrInvalidInput, requested)
	}
	return domain.MFAMethod(methods[0]), nil
}
