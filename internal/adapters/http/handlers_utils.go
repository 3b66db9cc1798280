package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shoplane/identity-service/internal/domain"
)

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func readIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

// mapDomainError translates domain errors into the response contract.
// Typed errors contribute the extra payload fields clients render from
// (countdowns, remaining attempts, retry hints).
func (h *Handler) mapDomainError(err error) (int, string, string, map[string]any) {
	var lockedErr *domain.AccountLockedError
	if errors.As(err, &lockedErr) {
		details := map[string]any{
			"lockedUntil":             lockedErr.LockedUntil.Format(time.RFC3339),
			"lockoutRemainingSeconds": lockedErr.RemainingSeconds(time.Now().UTC()),
		}
		if h.passwordResetURL != "" {
			details["passwordResetUrl"] = h.passwordResetURL
		}
		return http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked", details
	}

	var codeErr *domain.InvalidCodeError
	if errors.As(err, &codeErr) {
		return http.StatusUnauthorized, "INVALID_CODE", "invalid verification code", map[string]any{
			"remainingAttempts": codeErr.RemainingAttempts,
			"reason":            codeErr.Reason,
		}
	}

	var cooldownErr *domain.ResendCooldownError
	if errors.As(err, &cooldownErr) {
		seconds := int64(cooldownErr.AvailableIn.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return http.StatusTooManyRequests, "RESEND_COOLDOWN", "resend not yet available", map[string]any{
			"resendAvailableIn": seconds,
			"retryAfter":        seconds,
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked", nil
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests", map[string]any{
			"retryAfter": 60,
		}
	case errors.Is(err, domain.ErrInvalidMFAToken):
		return http.StatusUnauthorized, "INVALID_MFA_TOKEN", "invalid or consumed mfa token", nil
	case errors.Is(err, domain.ErrMFAExpired):
		return http.StatusUnauthorized, "MFA_EXPIRED", "mfa challenge expired", nil
	case errors.Is(err, domain.ErrMaxAttemptsExceeded):
		return http.StatusUnauthorized, "MAX_ATTEMPTS_EXCEEDED", "mfa attempts exhausted", map[string]any{
			"remainingAttempts": 0,
		}
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "SESSION_EXPIRED", "session expired", nil
	case errors.Is(err, domain.ErrSessionRevoked):
		return http.StatusUnauthorized, "SESSION_REVOKED", "session revoked", nil
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", nil
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error(), nil
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found", nil
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, "NOT_IMPLEMENTED", err.Error(), nil
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil
	}
}

func (h *Handler) writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg, details := h.mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg, details)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}
