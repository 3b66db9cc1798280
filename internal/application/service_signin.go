package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

// Signin is the single entry point for credential authentication. Control
// flow: rate limit, user lookup, lockout check, password verify, device-trust
// bypass or MFA challenge, otherwise direct session issuance.
func (s *Service) Signin(ctx context.Context, req SigninRequest) (SigninResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return SigninResponse{}, err
	}
	if strings.TrimSpace(req.Password) == "" {
		return SigninResponse{}, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		if !s.limiter.TryAcquire("signin:ip:" + ip) {
			return SigninResponse{}, domain.ErrRateLimited
		}
	}

	now := s.nowFn()
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown address must be indistinguishable from a wrong password.
			s.recordLoginAttempt(ctx, nil, req, "FAILED", "UNKNOWN_USER")
			return SigninResponse{}, domain.ErrInvalidCredentials
		}
		return SigninResponse{}, err
	}

	if user.IsLocked(now) {
		lockedUntil := now
		if user.LockedUntil != nil {
			lockedUntil = *user.LockedUntil
		}
		s.recordLoginAttempt(ctx, &user.UserID, req, "FAILED", "ACCOUNT_LOCKED")
		return SigninResponse{}, &domain.AccountLockedError{LockedUntil: lockedUntil}
	}
	if !user.CanAuthenticate() {
		// Suspended/deactivated/deleted accounts report generic failure.
		s.recordLoginAttempt(ctx, &user.UserID, req, "FAILED", "STATUS_"+string(user.Status))
		return SigninResponse{}, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return SigninResponse{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return SigninResponse{}, s.handleAuthFailure(ctx, user, req)
	}

	if user.FailedAttempts > 0 || user.Status == domain.StatusLocked {
		if err := s.users.ResetFailedAttempts(ctx, user.UserID, now); err != nil {
			return SigninResponse{}, err
		}
	}

	if user.MFAEnabled {
		if s.deviceTrustBypass(ctx, user, req, now) {
			return s.succeedSignin(ctx, user, req)
		}
		return s.startMFAChallenge(ctx, user, "", req.IPAddress, req.UserAgent)
	}

	return s.succeedSignin(ctx, user, req)
}

// handleAuthFailure increments the failure counter transactionally. The lock
// event is built inside the user repository's transaction so the persisted
// counter and the event payload cannot diverge.
func (s *Service) handleAuthFailure(ctx context.Context, user domain.User, req SigninRequest) error {
	result, err := s.users.RecordAuthFailure(ctx, ports.RecordAuthFailureParams{
		UserID:          user.UserID,
		Now:             s.nowFn(),
		Threshold:       s.cfg.LockoutThreshold,
		LockoutDuration: s.cfg.LockoutDuration,
		BuildLockEvent: func(failedAttempts int, lockedUntil time.Time) (domain.Event, ports.OutboxMessage) {
			return s.buildEvent(
				domain.EventAccountLocked,
				domain.AggregateAccount,
				user.UserID.String(),
				uuid.NewString(),
				"",
				map[string]any{
					"userId":         user.UserID.String(),
					"reason":         domain.LockReasonExcessiveFailedAttempts,
					"failedAttempts": failedAttempts,
					"lockedUntil":    lockedUntil,
					"ipAddress":      req.IPAddress,
					"userAgent":      req.UserAgent,
				},
			)
		},
	})
	if err != nil {
		return err
	}

	s.recordLoginAttempt(ctx, &user.UserID, req, "FAILED", "INVALID_PASSWORD")

	if result.Locked && result.LockedUntil != nil {
		slog.Default().WarnContext(ctx, "account locked after failed attempts",
			"service", s.cfg.ServiceName,
			"module", "application",
			"layer", "application",
			"operation", "signin",
			"outcome", "blocked",
			"metric_name", "auth.signin.lockout",
			"metric_value", 1,
			"user_id", user.UserID,
			"failed_attempts", result.FailedAttempts,
			"locked_until", result.LockedUntil,
		)
		return &domain.AccountLockedError{LockedUntil: *result.LockedUntil}
	}
	return domain.ErrInvalidCredentials
}

// deviceTrustBypass reports whether a presented trust token belongs to this
// user, is unexpired, and matches on both fingerprint hash and exact user
// agent. IP is deliberately not part of the predicate.
func (s *Service) deviceTrustBypass(ctx context.Context, user domain.User, req SigninRequest, now time.Time) bool {
	token := strings.TrimSpace(req.DeviceTrustToken)
	if token == "" || strings.TrimSpace(req.DeviceFingerprint) == "" {
		return false
	}
	trust, err := s.deviceTrusts.Get(ctx, token)
	if err != nil || trust == nil {
		return false
	}
	if trust.UserID != user.UserID || trust.IsExpired(now) {
		return false
	}
	if !trust.Matches(hashFingerprint(req.DeviceFingerprint), req.UserAgent) {
		return false
	}
	if err := s.deviceTrusts.Touch(ctx, trust.TrustID, now); err != nil {
		slog.Default().WarnContext(ctx, "device trust touch failed",
			"service", s.cfg.ServiceName,
			"module", "application",
			"layer", "application",
			"operation", "signin",
			"outcome", "warning",
			"trust_id", trust.TrustID,
			"error", err,
		)
	}
	return true
}

// succeedSignin issues the session for a fully authenticated user and resets
// the caller's rate-limit bucket.
func (s *Service) succeedSignin(ctx context.Context, user domain.User, req SigninRequest) (SigninResponse, error) {
	issued, err := s.issueSession(ctx, user, sessionContext{
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		DeviceFingerprint: req.DeviceFingerprint,
		RememberDevice:    req.RememberMe,
		CorrelationID:     uuid.NewString(),
	})
	if err != nil {
		return SigninResponse{}, err
	}

	s.recordLoginAttempt(ctx, &user.UserID, req, "SUCCESS", "")
	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		s.limiter.Reset("signin:ip:" + ip)
	}

	return SigninResponse{
		Status:    StatusSuccess,
		UserID:    user.UserID,
		ExpiresIn: issued.AccessExpiresIn,
		Session:   &issued,
	}, nil
}

// sessionContext carries the request metadata an issued session records.
type sessionContext struct {
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
	RememberDevice    bool
	CorrelationID     string
	CausationID       string
}

// issueSession creates the session record, signs the token pair, optionally
// mints a device trust, and appends the lifecycle events.
func (s *Service) issueSession(ctx context.Context, user domain.User, sc sessionContext) (IssuedSession, error) {
	now := s.nowFn()
	sessionID := newSessionID()
	tokenFamily := uuid.NewString()

	pair, err := s.signer.CreateTokens(user, sessionID, tokenFamily)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("create tokens: %w", err)
	}

	session := domain.Session{
		SessionID:   sessionID,
		UserID:      user.UserID,
		DeviceID:    strings.TrimSpace(sc.DeviceFingerprint),
		IPAddress:   sc.IPAddress,
		UserAgent:   sc.UserAgent,
		TokenFamily: tokenFamily,
		RefreshID:   pair.RefreshID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
	}
	evicted, err := s.sessions.Create(ctx, session, s.cfg.SessionTTL, s.cfg.MaxSessionsPerUser)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("create session: %w", err)
	}
	for _, evictedID := range evicted {
		event, msg := s.buildEvent(
			domain.EventSessionRevoked,
			domain.AggregateSession,
			evictedID,
			sc.CorrelationID,
			sc.CausationID,
			map[string]any{
				"sessionId": evictedID,
				"userId":    user.UserID.String(),
				"reason":    domain.RevokeReasonUserAction,
				"revokedAt": now,
			},
		)
		_ = s.appendEvent(ctx, event, msg, false)
	}

	issued := IssuedSession{
		UserID:           user.UserID,
		SessionID:        sessionID,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresIn:  pair.AccessExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
	}

	if sc.RememberDevice && strings.TrimSpace(sc.DeviceFingerprint) != "" {
		trustID, err := s.createDeviceTrust(ctx, user, sc, now)
		if err != nil {
			return IssuedSession{}, err
		}
		issued.DeviceTrustID = trustID
	}

	event, msg := s.buildEvent(
		domain.EventSessionCreated,
		domain.AggregateSession,
		sessionID,
		sc.CorrelationID,
		sc.CausationID,
		map[string]any{
			"sessionId": sessionID,
			"userId":    user.UserID.String(),
			"ipAddress": sc.IPAddress,
			"userAgent": sc.UserAgent,
			"createdAt": now,
			"expiresAt": session.ExpiresAt,
		},
	)
	if err := s.appendEvent(ctx, event, msg, true); err != nil {
		return IssuedSession{}, err
	}
	return issued, nil
}

func (s *Service) createDeviceTrust(ctx context.Context, user domain.User, sc sessionContext, now time.Time) (string, error) {
	trust := domain.DeviceTrust{
		TrustID:         newTrustID(),
		UserID:          user.UserID,
		FingerprintHash: hashFingerprint(sc.DeviceFingerprint),
		UserAgent:       sc.UserAgent,
		IPAddress:       sc.IPAddress,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.DeviceTrustTTL),
		LastUsedAt:      now,
	}
	pruned, err := s.deviceTrusts.Put(ctx, trust, s.cfg.DeviceTrustTTL, s.cfg.MaxDevicesPerUser)
	if err != nil {
		return "", fmt.Errorf("create device trust: %w", err)
	}
	if len(pruned) > 0 {
		slog.Default().InfoContext(ctx, "oldest device trusts pruned",
			"service", s.cfg.ServiceName,
			"module", "application",
			"layer", "application",
			"operation", "create_device_trust",
			"outcome", "success",
			"user_id", user.UserID,
			"pruned_count", len(pruned),
		)
	}

	event, msg := s.buildEvent(
		domain.EventDeviceTrusted,
		domain.AggregateMFA,
		trust.TrustID,
		sc.CorrelationID,
		sc.CausationID,
		map[string]any{
			"trustId":   trust.TrustID,
			"userId":    user.UserID.String(),
			"userAgent": sc.UserAgent,
			"ipAddress": sc.IPAddress,
			"expiresAt": trust.ExpiresAt,
		},
	)
	_ = s.appendEvent(ctx, event, msg, false)
	return trust.TrustID, nil
}
