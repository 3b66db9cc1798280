package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

// startMFAChallenge mints a fresh challenge after a successful credential
// check. Verification resolves the user by id again, so the challenge holds
// no account snapshot that could go stale against a profile change.
func (s *Service) startMFAChallenge(ctx context.Context, user domain.User, requested domain.MFAMethod, ipAddress, userAgent string) (SigninResponse, error) {
	method, err := preferredMethod(user, requested)
	if err != nil {
		return SigninResponse{}, err
	}

	now := s.nowFn()
	challenge := domain.MFAChallenge{
		ChallengeID: newChallengeID(),
		UserID:      user.UserID,
		Method:      method,
		MaxAttempts: s.cfg.MFAMaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.MFAChallengeTTL),
	}

	maskedPhone := ""
	if method == domain.MethodSMS {
		if err := s.checkSMSSendBudget(ctx, user.UserID, now); err != nil {
			return SigninResponse{}, err
		}
		code := randomDigits(6)
		challenge.SMSCodeHash = s.totp.HashCode(code)
		challenge.LastSentAt = &now
		if err := s.sms.SendCode(ctx, user.PhoneNumber, code); err != nil {
			return SigninResponse{}, fmt.Errorf("send sms code: %w", err)
		}
		if err := s.smsWindow.RecordSend(ctx, user.UserID, now); err != nil {
			return SigninResponse{}, err
		}
		maskedPhone = ports.MaskPhone(user.PhoneNumber)
	}

	if err := s.challenges.Put(ctx, challenge, s.cfg.MFAChallengeTTL); err != nil {
		return SigninResponse{}, fmt.Errorf("store mfa challenge: %w", err)
	}

	event, msg := s.buildEvent(
		domain.EventMFAChallengeCreated,
		domain.AggregateMFA,
		challenge.ChallengeID,
		uuid.NewString(),
		"",
		map[string]any{
			"challengeId": challenge.ChallengeID,
			"userId":      user.UserID.String(),
			"method":      string(method),
			"ipAddress":   ipAddress,
			"userAgent":   userAgent,
			"expiresAt":   challenge.ExpiresAt,
		},
	)
	if err := s.appendEvent(ctx, event, msg, true); err != nil {
		return SigninResponse{}, err
	}

	return SigninResponse{
		Status:      StatusMFARequired,
		MFAToken:    challenge.ChallengeID,
		MFAMethods:  availableMethods(user),
		MaskedPhone: maskedPhone,
		ExpiresIn:   int64(s.cfg.MFAChallengeTTL.Seconds()),
	}, nil
}

// VerifyMFA checks one code against a pending challenge. Expiry and attempt
// budget are rejected before any code comparison; every comparison attempt
// increments the counter exactly once via the store's atomic increment.
func (s *Service) VerifyMFA(ctx context.Context, req MFAVerifyRequest) (SigninResponse, error) {
	token := strings.TrimSpace(req.MFAToken)
	if token == "" || !strings.HasPrefix(token, "mfa_") {
		return SigninResponse{}, domain.ErrInvalidMFAToken
	}

	challenge, err := s.challenges.Get(ctx, token)
	if err != nil {
		return SigninResponse{}, err
	}
	if challenge == nil {
		s.appendMFAFailure(ctx, token, nil, domain.MFAFailInvalidToken)
		return SigninResponse{}, domain.ErrInvalidMFAToken
	}

	now := s.nowFn()
	if challenge.IsExpired(now) {
		_ = s.challenges.Delete(ctx, token)
		s.appendMFAFailure(ctx, token, &challenge.UserID, domain.MFAFailChallengeExpired)
		return SigninResponse{}, domain.ErrMFAExpired
	}
	if challenge.HasExceededMaxAttempts() {
		s.appendMFAFailure(ctx, token, &challenge.UserID, domain.MFAFailMaxAttemptsExceeded)
		return SigninResponse{}, domain.ErrMaxAttemptsExceeded
	}

	if raw := strings.TrimSpace(req.Method); raw != "" {
		method, ok := ports.NormalizeMethod(raw)
		if !ok {
			return SigninResponse{}, fmt.Errorf("%w: unsupported method %q", domain.ErrInvalidInput, raw)
		}
		if method != challenge.Method {
			// Switching methods mints a fresh challenge via resend.
			return SigninResponse{}, fmt.Errorf("%w: challenge method is %s", domain.ErrInvalidInput, challenge.Method)
		}
	}

	attempts, err := s.challenges.IncrementAttempts(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SigninResponse{}, domain.ErrInvalidMFAToken
		}
		return SigninResponse{}, err
	}
	if attempts > challenge.MaxAttempts {
		s.appendMFAFailure(ctx, token, &challenge.UserID, domain.MFAFailMaxAttemptsExceeded)
		return SigninResponse{}, domain.ErrMaxAttemptsExceeded
	}
	remaining := challenge.MaxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}

	user, err := s.users.GetByID(ctx, challenge.UserID)
	if err != nil {
		return SigninResponse{}, err
	}

	switch challenge.Method {
	case domain.MethodTOTP:
		if err := s.verifyTOTPAttempt(ctx, user, token, req.Code, remaining); err != nil {
			return SigninResponse{}, err
		}
	case domain.MethodSMS:
		if err := s.verifySMSAttempt(ctx, challenge, token, req.Code, remaining); err != nil {
			return SigninResponse{}, err
		}
	default:
		return SigninResponse{}, fmt.Errorf("%w: method %s", domain.ErrNotImplemented, challenge.Method)
	}

	// Consume before issuing tokens; the challenge must never verify twice.
	if err := s.challenges.Delete(ctx, token); err != nil {
		return SigninResponse{}, err
	}

	correlationID := uuid.NewString()
	issued, err := s.issueSession(ctx, user, sessionContext{
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		DeviceFingerprint: req.DeviceFingerprint,
		RememberDevice:    req.RememberDevice,
		CorrelationID:     correlationID,
		CausationID:       token,
	})
	if err != nil {
		return SigninResponse{}, err
	}

	event, msg := s.buildEvent(
		domain.EventMFAVerificationCompleted,
		domain.AggregateMFA,
		token,
		correlationID,
		"",
		map[string]any{
			"challengeId": token,
			"userId":      user.UserID.String(),
			"method":      string(challenge.Method),
			"sessionId":   issued.SessionID,
			"verifiedAt":  s.nowFn(),
		},
	)
	_ = s.appendEvent(ctx, event, msg, false)

	return SigninResponse{
		Status:    StatusSuccess,
		UserID:    user.UserID,
		ExpiresIn: issued.AccessExpiresIn,
		Session:   &issued,
	}, nil
}

func (s *Service) verifyTOTPAttempt(ctx context.Context, user domain.User, token, code string, remaining int) error {
	step, ok := s.totp.VerifyCode(user.TOTPSecret, code)
	if !ok {
		s.appendMFAFailure(ctx, token, &user.UserID, domain.MFAFailInvalidCode)
		return &domain.InvalidCodeError{Reason: domain.MFAFailInvalidCode, RemainingAttempts: remaining}
	}

	fresh, err := s.usedCodes.MarkUsed(ctx, user.UserID, s.totp.HashCode(code), step, s.cfg.UsedCodeTTL)
	if err != nil {
		return err
	}
	if !fresh {
		s.appendMFAFailure(ctx, token, &user.UserID, domain.MFAFailCodeAlreadyUsed)
		return &domain.InvalidCodeError{Reason: domain.MFAFailCodeAlreadyUsed, RemainingAttempts: remaining}
	}
	return nil
}

func (s *Service) verifySMSAttempt(ctx context.Context, challenge *domain.MFAChallenge, token, code string, remaining int) error {
	hash := s.totp.HashCode(code)
	if challenge.SMSCodeHash == "" ||
		subtle.ConstantTimeCompare([]byte(hash), []byte(challenge.SMSCodeHash)) != 1 {
		s.appendMFAFailure(ctx, token, &challenge.UserID, domain.MFAFailInvalidCode)
		return &domain.InvalidCodeError{Reason: domain.MFAFailInvalidCode, RemainingAttempts: remaining}
	}
	return nil
}

// ResendMFA re-sends the SMS code, or mints a fresh SMS challenge when the
// client switches from TOTP mid-flow. Cooldown and the hourly sliding window
// are enforced before any send.
func (s *Service) ResendMFA(ctx context.Context, req MFAResendRequest) (MFAResendResponse, error) {
	token := strings.TrimSpace(req.MFAToken)
	if token == "" || !strings.HasPrefix(token, "mfa_") {
		return MFAResendResponse{}, domain.ErrInvalidMFAToken
	}
	challenge, err := s.challenges.Get(ctx, token)
	if err != nil {
		return MFAResendResponse{}, err
	}
	if challenge == nil {
		return MFAResendResponse{}, domain.ErrInvalidMFAToken
	}

	now := s.nowFn()
	if challenge.IsExpired(now) {
		_ = s.challenges.Delete(ctx, token)
		return MFAResendResponse{}, domain.ErrMFAExpired
	}

	method := domain.MethodSMS
	if raw := strings.TrimSpace(req.Method); raw != "" {
		normalized, ok := ports.NormalizeMethod(raw)
		if !ok {
			return MFAResendResponse{}, fmt.Errorf("%w: unsupported method %q", domain.ErrInvalidInput, raw)
		}
		method = normalized
	}
	if method != domain.MethodSMS {
		return MFAResendResponse{}, fmt.Errorf("%w: resend applies to SMS only", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, challenge.UserID)
	if err != nil {
		return MFAResendResponse{}, err
	}
	if user.PhoneNumber == "" {
		return MFAResendResponse{}, fmt.Errorf("%w: no phone number enrolled", domain.ErrInvalidInput)
	}

	if challenge.LastSentAt != nil {
		nextAt := challenge.LastSentAt.Add(s.cfg.SMSResendCooldown)
		if now.Before(nextAt) {
			return MFAResendResponse{}, &domain.ResendCooldownError{AvailableIn: nextAt.Sub(now)}
		}
	}
	if err := s.checkSMSSendBudget(ctx, challenge.UserID, now); err != nil {
		return MFAResendResponse{}, err
	}

	// Method switch mints a fresh challenge; the TOTP one is invalidated.
	if challenge.Method != domain.MethodSMS {
		_ = s.challenges.Delete(ctx, token)
		resp, err := s.startMFAChallenge(ctx, user, domain.MethodSMS, req.IPAddress, req.UserAgent)
		if err != nil {
			return MFAResendResponse{}, err
		}
		return MFAResendResponse{
			MFAToken:          resp.MFAToken,
			MaskedPhone:       resp.MaskedPhone,
			ExpiresIn:         resp.ExpiresIn,
			ResendAvailableIn: int64(s.cfg.SMSResendCooldown.Seconds()),
		}, nil
	}

	code := randomDigits(6)
	if err := s.sms.SendCode(ctx, user.PhoneNumber, code); err != nil {
		return MFAResendResponse{}, fmt.Errorf("send sms code: %w", err)
	}
	if err := s.challenges.RecordSMSSend(ctx, token, s.totp.HashCode(code), now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return MFAResendResponse{}, domain.ErrInvalidMFAToken
		}
		return MFAResendResponse{}, err
	}
	if err := s.smsWindow.RecordSend(ctx, challenge.UserID, now); err != nil {
		return MFAResendResponse{}, err
	}

	return MFAResendResponse{
		MFAToken:          token,
		MaskedPhone:       ports.MaskPhone(user.PhoneNumber),
		ExpiresIn:         int64(challenge.ExpiresAt.Sub(now).Seconds()),
		ResendAvailableIn: int64(s.cfg.SMSResendCooldown.Seconds()),
	}, nil
}

// SetupMFA enables or disables a second factor for an authenticated user.
func (s *Service) SetupMFA(ctx context.Context, userID uuid.UUID, req MFASetupRequest) (MFASetupResponse, error) {
	method, ok := ports.NormalizeMethod(req.Method)
	if !ok {
		return MFASetupResponse{}, fmt.Errorf("%w: unsupported method %q", domain.ErrInvalidInput, req.Method)
	}
	if method == domain.MethodEmail {
		return MFASetupResponse{}, fmt.Errorf("%w: email second factor", domain.ErrNotImplemented)
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	now := s.nowFn()

	switch action {
	case "enable":
		params := ports.MFAEnrollmentParams{
			UserID:  userID,
			Method:  method,
			Enabled: true,
			Now:     now,
		}
		resp := MFASetupResponse{Method: string(method), Enabled: true}
		switch method {
		case domain.MethodTOTP:
			secret, err := s.totp.GenerateSecret()
			if err != nil {
				return MFASetupResponse{}, err
			}
			params.TOTPSecret = secret
			resp.Secret = secret
		case domain.MethodSMS:
			phone := strings.TrimSpace(req.PhoneNumber)
			if phone == "" {
				return MFASetupResponse{}, fmt.Errorf("%w: phone number is required", domain.ErrInvalidInput)
			}
			params.PhoneNumber = phone
			resp.MaskedPhone = ports.MaskPhone(phone)
		}
		if err := s.users.SetMFAEnrollment(ctx, params); err != nil {
			return MFASetupResponse{}, err
		}
		return resp, nil

	case "disable":
		if err := s.users.SetMFAEnrollment(ctx, ports.MFAEnrollmentParams{
			UserID:  userID,
			Method:  method,
			Enabled: false,
			Now:     now,
		}); err != nil {
			return MFASetupResponse{}, err
		}
		return MFASetupResponse{Method: string(method), Enabled: false}, nil

	default:
		return MFASetupResponse{}, fmt.Errorf("%w: action must be enable or disable", domain.ErrInvalidInput)
	}
}

func (s *Service) checkSMSSendBudget(ctx context.Context, userID uuid.UUID, now time.Time) error {
	count, err := s.smsWindow.CountSince(ctx, userID, now.Add(-s.cfg.SMSResendWindow))
	if err != nil {
		return err
	}
	if count >= s.cfg.SMSMaxPerWindow {
		return fmt.Errorf("%w: sms send budget exhausted", domain.ErrRateLimited)
	}
	return nil
}

func (s *Service) appendMFAFailure(ctx context.Context, challengeID string, userID *uuid.UUID, reason string) {
	payload := map[string]any{
		"challengeId": challengeID,
		"reason":      reason,
		"failedAt":    s.nowFn(),
	}
	if userID != nil {
		payload["userId"] = userID.String()
	}
	event, msg := s.buildEvent(
		domain.EventMFAVerificationFailed,
		domain.AggregateMFA,
		challengeID,
		uuid.NewString(),
		"",
		payload,
	)
	_ = s.appendEvent(ctx, event, msg, false)
}
