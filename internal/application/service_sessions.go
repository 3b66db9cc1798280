package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

// Refresh rotates the refresh token for an existing session. Presenting a
// superseded token from the same family is treated as theft: the whole
// session is revoked.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (IssuedSession, error) {
	claims, err := s.signer.ParseRefreshToken(strings.TrimSpace(rawRefreshToken))
	if err != nil {
		return IssuedSession{}, domain.ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return IssuedSession{}, err
	}
	if session == nil {
		return IssuedSession{}, domain.ErrSessionExpired
	}
	if session.TokenFamily != claims.TokenFamily {
		return IssuedSession{}, domain.ErrUnauthorized
	}

	if session.RefreshID != claims.RefreshID {
		// Reuse of an already-rotated token: kill the family.
		if err := s.sessions.Delete(ctx, session.SessionID); err != nil {
			return IssuedSession{}, err
		}
		event, msg := s.buildEvent(
			domain.EventSessionRevoked,
			domain.AggregateSession,
			session.SessionID,
			uuid.NewString(),
			"",
			map[string]any{
				"sessionId": session.SessionID,
				"userId":    session.UserID.String(),
				"reason":    domain.RevokeReasonTokenReuse,
				"revokedAt": s.nowFn(),
			},
		)
		_ = s.appendEvent(ctx, event, msg, false)
		slog.Default().WarnContext(ctx, "refresh token reuse detected",
			"service", s.cfg.ServiceName,
			"module", "application",
			"layer", "application",
			"operation", "refresh",
			"outcome", "blocked",
			"metric_name", "auth.refresh.reuse_detected",
			"metric_value", 1,
			"session_id", session.SessionID,
			"user_id", session.UserID,
		)
		return IssuedSession{}, domain.ErrSessionRevoked
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return IssuedSession{}, err
	}
	if !user.CanAuthenticate() || user.IsLocked(s.nowFn()) {
		return IssuedSession{}, domain.ErrUnauthorized
	}

	pair, err := s.signer.CreateTokens(user, session.SessionID, session.TokenFamily)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("create tokens: %w", err)
	}
	if err := s.sessions.UpdateRefreshID(ctx, session.SessionID, pair.RefreshID); err != nil {
		return IssuedSession{}, err
	}

	return IssuedSession{
		UserID:           user.UserID,
		SessionID:        session.SessionID,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresIn:  pair.AccessExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
	}, nil
}

// Logout deletes the session named by the validated access token.
func (s *Service) Logout(ctx context.Context, claims ports.AccessClaims) error {
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	if session.UserID != claims.UserID {
		return domain.ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, session.SessionID); err != nil {
		return err
	}

	event, msg := s.buildEvent(
		domain.EventSessionRevoked,
		domain.AggregateSession,
		session.SessionID,
		uuid.NewString(),
		"",
		map[string]any{
			"sessionId": session.SessionID,
			"userId":    session.UserID.String(),
			"reason":    domain.RevokeReasonLogout,
			"revokedAt": s.nowFn(),
		},
	)
	return s.appendEvent(ctx, event, msg, false)
}

// ListSessions returns the caller's live sessions, current one flagged.
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID, currentSessionID string) ([]SessionItem, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]SessionItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toSessionItem(session, currentSessionID))
	}
	return items, nil
}

// RevokeSession deletes one of the caller's sessions by id.
func (s *Service) RevokeSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return domain.ErrNotFound
	}
	if session.UserID != userID {
		return domain.ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	event, msg := s.buildEvent(
		domain.EventSessionRevoked,
		domain.AggregateSession,
		sessionID,
		uuid.NewString(),
		"",
		map[string]any{
			"sessionId": sessionID,
			"userId":    userID.String(),
			"reason":    domain.RevokeReasonUserAction,
			"revokedAt": s.nowFn(),
		},
	)
	return s.appendEvent(ctx, event, msg, false)
}

// ListLoginHistory pages through the caller's recorded signin attempts,
// newest first. A zero since means no time filter.
func (s *Service) ListLoginHistory(ctx context.Context, userID uuid.UUID, limit, offset int, since time.Time, status string) ([]LoginHistoryItem, error) {
	var cutoff *time.Time
	if !since.IsZero() {
		cutoff = &since
	}
	attempts, err := s.loginAttempts.ListByUser(ctx, userID, limit, offset, cutoff, status)
	if err != nil {
		return nil, err
	}
	items := make([]LoginHistoryItem, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, LoginHistoryItem{
			AttemptAt:     attempt.AttemptAt,
			IPAddress:     attempt.IPAddress,
			Status:        attempt.Status,
			FailureReason: attempt.FailureReason,
			UserAgent:     attempt.UserAgent,
		})
	}
	return items, nil
}

// ValidateToken parses an access token and confirms its session still exists.
// Any failure is reported as a single unauthorized error.
func (s *Service) ValidateToken(ctx context.Context, rawAccessToken string) (ports.AccessClaims, error) {
	claims, err := s.signer.ParseAccessToken(strings.TrimSpace(rawAccessToken))
	if err != nil {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return ports.AccessClaims{}, err
	}
	if session == nil || session.UserID != claims.UserID {
		return ports.AccessClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}
