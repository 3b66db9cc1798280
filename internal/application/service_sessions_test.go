package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

// signIn runs a password-only signin and returns the issued session.
func signIn(t *testing.T, env *testEnv, email string) IssuedSession {
	t.Helper()
	res, err := env.svc.Signin(context.Background(), signinReq(email))
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}
	if res.Session == nil {
		t.Fatalf("Status = %q, want an issued session", res.Status)
	}
	return *res.Session
}

func TestRefreshRotatesTokens(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	env := newTestEnv(user)
	issued := signIn(t, env, "shopper@example.com")
	ctx := context.Background()

	rotated, err := env.svc.Refresh(ctx, issued.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.SessionID != issued.SessionID {
		t.Errorf("SessionID = %q, want same session %q", rotated.SessionID, issued.SessionID)
	}
	if rotated.RefreshToken == issued.RefreshToken || rotated.AccessToken == issued.AccessToken {
		t.Error("rotation must mint new tokens")
	}

	session, _ := env.sessions.Get(ctx, issued.SessionID)
	claims, err := env.signer.ParseRefreshToken(rotated.RefreshToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if session.RefreshID != claims.RefreshID {
		t.Error("session must track the newest refresh id")
	}
}

func TestRefreshReuseRevokesSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(activeUser("shopper@example.com"))
	issued := signIn(t, env, "shopper@example.com")
	ctx := context.Background()

	if _, err := env.svc.Refresh(ctx, issued.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	// Presenting the superseded token kills the whole family.
	_, err := env.svc.Refresh(ctx, issued.RefreshToken)
	if !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("err = %v, want ErrSessionRevoked", err)
	}

	session, _ := env.sessions.Get(ctx, issued.SessionID)
	if session != nil {
		t.Error("session must be deleted on reuse detection")
	}
	revoked := env.events.byType(domain.EventSessionRevoked)
	if len(revoked) != 1 {
		t.Fatalf("revoked events = %d, want 1", len(revoked))
	}
}

func TestRefreshFailures(t *testing.T) {
	t.Parallel()

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(activeUser("shopper@example.com"))
		if _, err := env.svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("session gone", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(activeUser("shopper@example.com"))
		issued := signIn(t, env, "shopper@example.com")
		if err := env.sessions.Delete(context.Background(), issued.SessionID); err != nil {
			t.Fatal(err)
		}
		if _, err := env.svc.Refresh(context.Background(), issued.RefreshToken); !errors.Is(err, domain.ErrSessionExpired) {
			t.Fatalf("err = %v, want ErrSessionExpired", err)
		}
	})

	t.Run("user locked since issuance", func(t *testing.T) {
		t.Parallel()
		user := activeUser("shopper@example.com")
		env := newTestEnv(user)
		issued := signIn(t, env, "shopper@example.com")

		until := env.now.Add(30 * time.Minute)
		locked := env.users.users[user.UserID]
		locked.Status = domain.StatusLocked
		locked.LockedUntil = &until
		env.users.users[user.UserID] = locked

		if _, err := env.svc.Refresh(context.Background(), issued.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	})
}

func TestLogoutDeletesSession(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	env := newTestEnv(user)
	issued := signIn(t, env, "shopper@example.com")
	ctx := context.Background()

	claims, err := env.svc.ValidateToken(ctx, issued.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if err := env.svc.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	session, _ := env.sessions.Get(ctx, issued.SessionID)
	if session != nil {
		t.Error("session must be gone after logout")
	}
	if got := env.events.byType(domain.EventSessionRevoked); len(got) != 1 {
		t.Errorf("revoked events = %d, want 1", len(got))
	}

	// Logging out an already-gone session is a no-op.
	if err := env.svc.Logout(ctx, claims); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	env := newTestEnv(user)
	issued := signIn(t, env, "shopper@example.com")
	ctx := context.Background()

	claims, err := env.svc.ValidateToken(ctx, issued.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != user.UserID || claims.SessionID != issued.SessionID {
		t.Errorf("claims = {%s %s}", claims.UserID, claims.SessionID)
	}

	if _, err := env.svc.ValidateToken(ctx, "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("garbage token: err = %v, want ErrUnauthorized", err)
	}

	// A valid signature over a dead session is unauthorized too.
	if err := env.sessions.Delete(ctx, issued.SessionID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.ValidateToken(ctx, issued.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("dead session: err = %v, want ErrUnauthorized", err)
	}
}

func TestListSessionsFlagsCurrent(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	env := newTestEnv(user)
	signIn(t, env, "shopper@example.com")
	second := signIn(t, env, "shopper@example.com")

	items, err := env.svc.ListSessions(context.Background(), user.UserID, second.SessionID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("sessions = %d, want 2", len(items))
	}
	for _, item := range items {
		want := item.SessionID == second.SessionID
		if item.IsCurrent != want {
			t.Errorf("session %s: IsCurrent = %v, want %v", item.SessionID, item.IsCurrent, want)
		}
	}
}

func TestRevokeSession(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	other := activeUser("other@example.com")
	env := newTestEnv(user, other)
	issued := signIn(t, env, "shopper@example.com")
	ctx := context.Background()

	if err := env.svc.RevokeSession(ctx, other.UserID, issued.SessionID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("foreign revoke: err = %v, want ErrUnauthorized", err)
	}
	if err := env.svc.RevokeSession(ctx, user.UserID, "sess_unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown session: err = %v, want ErrNotFound", err)
	}

	if err := env.svc.RevokeSession(ctx, user.UserID, issued.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if session, _ := env.sessions.Get(ctx, issued.SessionID); session != nil {
		t.Error("session must be gone after revoke")
	}
}

func TestListLoginHistory(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	env := newTestEnv(user)
	ctx := context.Background()

	wrong := signinReq("shopper@example.com")
	wrong.Password = "wrong-password"
	_, _ = env.svc.Signin(ctx, wrong)
	signIn(t, env, "shopper@example.com")

	items, err := env.svc.ListLoginHistory(ctx, user.UserID, 50, 0, time.Time{}, "")
	if err != nil {
		t.Fatalf("ListLoginHistory: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	// Newest first.
	if items[0].Status != "SUCCESS" || items[1].Status != "FAILED" {
		t.Errorf("order = [%s %s], want [SUCCESS FAILED]", items[0].Status, items[1].Status)
	}
	if items[1].FailureReason != "INVALID_PASSWORD" {
		t.Errorf("FailureReason = %q", items[1].FailureReason)
	}

	failed, err := env.svc.ListLoginHistory(ctx, user.UserID, 50, 0, time.Time{}, "FAILED")
	if err != nil {
		t.Fatalf("filtered history: %v", err)
	}
	if len(failed) != 1 || failed[0].Status != "FAILED" {
		t.Fatalf("filtered = %+v, want one FAILED row", failed)
	}

	cutoff := env.now.Add(time.Minute)
	none, err := env.svc.ListLoginHistory(ctx, user.UserID, 50, 0, cutoff, "")
	if err != nil {
		t.Fatalf("future cutoff: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("items after future cutoff = %d, want 0", len(none))
	}
}

func inboundEvent(t *testing.T, eventID uuid.UUID, eventType string, payload map[string]any) ports.InboundMessage {
	t.Helper()
	envelope := map[string]any{
		"eventId":       eventID,
		"eventType":     eventType,
		"eventVersion":  1,
		"timestamp":     time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		"aggregateId":   eventID.String(),
		"aggregateType": "account",
		"correlationId": uuid.NewString(),
		"payload":       payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatal(err)
	}
	return ports.InboundMessage{Topic: "identity.account.events", Payload: raw}
}

func TestHandleInboundUserRegistered(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()
	eventID := uuid.New()
	msg := inboundEvent(t, eventID, domain.EventUserRegistered, map[string]any{
		"userId":       userID,
		"email":        "New.Shopper@Example.com",
		"name":         "New Shopper",
		"passwordHash": "hashed:Correct-Horse7Battery",
		"registeredAt": time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("HandleInboundEvent: %v", err)
	}
	user, err := env.users.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("user not projected: %v", err)
	}
	if user.Email != "new.shopper@example.com" {
		t.Errorf("Email = %q, want normalized lowercase", user.Email)
	}
	if user.Status != domain.StatusPendingVerification {
		t.Errorf("Status = %q, want PENDING_VERIFICATION", user.Status)
	}

	// Redelivery of the same event id is a no-op.
	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(env.users.users) != 1 {
		t.Errorf("users = %d, want 1 after redelivery", len(env.users.users))
	}
}

func TestHandleInboundUserRegisteredAbsorbsPartialRun(t *testing.T) {
	t.Parallel()

	// An earlier delivery projected the row but failed before recording
	// the event id. The retry hits the conflict and still marks.
	user := activeUser("new.shopper@example.com")
	user.Status = domain.StatusPendingVerification
	env := newTestEnv(user)
	ctx := context.Background()

	msg := inboundEvent(t, uuid.New(), domain.EventUserRegistered, map[string]any{
		"userId":       user.UserID,
		"email":        "new.shopper@example.com",
		"name":         "New Shopper",
		"passwordHash": user.PasswordHash,
		"registeredAt": time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("retry after partial run: %v", err)
	}
	if len(env.users.users) != 1 {
		t.Fatalf("users = %d, want the existing row untouched", len(env.users.users))
	}

	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
}

func TestHandleInboundUserActivated(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	user.Status = domain.StatusPendingVerification
	user.FailedAttempts = 2
	env := newTestEnv(user)
	ctx := context.Background()

	msg := inboundEvent(t, uuid.New(), domain.EventUserActivated, map[string]any{
		"userId":      user.UserID,
		"activatedAt": time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC),
	})
	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("HandleInboundEvent: %v", err)
	}

	stored, _ := env.users.GetByID(ctx, user.UserID)
	if stored.Status != domain.StatusActive || !stored.EmailVerified {
		t.Errorf("user = {%s verified=%v}, want ACTIVE and verified", stored.Status, stored.EmailVerified)
	}
	if stored.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", stored.FailedAttempts)
	}
	if got := env.events.byType(domain.EventAccountUnlocked); len(got) != 1 {
		t.Errorf("unlocked events = %d, want 1", len(got))
	}
}

func TestHandleInboundUserActivatedRetriesAfterTransientFailure(t *testing.T) {
	t.Parallel()

	user := activeUser("shopper@example.com")
	user.Status = domain.StatusPendingVerification
	env := newTestEnv(user)
	env.users.activateErrs = 1
	ctx := context.Background()

	msg := inboundEvent(t, uuid.New(), domain.EventUserActivated, map[string]any{
		"userId":      user.UserID,
		"activatedAt": time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC),
	})

	// First delivery hits a transient repository error. The handler must
	// surface it without recording the event id as processed.
	if err := env.svc.HandleInboundEvent(ctx, msg); err == nil {
		t.Fatal("expected error from first delivery")
	}
	stored, _ := env.users.GetByID(ctx, user.UserID)
	if stored.Status != domain.StatusPendingVerification {
		t.Fatalf("Status = %q, want unchanged PENDING_VERIFICATION", stored.Status)
	}

	// Broker redelivery completes the projection.
	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	stored, _ = env.users.GetByID(ctx, user.UserID)
	if stored.Status != domain.StatusActive || !stored.EmailVerified {
		t.Errorf("user = {%s verified=%v}, want ACTIVE and verified", stored.Status, stored.EmailVerified)
	}
	if got := env.events.byType(domain.EventAccountUnlocked); len(got) != 1 {
		t.Errorf("unlocked events = %d, want 1", len(got))
	}

	// A third delivery is a pure no-op now that the id is marked.
	if err := env.svc.HandleInboundEvent(ctx, msg); err != nil {
		t.Fatalf("second redelivery: %v", err)
	}
	if got := env.events.byType(domain.EventAccountUnlocked); len(got) != 1 {
		t.Errorf("unlocked events after no-op redelivery = %d, want 1", len(got))
	}
}

func TestHandleInboundEventRejectsMalformed(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	ctx := context.Background()

	err := env.svc.HandleInboundEvent(ctx, ports.InboundMessage{Topic: "identity.account.events", Payload: []byte("{not json")})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("malformed envelope: err = %v, want ErrInvalidInput", err)
	}

	raw, _ := json.Marshal(map[string]any{"eventType": domain.EventUserRegistered})
	err = env.svc.HandleInboundEvent(ctx, ports.InboundMessage{Topic: "identity.account.events", Payload: raw})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("missing event id: err = %v, want ErrInvalidInput", err)
	}
}

func TestHandleInboundEventIgnoresUnknownTypes(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	msg := inboundEvent(t, uuid.New(), "identity.account.profile_updated", map[string]any{})
	if err := env.svc.HandleInboundEvent(context.Background(), msg); err != nil {
		t.Fatalf("unknown type must be skipped, got %v", err)
	}
	if len(env.users.users) != 0 {
		t.Error("no state change expected for ignored event types")
	}
}
