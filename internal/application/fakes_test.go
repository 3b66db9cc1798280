package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

// ---- user repository ----

type fakeUserRepo struct {
	mu           sync.Mutex
	users        map[uuid.UUID]domain.User
	resetCalls   int
	lockEvents   []domain.Event
	activateErrs int
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]domain.User{}}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) RecordAuthFailure(_ context.Context, params ports.RecordAuthFailureParams) (ports.AuthFailureResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[params.UserID]
	if !ok {
		return ports.AuthFailureResult{}, domain.ErrNotFound
	}
	u.FailedAttempts++
	result := ports.AuthFailureResult{FailedAttempts: u.FailedAttempts}
	if u.FailedAttempts >= params.Threshold && u.Status != domain.StatusLocked {
		until := params.Now.Add(params.LockoutDuration)
		u.Status = domain.StatusLocked
		u.LockedUntil = &until
		result.Locked = true
		result.LockedUntil = &until
		if params.BuildLockEvent != nil {
			event, _ := params.BuildLockEvent(u.FailedAttempts, until)
			r.lockEvents = append(r.lockEvents, event)
		}
	}
	r.users[params.UserID] = u
	return result, nil
}

func (r *fakeUserRepo) ResetFailedAttempts(_ context.Context, userID uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.FailedAttempts = 0
	u.LockedUntil = nil
	if u.Status == domain.StatusLocked {
		u.Status = domain.StatusActive
	}
	r.users[userID] = u
	r.resetCalls++
	return nil
}

func (r *fakeUserRepo) CreateFromRegistration(_ context.Context, params ports.CreateUserParams) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[params.UserID]; ok {
		return domain.User{}, domain.ErrConflict
	}
	for _, u := range r.users {
		if u.Email == params.Email {
			return domain.User{}, domain.ErrConflict
		}
	}
	u := domain.User{
		UserID:       params.UserID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Name:         params.Name,
		Status:       domain.StatusPendingVerification,
		Roles:        []string{"customer"},
		CreatedAt:    params.RegisteredAt,
	}
	r.users[params.UserID] = u
	return u, nil
}

func (r *fakeUserRepo) Activate(_ context.Context, userID uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activateErrs > 0 {
		r.activateErrs--
		return errors.New("connection reset")
	}
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = domain.StatusActive
	u.EmailVerified = true
	r.users[userID] = u
	return nil
}

func (r *fakeUserRepo) SetMFAEnrollment(_ context.Context, params ports.MFAEnrollmentParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[params.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	switch params.Method {
	case domain.MethodTOTP:
		u.TOTPEnabled = params.Enabled
		u.TOTPSecret = params.TOTPSecret
	case domain.MethodSMS:
		if params.Enabled {
			u.PhoneNumber = params.PhoneNumber
		} else {
			u.PhoneNumber = ""
		}
	}
	u.MFAEnabled = u.TOTPEnabled || u.PhoneNumber != ""
	r.users[params.UserID] = u
	return nil
}

// ---- event store ----

type fakeEventStore struct {
	mu     sync.Mutex
	events []domain.Event
	msgs   []ports.OutboxMessage
	fail   bool
}

func (s *fakeEventStore) AppendWithOutbox(_ context.Context, event domain.Event, msg ports.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("event store unavailable")
	}
	s.events = append(s.events, event)
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeEventStore) ListByAggregate(_ context.Context, aggregateID string, _ int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) ListByCorrelation(_ context.Context, correlationID string, _ int) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) byType(eventType string) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// ---- processed events ----

type fakeProcessedEvents struct {
	mu   sync.Mutex
	seen map[uuid.UUID]bool
}

func newFakeProcessedEvents() *fakeProcessedEvents {
	return &fakeProcessedEvents{seen: map[uuid.UUID]bool{}}
}

func (p *fakeProcessedEvents) HasProcessed(_ context.Context, eventID uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen[eventID], nil
}

func (p *fakeProcessedEvents) MarkProcessed(_ context.Context, eventID uuid.UUID, _ string, _ time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[eventID] {
		return false, nil
	}
	p.seen[eventID] = true
	return true, nil
}

// ---- login attempts ----

type fakeLoginAttempts struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (l *fakeLoginAttempts) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	attempt.ID = int64(len(l.attempts) + 1)
	l.attempts = append(l.attempts, attempt)
	return nil
}

func (l *fakeLoginAttempts) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.LoginAttempt
	for i := len(l.attempts) - 1; i >= 0; i-- {
		a := l.attempts[i]
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		if since != nil && a.AttemptAt.Before(*since) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *fakeLoginAttempts) last() (domain.LoginAttempt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.attempts) == 0 {
		return domain.LoginAttempt{}, false
	}
	return l.attempts[len(l.attempts)-1], true
}

// ---- session store ----

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	order    map[uuid.UUID][]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]domain.Session{}, order: map[uuid.UUID][]string{}}
}

func (s *fakeSessionStore) Create(_ context.Context, session domain.Session, _ time.Duration, maxPerUser int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	s.order[session.UserID] = append(s.order[session.UserID], session.SessionID)

	var evicted []string
	for maxPerUser > 0 && len(s.order[session.UserID]) > maxPerUser {
		oldest := s.order[session.UserID][0]
		s.order[session.UserID] = s.order[session.UserID][1:]
		delete(s.sessions, oldest)
		evicted = append(evicted, oldest)
	}
	return evicted, nil
}

func (s *fakeSessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := session
	return &out, nil
}

func (s *fakeSessionStore) UpdateRefreshID(_ context.Context, sessionID, refreshID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	session.RefreshID = refreshID
	s.sessions[sessionID] = session
	return nil
}

func (s *fakeSessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(s.sessions, sessionID)
	ids := s.order[session.UserID]
	for i, id := range ids {
		if id == sessionID {
			s.order[session.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeSessionStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Session
	for _, id := range s.order[userID] {
		if session, ok := s.sessions[id]; ok {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *fakeSessionStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.order[userID])
	for _, id := range s.order[userID] {
		delete(s.sessions, id)
	}
	delete(s.order, userID)
	return n, nil
}

// ---- device trust store ----

type fakeDeviceTrustStore struct {
	mu     sync.Mutex
	trusts map[string]domain.DeviceTrust
	order  map[uuid.UUID][]string
}

func newFakeDeviceTrustStore() *fakeDeviceTrustStore {
	return &fakeDeviceTrustStore{trusts: map[string]domain.DeviceTrust{}, order: map[uuid.UUID][]string{}}
}

func (s *fakeDeviceTrustStore) Put(_ context.Context, trust domain.DeviceTrust, _ time.Duration, maxPerUser int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trusts[trust.TrustID] = trust
	s.order[trust.UserID] = append(s.order[trust.UserID], trust.TrustID)

	var pruned []string
	for maxPerUser > 0 && len(s.order[trust.UserID]) > maxPerUser {
		oldest := s.order[trust.UserID][0]
		s.order[trust.UserID] = s.order[trust.UserID][1:]
		delete(s.trusts, oldest)
		pruned = append(pruned, oldest)
	}
	return pruned, nil
}

func (s *fakeDeviceTrustStore) Get(_ context.Context, trustID string) (*domain.DeviceTrust, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trust, ok := s.trusts[trustID]
	if !ok {
		return nil, nil
	}
	out := trust
	return &out, nil
}

func (s *fakeDeviceTrustStore) Touch(_ context.Context, trustID string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trust, ok := s.trusts[trustID]
	if !ok {
		return nil
	}
	trust.LastUsedAt = usedAt
	s.trusts[trustID] = trust
	return nil
}

func (s *fakeDeviceTrustStore) Revoke(_ context.Context, trustID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trust, ok := s.trusts[trustID]
	if !ok {
		return nil
	}
	delete(s.trusts, trustID)
	ids := s.order[trust.UserID]
	for i, id := range ids {
		if id == trustID {
			s.order[trust.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeDeviceTrustStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.DeviceTrust, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeviceTrust
	for _, id := range s.order[userID] {
		if trust, ok := s.trusts[id]; ok {
			out = append(out, trust)
		}
	}
	return out, nil
}

// ---- mfa challenge store ----

type fakeChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]domain.MFAChallenge
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{challenges: map[string]domain.MFAChallenge{}}
}

func (s *fakeChallengeStore) Put(_ context.Context, challenge domain.MFAChallenge, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.ChallengeID] = challenge
	return nil
}

func (s *fakeChallengeStore) Get(_ context.Context, challengeID string) (*domain.MFAChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[challengeID]
	if !ok {
		return nil, nil
	}
	out := challenge
	return &out, nil
}

func (s *fakeChallengeStore) IncrementAttempts(_ context.Context, challengeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[challengeID]
	if !ok {
		return 0, fmt.Errorf("challenge gone: %w", domain.ErrNotFound)
	}
	challenge.Attempts++
	s.challenges[challengeID] = challenge
	return challenge.Attempts, nil
}

func (s *fakeChallengeStore) RecordSMSSend(_ context.Context, challengeID, codeHash string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[challengeID]
	if !ok {
		return fmt.Errorf("challenge gone: %w", domain.ErrNotFound)
	}
	challenge.SMSCodeHash = codeHash
	challenge.LastSentAt = &sentAt
	s.challenges[challengeID] = challenge
	return nil
}

func (s *fakeChallengeStore) Delete(_ context.Context, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeID)
	return nil
}

// ---- used code store ----

type fakeUsedCodeStore struct {
	mu   sync.Mutex
	used map[string]bool
}

func newFakeUsedCodeStore() *fakeUsedCodeStore {
	return &fakeUsedCodeStore{used: map[string]bool{}}
}

func (s *fakeUsedCodeStore) MarkUsed(_ context.Context, userID uuid.UUID, codeHash string, timeStep int64, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%d:%s", userID, timeStep, codeHash)
	if s.used[key] {
		return false, nil
	}
	s.used[key] = true
	return true, nil
}

// ---- sms send window ----

type fakeSMSWindow struct {
	mu    sync.Mutex
	sends map[uuid.UUID][]time.Time
}

func newFakeSMSWindow() *fakeSMSWindow {
	return &fakeSMSWindow{sends: map[uuid.UUID][]time.Time{}}
}

func (s *fakeSMSWindow) RecordSend(_ context.Context, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends[userID] = append(s.sends[userID], at)
	return nil
}

func (s *fakeSMSWindow) CountSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, at := range s.sends[userID] {
		if at.After(since) {
			n++
		}
	}
	return n, nil
}

// ---- password hasher ----

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

// ---- token signer ----

type fakeSigner struct {
	mu      sync.Mutex
	counter int
	access  map[string]ports.AccessClaims
	refresh map[string]ports.RefreshClaims
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{access: map[string]ports.AccessClaims{}, refresh: map[string]ports.RefreshClaims{}}
}

func (f *fakeSigner) CreateTokens(user domain.User, sessionID, tokenFamily string) (ports.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	now := time.Now().UTC()
	accessToken := fmt.Sprintf("access_%d", f.counter)
	refreshToken := fmt.Sprintf("refresh_%d", f.counter)
	refreshID := fmt.Sprintf("jti_%d", f.counter)

	f.access[accessToken] = ports.AccessClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		Roles:     user.Roles,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
	f.refresh[refreshToken] = ports.RefreshClaims{
		UserID:      user.UserID,
		SessionID:   sessionID,
		TokenFamily: tokenFamily,
		RefreshID:   refreshID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(7 * 24 * time.Hour),
	}
	return ports.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresIn:  900,
		RefreshExpiresIn: 604800,
		RefreshID:        refreshID,
		TokenFamily:      tokenFamily,
	}, nil
}

func (f *fakeSigner) ParseAccessToken(raw string) (ports.AccessClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.access[raw]
	if !ok {
		return ports.AccessClaims{}, fmt.Errorf("unknown access token")
	}
	return claims, nil
}

func (f *fakeSigner) ParseRefreshToken(raw string) (ports.RefreshClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.refresh[raw]
	if !ok {
		return ports.RefreshClaims{}, fmt.Errorf("unknown refresh token")
	}
	return claims, nil
}

func (f *fakeSigner) RotateKey(time.Time) (string, error) { return "key-test", nil }

func (f *fakeSigner) PublicJWKs() ([]map[string]any, error) { return nil, nil }

// ---- totp verifier ----

// fakeTOTP accepts one configured code at one step. HashCode stays
// deterministic so SMS hashes computed during challenge creation match.
type fakeTOTP struct {
	validCode string
	step      int64
}

func (f *fakeTOTP) GenerateSecret() (string, error) { return "JBSWY3DPEHPK3PXP", nil }

func (f *fakeTOTP) VerifyCode(_, code string) (int64, bool) {
	if strings.TrimSpace(code) == f.validCode {
		return f.step, true
	}
	return 0, false
}

func (f *fakeTOTP) HashCode(code string) string { return "h:" + strings.TrimSpace(code) }

func (f *fakeTOTP) CurrentStep(time.Time) int64 { return f.step }

// ---- rate limiter ----

type fakeLimiter struct {
	mu     sync.Mutex
	allow  bool
	resets []string
}

func (l *fakeLimiter) TryAcquire(string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allow
}

func (l *fakeLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, key)
}

// ---- sms sender ----

type fakeSMSSender struct {
	mu    sync.Mutex
	sends []string
	codes []string
	fail  bool
}

func (s *fakeSMSSender) SendCode(_ context.Context, phoneNumber, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("sms provider unavailable")
	}
	s.sends = append(s.sends, phoneNumber)
	s.codes = append(s.codes, code)
	return nil
}

func (s *fakeSMSSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

// ---- harness ----

type testEnv struct {
	svc       *Service
	users     *fakeUserRepo
	events    *fakeEventStore
	processed *fakeProcessedEvents
	attempts  *fakeLoginAttempts
	sessions  *fakeSessionStore
	trusts    *fakeDeviceTrustStore
	mfa       *fakeChallengeStore
	usedCodes *fakeUsedCodeStore
	smsWindow *fakeSMSWindow
	signer    *fakeSigner
	totp      *fakeTOTP
	limiter   *fakeLimiter
	sms       *fakeSMSSender
	now       time.Time
}

func newTestEnv(users ...domain.User) *testEnv {
	env := &testEnv{
		users:     newFakeUserRepo(users...),
		events:    &fakeEventStore{},
		processed: newFakeProcessedEvents(),
		attempts:  &fakeLoginAttempts{},
		sessions:  newFakeSessionStore(),
		trusts:    newFakeDeviceTrustStore(),
		mfa:       newFakeChallengeStore(),
		usedCodes: newFakeUsedCodeStore(),
		smsWindow: newFakeSMSWindow(),
		signer:    newFakeSigner(),
		totp:      &fakeTOTP{validCode: "111111", step: 100},
		limiter:   &fakeLimiter{allow: true},
		sms:       &fakeSMSSender{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(Dependencies{
		Config: Config{
			LockoutThreshold: 3,
			LockoutDuration:  30 * time.Minute,
			MFAMaxAttempts:   3,
			SMSMaxPerWindow:  3,
			PasswordResetURL: "https://www.shoplane.io/account/recover",
		},
		Users:           env.users,
		Events:          env.events,
		ProcessedEvents: env.processed,
		LoginAttempts:   env.attempts,
		Sessions:        env.sessions,
		DeviceTrusts:    env.trusts,
		Challenges:      env.mfa,
		UsedCodes:       env.usedCodes,
		SMSWindow:       env.smsWindow,
		Hasher:          fakeHasher{},
		Signer:          env.signer,
		TOTP:            env.totp,
		Limiter:         env.limiter,
		SMS:             env.sms,
	})
	env.svc.nowFn = func() time.Time { return env.now }
	return env
}

func activeUser(email string) domain.User {
	return domain.User{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: "hashed:Correct-Horse7Battery",
		Name:         "Shopper",
		Status:       domain.StatusActive,
		Roles:        []string{"customer"},
	}
}

func totpUser(email string) domain.User {
	u := activeUser(email)
	u.MFAEnabled = true
	u.TOTPEnabled = true
	u.TOTPSecret = "JBSWY3DPEHPK3PXP"
	return u
}

func smsUser(email string) domain.User {
	u := activeUser(email)
	u.MFAEnabled = true
	u.PhoneNumber = "+15551234567"
	return u
}

func signinReq(email string) SigninRequest {
	return SigninRequest{
		Email:     email,
		Password:  "Correct-Horse7Battery",
		IPAddress: "10.0.0.1",
		UserAgent: "Mozilla/5.0",
	}
}
