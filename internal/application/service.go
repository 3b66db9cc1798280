package application

import (
	"time"

	"github.com/shoplane/identity-service/internal/ports"
)

// Service is the authentication orchestrator. Every collaborator is an
// explicitly injected port; the service holds no package-level state.
type Service struct {
	cfg Config

	users           ports.UserRepository
	events          ports.EventStoreRepository
	processedEvents ports.ProcessedEventRepository
	loginAttempts   ports.LoginAttemptRepository

	sessions     ports.SessionStore
	deviceTrusts ports.DeviceTrustStore
	challenges   ports.MFAChallengeStore
	usedCodes    ports.UsedCodeStore
	smsWindow    ports.SMSSendWindow

	hasher  ports.PasswordHasher
	signer  ports.TokenSigner
	totp    ports.TOTPVerifier
	limiter ports.RateLimiter
	sms     ports.SMSSender

	nowFn func() time.Time
}

type Dependencies struct {
	Config Config

	Users           ports.UserRepository
	Events          ports.EventStoreRepository
	ProcessedEvents ports.ProcessedEventRepository
	LoginAttempts   ports.LoginAttemptRepository

	Sessions     ports.SessionStore
	DeviceTrusts ports.DeviceTrustStore
	Challenges   ports.MFAChallengeStore
	UsedCodes    ports.UsedCodeStore
	SMSWindow    ports.SMSSendWindow

	Hasher  ports.PasswordHasher
	Signer  ports.TokenSigner
	TOTP    ports.TOTPVerifier
	Limiter ports.RateLimiter
	SMS     ports.SMSSender
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = cfg.RefreshTokenTTL
	}
	if cfg.MaxSessionsPerUser <= 0 {
		cfg.MaxSessionsPerUser = 5
	}
	if cfg.DeviceTrustTTL <= 0 {
		cfg.DeviceTrustTTL = 30 * 24 * time.Hour
	}
	if cfg.MaxDevicesPerUser <= 0 {
		cfg.MaxDevicesPerUser = 10
	}
	if cfg.MFAChallengeTTL <= 0 {
		cfg.MFAChallengeTTL = 300 * time.Second
	}
	if cfg.MFAMaxAttempts <= 0 {
		cfg.MFAMaxAttempts = 3
	}
	if cfg.UsedCodeTTL <= 0 {
		cfg.UsedCodeTTL = 120 * time.Second
	}
	if cfg.SMSResendCooldown <= 0 {
		cfg.SMSResendCooldown = 60 * time.Second
	}
	if cfg.SMSResendWindow <= 0 {
		cfg.SMSResendWindow = time.Hour
	}
	if cfg.SMSMaxPerWindow <= 0 {
		cfg.SMSMaxPerWindow = 3
	}
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "identity-service"
	}

	return &Service{
		cfg:             cfg,
		users:           deps.Users,
		events:          deps.Events,
		processedEvents: deps.ProcessedEvents,
		loginAttempts:   deps.LoginAttempts,
		sessions:        deps.Sessions,
		deviceTrusts:    deps.DeviceTrusts,
		challenges:      deps.Challenges,
		usedCodes:       deps.UsedCodes,
		smsWindow:       deps.SMSWindow,
		hasher:          deps.Hasher,
		signer:          deps.Signer,
		totp:            deps.TOTP,
		limiter:         deps.Limiter,
		sms:             deps.SMS,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}
