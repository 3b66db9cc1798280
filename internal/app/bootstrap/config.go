package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the identity service
// authentication core. It merges file defaults and environment overrides to
// support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	KafkaBrokers       []string
	KafkaGroupID       string
	KafkaConsumeTopics []string

	TokenIssuer     string
	TokenAudience   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	JWTKeyBits      int

	Argon2MemoryKiB   int
	Argon2Iterations  int
	Argon2Parallelism int

	MaxSessionsPerUser int
	DeviceTrustTTL     time.Duration
	MaxDevicesPerUser  int

	MFAChallengeTTL time.Duration
	MFAMaxAttempts  int
	UsedCodeTTL     time.Duration

	SMSResendCooldown time.Duration
	SMSResendWindow   time.Duration
	SMSMaxPerWindow   int

	LockoutThreshold int
	LockoutDuration  time.Duration

	SigninRatePerMinute int
	SigninRateBurst     int
	SigninRateMaxKeys   int
	SigninRateIdleTTL   time.Duration

	PasswordResetURL string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
	ConsumerBatchSize  int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaGroupID string   `yaml:"kafka_group_id"`
		KafkaTopics  []string `yaml:"kafka_topics"`
	} `yaml:"dependencies"`
	Tokens struct {
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
	} `yaml:"tokens"`
	Auth struct {
		PasswordResetURL string `yaml:"password_reset_url"`
	} `yaml:"auth"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "identity-service",
		HTTPPort:            8080,
		GRPCPort:            9090,
		MaxDBConns:          20,
		KafkaGroupID:        "identity-service-auth",
		KafkaConsumeTopics:  []string{"identity.account.events"},
		TokenIssuer:         "https://identity.shoplane.io",
		TokenAudience:       "shoplane",
		AccessTokenTTL:      15 * time.Minute,
		RefreshTokenTTL:     7 * 24 * time.Hour,
		JWTKeyBits:          2048,
		Argon2MemoryKiB:     64 * 1024,
		Argon2Iterations:    3,
		Argon2Parallelism:   4,
		MaxSessionsPerUser:  5,
		DeviceTrustTTL:      30 * 24 * time.Hour,
		MaxDevicesPerUser:   10,
		MFAChallengeTTL:     5 * time.Minute,
		MFAMaxAttempts:      3,
		UsedCodeTTL:         2 * time.Minute,
		SMSResendCooldown:   time.Minute,
		SMSResendWindow:     time.Hour,
		SMSMaxPerWindow:     3,
		LockoutThreshold:    5,
		LockoutDuration:     30 * time.Minute,
		SigninRatePerMinute: 5,
		SigninRateBurst:     5,
		SigninRateMaxKeys:   10_000,
		SigninRateIdleTTL:   10 * time.Minute,
		OutboxPollInterval:  2 * time.Second,
		OutboxBatchSize:     100,
		OutboxClaimTTL:      30 * time.Second,
		OutboxMaxRetries:    5,
		ConsumerBatchSize:   50,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaGroupID != "" {
			cfg.KafkaGroupID = f.Dependencies.KafkaGroupID
		}
		if len(f.Dependencies.KafkaTopics) > 0 {
			cfg.KafkaConsumeTopics = f.Dependencies.KafkaTopics
		}
		if f.Tokens.Issuer != "" {
			cfg.TokenIssuer = f.Tokens.Issuer
		}
		if f.Tokens.Audience != "" {
			cfg.TokenAudience = f.Tokens.Audience
		}
		if f.Auth.PasswordResetURL != "" {
			cfg.PasswordResetURL = f.Auth.PasswordResetURL
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaGroupID = envOrDefault("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.KafkaConsumeTopics = envCSV("KAFKA_CONSUME_TOPICS", cfg.KafkaConsumeTopics)
	cfg.TokenIssuer = envOrDefault("TOKEN_ISSUER", cfg.TokenIssuer)
	cfg.TokenAudience = envOrDefault("TOKEN_AUDIENCE", cfg.TokenAudience)
	cfg.PasswordResetURL = envOrDefault("PASSWORD_RESET_URL", cfg.PasswordResetURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.JWTKeyBits = envInt("JWT_KEY_BITS", cfg.JWTKeyBits)
	cfg.Argon2MemoryKiB = envInt("ARGON2_MEMORY_KIB", cfg.Argon2MemoryKiB)
	cfg.Argon2Iterations = envInt("ARGON2_ITERATIONS", cfg.Argon2Iterations)
	cfg.Argon2Parallelism = envInt("ARGON2_PARALLELISM", cfg.Argon2Parallelism)
	cfg.MaxSessionsPerUser = envInt("MAX_SESSIONS_PER_USER", cfg.MaxSessionsPerUser)
	cfg.MaxDevicesPerUser = envInt("MAX_DEVICES_PER_USER", cfg.MaxDevicesPerUser)
	cfg.MFAMaxAttempts = envInt("MFA_MAX_ATTEMPTS", cfg.MFAMaxAttempts)
	cfg.SMSMaxPerWindow = envInt("SMS_MAX_PER_WINDOW", cfg.SMSMaxPerWindow)
	cfg.LockoutThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.LockoutThreshold)
	cfg.SigninRatePerMinute = envInt("SIGNIN_RATE_PER_MINUTE", cfg.SigninRatePerMinute)
	cfg.SigninRateBurst = envInt("SIGNIN_RATE_BURST", cfg.SigninRateBurst)
	cfg.SigninRateMaxKeys = envInt("SIGNIN_RATE_MAX_KEYS", cfg.SigninRateMaxKeys)
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.ConsumerBatchSize = envInt("CONSUMER_BATCH_SIZE", cfg.ConsumerBatchSize)

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_SECONDS", int(cfg.AccessTokenTTL.Seconds()))) * time.Second
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_SECONDS", int(cfg.RefreshTokenTTL.Seconds()))) * time.Second
	cfg.DeviceTrustTTL = time.Duration(envInt("DEVICE_TRUST_TTL_DAYS", int(cfg.DeviceTrustTTL.Hours()/24))) * 24 * time.Hour
	cfg.MFAChallengeTTL = time.Duration(envInt("MFA_CHALLENGE_TTL_SECONDS", int(cfg.MFAChallengeTTL.Seconds()))) * time.Second
	cfg.UsedCodeTTL = time.Duration(envInt("TOTP_USED_CODE_TTL_SECONDS", int(cfg.UsedCodeTTL.Seconds()))) * time.Second
	cfg.SMSResendCooldown = time.Duration(envInt("SMS_RESEND_COOLDOWN_SECONDS", int(cfg.SMSResendCooldown.Seconds()))) * time.Second
	cfg.SMSResendWindow = time.Duration(envInt("SMS_RESEND_WINDOW_SECONDS", int(cfg.SMSResendWindow.Seconds()))) * time.Second
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.SigninRateIdleTTL = time.Duration(envInt("SIGNIN_RATE_IDLE_TTL_SECONDS", int(cfg.SigninRateIdleTTL.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
