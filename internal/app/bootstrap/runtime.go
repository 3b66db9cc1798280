package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/shoplane/identity-service/internal/adapters/cache"
	eventadapter "github.com/shoplane/identity-service/internal/adapters/events"
	httpadapter "github.com/shoplane/identity-service/internal/adapters/http"
	"github.com/shoplane/identity-service/internal/adapters/notify"
	"github.com/shoplane/identity-service/internal/adapters/postgres"
	"github.com/shoplane/identity-service/internal/adapters/ratelimit"
	"github.com/shoplane/identity-service/internal/adapters/security"
	"github.com/shoplane/identity-service/internal/application"
	"github.com/shoplane/identity-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.KafkaConsumer
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping identity service authentication core",
		"http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(db)

	signer, err := security.NewKeyRing(security.TokenConfig{
		Issuer:     cfg.TokenIssuer,
		Audience:   cfg.TokenAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		KeyBits:    cfg.JWTKeyBits,
	})
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token key ring: %w", err)
	}

	hasher := security.NewArgon2Hasher(security.Argon2Config{
		MemoryKiB:   uint32(cfg.Argon2MemoryKiB),
		Iterations:  uint32(cfg.Argon2Iterations),
		Parallelism: uint8(cfg.Argon2Parallelism),
	})
	totp := security.NewTOTPEngine()
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.SigninRatePerMinute,
		Burst:             cfg.SigninRateBurst,
		MaxEntries:        cfg.SigninRateMaxKeys,
		IdleTTL:           cfg.SigninRateIdleTTL,
	})

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:        cfg.ServiceID,
			AccessTokenTTL:     cfg.AccessTokenTTL,
			RefreshTokenTTL:    cfg.RefreshTokenTTL,
			SessionTTL:         cfg.RefreshTokenTTL,
			MaxSessionsPerUser: cfg.MaxSessionsPerUser,
			DeviceTrustTTL:     cfg.DeviceTrustTTL,
			MaxDevicesPerUser:  cfg.MaxDevicesPerUser,
			MFAChallengeTTL:    cfg.MFAChallengeTTL,
			MFAMaxAttempts:     cfg.MFAMaxAttempts,
			UsedCodeTTL:        cfg.UsedCodeTTL,
			SMSResendCooldown:  cfg.SMSResendCooldown,
			SMSResendWindow:    cfg.SMSResendWindow,
			SMSMaxPerWindow:    cfg.SMSMaxPerWindow,
			LockoutThreshold:   cfg.LockoutThreshold,
			LockoutDuration:    cfg.LockoutDuration,
			PasswordResetURL:   cfg.PasswordResetURL,
		},
		Users:           repos.Users,
		Events:          repos.Events,
		ProcessedEvents: repos.ProcessedEvents,
		LoginAttempts:   repos.LoginAttempts,
		Sessions:        cacheadapter.NewRedisSessionStore(redisClient),
		DeviceTrusts:    cacheadapter.NewRedisDeviceTrustStore(redisClient),
		Challenges:      cacheadapter.NewRedisMFAChallengeStore(redisClient),
		UsedCodes:       cacheadapter.NewRedisUsedCodeStore(redisClient),
		SMSWindow:       cacheadapter.NewRedisSMSSendWindow(redisClient, cfg.SMSResendWindow),
		Hasher:          hasher,
		Signer:          signer,
		TOTP:            totp,
		Limiter:         limiter,
		SMS:             notify.NewLoggingSMSSender(logger),
	})

	handler := httpadapter.NewHandler(svc, signer, httpadapter.HandlerConfig{
		DeviceTrustMaxAge: int(cfg.DeviceTrustTTL.Seconds()),
		PasswordResetURL:  cfg.PasswordResetURL,
		ReadyFn: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(pingCtx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	var publisher ports.EventPublisher
	var publisherCloser io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			_ = lis.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		publisherCloser = kafkaPublisher
	} else {
		logger.Warn("no kafka brokers configured, outbox events go to the log only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	var consumer *eventadapter.KafkaConsumer
	if len(cfg.KafkaBrokers) > 0 && len(cfg.KafkaConsumeTopics) > 0 {
		consumer, err = eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaConsumeTopics)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			_ = lis.Close()
			return nil, fmt.Errorf("init kafka consumer: %w", err)
		}
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		consumer:   consumer,
		cleanupFn: func(ctx context.Context) {
			if publisherCloser != nil {
				_ = publisherCloser.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drives the outbox relay and, when a consumer is configured, the
// inbound event loop that keeps the auth user projection current.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outbox worker: %w", err)
		}
	}()
	if r.consumer != nil {
		go func() {
			r.logger.Info("inbound event consumer started", "topics", r.cfg.KafkaConsumeTopics)
			if err := r.runConsumer(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("event consumer: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("worker failure", "error", runErr)
	}

	if r.consumer != nil {
		_ = r.consumer.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) runConsumer(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		messages, err := r.consumer.Poll(ctx, r.cfg.ConsumerBatchSize)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Warn("poll inbound events failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		for _, msg := range messages {
			if err := r.service.HandleInboundEvent(ctx, msg); err != nil {
				r.logger.Error("handle inbound event failed", "topic", msg.Topic, "error", err)
			}
		}
	}
}
