package main

import (
	"PayoutGuard/internal/adapters/eventbus"
	"PayoutGuard/internal/adapters/executor"
	"PayoutGuard/internal/adapters/httpapi"
	"PayoutGuard/internal/adapters/memory"
	"PayoutGuard/internal/adapters/metrics"
	"PayoutGuard/internal/adapters/postgres"
	"PayoutGuard/internal/adapters/redis"
	"PayoutGuard/internal/adapters/scheduler"
	"PayoutGuard/internal/adapters/security"
	"PayoutGuard/internal/adapters/telegram"
	"PayoutGuard/internal/core/ports"
	"PayoutGuard/internal/core/services"
	"PayoutGuard/internal/shared/config"
	"PayoutGuard/internal/shared/logger"
	"PayoutGuard/migrations"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stores bundles the repositories behind whichever driver is configured.
type stores struct {
	accounts ports.BankAccountRepository
	actions  ports.SensitiveActionRepository
	otps     ports.OTPRepository
	roles    ports.RoleRepository
	identity ports.IdentityRepository
	audit    ports.AuditLogStore
	close    func()
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("store_driver", cfg.StoreDriver).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize the Security Service
	keyBytes, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to decode ENCRYPTION_KEY. It must be hex-encoded.")
	}
	secSvc, err := security.NewAESService(keyBytes, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize security service")
	}

	// 4. Initialize Storage
	st, memStore := openStores(ctx, cfg, secSvc, &baseLogger)
	defer st.close()

	// 5. Notifications
	bus := eventbus.NewInMemoryEventBus(&baseLogger)
	bus.Subscribe(ports.TopicAll, eventbus.NewLogRelay(&baseLogger, isDevMode))
	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to initialize telegram bot")
		}
		bus.Subscribe(ports.TopicAll, telegram.NewRelay(api, cfg.Telegram.ChatID, &baseLogger).Handle)
		baseLogger.Info().Str("bot", api.Self.UserName).Msg("Telegram relay enabled")
	}
	notifier := eventbus.NewNotifier(bus)

	// 6. Metrics
	prom := metrics.NewPrometheus()

	// 7. Core services
	tokens := security.NewTokenIssuer()
	roleSvc := services.NewRoleService(st.roles, st.actions, cfg.Policy.Location, &baseLogger)

	bankSvc := services.NewBankAccountService(
		st.accounts, st.identity, st.actions, st.audit, notifier, tokens,
		services.BankAccountConfig{
			CoolingPeriod:   cfg.Bank.CoolingPeriod,
			ConfirmationTTL: cfg.Bank.ConfirmationTTL,
		},
		&baseLogger,
	)

	var limiter ports.OTPRateLimiter = services.NewStoreRateLimiter(st.otps, cfg.OTP.HourlyLimit, cfg.OTP.RateLimitWin)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, &baseLogger)
		if err != nil {
			baseLogger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		limiter = redis.NewOTPRateLimiter(rdb, limiter, cfg.OTP.HourlyLimit, cfg.OTP.RateLimitWin, &baseLogger)
	}

	otpSvc := services.NewOTPService(
		st.otps, limiter, security.NewBcryptHasher(0), tokens, st.audit, notifier, prom,
		services.OTPConfig{
			TTL:             cfg.OTP.TTL,
			MaxAttempts:     cfg.OTP.MaxAttempts,
			HourlyLimit:     cfg.OTP.HourlyLimit,
			CodeDigits:      cfg.OTP.CodeDigits,
			RateLimitWindow: cfg.OTP.RateLimitWin,
		},
		&baseLogger,
	)

	var payoutExecutor ports.PayoutExecutor
	if cfg.Executor.URL != "" {
		payoutExecutor = executor.NewHTTPClient(cfg.Executor.URL, cfg.Executor.Timeout, &baseLogger)
	} else {
		baseLogger.Warn().Msg("EXECUTOR_URL not set; payouts go to the simulated executor")
		payoutExecutor = executor.NewSimulated(&baseLogger)
	}

	payoutSvc := services.NewPayoutService(services.PayoutDeps{
		Actions:     st.actions,
		Authority:   roleSvc,
		Volume:      roleSvc,
		Identity:    st.identity,
		Eligibility: bankSvc,
		OTP:         otpSvc,
		Executor:    payoutExecutor,
		Notifier:    notifier,
		Audit:       st.audit,
		Metrics:     prom,
	}, services.PayoutPolicy{
		DualAuthThreshold:      cfg.Policy.DualAuthThreshold,
		DelayThreshold:         cfg.Policy.DelayThreshold,
		MaxDailyAmount:         cfg.Policy.MaxDailyAmount,
		PayoutDelay:            cfg.Policy.PayoutDelay,
		HoldApprovedUntilDelay: cfg.Policy.HoldApprovedUntilDelay,
	}, &baseLogger)

	// 8. Background jobs
	sched := scheduler.New(payoutSvc, otpSvc, prom, scheduler.Config{
		ScheduledPayouts: cfg.Cron.ScheduledPayouts,
		OTPPurge:         cfg.Cron.OTPPurge,
		BatchSize:        cfg.Cron.SweepBatchSize,
	}, &baseLogger)
	if err := sched.Start(); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	if memStore != nil {
		seedDemo(memStore, cfg, &baseLogger)
	}

	// 9. HTTP server
	router := httpapi.NewRouter(
		httpapi.NewHandlers(bankSvc, otpSvc, payoutSvc, &baseLogger),
		httpapi.RouterConfig{
			JWTSecret:      []byte(cfg.JWTSecret),
			InternalAPIKey: cfg.InternalAPIKey,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		},
		prom,
		prom.Handler(),
		&baseLogger,
	)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		baseLogger.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		baseLogger.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		baseLogger.Error().Err(err).Msg("HTTP server failed")
	}

	// 10. Graceful shutdown: stop intake, let running jobs and relays finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		baseLogger.Warn().Msg("Scheduler jobs still running at shutdown deadline")
	}
	if err := bus.Drain(shutdownCtx); err != nil {
		baseLogger.Warn().Err(err).Msg("Notifications still in flight at shutdown deadline")
	}
	baseLogger.Info().Msg("Shutdown complete")
}

// openStores connects the configured driver. The memory store is returned as well
// so dev mode can seed it.
func openStores(ctx context.Context, cfg *config.Config, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) (stores, *memory.Store) {
	if cfg.StoreDriver == "memory" {
		baseLogger.Warn().Msg("Using the in-memory store; all state is lost on exit")
		m := memory.NewStore(baseLogger)
		return stores{
			accounts: m.BankAccounts(),
			actions:  m.Actions(),
			otps:     m.OTPs(),
			roles:    m.Roles(),
			identity: m.Identity(),
			audit:    m.Audit(),
			close:    func() {},
		}, m
	}

	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close()
		baseLogger.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	return stores{
		accounts: postgres.NewBankAccountRepository(db, secSvc, baseLogger),
		actions:  postgres.NewSensitiveActionRepository(db, baseLogger),
		otps:     postgres.NewOTPRepository(db, baseLogger),
		roles:    postgres.NewRoleRepository(db, baseLogger),
		identity: postgres.NewIdentityRepository(db, baseLogger),
		audit:    postgres.NewAuditRepository(db, secSvc, baseLogger),
		close:    db.Close,
	}, nil
}

// seedDemo creates two admins in the memory store and logs bearer tokens for them.
func seedDemo(m *memory.Store, cfg *config.Config, baseLogger *zerolog.Logger) {
	ids := m.SeedDemo(time.Now().UTC())
	principals := []struct {
		name      string
		userID    uuid.UUID
		sessionID uuid.UUID
	}{
		{"owner", ids.Owner, ids.OwnerSID},
		{"approver", ids.Approver, ids.ApproverSID},
	}
	for _, p := range principals {
		token, err := httpapi.IssueToken([]byte(cfg.JWTSecret), p.userID, p.sessionID, 24*time.Hour)
		if err != nil {
			baseLogger.Error().Err(err).Str("principal", p.name).Msg("Failed to sign demo token")
			continue
		}
		baseLogger.Info().
			Str("principal", p.name).
			Str("user_id", p.userID.String()).
			Str("organizer_id", ids.OrganizerID.String()).
			Str("token", token).
			Msg("Demo principal ready")
	}
}
