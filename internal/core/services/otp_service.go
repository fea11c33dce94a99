package services

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OTP verification outcomes reported to metrics.
const (
	OTPResultVerified    = "verified"
	OTPResultInvalid     = "invalid"
	OTPResultMaxAttempts = "max_attempts"
)

var knownPurposes = map[string]bool{
	domain.PurposeLogin:          true,
	domain.PurposePayoutRequest:  true,
	domain.PurposePayoutApproval: true,
	domain.PurposeBankChange:     true,
}

// OTPConfig holds the code policy.
type OTPConfig struct {
	TTL             time.Duration
	MaxAttempts     int
	HourlyLimit     int
	CodeDigits      int
	RateLimitWindow time.Duration
}

// OTPService issues and checks one-time codes bound to (user, purpose).
type OTPService struct {
	log      zerolog.Logger
	repo     ports.OTPRepository
	limiter  ports.OTPRateLimiter
	hasher   ports.SecretHasher
	tokens   ports.TokenIssuer
	audit    auditor
	notifier ports.Notifier
	metrics  ports.PayoutMetrics
	cfg      OTPConfig
	now      Clock
}

var _ ports.OTPChecker = (*OTPService)(nil)

func NewOTPService(
	repo ports.OTPRepository,
	limiter ports.OTPRateLimiter,
	hasher ports.SecretHasher,
	tokens ports.TokenIssuer,
	auditStore ports.AuditLogStore,
	notifier ports.Notifier,
	metrics ports.PayoutMetrics,
	cfg OTPConfig,
	baseLogger *zerolog.Logger,
) *OTPService {
	log := baseLogger.With().Str("component", "otp_service").Logger()
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if cfg.CodeDigits == 0 {
		cfg.CodeDigits = 6
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Hour
	}
	return &OTPService{
		log:      log,
		repo:     repo,
		limiter:  limiter,
		hasher:   hasher,
		tokens:   tokens,
		audit:    auditor{store: auditStore, log: log},
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate issues a new code for (userID, purpose) and hands it to the Notifier.
// Only the bcrypt hash is stored.
func (s *OTPService) Generate(ctx context.Context, userID uuid.UUID, purpose string) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, domain.Reasonf(domain.ErrValidation, "user id is required")
	}
	if !knownPurposes[purpose] {
		return uuid.Nil, domain.Reasonf(domain.ErrValidation, "unknown OTP purpose %q", purpose)
	}
	log := s.log.With().Str("user_id", userID.String()).Str("purpose", purpose).Logger()

	now := s.now().UTC()

	// 1. Rate-limit
	if err := s.limiter.Allow(ctx, userID, now); err != nil {
		log.Warn().Err(err).Msg("OTP generation refused")
		return uuid.Nil, err
	}

	// 2. Create and hash the code
	code, err := s.tokens.NewNumericCode(s.cfg.CodeDigits)
	if err != nil {
		return uuid.Nil, domain.Persistence("generate otp code", err)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return uuid.Nil, domain.Persistence("hash otp code", err)
	}

	rec := &domain.OTPRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Purpose:     purpose,
		OTPHash:     hash,
		ExpiresAt:   now.Add(s.cfg.TTL),
		MaxAttempts: s.cfg.MaxAttempts,
		CreatedAt:   now,
	}

	// 3. Persist
	if err := s.repo.Create(ctx, rec); err != nil {
		log.Error().Err(err).Msg("Failed to store OTP")
		return uuid.Nil, domain.Persistence("create otp", err)
	}
	log.Info().Str("otp_id", rec.ID.String()).Msg("OTP issued")

	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      userID,
		EventType:    domain.EventOTPGenerated,
		Category:     domain.CategoryAuthentication,
		ResourceType: "otp",
		ResourceID:   rec.ID,
		RiskLevel:    domain.RiskLow,
		Description:  "OTP generated",
		Details:      map[string]string{"purpose": purpose},
		CreatedAt:    now,
	})

	// 4. Deliver
	notify(ctx, s.notifier, s.log, ports.NotifyOTPIssued, userID, map[string]string{
		"code":            code,
		"purpose":         purpose,
		"expires_minutes": strconv.Itoa(int(s.cfg.TTL.Minutes())),
	})

	return rec.ID, nil
}

// Verify checks code against the newest live OTP for (userID, purpose). Every call
// consumes an attempt; the code dies once the attempts run out.
func (s *OTPService) Verify(ctx context.Context, userID uuid.UUID, code, purpose string) error {
	log := s.log.With().Str("user_id", userID.String()).Str("purpose", purpose).Logger()
	now := s.now().UTC()

	rec, err := s.repo.GetLatestLive(ctx, userID, purpose, now)
	if err != nil {
		return domain.Persistence("load otp", err)
	}
	if rec == nil {
		s.metrics.ObserveOTPVerification(OTPResultInvalid)
		return domain.ErrOTPInvalid
	}

	if rec.Attempts >= rec.MaxAttempts {
		return s.exhaust(ctx, log, rec, now)
	}

	attempts, err := s.repo.IncrementAttempts(ctx, rec.ID)
	if err != nil {
		return domain.Persistence("increment otp attempts", err)
	}

	if !s.hasher.Compare(rec.OTPHash, code) {
		if attempts >= rec.MaxAttempts {
			return s.exhaust(ctx, log, rec, now)
		}
		log.Warn().Int("attempts", attempts).Msg("OTP mismatch")
		s.metrics.ObserveOTPVerification(OTPResultInvalid)
		s.audit.record(ctx, &domain.AuditEntry{
			ActorID:      userID,
			EventType:    domain.EventOTPVerificationFailed,
			Category:     domain.CategoryAuthentication,
			ResourceType: "otp",
			ResourceID:   rec.ID,
			RiskLevel:    domain.RiskMedium,
			Description:  "OTP verification failed",
			Details:      map[string]string{"purpose": purpose, "attempts": strconv.Itoa(attempts)},
			CreatedAt:    now,
		})
		return domain.ErrOTPInvalid
	}

	won, err := s.repo.MarkVerified(ctx, rec.ID, now)
	if err != nil {
		return domain.Persistence("mark otp verified", err)
	}
	if !won {
		// a concurrent call consumed the same code first
		s.metrics.ObserveOTPVerification(OTPResultInvalid)
		return domain.ErrOTPInvalid
	}

	log.Info().Str("otp_id", rec.ID.String()).Msg("OTP verified")
	s.metrics.ObserveOTPVerification(OTPResultVerified)
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      userID,
		EventType:    domain.EventOTPVerified,
		Category:     domain.CategoryAuthentication,
		ResourceType: "otp",
		ResourceID:   rec.ID,
		RiskLevel:    domain.RiskLow,
		Description:  "OTP verified",
		Details:      map[string]string{"purpose": purpose},
		CreatedAt:    now,
	})
	return nil
}

func (s *OTPService) exhaust(ctx context.Context, log zerolog.Logger, rec *domain.OTPRecord, now time.Time) error {
	if err := s.repo.MarkUsed(ctx, rec.ID, now); err != nil {
		return domain.Persistence("mark otp used", err)
	}
	log.Warn().Str("otp_id", rec.ID.String()).Msg("OTP attempts exhausted")
	s.metrics.ObserveOTPVerification(OTPResultMaxAttempts)
	s.audit.record(ctx, &domain.AuditEntry{
		ActorID:      rec.UserID,
		EventType:    domain.EventOTPMaxAttempts,
		Category:     domain.CategoryAuthentication,
		ResourceType: "otp",
		ResourceID:   rec.ID,
		RiskLevel:    domain.RiskHigh,
		Description:  "OTP maximum attempts exceeded",
		Details:      map[string]string{"purpose": rec.Purpose},
		CreatedAt:    now,
	})
	return domain.ErrMaxAttemptsExceeded
}

// PurgeExpired deletes codes past their expiry once they have also left the
// rate-limit window; until then the store limiter still counts them.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	n, err := s.repo.DeleteExpired(ctx, now, now.Add(-s.cfg.RateLimitWindow))
	if err != nil {
		return 0, domain.Persistence("delete expired otps", err)
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("Purged expired OTPs")
	}
	return n, nil
}

// StoreRateLimiter counts issued codes in the OTP store over a rolling window.
type StoreRateLimiter struct {
	repo   ports.OTPRepository
	limit  int
	window time.Duration
}

var _ ports.OTPRateLimiter = (*StoreRateLimiter)(nil)

func NewStoreRateLimiter(repo ports.OTPRepository, limit int, window time.Duration) *StoreRateLimiter {
	return &StoreRateLimiter{repo: repo, limit: limit, window: window}
}

func (l *StoreRateLimiter) Allow(ctx context.Context, userID uuid.UUID, now time.Time) error {
	n, err := l.repo.CountCreatedSince(ctx, userID, now.Add(-l.window))
	if err != nil {
		return domain.Persistence("count recent otps", err)
	}
	if n >= l.limit {
		return domain.Reasonf(domain.ErrRateLimited, "at most %d codes per %s", l.limit, l.window)
	}
	return nil
}
