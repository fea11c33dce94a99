package postgres

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var _ ports.OTPRepository = (*otpRepository)(nil) // Ensure compliance

type otpRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewOTPRepository creates a repo for one-time codes. Only bcrypt hashes are stored.
func NewOTPRepository(db *DB, baseLogger *zerolog.Logger) ports.OTPRepository {
	return &otpRepository{
		db:  db,
		log: baseLogger.With().Str("component", "otp_repo").Logger(),
	}
}

func (r *otpRepository) Create(ctx context.Context, rec *domain.OTPRecord) error {
	query := `
		INSERT INTO otp_codes (
			id, user_id, purpose, otp_hash, expires_at, attempts, max_attempts,
			is_verified, used_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Purpose,
		rec.OTPHash,
		rec.ExpiresAt,
		rec.Attempts,
		rec.MaxAttempts,
		rec.IsVerified,
		rec.UsedAt,
		rec.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", rec.UserID.String()).Msg("Failed to insert OTP")
	}
	return err
}

func (r *otpRepository) CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM otp_codes WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&n)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to count OTPs")
	}
	return n, err
}

func (r *otpRepository) GetLatestLive(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) (*domain.OTPRecord, error) {
	query := `
		SELECT id, user_id, purpose, otp_hash, expires_at, attempts, max_attempts,
			is_verified, used_at, created_at
		FROM otp_codes
		WHERE user_id = $1 AND purpose = $2
			AND NOT is_verified AND used_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	var rec domain.OTPRecord
	err := r.db.pool.QueryRow(ctx, query, userID, purpose, now).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Purpose,
		&rec.OTPHash,
		&rec.ExpiresAt,
		&rec.Attempts,
		&rec.MaxAttempts,
		&rec.IsVerified,
		&rec.UsedAt,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load OTP")
		return nil, err
	}
	return &rec, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.pool.QueryRow(ctx,
		`UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		r.log.Error().Err(err).Str("otp_id", id.String()).Msg("Failed to increment OTP attempts")
	}
	return attempts, err
}

func (r *otpRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE otp_codes SET is_verified = TRUE, used_at = $2
		WHERE id = $1 AND NOT is_verified AND used_at IS NULL`,
		id, at,
	)
	if err != nil {
		r.log.Error().Err(err).Str("otp_id", id.String()).Msg("Failed to mark OTP verified")
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *otpRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE otp_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		id, at,
	)
	if err != nil {
		r.log.Error().Err(err).Str("otp_id", id.String()).Msg("Failed to mark OTP used")
	}
	return err
}

func (r *otpRepository) DeleteExpired(ctx context.Context, expiredBefore, createdBefore time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx,
		`DELETE FROM otp_codes WHERE expires_at < $1 AND created_at < $2`,
		expiredBefore, createdBefore,
	)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to purge expired OTPs")
		return 0, err
	}
	return tag.RowsAffected(), nil
}
