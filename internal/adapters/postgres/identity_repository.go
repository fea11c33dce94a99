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

var _ ports.IdentityRepository = (*identityRepository)(nil) // Ensure compliance

type identityRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewIdentityRepository reads the platform's profiles, sessions and organizers.
func NewIdentityRepository(db *DB, baseLogger *zerolog.Logger) ports.IdentityRepository {
	return &identityRepository{
		db:  db,
		log: baseLogger.With().Str("component", "identity_repo").Logger(),
	}
}

func (r *identityRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, is_active, account_status, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var u domain.User
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.IsActive,
		&u.AccountStatus,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to load profile")
		return nil, err
	}
	return &u, nil
}

func (r *identityRepository) HasValidSession(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var ok bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_sessions
			WHERE user_id = $1 AND is_active AND expires_at > $2
		)`,
		userID, now,
	).Scan(&ok)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to check session")
	}
	return ok, err
}

func (r *identityRepository) OwnsOrganizer(ctx context.Context, userID, organizerID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organizers WHERE id = $1 AND owner_id = $2)`,
		organizerID, userID,
	).Scan(&ok)
	if err != nil {
		r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed to check organizer ownership")
	}
	return ok, err
}
