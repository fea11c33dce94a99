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

var _ ports.RoleRepository = (*roleRepository)(nil) // Ensure compliance

type roleRepository struct {
	db  *DB
	log zerolog.Logger
}

func NewRoleRepository(db *DB, baseLogger *zerolog.Logger) ports.RoleRepository {
	return &roleRepository{
		db:  db,
		log: baseLogger.With().Str("component", "role_repo").Logger(),
	}
}

func scanRole(row pgx.Row) (*domain.RoleAssignment, error) {
	var a domain.RoleAssignment
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.RoleName,
		&a.CanProcessPayouts,
		&a.IsActive,
		&a.AssignedAt,
		&a.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *roleRepository) GetCurrentAssignment(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.RoleAssignment, error) {
	query := `
		SELECT id, user_id, role_name, can_process_payouts, is_active, assigned_at, expires_at
		FROM user_roles
		WHERE user_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY assigned_at DESC
		LIMIT 1
	`
	a, err := scanRole(r.db.pool.QueryRow(ctx, query, userID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load role assignment")
		return nil, err
	}
	return a, nil
}

func (r *roleRepository) ListCurrentAssignments(ctx context.Context, now time.Time) ([]*domain.RoleAssignment, error) {
	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (user_id)
				id, user_id, role_name, can_process_payouts, is_active, assigned_at, expires_at
			FROM user_roles
			WHERE is_active AND (expires_at IS NULL OR expires_at > $1)
			ORDER BY user_id, assigned_at DESC
		) current
		ORDER BY assigned_at
	`
	rows, err := r.db.pool.Query(ctx, query, now)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query role assignments")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RoleAssignment
	for rows.Next() {
		a, err := scanRole(rows)
		if err != nil {
			r.log.Error().Err(err).Msg("Failed during row scan for role assignments")
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		r.log.Error().Err(rows.Err()).Msg("Error iterating role assignment rows")
		return nil, rows.Err()
	}
	return out, nil
}
