package postgres

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ ports.SensitiveActionRepository = (*sensitiveActionRepository)(nil) // Ensure compliance

type sensitiveActionRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewSensitiveActionRepository creates the payout action repo. Every transition is a
// single conditional UPDATE ... RETURNING, so two racing callers cannot both win.
func NewSensitiveActionRepository(db *DB, baseLogger *zerolog.Logger) ports.SensitiveActionRepository {
	return &sensitiveActionRepository{
		db:  db,
		log: baseLogger.With().Str("component", "sensitive_action_repo").Logger(),
	}
}

// Amounts travel as text so no precision is lost between NUMERIC and decimal.Decimal.
const actionColumns = `
	id, action_type, initiated_by, organizer_id, amount_involved::text, currency,
	requires_approval, otp_verified, status, metadata, approved_by, approved_at,
	completed_at, failure_reason, created_at, updated_at`

func statusNames(statuses []domain.ActionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanAction(row pgx.Row) (*domain.SensitiveAction, error) {
	var a domain.SensitiveAction
	var amount string
	var metadata []byte

	err := row.Scan(
		&a.ID,
		&a.ActionType,
		&a.InitiatedBy,
		&a.OrganizerID,
		&amount,
		&a.Currency,
		&a.RequiresApproval,
		&a.OTPVerified,
		&a.Status,
		&metadata,
		&a.ApprovedBy,
		&a.ApprovedAt,
		&a.CompletedAt,
		&a.FailureReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.AmountInvolved, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount %q on action %s: %w", amount, a.ID, err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("bad metadata on action %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

// one runs a single-row statement, mapping no rows to nil, nil.
func (r *sensitiveActionRepository) one(ctx context.Context, op string, query string, args ...any) (*domain.SensitiveAction, error) {
	a, err := scanAction(r.db.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("op", op).Msg("Sensitive action query failed")
		return nil, err
	}
	return a, nil
}

func (r *sensitiveActionRepository) many(ctx context.Context, op string, query string, args ...any) ([]*domain.SensitiveAction, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Str("op", op).Msg("Sensitive action query failed")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SensitiveAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			r.log.Error().Err(err).Str("op", op).Msg("Failed during row scan for sensitive actions")
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		r.log.Error().Err(rows.Err()).Str("op", op).Msg("Error iterating sensitive action rows")
		return nil, rows.Err()
	}
	return out, nil
}

const sumCommittedQuery = `
	SELECT COALESCE(sum(amount_involved), 0)::text
	FROM sensitive_actions
	WHERE initiated_by = $1 AND created_at >= $2 AND status = ANY($3)`

func (r *sensitiveActionRepository) CreateWithinDailyLimit(ctx context.Context, action *domain.SensitiveAction, since time.Time, maxDaily decimal.Decimal) error {
	metadata, err := json.Marshal(action.Metadata)
	if err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}
	committedStatuses := statusNames(domain.CommittedStatuses)

	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		// One lock per initiator: concurrent requests from the same user queue
		// here, different users never contend.
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", action.InitiatedBy.String()); err != nil {
			r.log.Error().Err(err).Msg("Failed to take initiator lock")
			return err
		}

		var sum string
		if err := tx.QueryRow(ctx, sumCommittedQuery, action.InitiatedBy, since, committedStatuses).Scan(&sum); err != nil {
			r.log.Error().Err(err).Msg("Failed to sum committed volume")
			return err
		}
		committed, err := decimal.NewFromString(sum)
		if err != nil {
			return err
		}
		if !committed.Add(action.AmountInvolved).LessThan(maxDaily) {
			return domain.Reasonf(domain.ErrDailyLimitExceeded, "%s already committed today", committed.StringFixed(2))
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sensitive_actions (
				id, action_type, initiated_by, organizer_id, amount_involved, currency,
				requires_approval, otp_verified, status, scheduled_for, metadata,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13)`,
			action.ID,
			string(action.ActionType),
			action.InitiatedBy,
			action.OrganizerID,
			action.AmountInvolved.String(),
			action.Currency,
			action.RequiresApproval,
			action.OTPVerified,
			string(action.Status),
			action.Metadata.ScheduledFor,
			metadata,
			action.CreatedAt,
			action.UpdatedAt,
		)
		if err != nil {
			r.log.Error().Err(err).Str("action_id", action.ID.String()).Msg("Failed to insert sensitive action")
		}
		return err
	})
}

func (r *sensitiveActionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SensitiveAction, error) {
	return r.one(ctx, "get_by_id", `SELECT `+actionColumns+` FROM sensitive_actions WHERE id = $1`, id)
}

func (r *sensitiveActionRepository) Approve(ctx context.Context, id, approvedBy uuid.UUID, at time.Time, to domain.ActionStatus) (*domain.SensitiveAction, error) {
	query := `
		UPDATE sensitive_actions
		SET status = $4, approved_by = $2, approved_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending_approval'
		RETURNING ` + actionColumns
	return r.one(ctx, "approve", query, id, approvedBy, at, string(to))
}

func (r *sensitiveActionRepository) ClaimScheduled(ctx context.Context, id uuid.UUID, now time.Time) (*domain.SensitiveAction, error) {
	query := `
		UPDATE sensitive_actions
		SET status = 'processing', updated_at = $2
		WHERE id = $1 AND status = 'scheduled' AND scheduled_for <= $2
		RETURNING ` + actionColumns
	return r.one(ctx, "claim_scheduled", query, id, now)
}

func (r *sensitiveActionRepository) ClaimDueScheduled(ctx context.Context, now time.Time, limit int) ([]*domain.SensitiveAction, error) {
	var lim any // NULL means no limit
	if limit > 0 {
		lim = limit
	}
	query := `
		UPDATE sensitive_actions
		SET status = 'processing', updated_at = $1
		WHERE id IN (
			SELECT id FROM sensitive_actions
			WHERE status = 'scheduled' AND scheduled_for <= $1
			ORDER BY scheduled_for
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + actionColumns
	return r.many(ctx, "claim_due_scheduled", query, now, lim)
}

func (r *sensitiveActionRepository) Complete(ctx context.Context, id uuid.UUID, reference string, at time.Time) (*domain.SensitiveAction, error) {
	query := `
		UPDATE sensitive_actions
		SET status = 'completed', completed_at = $3, updated_at = $3,
			metadata = metadata || jsonb_build_object('payoutReference', $2::text)
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + actionColumns
	return r.one(ctx, "complete", query, id, reference, at)
}

func (r *sensitiveActionRepository) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*domain.SensitiveAction, error) {
	query := `
		UPDATE sensitive_actions
		SET status = 'failed', failure_reason = $2::text, updated_at = $3,
			metadata = metadata || jsonb_build_object('error', $2::text)
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + actionColumns
	return r.one(ctx, "fail", query, id, reason, at)
}

func (r *sensitiveActionRepository) Cancel(ctx context.Context, id, cancelledBy uuid.UUID, at time.Time) (*domain.SensitiveAction, error) {
	query := `
		UPDATE sensitive_actions
		SET status = 'failed', failure_reason = $4, updated_at = $3,
			metadata = metadata || jsonb_build_object('cancelledBy', $2::text)
		WHERE id = $1 AND status IN ('pending_approval', 'scheduled')
		RETURNING ` + actionColumns
	return r.one(ctx, "cancel", query, id, cancelledBy.String(), at, domain.FailureCancelled)
}

func (r *sensitiveActionRepository) SumCommittedSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var sum string
	if err := r.db.pool.QueryRow(ctx, sumCommittedQuery, userID, since, statusNames(domain.CommittedStatuses)).Scan(&sum); err != nil {
		r.log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to sum committed volume")
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func (r *sensitiveActionRepository) HasOpenForOrganizer(ctx context.Context, organizerID uuid.UUID) (bool, error) {
	var open bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sensitive_actions WHERE organizer_id = $1 AND status = ANY($2))`,
		organizerID, statusNames(domain.OpenPayoutStatuses),
	).Scan(&open)
	if err != nil {
		r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed to check open payouts")
	}
	return open, err
}

func (r *sensitiveActionRepository) ListPendingApprovals(ctx context.Context, excludeUser uuid.UUID, page domain.Page) ([]*domain.SensitiveAction, error) {
	page = page.Normalize()
	query := `SELECT ` + actionColumns + `
		FROM sensitive_actions
		WHERE status = 'pending_approval' AND initiated_by <> $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	out, err := r.many(ctx, "list_pending", query, excludeUser, page.Limit, page.Offset)
	if out == nil && err == nil {
		out = []*domain.SensitiveAction{}
	}
	return out, err
}
