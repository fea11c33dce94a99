package postgres

import (
	"PayoutGuard/internal/adapters/security"
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var _ ports.AuditLogStore = (*auditRepository)(nil) // Ensure compliance

type auditRepository struct {
	db     *DB
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

// NewAuditRepository creates the append-only audit store. The full account number in
// a change snapshot is kept encrypted for compliance.
func NewAuditRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.AuditLogStore {
	return &auditRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "audit_repo").Logger(),
	}
}

// snapshotRow is the JSONB shape of an AccountSnapshot.
type snapshotRow struct {
	BankName            string `json:"bank_name"`
	AccountName         string `json:"account_name"`
	AccountNumber       string `json:"account_number"`
	AccountNumberMasked string `json:"account_number_masked"`
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]string{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("could not encode audit details: %w", err)
	}

	query := `
		INSERT INTO security_audit_log (
			id, actor_id, event_type, event_category, resource_type, resource_id,
			risk_level, description, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.pool.Exec(ctx, query,
		entry.ID,
		nullableID(entry.ActorID),
		entry.EventType,
		entry.Category,
		entry.ResourceType,
		nullableID(entry.ResourceID),
		string(entry.RiskLevel),
		entry.Description,
		raw,
		entry.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("event_type", entry.EventType).Msg("Failed to append audit entry")
	}
	return err
}

func (r *auditRepository) encodeSnapshot(s *domain.AccountSnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	enc, err := security.EncryptField(r.secSvc, s.AccountNumber)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotRow{
		BankName:            s.BankName,
		AccountName:         s.AccountName,
		AccountNumber:       enc,
		AccountNumberMasked: s.AccountNumberMasked,
	})
}

func (r *auditRepository) decodeSnapshot(raw []byte) (*domain.AccountSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var row snapshotRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	number, err := security.DecryptField(r.secSvc, row.AccountNumber)
	if err != nil {
		return nil, err
	}
	return &domain.AccountSnapshot{
		BankName:            row.BankName,
		AccountName:         row.AccountName,
		AccountNumber:       number,
		AccountNumberMasked: row.AccountNumberMasked,
	}, nil
}

func (r *auditRepository) AppendBankChange(ctx context.Context, change *domain.BankAccountChange) error {
	prev, err := r.encodeSnapshot(change.Previous)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encode previous snapshot")
		return err
	}
	next, err := r.encodeSnapshot(change.New)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encode new snapshot")
		return err
	}

	query := `
		INSERT INTO bank_account_changes (
			id, organizer_id, bank_account_id, change_type, previous_values, new_values,
			changed_by, ip_address, user_agent, confirmation_required, confirmed_at,
			is_suspicious, suspicious_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.pool.Exec(ctx, query,
		change.ID,
		change.OrganizerID,
		change.BankAccountID,
		string(change.ChangeType),
		prev,
		next,
		change.ActorID,
		change.IPAddress,
		change.UserAgent,
		change.ConfirmationRequired,
		change.ConfirmedAt,
		change.IsSuspicious,
		change.SuspiciousReason,
		change.CreatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", change.BankAccountID.String()).Msg("Failed to append bank change")
	}
	return err
}

func (r *auditRepository) ConfirmLatestBankChange(ctx context.Context, bankAccountID uuid.UUID, at time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE bank_account_changes SET confirmed_at = $2
		WHERE id = (
			SELECT id FROM bank_account_changes
			WHERE bank_account_id = $1 AND confirmation_required AND confirmed_at IS NULL
			ORDER BY created_at DESC
			LIMIT 1
		)`,
		bankAccountID, at,
	)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", bankAccountID.String()).Msg("Failed to confirm bank change")
	}
	return err
}

func (r *auditRepository) scanChange(row pgx.Row) (*domain.BankAccountChange, error) {
	var c domain.BankAccountChange
	var prev, next []byte
	var ip, ua *string

	err := row.Scan(
		&c.ID,
		&c.OrganizerID,
		&c.BankAccountID,
		&c.ChangeType,
		&prev,
		&next,
		&c.ActorID,
		&ip,
		&ua,
		&c.ConfirmationRequired,
		&c.ConfirmedAt,
		&c.IsSuspicious,
		&c.SuspiciousReason,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ip != nil {
		c.IPAddress = *ip
	}
	if ua != nil {
		c.UserAgent = *ua
	}
	if c.Previous, err = r.decodeSnapshot(prev); err != nil {
		return nil, fmt.Errorf("bad previous snapshot on change %s: %w", c.ID, err)
	}
	if c.New, err = r.decodeSnapshot(next); err != nil {
		return nil, fmt.Errorf("bad new snapshot on change %s: %w", c.ID, err)
	}
	return &c, nil
}

func (r *auditRepository) ListBankChanges(ctx context.Context, organizerID uuid.UUID, page domain.Page) ([]*domain.BankAccountChange, error) {
	page = page.Normalize()
	query := `
		SELECT id, organizer_id, bank_account_id, change_type, previous_values, new_values,
			changed_by, ip_address, user_agent, confirmation_required, confirmed_at,
			is_suspicious, suspicious_reason, created_at
		FROM bank_account_changes
		WHERE organizer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.pool.Query(ctx, query, organizerID, page.Limit, page.Offset)
	if err != nil {
		r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed to query bank changes")
		return nil, err
	}
	defer rows.Close()

	out := []*domain.BankAccountChange{}
	for rows.Next() {
		c, err := r.scanChange(rows)
		if err != nil {
			r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed during row scan for bank changes")
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		r.log.Error().Err(rows.Err()).Str("organizer_id", organizerID.String()).Msg("Error iterating bank change rows")
		return nil, rows.Err()
	}
	return out, nil
}
