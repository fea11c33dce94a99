package postgres

import (
	"PayoutGuard/internal/adapters/security"
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var _ ports.BankAccountRepository = (*bankAccountRepository)(nil) // Ensure compliance

type bankAccountRepository struct {
	db     *DB
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

// NewBankAccountRepository creates a new repo for organizer bank accounts.
// Account numbers are encrypted at rest; a masked copy is kept for listing.
func NewBankAccountRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.BankAccountRepository {
	return &bankAccountRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "bank_account_repo").Logger(),
	}
}

const bankAccountColumns = `
	id, organizer_id, bank_name, bank_code, account_number, account_name,
	is_default, is_active, is_verified, cooling_until, pending_confirmation,
	confirmation_token_hash, confirmation_expires_at, created_at, updated_at`

func (r *bankAccountRepository) Create(ctx context.Context, acct *domain.BankAccount) error {
	encNumber, err := security.EncryptField(r.secSvc, acct.AccountNumber)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt account number")
		return err
	}

	query := `
		INSERT INTO organizer_bank_accounts (
			id, organizer_id, bank_name, bank_code, account_number, account_number_masked,
			account_name, is_default, is_active, is_verified, cooling_until,
			pending_confirmation, confirmation_token_hash, confirmation_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.pool.Exec(ctx, query,
		acct.ID,
		acct.OrganizerID,
		acct.BankName,
		acct.BankCode,
		encNumber,
		acct.MaskedNumber(),
		acct.AccountName,
		acct.IsDefault,
		acct.IsActive,
		acct.IsVerified,
		acct.CoolingUntil,
		acct.PendingConfirmation,
		acct.ConfirmationTokenHash,
		acct.ConfirmationExpiresAt,
		acct.CreatedAt,
		acct.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("organizer_id", acct.OrganizerID.String()).Msg("Failed to insert bank account")
	}
	return err
}

// scanAccount scans a row and decrypts the account number.
func (r *bankAccountRepository) scanAccount(row pgx.Row) (*domain.BankAccount, error) {
	var acct domain.BankAccount
	var encNumber string

	err := row.Scan(
		&acct.ID,
		&acct.OrganizerID,
		&acct.BankName,
		&acct.BankCode,
		&encNumber,
		&acct.AccountName,
		&acct.IsDefault,
		&acct.IsActive,
		&acct.IsVerified,
		&acct.CoolingUntil,
		&acct.PendingConfirmation,
		&acct.ConfirmationTokenHash,
		&acct.ConfirmationExpiresAt,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acct.AccountNumber, err = security.DecryptField(r.secSvc, encNumber)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", acct.ID.String()).Msg("Failed to decrypt account number")
		return nil, err
	}
	return &acct, nil
}

// getOne runs a single-row query, mapping no rows to nil, nil.
func (r *bankAccountRepository) getOne(ctx context.Context, op, query string, args ...any) (*domain.BankAccount, error) {
	acct, err := r.scanAccount(r.db.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error().Err(err).Str("op", op).Msg("Bank account query failed")
		return nil, err
	}
	return acct, nil
}

func (r *bankAccountRepository) GetActive(ctx context.Context, id, organizerID uuid.UUID) (*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + `
		FROM organizer_bank_accounts
		WHERE id = $1 AND organizer_id = $2 AND is_active`
	return r.getOne(ctx, "get_active", query, id, organizerID)
}

func (r *bankAccountRepository) ListActive(ctx context.Context, organizerID uuid.UUID) ([]*domain.BankAccount, error) {
	query := `SELECT ` + bankAccountColumns + `
		FROM organizer_bank_accounts
		WHERE organizer_id = $1 AND is_active
		ORDER BY created_at DESC`

	rows, err := r.db.pool.Query(ctx, query, organizerID)
	if err != nil {
		r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed to query bank accounts")
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.BankAccount
	for rows.Next() {
		acct, err := r.scanAccount(rows)
		if err != nil {
			r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed during row scan for bank accounts")
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	if rows.Err() != nil {
		r.log.Error().Err(rows.Err()).Str("organizer_id", organizerID.String()).Msg("Error iterating bank account rows")
		return nil, rows.Err()
	}
	return accounts, nil
}

func (r *bankAccountRepository) CountActive(ctx context.Context, organizerID uuid.UUID) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM organizer_bank_accounts WHERE organizer_id = $1 AND is_active`,
		organizerID,
	).Scan(&n)
	if err != nil {
		r.log.Error().Err(err).Str("organizer_id", organizerID.String()).Msg("Failed to count bank accounts")
	}
	return n, err
}

func (r *bankAccountRepository) UpdateDetails(ctx context.Context, acct *domain.BankAccount) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE organizer_bank_accounts
		SET bank_name = $2, account_name = $3, is_default = $4, updated_at = $5
		WHERE id = $1 AND is_active`,
		acct.ID, acct.BankName, acct.AccountName, acct.IsDefault, acct.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", acct.ID.String()).Msg("Failed to update bank account details")
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bank account %s not found", acct.ID)
	}
	return nil
}

func (r *bankAccountRepository) ApplyCriticalChange(ctx context.Context, acct *domain.BankAccount) error {
	encNumber, err := security.EncryptField(r.secSvc, acct.AccountNumber)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt account number")
		return err
	}

	query := `
		UPDATE organizer_bank_accounts SET
			bank_name = $2, bank_code = $3, account_number = $4, account_number_masked = $5,
			account_name = $6, is_default = $7, is_verified = FALSE, cooling_until = $8,
			pending_confirmation = TRUE, confirmation_token_hash = $9,
			confirmation_expires_at = $10, updated_at = $11
		WHERE id = $1 AND is_active
	`
	tag, err := r.db.pool.Exec(ctx, query,
		acct.ID,
		acct.BankName,
		acct.BankCode,
		encNumber,
		acct.MaskedNumber(),
		acct.AccountName,
		acct.IsDefault,
		acct.CoolingUntil,
		acct.ConfirmationTokenHash,
		acct.ConfirmationExpiresAt,
		acct.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", acct.ID.String()).Msg("Failed to apply critical bank account change")
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bank account %s not found", acct.ID)
	}
	return nil
}

func (r *bankAccountRepository) Deactivate(ctx context.Context, id, organizerID uuid.UUID, at time.Time) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE organizer_bank_accounts
		SET is_active = FALSE, is_default = FALSE, updated_at = $3
		WHERE id = $1 AND organizer_id = $2`,
		id, organizerID, at,
	)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", id.String()).Msg("Failed to deactivate bank account")
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bank account %s not found", id)
	}
	return nil
}

func (r *bankAccountRepository) ConsumeConfirmation(ctx context.Context, tokenHash string, now time.Time) (*domain.BankAccount, error) {
	query := `
		UPDATE organizer_bank_accounts
		SET pending_confirmation = FALSE, confirmation_token_hash = NULL,
			confirmation_expires_at = NULL, updated_at = $2
		WHERE confirmation_token_hash = $1
			AND pending_confirmation
			AND confirmation_expires_at >= $2
		RETURNING ` + bankAccountColumns
	return r.getOne(ctx, "consume_confirmation", query, tokenHash, now)
}

func (r *bankAccountRepository) ReplaceConfirmation(ctx context.Context, id, organizerID uuid.UUID, tokenHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE organizer_bank_accounts
		SET confirmation_token_hash = $3, confirmation_expires_at = $4
		WHERE id = $1 AND organizer_id = $2 AND is_active AND pending_confirmation`,
		id, organizerID, tokenHash, expiresAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("acct_id", id.String()).Msg("Failed to replace confirmation token")
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *bankAccountRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (*domain.BankAccount, error) {
	query := `
		UPDATE organizer_bank_accounts
		SET is_verified = TRUE, updated_at = $2
		WHERE id = $1 AND is_active
		RETURNING ` + bankAccountColumns
	return r.getOne(ctx, "mark_verified", query, id, at)
}
