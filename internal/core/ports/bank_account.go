package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// BankAccountRepository defines persistence for organizer bank accounts.
// Only the bank account registry writes through it.
type BankAccountRepository interface {
	// Create saves a new bank account.
	Create(ctx context.Context, acct *domain.BankAccount) error

	// GetActive finds an active account owned by the organizer. Returns nil, nil when absent.
	GetActive(ctx context.Context, id, organizerID uuid.UUID) (*domain.BankAccount, error)

	// ListActive returns the organizer's active accounts, newest first.
	ListActive(ctx context.Context, organizerID uuid.UUID) ([]*domain.BankAccount, error)

	// CountActive counts the organizer's active accounts.
	CountActive(ctx context.Context, organizerID uuid.UUID) (int, error)

	// UpdateDetails writes bank name, account name and the default flag of an active
	// account. Verification, cooling and confirmation state are never written, so a
	// stale copy cannot revive a consumed token or undo a verification.
	UpdateDetails(ctx context.Context, acct *domain.BankAccount) error

	// ApplyCriticalChange writes a new destination (bank code, account number) with
	// verification reset, a new cooling window and a new pending confirmation.
	ApplyCriticalChange(ctx context.Context, acct *domain.BankAccount) error

	// Deactivate soft-deletes the account (is_active = false, is_default = false).
	Deactivate(ctx context.Context, id, organizerID uuid.UUID, at time.Time) error

	// ConsumeConfirmation atomically clears the pending confirmation whose token digest
	// matches and has not expired at now. Returns nil, nil when nothing matched.
	ConsumeConfirmation(ctx context.Context, tokenHash string, now time.Time) (*domain.BankAccount, error)

	// ReplaceConfirmation installs a new token digest on an account that is still
	// pending confirmation. Returns false when the account is not pending.
	ReplaceConfirmation(ctx context.Context, id, organizerID uuid.UUID, tokenHash string, expiresAt time.Time) (bool, error)

	// MarkVerified flags the account as verified out-of-band.
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (*domain.BankAccount, error)
}

// EligibilityChecker is the payout gate consulted before money can move.
type EligibilityChecker interface {
	IsEligibleForPayout(ctx context.Context, organizerID uuid.UUID) (domain.Eligibility, error)
}
