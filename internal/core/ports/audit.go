package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditLogStore is the append-only record of state-changing events.
type AuditLogStore interface {
	// Append records a security event.
	Append(ctx context.Context, entry *domain.AuditEntry) error

	// AppendBankChange records a bank account change.
	AppendBankChange(ctx context.Context, change *domain.BankAccountChange) error

	// ConfirmLatestBankChange stamps the newest unconfirmed change row of the account
	// that required confirmation.
	ConfirmLatestBankChange(ctx context.Context, bankAccountID uuid.UUID, at time.Time) error

	// ListBankChanges returns the organizer's change history, newest first.
	ListBankChanges(ctx context.Context, organizerID uuid.UUID, page domain.Page) ([]*domain.BankAccountChange, error)
}
