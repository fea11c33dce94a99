package services

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

// auditor appends audit entries and never lets a store failure escape: by the time
// an entry is written the transition it describes has already committed.
type auditor struct {
	store ports.AuditLogStore
	log   zerolog.Logger
}

func (a auditor) record(ctx context.Context, entry *domain.AuditEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := a.store.Append(ctx, entry); err != nil {
		a.log.Warn().Err(err).
			Str("event_type", entry.EventType).
			Str("resource_id", entry.ResourceID.String()).
			Msg("Consistency warning: audit append failed after state change")
	}
}

func (a auditor) recordBankChange(ctx context.Context, change *domain.BankAccountChange) {
	if err := a.store.AppendBankChange(ctx, change); err != nil {
		a.log.Warn().Err(err).
			Str("bank_account_id", change.BankAccountID.String()).
			Str("change_type", string(change.ChangeType)).
			Msg("Consistency warning: bank change log append failed")
	}
}

// notify hands an event to the Notifier; delivery failures are logged only.
func notify(ctx context.Context, n ports.Notifier, log zerolog.Logger, eventType string, recipient uuid.UUID, payload map[string]string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, eventType, recipient.String(), payload); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("recipient", recipient.String()).
			Msg("Notification failed")
	}
}
