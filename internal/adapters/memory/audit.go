package memory

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
)

func (r *AuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *entry
	c.Details = maps.Clone(entry.Details)
	s.audit = append(s.audit, &c)
	return nil
}

func (r *AuditRepo) AppendBankChange(ctx context.Context, change *domain.BankAccountChange) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *change
	c.Previous = copySnapshot(change.Previous)
	c.New = copySnapshot(change.New)
	s.changes = append(s.changes, &c)
	return nil
}

func (r *AuditRepo) ConfirmLatestBankChange(ctx context.Context, bankAccountID uuid.UUID, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.BankAccountChange
	for _, c := range s.changes {
		if c.BankAccountID != bankAccountID || !c.ConfirmationRequired || c.ConfirmedAt != nil {
			continue
		}
		if latest == nil || !c.CreatedAt.Before(latest.CreatedAt) {
			latest = c
		}
	}
	if latest != nil {
		latest.ConfirmedAt = &at
	}
	return nil
}

func (r *AuditRepo) ListBankChanges(ctx context.Context, organizerID uuid.UUID, page domain.Page) ([]*domain.BankAccountChange, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.BankAccountChange
	for _, c := range s.changes {
		if c.OrganizerID != organizerID {
			continue
		}
		cp := *c
		cp.Previous = copySnapshot(c.Previous)
		cp.New = copySnapshot(c.New)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), nil
}

// Entries returns a copy of the security event log, oldest first.
func (r *AuditRepo) Entries() []domain.AuditEntry {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, *e)
	}
	return out
}
