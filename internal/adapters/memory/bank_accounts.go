package memory

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

func (r *BankAccountRepo) Create(ctx context.Context, acct *domain.BankAccount) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acct.ID]; exists {
		return fmt.Errorf("bank account %s already exists", acct.ID)
	}
	s.accounts[acct.ID] = copyAccount(acct)
	return nil
}

func (r *BankAccountRepo) GetActive(ctx context.Context, id, organizerID uuid.UUID) (*domain.BankAccount, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok || !acct.IsActive || acct.OrganizerID != organizerID {
		return nil, nil
	}
	return copyAccount(acct), nil
}

func (r *BankAccountRepo) ListActive(ctx context.Context, organizerID uuid.UUID) ([]*domain.BankAccount, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.BankAccount
	for _, acct := range s.accounts {
		if acct.IsActive && acct.OrganizerID == organizerID {
			out = append(out, copyAccount(acct))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BankAccountRepo) CountActive(ctx context.Context, organizerID uuid.UUID) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, acct := range s.accounts {
		if acct.IsActive && acct.OrganizerID == organizerID {
			n++
		}
	}
	return n, nil
}

func (r *BankAccountRepo) UpdateDetails(ctx context.Context, acct *domain.BankAccount) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[acct.ID]
	if !ok || !cur.IsActive {
		return fmt.Errorf("bank account %s not found", acct.ID)
	}
	cur.BankName = acct.BankName
	cur.AccountName = acct.AccountName
	cur.IsDefault = acct.IsDefault
	cur.UpdatedAt = acct.UpdatedAt
	return nil
}

func (r *BankAccountRepo) ApplyCriticalChange(ctx context.Context, acct *domain.BankAccount) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[acct.ID]
	if !ok || !cur.IsActive {
		return fmt.Errorf("bank account %s not found", acct.ID)
	}
	next := copyAccount(acct)
	next.IsActive = true
	next.IsVerified = false
	next.PendingConfirmation = true
	s.accounts[acct.ID] = next
	return nil
}

func (r *BankAccountRepo) Deactivate(ctx context.Context, id, organizerID uuid.UUID, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok || acct.OrganizerID != organizerID {
		return fmt.Errorf("bank account %s not found", id)
	}
	acct.IsActive = false
	acct.IsDefault = false
	acct.UpdatedAt = at
	return nil
}

func (r *BankAccountRepo) ConsumeConfirmation(ctx context.Context, tokenHash string, now time.Time) (*domain.BankAccount, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if !acct.PendingConfirmation || acct.ConfirmationTokenHash == nil || *acct.ConfirmationTokenHash != tokenHash {
			continue
		}
		if acct.ConfirmationExpiresAt == nil || acct.ConfirmationExpiresAt.Before(now) {
			return nil, nil
		}
		acct.PendingConfirmation = false
		acct.ConfirmationTokenHash = nil
		acct.ConfirmationExpiresAt = nil
		acct.UpdatedAt = now
		return copyAccount(acct), nil
	}
	return nil, nil
}

func (r *BankAccountRepo) ReplaceConfirmation(ctx context.Context, id, organizerID uuid.UUID, tokenHash string, expiresAt time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok || !acct.IsActive || acct.OrganizerID != organizerID || !acct.PendingConfirmation {
		return false, nil
	}
	acct.ConfirmationTokenHash = &tokenHash
	acct.ConfirmationExpiresAt = &expiresAt
	return true, nil
}

func (r *BankAccountRepo) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (*domain.BankAccount, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok || !acct.IsActive {
		return nil, nil
	}
	acct.IsVerified = true
	acct.UpdatedAt = at
	return copyAccount(acct), nil
}
