package memory

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (r *ActionRepo) CreateWithinDailyLimit(ctx context.Context, action *domain.SensitiveAction, since time.Time, maxDaily decimal.Decimal) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.actions[action.ID]; exists {
		return fmt.Errorf("action %s already exists", action.ID)
	}
	committed := s.sumCommittedLocked(action.InitiatedBy, since)
	if !committed.Add(action.AmountInvolved).LessThan(maxDaily) {
		return domain.Reasonf(domain.ErrDailyLimitExceeded, "%s already committed today", committed.StringFixed(2))
	}
	s.actions[action.ID] = copyAction(action)
	return nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SensitiveAction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, nil
	}
	return copyAction(a), nil
}

// transition applies mutate when the action is in one of from; nil otherwise.
func (s *Store) transition(id uuid.UUID, from []domain.ActionStatus, mutate func(a *domain.SensitiveAction)) *domain.SensitiveAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok || !slices.Contains(from, a.Status) {
		return nil
	}
	mutate(a)
	return copyAction(a)
}

func (r *ActionRepo) Approve(ctx context.Context, id, approvedBy uuid.UUID, at time.Time, to domain.ActionStatus) (*domain.SensitiveAction, error) {
	return r.s.transition(id, []domain.ActionStatus{domain.StatusPendingApproval}, func(a *domain.SensitiveAction) {
		a.Status = to
		a.ApprovedBy = &approvedBy
		a.ApprovedAt = &at
		a.UpdatedAt = at
	}), nil
}

func (r *ActionRepo) ClaimScheduled(ctx context.Context, id uuid.UUID, now time.Time) (*domain.SensitiveAction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok || !isDue(a, now) {
		return nil, nil
	}
	a.Status = domain.StatusProcessing
	a.UpdatedAt = now
	return copyAction(a), nil
}

func (r *ActionRepo) ClaimDueScheduled(ctx context.Context, now time.Time, limit int) ([]*domain.SensitiveAction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.SensitiveAction
	for _, a := range s.actions {
		if isDue(a, now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Metadata.ScheduledFor.Before(*due[j].Metadata.ScheduledFor) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]*domain.SensitiveAction, 0, len(due))
	for _, a := range due {
		a.Status = domain.StatusProcessing
		a.UpdatedAt = now
		out = append(out, copyAction(a))
	}
	return out, nil
}

func isDue(a *domain.SensitiveAction, now time.Time) bool {
	return a.Status == domain.StatusScheduled &&
		a.Metadata.ScheduledFor != nil &&
		!a.Metadata.ScheduledFor.After(now)
}

func (r *ActionRepo) Complete(ctx context.Context, id uuid.UUID, reference string, at time.Time) (*domain.SensitiveAction, error) {
	return r.s.transition(id, []domain.ActionStatus{domain.StatusProcessing}, func(a *domain.SensitiveAction) {
		a.Status = domain.StatusCompleted
		a.Metadata.PayoutReference = reference
		a.CompletedAt = &at
		a.UpdatedAt = at
	}), nil
}

func (r *ActionRepo) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*domain.SensitiveAction, error) {
	return r.s.transition(id, []domain.ActionStatus{domain.StatusProcessing}, func(a *domain.SensitiveAction) {
		a.Status = domain.StatusFailed
		a.Metadata.Error = reason
		a.FailureReason = &reason
		a.UpdatedAt = at
	}), nil
}

func (r *ActionRepo) Cancel(ctx context.Context, id, cancelledBy uuid.UUID, at time.Time) (*domain.SensitiveAction, error) {
	from := []domain.ActionStatus{domain.StatusPendingApproval, domain.StatusScheduled}
	return r.s.transition(id, from, func(a *domain.SensitiveAction) {
		reason := domain.FailureCancelled
		a.Status = domain.StatusFailed
		a.FailureReason = &reason
		a.Metadata.CancelledBy = &cancelledBy
		a.UpdatedAt = at
	}), nil
}

func (r *ActionRepo) SumCommittedSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumCommittedLocked(userID, since), nil
}

func (s *Store) sumCommittedLocked(userID uuid.UUID, since time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range s.actions {
		if a.InitiatedBy != userID || a.CreatedAt.Before(since) {
			continue
		}
		if slices.Contains(domain.CommittedStatuses, a.Status) {
			sum = sum.Add(a.AmountInvolved)
		}
	}
	return sum
}

func (r *ActionRepo) HasOpenForOrganizer(ctx context.Context, organizerID uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.actions {
		if a.OrganizerID == organizerID && slices.Contains(domain.OpenPayoutStatuses, a.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ActionRepo) ListPendingApprovals(ctx context.Context, excludeUser uuid.UUID, page domain.Page) ([]*domain.SensitiveAction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*domain.SensitiveAction
	for _, a := range s.actions {
		if a.Status == domain.StatusPendingApproval && a.InitiatedBy != excludeUser {
			pending = append(pending, copyAction(a))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.After(pending[j].CreatedAt) })
	return paginate(pending, page), nil
}

func paginate[T any](items []T, page domain.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}
