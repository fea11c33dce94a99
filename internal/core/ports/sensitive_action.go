package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SensitiveActionRepository defines persistence for payout actions.
// Every transition is a conditional update; a nil result means the row was not in
// the expected state (someone else won).
type SensitiveActionRepository interface {
	// CreateWithinDailyLimit inserts the action only if the initiator's committed volume
	// since `since` plus the new amount stays below maxDaily. The sum and the insert run
	// atomically per initiator. Returns domain.ErrDailyLimitExceeded otherwise.
	CreateWithinDailyLimit(ctx context.Context, action *domain.SensitiveAction, since time.Time, maxDaily decimal.Decimal) error

	// GetByID finds an action. Returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SensitiveAction, error)

	// Approve moves a pending_approval action to `to` (processing or scheduled) and records the approver.
	Approve(ctx context.Context, id, approvedBy uuid.UUID, at time.Time, to domain.ActionStatus) (*domain.SensitiveAction, error)

	// ClaimScheduled moves one due scheduled action to processing.
	ClaimScheduled(ctx context.Context, id uuid.UUID, now time.Time) (*domain.SensitiveAction, error)

	// ClaimDueScheduled claims up to limit due scheduled actions for execution.
	ClaimDueScheduled(ctx context.Context, now time.Time, limit int) ([]*domain.SensitiveAction, error)

	// Complete moves a processing action to completed.
	Complete(ctx context.Context, id uuid.UUID, reference string, at time.Time) (*domain.SensitiveAction, error)

	// Fail moves a processing action to failed.
	Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*domain.SensitiveAction, error)

	// Cancel moves a pending_approval or scheduled action to failed with reason "cancelled".
	Cancel(ctx context.Context, id, cancelledBy uuid.UUID, at time.Time) (*domain.SensitiveAction, error)

	// SumCommittedSince sums the initiator's committed payout volume created at or after since.
	SumCommittedSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)

	// HasOpenForOrganizer reports whether any payout for the organizer is still in flight.
	HasOpenForOrganizer(ctx context.Context, organizerID uuid.UUID) (bool, error)

	// ListPendingApprovals lists pending_approval actions not initiated by excludeUser, newest first.
	ListPendingApprovals(ctx context.Context, excludeUser uuid.UUID, page domain.Page) ([]*domain.SensitiveAction, error)
}

// OpenPayoutChecker is the read the bank account registry needs from the payout side.
type OpenPayoutChecker interface {
	HasOpenForOrganizer(ctx context.Context, organizerID uuid.UUID) (bool, error)
}

// CommittedVolumeReader is the read the role resolver needs for daily volume.
type CommittedVolumeReader interface {
	SumCommittedSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
}
