package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoleRepository reads role assignments.
type RoleRepository interface {
	// GetCurrentAssignment returns the most recently assigned active, unexpired role
	// of the user. Returns nil, nil when none exists.
	GetCurrentAssignment(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.RoleAssignment, error)

	// ListCurrentAssignments returns one current assignment per user (most recent wins).
	ListCurrentAssignments(ctx context.Context, now time.Time) ([]*domain.RoleAssignment, error)
}

// AuthorityResolver answers payout authority questions.
type AuthorityResolver interface {
	HasPayoutAuthority(ctx context.Context, userID uuid.UUID) (domain.Authority, error)
	ListApprovers(ctx context.Context, exclude uuid.UUID) ([]uuid.UUID, error)
}

// DailyVolumeResolver reports how much of the daily payout cap a user has used.
type DailyVolumeResolver interface {
	GetDailyCommitted(ctx context.Context, userID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
	StartOfDay(t time.Time) time.Time
}
