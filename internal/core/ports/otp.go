package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// OTPRepository defines persistence for one-time codes.
type OTPRepository interface {
	Create(ctx context.Context, rec *domain.OTPRecord) error

	// CountCreatedSince counts codes issued to the user at or after since.
	CountCreatedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// GetLatestLive returns the newest unverified, unused, unexpired code for
	// (user, purpose). Returns nil, nil when none exists.
	GetLatestLive(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) (*domain.OTPRecord, error)

	// IncrementAttempts bumps the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)

	// MarkVerified consumes a live code. Returns false when it was already consumed.
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// MarkUsed kills a code without verifying it.
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteExpired removes codes that expired before expiredBefore and were issued
	// before createdBefore. Rows still inside the rate-limit window must survive, the
	// store limiter counts them.
	DeleteExpired(ctx context.Context, expiredBefore, createdBefore time.Time) (int64, error)
}

// OTPRateLimiter decides whether a user may be issued another code.
type OTPRateLimiter interface {
	// Allow returns domain.ErrRateLimited when the user is over the limit.
	Allow(ctx context.Context, userID uuid.UUID, now time.Time) error
}

// OTPChecker verifies a code for a purpose.
type OTPChecker interface {
	Verify(ctx context.Context, userID uuid.UUID, code, purpose string) error
}
