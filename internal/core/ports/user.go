package ports

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityRepository reads profiles, sessions and organizer ownership.
// The engine never writes these.
type IdentityRepository interface {
	// GetUser finds a profile. Returns nil, nil when absent.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// HasValidSession reports whether the user holds an active, unexpired session.
	HasValidSession(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)

	// OwnsOrganizer reports whether the user owns the organizer.
	OwnsOrganizer(ctx context.Context, userID, organizerID uuid.UUID) (bool, error)
}
