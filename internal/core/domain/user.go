package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is a custom type for the profile status ENUM
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// User is the slice of a platform profile the engine needs.
type User struct {
	ID            uuid.UUID
	Email         *string // Nullable
	IsActive      bool
	AccountStatus AccountStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanAct reports whether the profile may perform sensitive actions.
func (u *User) CanAct() bool {
	return u.IsActive && u.AccountStatus != AccountStatusSuspended
}

// Session is an authenticated login session.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	IsActive  bool
	ExpiresAt time.Time
}

// IsValid reports whether the session can authorize requests at now.
func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}
