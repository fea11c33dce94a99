package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names that carry payout authority regardless of the capability flag.
const (
	RoleSuperAdmin   = "super_admin"
	RoleFinanceAdmin = "finance_admin"
	RoleAccountAdmin = "account_admin"
)

// RoleAssignment links a user to a role.
type RoleAssignment struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	RoleName          string
	CanProcessPayouts bool
	IsActive          bool
	AssignedAt        time.Time
	ExpiresAt         *time.Time // Nullable
}

// IsCurrent reports whether the assignment is active and not expired at now.
func (r *RoleAssignment) IsCurrent(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// GrantsPayoutAuthority reports whether the role may initiate or approve payouts.
func (r *RoleAssignment) GrantsPayoutAuthority() bool {
	switch r.RoleName {
	case RoleSuperAdmin, RoleFinanceAdmin, RoleAccountAdmin:
		return true
	}
	return r.CanProcessPayouts
}

// Authority is the result of a payout authority lookup.
type Authority struct {
	Authorized bool
	Role       *RoleAssignment // Nil when no current assignment exists
	Reason     string
}
