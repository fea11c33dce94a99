package domain

import (
	"time"

	"github.com/google/uuid"
)

// OTP purposes.
const (
	PurposeLogin          = "login"
	PurposePayoutRequest  = "payout_request"
	PurposePayoutApproval = "payout_approval"
	PurposeBankChange     = "bank_change"
)

// OTPRecord is one issued one-time code.
type OTPRecord struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Purpose     string
	OTPHash     string
	ExpiresAt   time.Time
	Attempts    int
	MaxAttempts int
	IsVerified  bool
	UsedAt      *time.Time // Nullable, set once the code is consumed or dead
	CreatedAt   time.Time
}

// IsLive reports whether the code can still be tried.
func (o *OTPRecord) IsLive(now time.Time) bool {
	return !o.IsVerified && o.UsedAt == nil && o.ExpiresAt.After(now)
}
