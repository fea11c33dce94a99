package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is a custom type for the audit risk ENUM
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Audit categories.
const (
	CategoryFinance        = "finance"
	CategoryAuthentication = "authentication"
	CategoryBankAccount    = "bank_account"
)

// Audit event types.
const (
	EventPayoutInitiated         = "payout_initiated"
	EventPayoutRejected          = "payout_rejected"
	EventPayoutScheduled         = "payout_scheduled"
	EventPayoutApprovalRequested = "payout_approval_requested"
	EventPayoutApproved          = "payout_approved"
	EventPayoutApprovalFailed    = "payout_approval_failed"
	EventPayoutCancelled         = "payout_cancelled"
	EventPayoutCompleted         = "payout_completed"
	EventPayoutFailed            = "payout_failed"
	EventOTPGenerated            = "otp_generated"
	EventOTPVerified             = "otp_verified"
	EventOTPVerificationFailed   = "otp_verification_failed"
	EventOTPMaxAttempts          = "otp_max_attempts_exceeded"
	EventBankAccountAdded        = "bank_account_added"
	EventBankAccountUpdated      = "bank_account_updated"
	EventBankAccountRemoved      = "bank_account_removed"
	EventBankAccountConfirmed    = "bank_account_confirmed"
	EventBankAccountVerified     = "bank_account_verified"
	EventBankConfirmationResent  = "bank_confirmation_resent"
)

// AuditEntry is one append-only security event.
type AuditEntry struct {
	ID           uuid.UUID
	ActorID      uuid.UUID
	EventType    string
	Category     string
	ResourceType string
	ResourceID   uuid.UUID
	RiskLevel    RiskLevel
	Description  string
	Details      map[string]string
	CreatedAt    time.Time
}

// Page is a limit/offset window for list endpoints.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
