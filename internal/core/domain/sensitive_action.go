package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActionType is a custom type for sensitive action kinds.
type ActionType string

const ActionProcessPayout ActionType = "process_payout"

// ActionStatus is a custom type for the payout state machine ENUM
type ActionStatus string

const (
	StatusPendingApproval ActionStatus = "pending_approval"
	StatusScheduled       ActionStatus = "scheduled"
	StatusProcessing      ActionStatus = "processing"
	StatusCompleted       ActionStatus = "completed"
	StatusFailed          ActionStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s ActionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// OpenPayoutStatuses are the states that block bank account removal.
var OpenPayoutStatuses = []ActionStatus{StatusPendingApproval, StatusScheduled, StatusProcessing}

// CommittedStatuses are the states that count against the daily payout cap.
var CommittedStatuses = []ActionStatus{StatusPendingApproval, StatusScheduled, StatusProcessing, StatusCompleted}

// FailureCancelled is the failure reason recorded for a manual cancellation.
const FailureCancelled = "cancelled"

// PayoutMetadataVersion is bumped whenever PayoutMetadata changes shape.
const PayoutMetadataVersion = 1

// PayoutMetadata is the closed context stored alongside a payout action.
type PayoutMetadata struct {
	Version              int        `json:"version"`
	PaymentMethod        string     `json:"paymentMethod,omitempty"`
	RequiresDelay        bool       `json:"requiresDelay"`
	ScheduledFor         *time.Time `json:"scheduledFor,omitempty"`
	DestinationAccountID *uuid.UUID `json:"destinationAccountId,omitempty"`
	PayoutReference      string     `json:"payoutReference,omitempty"`
	Error                string     `json:"error,omitempty"`
	CancelledBy          *uuid.UUID `json:"cancelledBy,omitempty"`
}

// SensitiveAction is the auditable payout authorization record.
type SensitiveAction struct {
	ID               uuid.UUID
	ActionType       ActionType
	InitiatedBy      uuid.UUID
	OrganizerID      uuid.UUID
	AmountInvolved   decimal.Decimal
	Currency         string
	RequiresApproval bool
	OTPVerified      bool
	Status           ActionStatus
	Metadata         PayoutMetadata
	ApprovedBy       *uuid.UUID // Nullable
	ApprovedAt       *time.Time
	CompletedAt      *time.Time
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Disposition computes the entry state for a new payout.
// Dual authorization takes precedence over the delay.
func Disposition(requiresDualAuth, requiresDelay bool) ActionStatus {
	switch {
	case requiresDualAuth:
		return StatusPendingApproval
	case requiresDelay:
		return StatusScheduled
	default:
		return StatusProcessing
	}
}

// PayoutRequest is the input of RequestPayout.
type PayoutRequest struct {
	OrganizerID   uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	InitiatedBy   uuid.UUID
	OTPVerified   bool
	PaymentMethod string
}

// ExecutionRequest is what the payout executor receives.
type ExecutionRequest struct {
	ActionID             uuid.UUID
	OrganizerID          uuid.UUID
	Amount               decimal.Decimal
	Currency             string
	DestinationAccountID uuid.UUID
	PaymentMethod        string
}

// ExecutionResult is the executor's report.
type ExecutionResult struct {
	Success   bool
	Reference string
	Error     string
}
