package ports

import "context"

// Notification event types.
const (
	NotifyPayoutApprovalRequired = "payout_approval_required"
	NotifyPayoutCompleted        = "payout_completed"
	NotifyPayoutFailed           = "payout_failed"
	NotifyPayoutScheduled        = "payout_scheduled"
	NotifyPayoutCancelled        = "payout_cancelled"
	NotifyBankAccountAdded       = "bank_account_added"
	NotifyBankAccountUpdated     = "bank_account_updated"
	NotifyBankAccountRemoved     = "bank_account_removed"
	NotifyBankChangeConfirmation = "bank_change_confirmation"
	NotifyOTPIssued              = "otp_issued"
)

// Notification is what a Notifier delivers.
type Notification struct {
	EventType string
	Recipient string
	Payload   map[string]string
}

// Notifier informs people about state transitions. Delivery is fire-and-forget:
// a failure is reported but must never undo the transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, eventType, recipient string, payload map[string]string) error
}
