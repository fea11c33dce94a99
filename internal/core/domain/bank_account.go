package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BankAccount is an organizer's payout destination.
type BankAccount struct {
	ID                    uuid.UUID
	OrganizerID           uuid.UUID
	BankName              string
	BankCode              string
	AccountNumber         string // Encrypted at rest
	AccountName           string
	IsDefault             bool
	IsActive              bool
	IsVerified            bool
	CoolingUntil          time.Time
	PendingConfirmation   bool
	ConfirmationTokenHash *string // Nullable, SHA-256 of the raw token
	ConfirmationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// InCooling reports whether payouts to the account are still blocked by the cooling window.
func (a *BankAccount) InCooling(now time.Time) bool {
	return now.Before(a.CoolingUntil)
}

// MaskedNumber returns the display form of the account number.
func (a *BankAccount) MaskedNumber() string {
	return MaskAccountNumber(a.AccountNumber)
}

// NewBankAccount holds the caller-supplied details for AddAccount.
type NewBankAccount struct {
	BankName      string
	BankCode      string
	AccountNumber string
	AccountName   string
	IsDefault     bool
}

// BankAccountUpdate carries a partial update. Nil fields are left untouched.
type BankAccountUpdate struct {
	BankName      *string
	BankCode      *string
	AccountNumber *string
	AccountName   *string
	IsDefault     *bool
}

// IsCriticalChange reports whether the update redirects money: a different account
// number or bank code.
func (u BankAccountUpdate) IsCriticalChange(current *BankAccount) bool {
	if u.AccountNumber != nil && *u.AccountNumber != current.AccountNumber {
		return true
	}
	if u.BankCode != nil && *u.BankCode != current.BankCode {
		return true
	}
	return false
}

// Apply copies the non-nil fields onto acct.
func (u BankAccountUpdate) Apply(acct *BankAccount) {
	if u.BankName != nil {
		acct.BankName = *u.BankName
	}
	if u.BankCode != nil {
		acct.BankCode = *u.BankCode
	}
	if u.AccountNumber != nil {
		acct.AccountNumber = *u.AccountNumber
	}
	if u.AccountName != nil {
		acct.AccountName = *u.AccountName
	}
	if u.IsDefault != nil {
		acct.IsDefault = *u.IsDefault
	}
}

// Eligibility is the answer of the payout gate for one organizer.
type Eligibility struct {
	Eligible  bool
	Reason    string
	AccountID uuid.UUID // uuid.Nil when no account qualifies
}

// Eligibility reasons.
const (
	ReasonEligible            = "eligible"
	ReasonNoActiveAccount     = "no active bank account"
	ReasonPendingConfirmation = "bank account change awaiting confirmation"
	ReasonCoolingPeriod       = "bank account in cooling period"
	ReasonNotVerified         = "bank account not verified"
)

// CheckEligibility evaluates a single account against the payout gate.
// Cooling is checked before verification so that a verified account inside its
// window is still refused.
func (a *BankAccount) CheckEligibility(now time.Time) (bool, string) {
	switch {
	case !a.IsActive:
		return false, ReasonNoActiveAccount
	case a.PendingConfirmation:
		return false, ReasonPendingConfirmation
	case a.InCooling(now):
		return false, ReasonCoolingPeriod
	case !a.IsVerified:
		return false, ReasonNotVerified
	}
	return true, ReasonEligible
}

// MaskAccountNumber keeps the last four characters visible.
func MaskAccountNumber(number string) string {
	n := strings.TrimSpace(number)
	if len(n) <= 4 {
		return strings.Repeat("*", len(n))
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

// CoolingRemaining returns how long the cooling window still has to run.
func CoolingRemaining(coolingUntil, now time.Time) time.Duration {
	if !now.Before(coolingUntil) {
		return 0
	}
	return coolingUntil.Sub(now)
}
