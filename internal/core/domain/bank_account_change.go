package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType is a custom type for the bank change ENUM
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeUpdated ChangeType = "updated"
	ChangeRemoved ChangeType = "removed"
)

// AccountSnapshot is the state of a bank account on one side of a change.
type AccountSnapshot struct {
	BankName            string
	AccountName         string
	AccountNumber       string // Encrypted at rest, compliance copy
	AccountNumberMasked string
}

// BankAccountChange is one append-only row of the bank change log.
type BankAccountChange struct {
	ID                   uuid.UUID
	OrganizerID          uuid.UUID
	BankAccountID        uuid.UUID
	ChangeType           ChangeType
	Previous             *AccountSnapshot // Nil for "added"
	New                  *AccountSnapshot // Nil for "removed"
	ActorID              uuid.UUID
	IPAddress            string
	UserAgent            string
	ConfirmationRequired bool
	ConfirmedAt          *time.Time
	IsSuspicious         bool
	SuspiciousReason     *string
	CreatedAt            time.Time
}

// SnapshotOf captures the visible state of acct.
func SnapshotOf(acct *BankAccount) *AccountSnapshot {
	return &AccountSnapshot{
		BankName:            acct.BankName,
		AccountName:         acct.AccountName,
		AccountNumber:       acct.AccountNumber,
		AccountNumberMasked: acct.MaskedNumber(),
	}
}
