package httpapi

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/services"
	"time"

	"github.com/google/uuid"
)

// --- Requests ---

type addAccountRequest struct {
	BankName            string `json:"bankName"`
	BankCode            string `json:"bankCode"`
	AccountNumber       string `json:"accountNumber"`
	AccountName         string `json:"accountName"`
	IsDefault           bool   `json:"isDefault"`
	RequireConfirmation *bool  `json:"requireConfirmation,omitempty"` // Defaults to true
}

type updateAccountRequest struct {
	BankName      *string `json:"bankName,omitempty"`
	BankCode      *string `json:"bankCode,omitempty"`
	AccountNumber *string `json:"accountNumber,omitempty"`
	AccountName   *string `json:"accountName,omitempty"`
	IsDefault     *bool   `json:"isDefault,omitempty"`
}

func (r updateAccountRequest) toDomain() domain.BankAccountUpdate {
	return domain.BankAccountUpdate{
		BankName:      r.BankName,
		BankCode:      r.BankCode,
		AccountNumber: r.AccountNumber,
		AccountName:   r.AccountName,
		IsDefault:     r.IsDefault,
	}
}

type confirmRequest struct {
	Token string `json:"token"`
}

type otpRequest struct {
	Purpose string `json:"purpose"`
}

type payoutRequest struct {
	OrganizerID   uuid.UUID `json:"organizerId"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"paymentMethod"`
	OTPCode       string    `json:"otpCode"`
}

type approveRequest struct {
	OTPCode string `json:"otpCode"`
}

type cancelRequest struct {
	Note string `json:"note"`
}

// --- Responses ---

// The raw confirmation token is delivered out of band only and never appears here.
type addAccountResponse struct {
	AccountID            uuid.UUID `json:"accountId"`
	CoolingUntil         time.Time `json:"coolingUntil"`
	RequiresConfirmation bool      `json:"requiresConfirmation"`
}

type updateAccountResponse struct {
	RequiresConfirmation bool       `json:"requiresConfirmation"`
	CoolingUntil         *time.Time `json:"coolingUntil,omitempty"`
}

type accountView struct {
	ID                      uuid.UUID `json:"id"`
	BankName                string    `json:"bankName"`
	BankCode                string    `json:"bankCode"`
	AccountNumberMasked     string    `json:"accountNumberMasked"`
	AccountName             string    `json:"accountName"`
	IsDefault               bool      `json:"isDefault"`
	IsVerified              bool      `json:"isVerified"`
	PendingConfirmation     bool      `json:"pendingConfirmation"`
	CoolingUntil            time.Time `json:"coolingUntil"`
	CoolingRemainingSeconds int64     `json:"coolingRemainingSeconds"`
}

func newAccountView(v services.AccountView) accountView {
	return accountView{
		ID:                      v.ID,
		BankName:                v.BankName,
		BankCode:                v.BankCode,
		AccountNumberMasked:     v.AccountNumberMasked,
		AccountName:             v.AccountName,
		IsDefault:               v.IsDefault,
		IsVerified:              v.IsVerified,
		PendingConfirmation:     v.PendingConfirmation,
		CoolingUntil:            v.CoolingUntil,
		CoolingRemainingSeconds: int64(v.CoolingRemaining / time.Second),
	}
}

type eligibilityView struct {
	Eligible  bool       `json:"eligible"`
	Reason    string     `json:"reason"`
	AccountID *uuid.UUID `json:"accountId,omitempty"`
}

func newEligibilityView(e domain.Eligibility) eligibilityView {
	v := eligibilityView{Eligible: e.Eligible, Reason: e.Reason}
	if e.AccountID != uuid.Nil {
		id := e.AccountID
		v.AccountID = &id
	}
	return v
}

type snapshotView struct {
	BankName            string `json:"bankName"`
	AccountName         string `json:"accountName"`
	AccountNumberMasked string `json:"accountNumberMasked"`
}

func newSnapshotView(s *domain.AccountSnapshot) *snapshotView {
	if s == nil {
		return nil
	}
	return &snapshotView{
		BankName:            s.BankName,
		AccountName:         s.AccountName,
		AccountNumberMasked: s.AccountNumberMasked,
	}
}

type changeView struct {
	ID                   uuid.UUID     `json:"id"`
	BankAccountID        uuid.UUID     `json:"bankAccountId"`
	ChangeType           string        `json:"changeType"`
	Previous             *snapshotView `json:"previous,omitempty"`
	New                  *snapshotView `json:"new,omitempty"`
	ChangedBy            uuid.UUID     `json:"changedBy"`
	IPAddress            string        `json:"ipAddress,omitempty"`
	ConfirmationRequired bool          `json:"confirmationRequired"`
	ConfirmedAt          *time.Time    `json:"confirmedAt,omitempty"`
	IsSuspicious         bool          `json:"isSuspicious"`
	CreatedAt            time.Time     `json:"createdAt"`
}

func newChangeView(c *domain.BankAccountChange) changeView {
	return changeView{
		ID:                   c.ID,
		BankAccountID:        c.BankAccountID,
		ChangeType:           string(c.ChangeType),
		Previous:             newSnapshotView(c.Previous),
		New:                  newSnapshotView(c.New),
		ChangedBy:            c.ActorID,
		IPAddress:            c.IPAddress,
		ConfirmationRequired: c.ConfirmationRequired,
		ConfirmedAt:          c.ConfirmedAt,
		IsSuspicious:         c.IsSuspicious,
		CreatedAt:            c.CreatedAt,
	}
}

// payoutView is the wire form of a SensitiveAction. Amounts are strings with two
// decimal places so clients never see float rounding.
type payoutView struct {
	ID               uuid.UUID             `json:"id"`
	Status           string                `json:"status"`
	InitiatedBy      uuid.UUID             `json:"initiatedBy"`
	OrganizerID      uuid.UUID             `json:"organizerId"`
	Amount           string                `json:"amount"`
	Currency         string                `json:"currency"`
	RequiresApproval bool                  `json:"requiresApproval"`
	Metadata         domain.PayoutMetadata `json:"metadata"`
	ApprovedBy       *uuid.UUID            `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time            `json:"approvedAt,omitempty"`
	CompletedAt      *time.Time            `json:"completedAt,omitempty"`
	FailureReason    *string               `json:"failureReason,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

func newPayoutView(a *domain.SensitiveAction) payoutView {
	return payoutView{
		ID:               a.ID,
		Status:           string(a.Status),
		InitiatedBy:      a.InitiatedBy,
		OrganizerID:      a.OrganizerID,
		Amount:           a.AmountInvolved.StringFixed(2),
		Currency:         a.Currency,
		RequiresApproval: a.RequiresApproval,
		Metadata:         a.Metadata,
		ApprovedBy:       a.ApprovedBy,
		ApprovedAt:       a.ApprovedAt,
		CompletedAt:      a.CompletedAt,
		FailureReason:    a.FailureReason,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type otpResponse struct {
	OTPID   uuid.UUID `json:"otpId"`
	Purpose string    `json:"purpose"`
}
