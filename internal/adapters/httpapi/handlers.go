package httpapi

import (
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/services"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BankAccounts is the registry surface the API exposes.
type BankAccounts interface {
	AddAccount(ctx context.Context, organizerID uuid.UUID, in domain.NewBankAccount, requireConfirmation bool) (*services.AddAccountResult, error)
	UpdateAccount(ctx context.Context, accountID, organizerID uuid.UUID, update domain.BankAccountUpdate) (*services.UpdateAccountResult, error)
	RemoveAccount(ctx context.Context, accountID, organizerID uuid.UUID) error
	ConfirmChange(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, accountID, organizerID uuid.UUID) error
	MarkVerified(ctx context.Context, accountID uuid.UUID) error
	OrganizerEligibility(ctx context.Context, organizerID uuid.UUID) (domain.Eligibility, error)
	ListAccounts(ctx context.Context, organizerID uuid.UUID) ([]services.AccountView, error)
	ListChanges(ctx context.Context, organizerID uuid.UUID, page domain.Page) ([]*domain.BankAccountChange, error)
}

// OTPs issues and checks one-time codes.
type OTPs interface {
	Generate(ctx context.Context, userID uuid.UUID, purpose string) (uuid.UUID, error)
	Verify(ctx context.Context, userID uuid.UUID, code, purpose string) error
}

// Payouts is the authorization engine surface the API exposes.
type Payouts interface {
	RequestPayout(ctx context.Context, req domain.PayoutRequest) (*domain.SensitiveAction, error)
	ApprovePayout(ctx context.Context, actionID, approvedBy uuid.UUID, otpCode string) (*domain.SensitiveAction, error)
	CancelPayout(ctx context.Context, actionID, cancelledBy uuid.UUID, note string) (*domain.SensitiveAction, error)
	ListPendingApprovals(ctx context.Context, userID uuid.UUID, page domain.Page) ([]*domain.SensitiveAction, error)
	GetAction(ctx context.Context, actionID, viewer uuid.UUID) (*domain.SensitiveAction, error)
}

// Handlers holds the HTTP handlers for the engine.
type Handlers struct {
	bank    BankAccounts
	otp     OTPs
	payouts Payouts
	log     zerolog.Logger
}

func NewHandlers(bank BankAccounts, otp OTPs, payouts Payouts, baseLogger *zerolog.Logger) *Handlers {
	return &Handlers{
		bank:    bank,
		otp:     otp,
		payouts: payouts,
		log:     baseLogger.With().Str("component", "http_handlers").Logger(),
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyBody
		}
		return domain.Reasonf(domain.ErrValidation, "invalid request body: %v", err)
	}
	return nil
}

func pageFrom(r *http.Request) domain.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return domain.Page{Limit: limit, Offset: offset}.Normalize()
}

// fail logs infrastructure failures and renders err.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, endpoint string, err error, action *domain.SensitiveAction) {
	status, code := errorKind(err)
	event := h.log.Info()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("endpoint", endpoint).Str("code", code).Str("method", r.Method).Msg("Request refused")
	writeServiceError(w, err, action)
}

// --- Bank accounts ---

func (h *Handlers) AddBankAccount(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "add_bank_account", err, nil)
		return
	}
	var req addAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "add_bank_account", err, nil)
		return
	}
	requireConfirmation := true
	if req.RequireConfirmation != nil {
		requireConfirmation = *req.RequireConfirmation
	}

	res, err := h.bank.AddAccount(r.Context(), organizerID, domain.NewBankAccount{
		BankName:      req.BankName,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		IsDefault:     req.IsDefault,
	}, requireConfirmation)
	if err != nil {
		h.fail(w, r, "add_bank_account", err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, addAccountResponse{
		AccountID:            res.AccountID,
		CoolingUntil:         res.CoolingUntil,
		RequiresConfirmation: res.RequiresConfirmation,
	})
}

func (h *Handlers) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "list_bank_accounts", err, nil)
		return
	}
	accounts, err := h.bank.ListAccounts(r.Context(), organizerID)
	if err != nil {
		h.fail(w, r, "list_bank_accounts", err, nil)
		return
	}
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountView(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) UpdateBankAccount(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "update_bank_account", err, nil)
		return
	}
	accountID, err := uuidParam(r, "accountID")
	if err != nil {
		h.fail(w, r, "update_bank_account", err, nil)
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "update_bank_account", err, nil)
		return
	}

	res, err := h.bank.UpdateAccount(r.Context(), accountID, organizerID, req.toDomain())
	if err != nil {
		h.fail(w, r, "update_bank_account", err, nil)
		return
	}
	resp := updateAccountResponse{RequiresConfirmation: res.RequiresConfirmation}
	if res.RequiresConfirmation {
		cooling := res.CoolingUntil
		resp.CoolingUntil = &cooling
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) RemoveBankAccount(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "remove_bank_account", err, nil)
		return
	}
	accountID, err := uuidParam(r, "accountID")
	if err != nil {
		h.fail(w, r, "remove_bank_account", err, nil)
		return
	}
	if err := h.bank.RemoveAccount(r.Context(), accountID, organizerID); err != nil {
		h.fail(w, r, "remove_bank_account", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "resend_confirmation", err, nil)
		return
	}
	accountID, err := uuidParam(r, "accountID")
	if err != nil {
		h.fail(w, r, "resend_confirmation", err, nil)
		return
	}
	if err := h.bank.ResendConfirmation(r.Context(), accountID, organizerID); err != nil {
		h.fail(w, r, "resend_confirmation", err, nil)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "confirmation sent"})
}

func (h *Handlers) Eligibility(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "eligibility", err, nil)
		return
	}
	elig, err := h.bank.OrganizerEligibility(r.Context(), organizerID)
	if err != nil {
		h.fail(w, r, "eligibility", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newEligibilityView(elig))
}

func (h *Handlers) ListBankChanges(w http.ResponseWriter, r *http.Request) {
	organizerID, err := uuidParam(r, "organizerID")
	if err != nil {
		h.fail(w, r, "list_bank_changes", err, nil)
		return
	}
	changes, err := h.bank.ListChanges(r.Context(), organizerID, pageFrom(r))
	if err != nil {
		h.fail(w, r, "list_bank_changes", err, nil)
		return
	}
	out := make([]changeView, 0, len(changes))
	for _, c := range changes {
		out = append(out, newChangeView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// ConfirmBankChange is public: possession of the token is the proof.
func (h *Handlers) ConfirmBankChange(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "confirm_bank_change", err, nil)
		return
	}
	if err := h.bank.ConfirmChange(r.Context(), req.Token); err != nil {
		h.fail(w, r, "confirm_bank_change", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// VerifyBankAccount is called by the verification provider over the internal API.
func (h *Handlers) VerifyBankAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuidParam(r, "accountID")
	if err != nil {
		h.fail(w, r, "verify_bank_account", err, nil)
		return
	}
	if err := h.bank.MarkVerified(r.Context(), accountID); err != nil {
		h.fail(w, r, "verify_bank_account", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// --- OTP ---

func (h *Handlers) IssueOTP(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.fail(w, r, "issue_otp", err, nil)
		return
	}
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "issue_otp", err, nil)
		return
	}
	id, err := h.otp.Generate(r.Context(), actor.UserID, req.Purpose)
	if err != nil {
		h.fail(w, r, "issue_otp", err, nil)
		return
	}
	writeJSON(w, http.StatusAccepted, otpResponse{OTPID: id, Purpose: req.Purpose})
}

// --- Payouts ---

// RequestPayout verifies the payout_request OTP, when one is presented, before
// handing the request to the engine.
func (h *Handlers) RequestPayout(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.fail(w, r, "request_payout", err, nil)
		return
	}
	var req payoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "request_payout", err, nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.fail(w, r, "request_payout", domain.Reasonf(domain.ErrValidation, "amount %q is not a decimal", req.Amount), nil)
		return
	}

	otpVerified := false
	if req.OTPCode != "" {
		if err := h.otp.Verify(r.Context(), actor.UserID, req.OTPCode, domain.PurposePayoutRequest); err != nil {
			h.fail(w, r, "request_payout", err, nil)
			return
		}
		otpVerified = true
	}

	action, err := h.payouts.RequestPayout(r.Context(), domain.PayoutRequest{
		OrganizerID:   req.OrganizerID,
		Amount:        amount,
		Currency:      req.Currency,
		InitiatedBy:   actor.UserID,
		OTPVerified:   otpVerified,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.fail(w, r, "request_payout", err, action)
		return
	}

	status := http.StatusCreated
	if action.Status == domain.StatusPendingApproval || action.Status == domain.StatusScheduled {
		status = http.StatusAccepted
	}
	writeJSON(w, status, newPayoutView(action))
}

func (h *Handlers) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.fail(w, r, "approve_payout", err, nil)
		return
	}
	actionID, err := uuidParam(r, "actionID")
	if err != nil {
		h.fail(w, r, "approve_payout", err, nil)
		return
	}
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "approve_payout", err, nil)
		return
	}

	action, err := h.payouts.ApprovePayout(r.Context(), actionID, actor.UserID, req.OTPCode)
	if err != nil {
		h.fail(w, r, "approve_payout", err, action)
		return
	}
	writeJSON(w, http.StatusOK, newPayoutView(action))
}

func (h *Handlers) CancelPayout(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.fail(w, r, "cancel_payout", err, nil)
		return
	}
	actionID, err := uuidParam(r, "actionID")
	if err != nil {
		h.fail(w, r, "cancel_payout", err, nil)
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, "cancel_payout", err, nil)
			return
		}
	}

	action, err := h.payouts.CancelPayout(r.Context(), actionID, actor.UserID, req.Note)
	if err != nil {
		h.fail(w, r, "cancel_payout", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newPayoutView(action))
}

func (h *Handlers) GetPayout(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.fail(w, r, "get_payout", err, nil)
		return
	}
	actionID, err := uuidParam(r, "actionID")
	if err != nil {
		h.fail(w, r, "get_payout", err, nil)
		return
	}
	action, err := h.payouts.GetAction(r.Context(), actionID, actor.UserID)
	if err != nil {
		h.fail(w, r, "get_payout", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newPayoutView(action))
}

func (h *Handlers) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.fail(w, r, "list_pending", err, nil)
		return
	}
	actions, err := h.payouts.ListPendingApprovals(r.Context(), actor.UserID, pageFrom(r))
	if err != nil {
		h.fail(w, r, "list_pending", err, nil)
		return
	}
	out := make([]payoutView, 0, len(actions))
	for _, a := range actions {
		out = append(out, newPayoutView(a))
	}
	writeJSON(w, http.StatusOK, out)
}
