package httpapi

import (
	"PayoutGuard/internal/adapters/memory"
	"PayoutGuard/internal/adapters/security"
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"PayoutGuard/internal/core/services"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("http-test-secret")

const testAPIKey = "internal-test-key"

type capturedNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (n *capturedNotifier) Notify(ctx context.Context, eventType, recipient string, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, ports.Notification{EventType: eventType, Recipient: recipient, Payload: payload})
	return nil
}

func (n *capturedNotifier) latest(eventType string, recipient uuid.UUID, key string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].EventType == eventType && n.sent[i].Recipient == recipient.String() {
			return n.sent[i].Payload[key]
		}
	}
	return ""
}

type stubExecutor struct {
	mu    sync.Mutex
	calls int
}

func (e *stubExecutor) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return domain.ExecutionResult{Success: true, Reference: "REF-" + req.ActionID.String()[:8]}, nil
}

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (o *routeRecorder) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, method+" "+route)
}

type apiFixture struct {
	store    *memory.Store
	notifier *capturedNotifier
	executor *stubExecutor
	observer *routeRecorder
	handler  http.Handler

	organizerID uuid.UUID
	owner       uuid.UUID
	approver    uuid.UUID
	outsider    uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zerolog.Nop()
	f := &apiFixture{
		store:       memory.NewStore(&logger),
		notifier:    &capturedNotifier{},
		executor:    &stubExecutor{},
		observer:    &routeRecorder{},
		organizerID: uuid.New(),
		owner:       uuid.New(),
		approver:    uuid.New(),
		outsider:    uuid.New(),
	}

	now := time.Now()
	for _, id := range []uuid.UUID{f.owner, f.approver, f.outsider} {
		f.store.PutUser(&domain.User{ID: id, IsActive: true, AccountStatus: domain.AccountStatusActive, CreatedAt: now})
		f.store.PutSession(&domain.Session{ID: uuid.New(), UserID: id, IsActive: true, ExpiresAt: now.Add(24 * time.Hour)})
	}
	f.store.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: f.owner, RoleName: domain.RoleFinanceAdmin, IsActive: true, AssignedAt: now.Add(-time.Hour)})
	f.store.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: f.approver, RoleName: domain.RoleSuperAdmin, IsActive: true, AssignedAt: now.Add(-time.Hour)})
	f.store.PutOrganizer(f.organizerID, f.owner)

	tokens := security.NewTokenIssuer()
	audit := f.store.Audit()

	bank := services.NewBankAccountService(
		f.store.BankAccounts(), f.store.Identity(), f.store.Actions(), audit, f.notifier, tokens,
		services.BankAccountConfig{CoolingPeriod: 48 * time.Hour, ConfirmationTTL: time.Hour},
		&logger,
	)
	roles := services.NewRoleService(f.store.Roles(), f.store.Actions(), time.UTC, &logger)
	otp := services.NewOTPService(
		f.store.OTPs(),
		services.NewStoreRateLimiter(f.store.OTPs(), 5, time.Hour),
		security.NewBcryptHasher(4),
		tokens, audit, f.notifier, nil,
		services.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3, HourlyLimit: 5, CodeDigits: 6, RateLimitWindow: time.Hour},
		&logger,
	)
	payouts := services.NewPayoutService(services.PayoutDeps{
		Actions:     f.store.Actions(),
		Authority:   roles,
		Volume:      roles,
		Identity:    f.store.Identity(),
		Eligibility: bank,
		OTP:         otp,
		Executor:    f.executor,
		Notifier:    f.notifier,
		Audit:       audit,
	}, services.PayoutPolicy{
		DualAuthThreshold:      decimal.NewFromInt(10000),
		DelayThreshold:         decimal.NewFromInt(50000),
		MaxDailyAmount:         decimal.NewFromInt(1000000),
		PayoutDelay:            24 * time.Hour,
		HoldApprovedUntilDelay: true,
	}, &logger)

	f.handler = NewRouter(
		NewHandlers(bank, otp, payouts, &logger),
		RouterConfig{JWTSecret: testSecret, InternalAPIKey: testAPIKey, RequestTimeout: 5 * time.Second},
		f.observer,
		nil,
		&logger,
	)
	return f
}

func (f *apiFixture) token(t *testing.T, user uuid.UUID) string {
	t.Helper()
	tok, err := IssueToken(testSecret, user, uuid.New(), time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// eligibleAccount stores a verified default account whose cooling has ended.
func (f *apiFixture) eligibleAccount(t *testing.T) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	acct := &domain.BankAccount{
		ID:            uuid.New(),
		OrganizerID:   f.organizerID,
		BankName:      "First Bank",
		BankCode:      "011",
		AccountNumber: "0123456789",
		AccountName:   "Lagos Events Ltd",
		IsDefault:     true,
		IsActive:      true,
		IsVerified:    true,
		CoolingUntil:  now.Add(-time.Hour),
		CreatedAt:     now.Add(-72 * time.Hour),
		UpdatedAt:     now.Add(-72 * time.Hour),
	}
	require.NoError(t, f.store.BankAccounts().Create(context.Background(), acct))
	return acct.ID
}

// otpCode issues a code over the API and reads it from the delivery channel.
func (f *apiFixture) otpCode(t *testing.T, user uuid.UUID, purpose string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/otp", f.token(t, user), map[string]string{"purpose": purpose})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	code := f.notifier.latest(ports.NotifyOTPIssued, user, "code")
	require.NotEmpty(t, code)
	assert.NotContains(t, rec.Body.String(), code)
	return code
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_Health(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionAuth(t *testing.T) {
	f := newAPIFixture(t)
	path := "/v1/organizers/" + f.organizerID.String() + "/bank-accounts"

	rec := f.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, path, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := IssueToken([]byte("other-secret"), f.owner, uuid.New(), time.Hour)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, path, forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := IssueToken(testSecret, f.owner, uuid.New(), -time.Minute)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, path, expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, path, f.token(t, f.owner), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBankAccounts_AddConfirmAndList(t *testing.T) {
	f := newAPIFixture(t)
	base := "/v1/organizers/" + f.organizerID.String() + "/bank-accounts"
	owner := f.token(t, f.owner)

	rec := f.do(t, http.MethodPost, base, owner, map[string]any{
		"bankName":      "First Bank",
		"bankCode":      "011",
		"accountNumber": "0123456789",
		"accountName":   "Lagos Events Ltd",
		"isDefault":     true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeBody[addAccountResponse](t, rec)
	assert.True(t, added.RequiresConfirmation)

	raw := f.notifier.latest(ports.NotifyBankChangeConfirmation, f.owner, "token")
	require.NotEmpty(t, raw)
	assert.NotContains(t, rec.Body.String(), raw)
	assert.NotContains(t, rec.Body.String(), "0123456789")

	rec = f.do(t, http.MethodGet, "/v1/organizers/"+f.organizerID.String()+"/eligibility", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	elig := decodeBody[eligibilityView](t, rec)
	assert.False(t, elig.Eligible)
	assert.Equal(t, domain.ReasonPendingConfirmation, elig.Reason)

	rec = f.do(t, http.MethodPost, "/v1/bank-accounts/confirm", "", map[string]string{"token": raw})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/v1/bank-accounts/confirm", "", map[string]string{"token": raw})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_token", decodeBody[errorBody](t, rec).Code)

	rec = f.do(t, http.MethodGet, base, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decodeBody[[]accountView](t, rec)
	require.Len(t, accounts, 1)
	assert.Equal(t, "******6789", accounts[0].AccountNumberMasked)
	assert.False(t, accounts[0].PendingConfirmation)
	assert.Greater(t, accounts[0].CoolingRemainingSeconds, int64(0))

	rec = f.do(t, http.MethodGet, base+"/changes?limit=10", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	changes := decodeBody[[]changeView](t, rec)
	require.Len(t, changes, 1)
	assert.Equal(t, "added", changes[0].ChangeType)
	assert.NotNil(t, changes[0].ConfirmedAt)
	assert.NotContains(t, rec.Body.String(), "0123456789")
}

func TestBankAccounts_ForeignOrganizer(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/organizers/"+f.organizerID.String()+"/bank-accounts", f.token(t, f.outsider), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_authorized", decodeBody[errorBody](t, rec).Code)
}

func TestBankAccounts_RemoveLastAccount(t *testing.T) {
	f := newAPIFixture(t)
	accountID := f.eligibleAccount(t)
	path := "/v1/organizers/" + f.organizerID.String() + "/bank-accounts/" + accountID.String()

	rec := f.do(t, http.MethodDelete, path, f.token(t, f.owner), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "last_account", decodeBody[errorBody](t, rec).Code)
}

func TestBankAccounts_BadInput(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.token(t, f.owner)

	rec := f.do(t, http.MethodGet, "/v1/organizers/not-a-uuid/bank-accounts", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/organizers/"+f.organizerID.String()+"/bank-accounts", owner, map[string]any{
		"bankName":      "First Bank",
		"bankCode":      "011",
		"accountNumber": "12",
		"accountName":   "Lagos Events Ltd",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeBody[errorBody](t, rec).Code)

	rec = f.do(t, http.MethodPost, "/v1/organizers/"+f.organizerID.String()+"/bank-accounts", owner, map[string]any{
		"unexpected": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalVerify(t *testing.T) {
	f := newAPIFixture(t)
	accountID := f.eligibleAccount(t)
	path := "/internal/bank-accounts/" + accountID.String() + "/verify"

	rec := f.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-API-Key", testAPIKey)
	out := httptest.NewRecorder()
	f.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code, out.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/internal/bank-accounts/"+uuid.NewString()+"/verify", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	out = httptest.NewRecorder()
	f.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)
}

func TestPayouts_RequiresOTP(t *testing.T) {
	f := newAPIFixture(t)
	f.eligibleAccount(t)

	rec := f.do(t, http.MethodPost, "/v1/payouts", f.token(t, f.owner), map[string]any{
		"organizerId": f.organizerID,
		"amount":      "5000.00",
		"currency":    "NGN",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "otp_required", decodeBody[errorBody](t, rec).Code)
	assert.Zero(t, f.executor.calls)
}

func TestPayouts_InvalidAmount(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/payouts", f.token(t, f.owner), map[string]any{
		"organizerId": f.organizerID,
		"amount":      "lots",
		"currency":    "NGN",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayouts_SmallPayoutCompletesImmediately(t *testing.T) {
	f := newAPIFixture(t)
	f.eligibleAccount(t)
	code := f.otpCode(t, f.owner, domain.PurposePayoutRequest)

	rec := f.do(t, http.MethodPost, "/v1/payouts", f.token(t, f.owner), map[string]any{
		"organizerId":   f.organizerID,
		"amount":        "5000.50",
		"currency":      "NGN",
		"paymentMethod": "bank_transfer",
		"otpCode":       code,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeBody[payoutView](t, rec)
	assert.Equal(t, string(domain.StatusCompleted), view.Status)
	assert.Equal(t, "5000.50", view.Amount)
	assert.NotEmpty(t, view.Metadata.PayoutReference)
	assert.Equal(t, 1, f.executor.calls)
}

func TestPayouts_DualAuthorizationFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.eligibleAccount(t)
	owner := f.token(t, f.owner)
	code := f.otpCode(t, f.owner, domain.PurposePayoutRequest)

	rec := f.do(t, http.MethodPost, "/v1/payouts", owner, map[string]any{
		"organizerId": f.organizerID,
		"amount":      "20000",
		"currency":    "NGN",
		"otpCode":     code,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	pending := decodeBody[payoutView](t, rec)
	assert.Equal(t, string(domain.StatusPendingApproval), pending.Status)
	assert.True(t, pending.RequiresApproval)
	assert.Zero(t, f.executor.calls)

	// The initiator cannot approve, and never needs an OTP to find that out.
	rec = f.do(t, http.MethodPost, "/v1/payouts/"+pending.ID.String()+"/approve", owner, map[string]string{"otpCode": "000000"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "self_approval_forbidden", decodeBody[errorBody](t, rec).Code)

	approver := f.token(t, f.approver)
	rec = f.do(t, http.MethodGet, "/v1/payouts/pending", approver, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decodeBody[[]payoutView](t, rec)
	require.Len(t, queue, 1)
	assert.Equal(t, pending.ID, queue[0].ID)

	approveCode := f.otpCode(t, f.approver, domain.PurposePayoutApproval)
	rec = f.do(t, http.MethodPost, "/v1/payouts/"+pending.ID.String()+"/approve", approver, map[string]string{"otpCode": approveCode})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeBody[payoutView](t, rec)
	assert.Equal(t, string(domain.StatusCompleted), done.Status)
	require.NotNil(t, done.ApprovedBy)
	assert.Equal(t, f.approver, *done.ApprovedBy)
	assert.Equal(t, 1, f.executor.calls)

	// A second approval loses.
	secondCode := f.otpCode(t, f.approver, domain.PurposePayoutApproval)
	rec = f.do(t, http.MethodPost, "/v1/payouts/"+pending.ID.String()+"/approve", approver, map[string]string{"otpCode": secondCode})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/payouts/"+pending.ID.String(), owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.StatusCompleted), decodeBody[payoutView](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/v1/payouts/"+pending.ID.String(), f.token(t, f.outsider), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, f.observer.routes, "GET /v1/payouts/{actionID}")
	assert.Contains(t, f.observer.routes, "POST /v1/payouts/{actionID}/approve")
}

func TestPayouts_CancelScheduled(t *testing.T) {
	f := newAPIFixture(t)
	f.eligibleAccount(t)
	owner := f.token(t, f.owner)
	code := f.otpCode(t, f.owner, domain.PurposePayoutRequest)

	// Dual authorization takes precedence over the delay.
	rec := f.do(t, http.MethodPost, "/v1/payouts", owner, map[string]any{
		"organizerId": f.organizerID,
		"amount":      "60000",
		"currency":    "NGN",
		"otpCode":     code,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	action := decodeBody[payoutView](t, rec)
	assert.Equal(t, string(domain.StatusPendingApproval), action.Status)
	assert.True(t, action.Metadata.RequiresDelay)

	rec = f.do(t, http.MethodPost, "/v1/payouts/"+action.ID.String()+"/cancel", owner, map[string]string{"note": "wrong amount"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decodeBody[payoutView](t, rec)
	assert.Equal(t, string(domain.StatusFailed), cancelled.Status)
	require.NotNil(t, cancelled.FailureReason)
	assert.Equal(t, domain.FailureCancelled, *cancelled.FailureReason)

	rec = f.do(t, http.MethodPost, "/v1/payouts/"+action.ID.String()+"/cancel", owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_cancellable", decodeBody[errorBody](t, rec).Code)
}

func TestErrorKind_HidesInfrastructureCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, domain.Persistence("load payout action", assert.AnError), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "Internal server error", body.Error)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestErrorKind_ExecutorFailureCarriesPayout(t *testing.T) {
	reason := "rail offline"
	action := &domain.SensitiveAction{
		ID:             uuid.New(),
		Status:         domain.StatusFailed,
		AmountInvolved: decimal.NewFromInt(100),
		Currency:       "NGN",
		FailureReason:  &reason,
	}
	rec := httptest.NewRecorder()
	writeServiceError(rec, &domain.ExecutorError{Reason: reason}, action)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "executor_failure", body.Code)
	require.NotNil(t, body.Payout)
	assert.Equal(t, "failed", body.Payout.Status)
	assert.Equal(t, "100.00", body.Payout.Amount)
}
