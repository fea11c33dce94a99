package services

import (
	"PayoutGuard/internal/adapters/memory"
	"PayoutGuard/internal/adapters/security"
	"PayoutGuard/internal/core/domain"
	"PayoutGuard/internal/core/ports"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Test doubles ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, eventType, recipient string, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, ports.Notification{EventType: eventType, Recipient: recipient, Payload: payload})
	return n.err
}

// last returns the newest notification of eventType for recipient.
func (n *recordingNotifier) last(eventType string, recipient uuid.UUID) (ports.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].EventType == eventType && n.sent[i].Recipient == recipient.String() {
			return n.sent[i], true
		}
	}
	return ports.Notification{}, false
}

func (n *recordingNotifier) recipients(eventType string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.EventType == eventType {
			out = append(out, s.Recipient)
		}
	}
	return out
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ExecutionResult), args.Error(1)
}

// --- Fixture ---

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	notifier *recordingNotifier
	executor *mockExecutor

	bank    *BankAccountService
	roles   *RoleService
	otp     *OTPService
	payouts *PayoutService

	organizerID uuid.UUID
	owner       uuid.UUID // finance_admin, owns the organizer
	approver    uuid.UUID // finance_admin
	approver2   uuid.UUID // super_admin
	outsider    uuid.UUID // active profile and session, no role
}

func defaultPolicy() PayoutPolicy {
	return PayoutPolicy{
		DualAuthThreshold:      decimal.NewFromInt(10000),
		DelayThreshold:         decimal.NewFromInt(50000),
		MaxDailyAmount:         decimal.NewFromInt(1000000),
		PayoutDelay:            24 * time.Hour,
		HoldApprovedUntilDelay: true,
	}
}

func newFixture(t *testing.T, policy PayoutPolicy) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	f := &fixture{
		store:       memory.NewStore(&logger),
		clock:       &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		notifier:    &recordingNotifier{},
		executor:    &mockExecutor{},
		organizerID: uuid.New(),
		owner:       uuid.New(),
		approver:    uuid.New(),
		approver2:   uuid.New(),
		outsider:    uuid.New(),
	}

	start := f.clock.Now()
	for _, id := range []uuid.UUID{f.owner, f.approver, f.approver2, f.outsider} {
		f.store.PutUser(&domain.User{ID: id, IsActive: true, AccountStatus: domain.AccountStatusActive, CreatedAt: start})
		f.store.PutSession(&domain.Session{ID: uuid.New(), UserID: id, IsActive: true, ExpiresAt: start.Add(90 * 24 * time.Hour)})
	}
	f.store.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: f.owner, RoleName: domain.RoleFinanceAdmin, IsActive: true, AssignedAt: start.Add(-time.Hour)})
	f.store.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: f.approver, RoleName: domain.RoleFinanceAdmin, IsActive: true, AssignedAt: start.Add(-time.Hour)})
	f.store.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: f.approver2, RoleName: domain.RoleSuperAdmin, IsActive: true, AssignedAt: start.Add(-time.Hour)})
	f.store.PutOrganizer(f.organizerID, f.owner)

	tokens := security.NewTokenIssuer()
	audit := f.store.Audit()

	f.bank = NewBankAccountService(
		f.store.BankAccounts(), f.store.Identity(), f.store.Actions(), audit, f.notifier, tokens,
		BankAccountConfig{CoolingPeriod: 48 * time.Hour, ConfirmationTTL: time.Hour},
		&logger,
	)
	f.bank.now = f.clock.Now

	f.roles = NewRoleService(f.store.Roles(), f.store.Actions(), time.UTC, &logger)
	f.roles.now = f.clock.Now

	f.otp = NewOTPService(
		f.store.OTPs(),
		NewStoreRateLimiter(f.store.OTPs(), 3, time.Hour),
		security.NewBcryptHasher(4),
		tokens, audit, f.notifier, nil,
		OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3, HourlyLimit: 3, CodeDigits: 6, RateLimitWindow: time.Hour},
		&logger,
	)
	f.otp.now = f.clock.Now

	f.payouts = NewPayoutService(PayoutDeps{
		Actions:     f.store.Actions(),
		Authority:   f.roles,
		Volume:      f.roles,
		Identity:    f.store.Identity(),
		Eligibility: f.bank,
		OTP:         f.otp,
		Executor:    f.executor,
		Notifier:    f.notifier,
		Audit:       audit,
	}, policy, &logger)
	f.payouts.now = f.clock.Now

	return f
}

// ownerCtx carries the organizer owner's session.
func (f *fixture) ownerCtx() context.Context {
	return domain.WithActor(context.Background(), domain.Actor{
		UserID:    f.owner,
		SessionID: uuid.New(),
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	})
}

// addAccount registers an account without confirmation and returns its id.
func (f *fixture) addAccount(t *testing.T, number string, isDefault bool) uuid.UUID {
	t.Helper()
	res, err := f.bank.AddAccount(f.ownerCtx(), f.organizerID, domain.NewBankAccount{
		BankName:      "First Bank",
		BankCode:      "011",
		AccountNumber: number,
		AccountName:   "Lagos Events Ltd",
		IsDefault:     isDefault,
	}, false)
	require.NoError(t, err)
	return res.AccountID
}

// eligibleAccount adds a verified account and waits out its cooling window.
func (f *fixture) eligibleAccount(t *testing.T) uuid.UUID {
	t.Helper()
	id := f.addAccount(t, "0123456789", true)
	require.NoError(t, f.bank.MarkVerified(context.Background(), id))
	f.clock.Advance(49 * time.Hour)

	elig, err := f.bank.IsEligibleForPayout(context.Background(), f.organizerID)
	require.NoError(t, err)
	require.True(t, elig.Eligible, elig.Reason)
	return id
}

// issueOTP generates a code for user and reads it back from the notifier.
func (f *fixture) issueOTP(t *testing.T, user uuid.UUID, purpose string) string {
	t.Helper()
	_, err := f.otp.Generate(context.Background(), user, purpose)
	require.NoError(t, err)
	n, ok := f.notifier.last(ports.NotifyOTPIssued, user)
	require.True(t, ok)
	return n.Payload["code"]
}

func (f *fixture) request(amount int64) domain.PayoutRequest {
	return domain.PayoutRequest{
		OrganizerID:   f.organizerID,
		Amount:        decimal.NewFromInt(amount),
		Currency:      "NGN",
		InitiatedBy:   f.owner,
		OTPVerified:   true,
		PaymentMethod: "bank_transfer",
	}
}

func (f *fixture) executorSucceeds(reference string) {
	f.executor.On("Execute", mock.Anything, mock.Anything).
		Return(domain.ExecutionResult{Success: true, Reference: reference}, nil)
}
