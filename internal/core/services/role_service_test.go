package services

import (
	"PayoutGuard/internal/adapters/memory"
	"PayoutGuard/internal/core/domain"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPayoutAuthority(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	testCases := []struct {
		name       string
		roles      []domain.RoleAssignment
		authorized bool
	}{
		{name: "no assignment", roles: nil, authorized: false},
		{name: "finance admin", roles: []domain.RoleAssignment{{RoleName: domain.RoleFinanceAdmin, IsActive: true}}, authorized: true},
		{name: "super admin", roles: []domain.RoleAssignment{{RoleName: domain.RoleSuperAdmin, IsActive: true}}, authorized: true},
		{name: "account admin", roles: []domain.RoleAssignment{{RoleName: domain.RoleAccountAdmin, IsActive: true}}, authorized: true},
		{name: "viewer", roles: []domain.RoleAssignment{{RoleName: "viewer", IsActive: true}}, authorized: false},
		{name: "viewer with capability", roles: []domain.RoleAssignment{{RoleName: "viewer", CanProcessPayouts: true, IsActive: true}}, authorized: true},
		{name: "inactive admin", roles: []domain.RoleAssignment{{RoleName: domain.RoleFinanceAdmin}}, authorized: false},
		{name: "expired admin", roles: []domain.RoleAssignment{{RoleName: domain.RoleFinanceAdmin, IsActive: true, ExpiresAt: &past}}, authorized: false},
		{
			name: "most recent assignment wins",
			roles: []domain.RoleAssignment{
				{RoleName: domain.RoleFinanceAdmin, IsActive: true, AssignedAt: now.Add(-48 * time.Hour)},
				{RoleName: "viewer", IsActive: true, AssignedAt: now.Add(-time.Hour)},
			},
			authorized: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger := zerolog.Nop()
			store := memory.NewStore(&logger)
			user := uuid.New()
			for i := range tc.roles {
				r := tc.roles[i]
				r.ID = uuid.New()
				r.UserID = user
				store.AssignRole(&r)
			}
			svc := NewRoleService(store.Roles(), store.Actions(), time.UTC, &logger)
			svc.now = func() time.Time { return now }

			auth, err := svc.HasPayoutAuthority(context.Background(), user)
			require.NoError(t, err)
			assert.Equal(t, tc.authorized, auth.Authorized)
			assert.NotEmpty(t, auth.Reason)
		})
	}
}

func TestListApprovers_ExcludesInitiatorAndUnauthorized(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	viewer := uuid.New()
	f.store.AssignRole(&domain.RoleAssignment{ID: uuid.New(), UserID: viewer, RoleName: "viewer", IsActive: true, AssignedAt: f.clock.Now()})

	approvers, err := f.roles.ListApprovers(context.Background(), f.owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.approver, f.approver2}, approvers)
}

func TestGetDailyCommitted(t *testing.T) {
	f := newFixture(t, defaultPolicy())
	ctx := context.Background()
	now := f.clock.Now()
	limit := decimal.NewFromInt(10000000)

	put := func(amount int64, status domain.ActionStatus, createdAt time.Time, initiator uuid.UUID) {
		require.NoError(t, f.store.Actions().CreateWithinDailyLimit(ctx, &domain.SensitiveAction{
			ID:             uuid.New(),
			InitiatedBy:    initiator,
			OrganizerID:    f.organizerID,
			AmountInvolved: decimal.NewFromInt(amount),
			Currency:       "NGN",
			Status:         status,
			CreatedAt:      createdAt,
		}, createdAt.Add(-time.Hour), limit))
	}

	put(100, domain.StatusCompleted, now, f.owner)
	put(200, domain.StatusProcessing, now, f.owner)
	put(400, domain.StatusScheduled, now, f.owner)
	put(800, domain.StatusPendingApproval, now, f.owner)
	put(1600, domain.StatusFailed, now, f.owner)
	put(3200, domain.StatusCompleted, now.Add(-24*time.Hour), f.owner)
	put(6400, domain.StatusCompleted, now, f.approver)

	sum, err := f.roles.GetDailyCommitted(ctx, f.owner, now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1500).Equal(sum), "got %s", sum)
}

func TestStartOfDay_UsesPolicyZone(t *testing.T) {
	logger := zerolog.Nop()
	lagos := time.FixedZone("WAT", 3600)
	svc := NewRoleService(nil, nil, lagos, &logger)

	// 23:30 UTC is already the next day in Lagos.
	at := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	start := svc.StartOfDay(at)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, lagos), start)
	assert.True(t, start.Equal(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)))
}
