package postgres

import (
	"PayoutGuard/internal/core/domain"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(organizerID uuid.UUID, now time.Time) *domain.BankAccount {
	return &domain.BankAccount{
		ID:            uuid.New(),
		OrganizerID:   organizerID,
		BankName:      "Zenith",
		BankCode:      "057",
		AccountNumber: "0123456789",
		AccountName:   "Ada Events",
		IsDefault:     true,
		IsActive:      true,
		CoolingUntil:  now.Add(48 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestBankAccountRepository_CreateAndGet_EncryptsNumber(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, testSecSvc, &nopLogger)
	_, organizerID := seedOrganizer(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct := newTestAccount(organizerID, now)
	require.NoError(t, repo.Create(ctx, acct))

	got, err := repo.GetActive(ctx, acct.ID, organizerID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0123456789", got.AccountNumber)
	assert.True(t, got.CoolingUntil.Equal(acct.CoolingUntil))

	var stored, masked string
	err = testDB.pool.QueryRow(ctx,
		`SELECT account_number, account_number_masked FROM organizer_bank_accounts WHERE id = $1`, acct.ID,
	).Scan(&stored, &masked)
	require.NoError(t, err)
	assert.NotContains(t, stored, "0123456789")
	assert.Equal(t, "******6789", masked)

	other, err := repo.GetActive(ctx, acct.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, other, "another organizer must not see the account")
}

func TestBankAccountRepository_ConsumeConfirmation_SingleUse(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, testSecSvc, &nopLogger)
	_, organizerID := seedOrganizer(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct := newTestAccount(organizerID, now)
	hash := uuid.NewString()
	expires := now.Add(time.Hour)
	acct.PendingConfirmation = true
	acct.ConfirmationTokenHash = &hash
	acct.ConfirmationExpiresAt = &expires
	require.NoError(t, repo.Create(ctx, acct))

	first, err := repo.ConsumeConfirmation(ctx, hash, now)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.False(t, first.PendingConfirmation)
	assert.Nil(t, first.ConfirmationTokenHash)

	second, err := repo.ConsumeConfirmation(ctx, hash, now)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestBankAccountRepository_ConsumeConfirmation_Expired(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, testSecSvc, &nopLogger)
	_, organizerID := seedOrganizer(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct := newTestAccount(organizerID, now)
	hash := uuid.NewString()
	expires := now.Add(-time.Minute)
	acct.PendingConfirmation = true
	acct.ConfirmationTokenHash = &hash
	acct.ConfirmationExpiresAt = &expires
	require.NoError(t, repo.Create(ctx, acct))

	got, err := repo.ConsumeConfirmation(ctx, hash, now)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := repo.ReplaceConfirmation(ctx, acct.ID, organizerID, uuid.NewString(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBankAccountRepository_DeactivateAndCount(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, testSecSvc, &nopLogger)
	_, organizerID := seedOrganizer(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	a := newTestAccount(organizerID, now)
	b := newTestAccount(organizerID, now.Add(time.Second))
	b.IsDefault = false
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	list, err := repo.ListActive(ctx, organizerID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID, "newest first")

	require.NoError(t, repo.Deactivate(ctx, a.ID, organizerID, now))
	n, err := repo.CountActive(ctx, organizerID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	verified, err := repo.MarkVerified(ctx, b.ID, now)
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.True(t, verified.IsVerified)
}

func TestBankAccountRepository_UpdateDetailsLeavesConfirmationAlone(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, testSecSvc, &nopLogger)
	_, organizerID := seedOrganizer(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct := newTestAccount(organizerID, now)
	hash := "digest-" + acct.ID.String()
	expires := now.Add(time.Hour)
	acct.PendingConfirmation = true
	acct.ConfirmationTokenHash = &hash
	acct.ConfirmationExpiresAt = &expires
	require.NoError(t, repo.Create(ctx, acct))

	stale := *acct
	consumed, err := repo.ConsumeConfirmation(ctx, hash, now)
	require.NoError(t, err)
	require.NotNil(t, consumed)

	stale.AccountName = "Ada Events Ltd"
	stale.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.UpdateDetails(ctx, &stale))

	got, err := repo.GetActive(ctx, acct.ID, organizerID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada Events Ltd", got.AccountName)
	assert.False(t, got.PendingConfirmation)
	assert.Nil(t, got.ConfirmationTokenHash)

	again, err := repo.ConsumeConfirmation(ctx, hash, now)
	require.NoError(t, err)
	assert.Nil(t, again, "the token confirms once")
}

func TestBankAccountRepository_ApplyCriticalChangeResetsGate(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, testSecSvc, &nopLogger)
	_, organizerID := seedOrganizer(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	acct := newTestAccount(organizerID, now)
	acct.IsVerified = true
	require.NoError(t, repo.Create(ctx, acct))

	hash := "digest-" + acct.ID.String()
	expires := now.Add(time.Hour)
	acct.AccountNumber = "1111222233"
	acct.CoolingUntil = now.Add(48 * time.Hour)
	acct.ConfirmationTokenHash = &hash
	acct.ConfirmationExpiresAt = &expires
	acct.UpdatedAt = now
	require.NoError(t, repo.ApplyCriticalChange(ctx, acct))

	got, err := repo.GetActive(ctx, acct.ID, organizerID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1111222233", got.AccountNumber)
	assert.False(t, got.IsVerified)
	assert.True(t, got.PendingConfirmation)
	require.NotNil(t, got.ConfirmationTokenHash)
	assert.Equal(t, hash, *got.ConfirmationTokenHash)
}
